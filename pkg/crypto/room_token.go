package crypto

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RoomAccessFull grants read and write on a collaboration room.
const RoomAccessFull = "room:write"

var ErrInvalidRoomToken = errors.New("invalid room token")

// RoomUserInfo is shown to the other participants of a room.
type RoomUserInfo struct {
	Name   string `json:"name"`
	Color  string `json:"color"`
	Avatar string `json:"avatar,omitempty"`
}

// RoomClaims authorize one user on one collaboration room.
type RoomClaims struct {
	Room     string       `json:"room"`
	Access   []string     `json:"access"`
	UserInfo RoomUserInfo `json:"userInfo"`
	jwt.RegisteredClaims
}

// SignRoomToken issues an HS256 token for userID on room, valid for ttl.
func SignRoomToken(secret []byte, userID, room string, info RoomUserInfo, ttl time.Duration, now time.Time) (string, *RoomClaims, error) {
	if len(secret) == 0 {
		return "", nil, errors.New("room token secret is empty")
	}

	cl := &RoomClaims{
		Room:     room,
		Access:   []string{RoomAccessFull},
		UserInfo: info,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign room token: %w", err)
	}
	return signed, cl, nil
}

// ParseRoomToken verifies signature and expiry and returns the claims.
func ParseRoomToken(secret []byte, raw string) (*RoomClaims, error) {
	var out RoomClaims
	tkn, err := jwt.ParseWithClaims(raw, &out, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoomToken, err)
	}
	if !tkn.Valid {
		return nil, ErrInvalidRoomToken
	}
	return &out, nil
}
