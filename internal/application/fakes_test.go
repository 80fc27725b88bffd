package application

import "github.com/nikitalobanov12/WriteShare/internal/domain"

// sessionAs returns a request session already resolved to identity.
func sessionAs(userID, email string) *RequestSession {
	rs := &RequestSession{}
	rs.once.Do(func() {
		rs.identity = &domain.SessionIdentity{UserID: userID, UserEmail: email}
	})
	return rs
}
