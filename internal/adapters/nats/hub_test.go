package nats

import (
	"encoding/json"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikitalobanov12/WriteShare/internal/adapters/logger"
	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

func TestWorkspaceSubject(t *testing.T) {
	assert.Equal(t, "writeshare.workspace.ws-1", WorkspaceSubject("writeshare", "ws-1"))
	assert.Equal(t, "writeshare.workspace.a_b_c", WorkspaceSubject("writeshare", "a.b*c"))
}

func TestHub_DispatchesPerWorkspace(t *testing.T) {
	hub := NewHub(logger.NewNop())

	var got7, got8 []domain.ChangeEvent
	sub7 := hub.Register("7", func(e domain.ChangeEvent) { got7 = append(got7, e) })
	hub.Register("8", func(e domain.ChangeEvent) { got8 = append(got8, e) })

	assert.Equal(t, 1, hub.Dispatch(domain.ChangeEvent{Type: domain.EventPageCreated, WorkspaceID: "7"}))
	assert.Len(t, got7, 1)
	assert.Empty(t, got8)

	require.NoError(t, sub7.Unsubscribe())
	require.NoError(t, sub7.Unsubscribe())
	assert.Zero(t, hub.Dispatch(domain.ChangeEvent{WorkspaceID: "7"}))
	assert.Len(t, got7, 1)
}

func TestHub_MultipleListenersSameWorkspace(t *testing.T) {
	hub := NewHub(logger.NewNop())
	var a, b int
	hub.Register("7", func(domain.ChangeEvent) { a++ })
	subB := hub.Register("7", func(domain.ChangeEvent) { b++ })

	assert.Equal(t, 2, hub.Dispatch(domain.ChangeEvent{WorkspaceID: "7"}))
	require.NoError(t, subB.Unsubscribe())
	assert.Equal(t, 1, hub.Dispatch(domain.ChangeEvent{WorkspaceID: "7"}))
	assert.Equal(t, 2, a)
	assert.Equal(t, 1, b)
}

func TestHub_HandleMsg(t *testing.T) {
	hub := NewHub(logger.NewNop())
	var got []domain.ChangeEvent
	hub.Register("7", func(e domain.ChangeEvent) { got = append(got, e) })

	data, err := json.Marshal(domain.ChangeEvent{Type: domain.EventPageUpdated, WorkspaceID: "7", PageID: "p1"})
	require.NoError(t, err)
	hub.HandleMsg(&nats.Msg{Subject: "writeshare.workspace.7", Data: data})
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].PageID)

	hub.HandleMsg(&nats.Msg{Subject: "writeshare.workspace.7", Data: []byte("{broken")})
	hub.HandleMsg(&nats.Msg{Subject: "writeshare.workspace.7", Data: []byte(`{"type":"page.updated"}`)})
	assert.Len(t, got, 1)
}
