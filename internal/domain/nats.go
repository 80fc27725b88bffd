package domain

import (
	"context"
	"time"
)

// ChangeEventType names a workspace-visible mutation.
type ChangeEventType string

const (
	EventPageCreated  ChangeEventType = "page.created"
	EventPageUpdated  ChangeEventType = "page.updated"
	EventPageArchived ChangeEventType = "page.archived"
	EventMemberJoined ChangeEventType = "workspace.member_joined"
)

// ChangeEvent is published after a mutation commits and streamed to the
// workspace's live clients.
type ChangeEvent struct {
	Type        ChangeEventType `json:"type"`
	WorkspaceID string          `json:"workspace_id"`
	PageID      string          `json:"page_id,omitempty"`
	ActorID     string          `json:"actor_id"`
	At          time.Time       `json:"at"`
}

// EventPublisher publishes change events to the message bus.
type EventPublisher interface {
	PublishChange(ctx context.Context, event ChangeEvent) error
}

// EventSubscription represents an active bus subscription.
type EventSubscription interface {
	Unsubscribe() error
}

// ChangeEventHandler is called once per delivered event.
type ChangeEventHandler func(event ChangeEvent)

// EventSubscriber delivers the change events of one workspace.
type EventSubscriber interface {
	SubscribeWorkspace(ctx context.Context, workspaceID string, handler ChangeEventHandler) (EventSubscription, error)
}
