package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/nikitalobanov12/WriteShare/internal/adapters/config"
	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

const streamMaxAge = 24 * time.Hour

var subjectReplacer = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")

// WorkspaceSubject is the subject carrying the change events of one workspace.
func WorkspaceSubject(prefix, workspaceID string) string {
	return fmt.Sprintf("%s.workspace.%s", prefix, subjectReplacer.Replace(workspaceID))
}

// Adapter publishes change events to JetStream and feeds the local Hub from a
// single per-pod subscription.
type Adapter struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	hub    *Hub
	sub    *nats.Subscription
	logger domain.Logger
	cfg    config.NATSConfig
}

// NewAdapter connects to NATS and makes sure the events stream exists.
func NewAdapter(ctx context.Context, cfgProvider config.Provider, hub *Hub, appLogger domain.Logger) (*Adapter, func(), error) {
	appFullCfg := cfgProvider.Get()
	natsCfg := appFullCfg.NATS

	appLogger.Info(ctx, "Attempting to connect to NATS server", "url", natsCfg.URL)

	nc, err := nats.Connect(natsCfg.URL,
		nats.Name(fmt.Sprintf("%s-%s", appFullCfg.App.ServiceName, appFullCfg.Server.PodID)),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.ErrorHandler(func(c *nats.Conn, s *nats.Subscription, err error) {
			subject := ""
			if s != nil {
				subject = s.Subject
			}
			appLogger.Error(ctx, "NATS error", "subscription", subject, "error", err.Error())
		}),
		nats.ClosedHandler(func(c *nats.Conn) {
			appLogger.Info(ctx, "NATS connection closed")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			appLogger.Info(ctx, "NATS reconnected", "url", c.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(c *nats.Conn, err error) {
			if err != nil {
				appLogger.Warn(ctx, "NATS disconnected", "error", err.Error())
			}
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", natsCfg.URL, err)
	}

	js, err := nc.JetStream(nats.PublishAsyncMaxPending(256))
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	a := &Adapter{nc: nc, js: js, hub: hub, logger: appLogger, cfg: natsCfg}
	if err := a.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, nil, err
	}

	cleanup := func() {
		appLogger.Info(context.Background(), "Closing NATS connection...")
		a.Close()
	}
	return a, cleanup, nil
}

func (a *Adapter) ensureStream(ctx context.Context) error {
	subjects := []string{a.cfg.SubjectPrefix + ".workspace.>"}
	_, err := a.js.StreamInfo(a.cfg.StreamName, nats.Context(ctx))
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", a.cfg.StreamName, err)
	}

	_, err = a.js.AddStream(&nats.StreamConfig{
		Name:     a.cfg.StreamName,
		Subjects: subjects,
		Storage:  nats.FileStorage,
		MaxAge:   streamMaxAge,
	}, nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", a.cfg.StreamName, err)
	}
	a.logger.Info(ctx, "Created JetStream stream", "stream", a.cfg.StreamName, "subjects", subjects)
	return nil
}

// PublishChange publishes one event on its workspace subject. The generated
// message id lets JetStream drop duplicate publishes.
func (a *Adapter) PublishChange(ctx context.Context, event domain.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	subject := WorkspaceSubject(a.cfg.SubjectPrefix, event.WorkspaceID)
	if _, err := a.js.Publish(subject, data, nats.Context(ctx), nats.MsgId(uuid.NewString())); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Start opens the pod's subscription to every workspace subject. Only events
// published after Start are delivered.
func (a *Adapter) Start(ctx context.Context) error {
	subject := a.cfg.SubjectPrefix + ".workspace.*"
	sub, err := a.js.Subscribe(subject, a.hub.HandleMsg,
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.AckWait(30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	a.sub = sub
	a.logger.Info(ctx, "Subscribed to workspace change events", "subject", subject, "stream", a.cfg.StreamName)
	return nil
}

// SubscribeWorkspace registers handler for the events of one workspace.
func (a *Adapter) SubscribeWorkspace(_ context.Context, workspaceID string, handler domain.ChangeEventHandler) (domain.EventSubscription, error) {
	return a.hub.Register(workspaceID, handler), nil
}

// Ping reports whether the connection is up.
func (a *Adapter) Ping(context.Context) error {
	if a.nc == nil || !a.nc.IsConnected() {
		return errors.New("nats is not connected")
	}
	return nil
}

// Close drains the subscription and the connection.
func (a *Adapter) Close() {
	if a.sub != nil {
		if err := a.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			a.logger.Warn(context.Background(), "Error unsubscribing from change events", "error", err.Error())
		}
	}
	if a.nc != nil && !a.nc.IsClosed() {
		if err := a.nc.Drain(); err != nil {
			a.logger.Error(context.Background(), "Error draining NATS connection", "error", err.Error())
		}
	}
}
