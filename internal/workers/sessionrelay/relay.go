// Package sessionrelay carries session-change events between portal
// instances over Redis pub/sub.
package sessionrelay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"certportal/internal/domain"
	"certportal/internal/ports"
)

type message struct {
	Origin    string          `json:"origin"`
	Kind      string          `json:"kind"`
	SessionID string          `json:"session_id"`
	Session   *sessionPayload `json:"session,omitempty"`
}

// sessionPayload never carries tokens.
type sessionPayload struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	ExpiresAt int64  `json:"expires_at"`
}

type Relay struct {
	client  *redis.Client
	channel string
	origin  string
	log     *zap.Logger
}

type Options struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, opts Options, log *zap.Logger) (*Relay, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return New(client, opts.Channel, log), nil
}

func New(client *redis.Client, channel string, log *zap.Logger) *Relay {
	return &Relay{client: client, channel: channel, origin: uuid.NewString(), log: log}
}

func (r *Relay) PublishSessionEvent(ctx context.Context, ev domain.SessionEvent) error {
	payload, err := r.encode(ev)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, payload).Err()
}

// Run delivers events published by other instances to sink until ctx is done.
func (r *Relay) Run(ctx context.Context, sink ports.EventSink) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", r.channel, err)
	}
	r.log.Info("session relay subscribed", zap.String("channel", r.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(msg.Payload, sink)
		}
	}
}

func (r *Relay) handle(payload string, sink ports.EventSink) {
	ev, origin, err := decode(payload)
	if err != nil {
		r.log.Warn("dropping malformed session event", zap.Error(err))
		return
	}
	if origin == r.origin {
		// already delivered locally by the broker
		return
	}
	sink.Deliver(ev)
}

func (r *Relay) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return r.client.Ping(ctx).Err()
}

func (r *Relay) Close() error { return r.client.Close() }

func (r *Relay) encode(ev domain.SessionEvent) (string, error) {
	m := message{Origin: r.origin, Kind: string(ev.Kind), SessionID: ev.SessionID}
	if ev.Session != nil {
		m.Session = &sessionPayload{
			UserID:    ev.Session.UserID,
			Email:     ev.Session.Email,
			ExpiresAt: ev.Session.ExpiresAt.Unix(),
		}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode session event: %w", err)
	}
	return string(b), nil
}

func decode(payload string) (domain.SessionEvent, string, error) {
	var m message
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return domain.SessionEvent{}, "", fmt.Errorf("decode session event: %w", err)
	}
	if m.SessionID == "" || m.Kind == "" {
		return domain.SessionEvent{}, "", fmt.Errorf("decode session event: kind and session_id are required")
	}
	ev := domain.SessionEvent{Kind: domain.SessionEventKind(m.Kind), SessionID: m.SessionID}
	if m.Session != nil {
		ev.Session = &domain.Session{
			ID:        m.SessionID,
			UserID:    m.Session.UserID,
			Email:     m.Session.Email,
			ExpiresAt: time.Unix(m.Session.ExpiresAt, 0),
		}
	}
	return ev, m.Origin, nil
}

var _ ports.EventPublisher = (*Relay)(nil)
