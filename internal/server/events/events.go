// Package events publishes auth domain events for other services to consume.
package events

import (
	"context"
	"time"
)

const (
	SubjectUserRegistered = "auth.user.registered"
	SubjectEmailVerified  = "auth.user.email_verified"
)

// UserRegistered is emitted once a new account has been stored.
type UserRegistered struct {
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EmailVerified is emitted when a user confirms their address.
type EmailVerified struct {
	UserID     int64     `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher sends an event payload on subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
	Close()
}

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }
func (Noop) Close()                                     {}
