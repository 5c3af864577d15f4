// Package notify delivers operator-facing alerts to chat platforms
// (Telegram, Slack, Discord).
package notify

import "context"

// Notifier is the interface that platform-specific implementations must
// satisfy. One Notifier serves one tenant's notification channel.
type Notifier interface {
	// CreateThread opens a new sub-channel (forum topic, thread) and returns
	// its platform-specific identifier.
	CreateThread(ctx context.Context, name string) (string, error)

	// Send posts text into the given thread. An empty threadID targets the
	// channel's default destination.
	Send(ctx context.Context, threadID, text string) error
}

// Nop is a Notifier that discards everything. Used when a tenant has no
// notification channel configured.
type Nop struct{}

func (Nop) CreateThread(ctx context.Context, name string) (string, error) { return "", nil }

func (Nop) Send(ctx context.Context, threadID, text string) error { return nil }
