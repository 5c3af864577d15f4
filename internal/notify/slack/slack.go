// Package slack implements the notify.Notifier for Slack. Conversation
// threads map to Slack message threads rooted at a topic message.
package slack

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Notifier posts alerts to a Slack channel.
type Notifier struct {
	client    slackClient
	channelID string
}

// Opts holds parameters for creating a Slack Notifier.
type Opts struct {
	BotToken  string // xoxb-... bot token
	ChannelID string
	// For testing: inject a mock instead of the real API client.
	Client slackClient
}

// New creates a Slack Notifier.
func New(opts Opts) (*Notifier, error) {
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("slack: channel id is required")
	}
	client := opts.Client
	if client == nil {
		if opts.BotToken == "" {
			return nil, fmt.Errorf("slack: bot token is required")
		}
		client = slackapi.New(opts.BotToken)
	}
	return &Notifier{client: client, channelID: opts.ChannelID}, nil
}

// CreateThread posts a root message and returns its timestamp, which Slack
// uses as the thread identifier.
func (n *Notifier) CreateThread(ctx context.Context, name string) (string, error) {
	_, ts, err := n.client.PostMessageContext(ctx, n.channelID, slackapi.MsgOptionText(name, false))
	if err != nil {
		return "", fmt.Errorf("slack: create thread %q: %w", name, err)
	}
	return ts, nil
}

// Send posts text into the thread rooted at threadID, or top-level when
// threadID is empty.
func (n *Notifier) Send(ctx context.Context, threadID, text string) error {
	options := []slackapi.MsgOption{slackapi.MsgOptionText(text, false)}
	if threadID != "" {
		options = append(options, slackapi.MsgOptionTS(threadID))
	}
	if _, _, err := n.client.PostMessageContext(ctx, n.channelID, options...); err != nil {
		return fmt.Errorf("slack: send message: %w", err)
	}
	return nil
}
