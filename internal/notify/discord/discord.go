// Package discord implements the notify.Notifier for Discord. Conversation
// threads map to Discord threads started from a topic message.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// threadAutoArchiveMinutes keeps conversation threads visible for a week.
const threadAutoArchiveMinutes = 10080

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageThreadStartComplex(channelID, messageID string, data *discordgo.ThreadStart, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Notifier posts alerts to a Discord channel.
type Notifier struct {
	sess      session
	channelID string
}

// Opts holds parameters for creating a Discord Notifier.
type Opts struct {
	BotToken  string
	ChannelID string
	// For testing: inject a mock instead of a real session.
	Session session
}

// New creates a Discord Notifier.
func New(opts Opts) (*Notifier, error) {
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("discord: channel id is required")
	}
	sess := opts.Session
	if sess == nil {
		if opts.BotToken == "" {
			return nil, fmt.Errorf("discord: bot token is required")
		}
		s, err := discordgo.New("Bot " + opts.BotToken)
		if err != nil {
			return nil, fmt.Errorf("discord: create session: %w", err)
		}
		sess = s
	}
	return &Notifier{sess: sess, channelID: opts.ChannelID}, nil
}

// CreateThread posts a topic message and starts a thread on it, returning
// the thread's channel id.
func (n *Notifier) CreateThread(ctx context.Context, name string) (string, error) {
	msg, err := n.sess.ChannelMessageSend(n.channelID, name, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("discord: post topic message %q: %w", name, err)
	}
	thread, err := n.sess.MessageThreadStartComplex(n.channelID, msg.ID, &discordgo.ThreadStart{
		Name:                name,
		AutoArchiveDuration: threadAutoArchiveMinutes,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("discord: start thread %q: %w", name, err)
	}
	return thread.ID, nil
}

// Send posts text into the thread channel, or into the default channel when
// threadID is empty.
func (n *Notifier) Send(ctx context.Context, threadID, text string) error {
	target := threadID
	if target == "" {
		target = n.channelID
	}
	if _, err := n.sess.ChannelMessageSend(target, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: send message: %w", err)
	}
	return nil
}
