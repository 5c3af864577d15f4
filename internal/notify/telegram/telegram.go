// Package telegram implements the notify.Notifier for Telegram using forum
// topics as per-conversation threads.
package telegram

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// botAPI abstracts the telego methods we use, enabling test mocks.
type botAPI interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	CreateForumTopic(ctx context.Context, params *telego.CreateForumTopicParams) (*telego.ForumTopic, error)
}

// Notifier posts alerts to a Telegram supergroup with topics enabled.
type Notifier struct {
	bot             botAPI
	chatID          int64
	defaultThreadID int
}

// Opts holds parameters for creating a Telegram Notifier.
type Opts struct {
	Token           string
	ChatID          string // supergroup id, e.g. "-1001234567890"
	DefaultThreadID int    // topic for alerts outside any conversation
	// For testing: inject a mock instead of a real bot.
	Bot botAPI
}

// New creates a Telegram Notifier.
func New(opts Opts) (*Notifier, error) {
	chatID, err := strconv.ParseInt(opts.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram: chat id %q is not numeric: %w", opts.ChatID, err)
	}

	bot := opts.Bot
	if bot == nil {
		if opts.Token == "" {
			return nil, fmt.Errorf("telegram: bot token is required")
		}
		b, err := telego.NewBot(opts.Token)
		if err != nil {
			return nil, fmt.Errorf("telegram: create bot: %w", err)
		}
		bot = b
	}

	return &Notifier{
		bot:             bot,
		chatID:          chatID,
		defaultThreadID: opts.DefaultThreadID,
	}, nil
}

// CreateThread opens a forum topic and returns its thread id.
func (n *Notifier) CreateThread(ctx context.Context, name string) (string, error) {
	topic, err := n.bot.CreateForumTopic(ctx, &telego.CreateForumTopicParams{
		ChatID: tu.ID(n.chatID),
		Name:   name,
	})
	if err != nil {
		return "", fmt.Errorf("telegram: create forum topic %q: %w", name, err)
	}
	return strconv.Itoa(topic.MessageThreadID), nil
}

// Send posts text into the given topic, or into the default topic when
// threadID is empty.
func (n *Notifier) Send(ctx context.Context, threadID, text string) error {
	msg := tu.Message(tu.ID(n.chatID), text)

	tid := n.defaultThreadID
	if threadID != "" {
		parsed, err := strconv.Atoi(threadID)
		if err != nil {
			return fmt.Errorf("telegram: thread id %q is not numeric: %w", threadID, err)
		}
		tid = parsed
	}
	if tid > 0 {
		msg.MessageThreadID = tid
	}

	if _, err := n.bot.SendMessage(ctx, msg); err != nil {
		return fmt.Errorf("telegram: send message: %w", err)
	}
	return nil
}
