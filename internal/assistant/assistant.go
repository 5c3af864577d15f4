// Package assistant generates buyer replies with the OpenAI chat API. Tool
// calls from the model create order, return and escalation records and
// notify the operator channel.
package assistant

import (
	"context"
	"fmt"
	"log"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/vkarpenko/shoptalk/internal/models"
	"github.com/vkarpenko/shoptalk/internal/notify"
	"gorm.io/gorm"
)

// salesPrompt is the shared system prompt for every tenant.
const salesPrompt = `# GENERAL INFORMATION

You are a sales manager providing product information to customers. Try answer short as possible.

## GUIDELINES
- Greet the customer at the start, but never twice.
- Respond in their language.
- Be concise, polite, and tactful.
- Ask clarifying questions after responding.
- Use lists and emojis when necessary. Do not use any markup.
- Offer always at least two sizes.
- Do not reply to messages that only contain emojis.

## COMMUNICATION REMINDERS
- Ask the client's weight and height at the start of the conversation, unless
  already present in the history.
- Keep responses clear and to the point.`

// historyLimit bounds how many ledger messages are replayed into the prompt.
const historyLimit = 20

// DefaultModel is used when the tenant has no model configured.
const DefaultModel = "gpt-4o-mini"

// Generator produces replies for one tenant.
type Generator struct {
	client   openai.Client
	model    string
	db       *gorm.DB
	notifier notify.Notifier
}

// Opts holds parameters for creating a Generator.
type Opts struct {
	APIKey   string
	Model    string
	BaseURL  string // override in tests
	DB       *gorm.DB
	Notifier notify.Notifier
}

// New creates a Generator.
func New(opts Opts) (*Generator, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("assistant: api key is required")
	}
	if opts.DB == nil {
		return nil, fmt.Errorf("assistant: db is required")
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}

	return &Generator{
		client:   openai.NewClient(clientOpts...),
		model:    model,
		db:       opts.DB,
		notifier: notifier,
	}, nil
}

// Request carries everything the generator needs for one reply cycle.
type Request struct {
	ChatID       string
	ClientID     uint
	BuyerName    string
	AdURL        string
	ChatURL      string
	ThreadID     string // operator notification thread for this chat
	CombinedText string
	StockContext string // stock document JSON
	GoodName     string
}

// Reply runs one completion cycle: history + stock context + buyer text,
// dispatching tool calls, and returns the final assistant text.
func (g *Generator) Reply(ctx context.Context, req Request) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(salesPrompt),
	}
	messages = append(messages, g.history(req.ChatID)...)
	messages = append(messages,
		openai.UserMessage("# STOCK AVAILABILITY AND INFORMATION: "+req.StockContext),
		openai.UserMessage(req.CombinedText),
	)

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(g.model),
		Messages: messages,
		Tools:    toolDefinitions(),
	}

	completion, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("assistant: completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("assistant: completion returned no choices")
	}
	msg := completion.Choices[0].Message

	if len(msg.ToolCalls) > 0 {
		params.Messages = append(params.Messages, msg.ToParam())
		for _, tc := range msg.ToolCalls {
			output := g.dispatchTool(ctx, req, tc.Function.Name, tc.Function.Arguments)
			params.Messages = append(params.Messages, openai.ToolMessage(output, tc.ID))
		}

		completion, err = g.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("assistant: tool follow-up completion: %w", err)
		}
		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("assistant: follow-up completion returned no choices")
		}
		msg = completion.Choices[0].Message
	}

	if msg.Content == "" {
		return "", fmt.Errorf("assistant: empty reply for chat %s", req.ChatID)
	}
	return msg.Content, nil
}

// history replays the chat's recent ledger entries as conversation turns.
func (g *Generator) history(chatID string) []openai.ChatCompletionMessageParamUnion {
	var rows []models.Message
	if err := g.db.Where("chat_id = ?", chatID).
		Order("id DESC").Limit(historyLimit).
		Find(&rows).Error; err != nil {
		log.Printf("assistant: load history for chat %s: %v", chatID, err)
		return nil
	}

	// Rows arrive newest-first; replay oldest-first.
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		if rows[i].FromAssistant {
			out = append(out, openai.AssistantMessage(rows[i].Body))
		} else {
			out = append(out, openai.UserMessage(rows[i].Body))
		}
	}
	return out
}
