package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/openai/openai-go/v3"
	"github.com/vkarpenko/shoptalk/internal/models"
)

// toolDefinitions declares the three function tools exposed to the model.
func toolDefinitions() []openai.ChatCompletionToolUnionParam {
	return []openai.ChatCompletionToolUnionParam{
		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        "escalation",
			Description: openai.String("Client wants to be connected with a manager or operator, or the assistant cannot help the client"),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"reason": map[string]interface{}{"type": "string", "description": "Reason for escalation"},
				},
				"required": []string{"reason"},
			},
		}),
		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        "create_order",
			Description: openai.String("Create an order for a product"),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"size":  map[string]interface{}{"type": "string", "description": "Size of the product"},
					"color": map[string]interface{}{"type": "string", "description": "Color of the product"},
				},
				"required": []string{"size", "color"},
			},
		}),
		openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        "initiate_return",
			Description: openai.String("Initiate a return for a product"),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]interface{}{
					"date_of_order": map[string]interface{}{"type": "string", "description": "Date of the order"},
					"reason":        map[string]interface{}{"type": "string", "description": "Reason for return"},
				},
				"required": []string{"date_of_order", "reason"},
			},
		}),
	}
}

// dispatchTool executes one tool call and returns the JSON output fed back
// to the model. Failures are reported to the model, never raised.
func (g *Generator) dispatchTool(ctx context.Context, req Request, name, arguments string) string {
	var args map[string]string
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		log.Printf("assistant: tool %s: bad arguments %q: %v", name, arguments, err)
		return toolOutput("error", "invalid arguments")
	}

	switch name {
	case "escalation":
		return g.toolEscalation(ctx, req, args["reason"])
	case "create_order":
		return g.toolCreateOrder(ctx, req, args["size"], args["color"])
	case "initiate_return":
		return g.toolInitiateReturn(ctx, req, args["date_of_order"], args["reason"])
	default:
		log.Printf("assistant: unknown tool %s for chat %s", name, req.ChatID)
		return toolOutput("error", "unknown tool")
	}
}

func (g *Generator) toolEscalation(ctx context.Context, req Request, reason string) string {
	rec := models.Escalation{
		ChatID:    req.ChatID,
		ClientID:  req.ClientID,
		BuyerName: req.BuyerName,
		ChatURL:   req.ChatURL,
		Reason:    reason,
		Source:    "assistant",
	}
	if err := g.db.Create(&rec).Error; err != nil {
		log.Printf("assistant: record escalation for chat %s: %v", req.ChatID, err)
		return toolOutput("error", "escalation not recorded")
	}

	text := fmt.Sprintf("❗️Требуется срочное внимание менеджера\n\nТовар: %s\nПричина: %s\nСсылка на чат: %s",
		req.AdURL, reason, req.ChatURL)
	if err := g.notifier.Send(ctx, req.ThreadID, text); err != nil {
		log.Printf("assistant: escalation alert for chat %s: %v", req.ChatID, err)
	}
	return toolOutput("success", "Escalation created")
}

func (g *Generator) toolCreateOrder(ctx context.Context, req Request, size, color string) string {
	rec := models.Order{
		ChatID:    req.ChatID,
		ClientID:  req.ClientID,
		BuyerName: req.BuyerName,
		GoodName:  req.GoodName,
		GoodURL:   req.AdURL,
		Color:     color,
		Size:      size,
	}
	if err := g.db.Create(&rec).Error; err != nil {
		log.Printf("assistant: record order for chat %s: %v", req.ChatID, err)
		return toolOutput("error", "order not recorded")
	}

	text := fmt.Sprintf("Новый заказ\n\nТовар: %s\nРазмер: %s\nЦвет: %s", req.AdURL, size, color)
	if err := g.notifier.Send(ctx, "", text); err != nil {
		log.Printf("assistant: order alert for chat %s: %v", req.ChatID, err)
	}
	return toolOutput("success", "Order created")
}

func (g *Generator) toolInitiateReturn(ctx context.Context, req Request, dateOfOrder, reason string) string {
	rec := models.Return{
		ChatID:    req.ChatID,
		ClientID:  req.ClientID,
		BuyerName: req.BuyerName,
		OrderDate: dateOfOrder,
		Reason:    reason,
		GoodURL:   req.AdURL,
	}
	if err := g.db.Create(&rec).Error; err != nil {
		log.Printf("assistant: record return for chat %s: %v", req.ChatID, err)
		return toolOutput("error", "return not recorded")
	}

	text := fmt.Sprintf("Новая заявка на возврат\n\nТовар: %s\nЗаказ от: %s\nПричина: %s", req.AdURL, dateOfOrder, reason)
	if err := g.notifier.Send(ctx, "", text); err != nil {
		log.Printf("assistant: return alert for chat %s: %v", req.ChatID, err)
	}
	return toolOutput("success", "Return initiated")
}

// toolOutput renders a tool result as the JSON shape the model expects.
func toolOutput(status, message string) string {
	out, _ := json.Marshal(map[string]string{"status": status, "message": message})
	return string(out)
}
