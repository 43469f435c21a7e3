// Package agent runs the tool-calling conversation loop for one message.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"hisaab/internal/log"
	"hisaab/internal/storage"
	"hisaab/internal/tools"
)

const DefaultMaxTurns = 10

var (
	ErrMaxTurns    = errors.New("agent exceeded max turns")
	ErrEmptyOutput = errors.New("model returned no choices")
)

// ChatCompleter is the subset of the OpenAI client the agent needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Config struct {
	Model    string
	MaxTurns int
	// Now is the clock handed to the toolbox. Defaults to time.Now.
	Now func() time.Time
}

type Agent struct {
	client ChatCompleter
	store  storage.Store
	cfg    Config
	logger *slog.Logger
}

func New(client ChatCompleter, store storage.Store, cfg Config, logger *slog.Logger) *Agent {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		client: client,
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// Run answers one user message. Each run starts from the persona and the
// message alone; the store is the only memory between runs.
func (a *Agent) Run(ctx context.Context, userID, text string) (string, error) {
	box := tools.ForUser(a.store, userID, a.cfg.Now)

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: Instructions},
		{Role: openai.ChatMessageRoleUser, Content: text},
	}
	schemas := toolSchemas(box)

	for turn := 0; turn < a.cfg.MaxTurns; turn++ {
		resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    a.cfg.Model,
			Messages: messages,
			Tools:    schemas,
		})
		if err != nil {
			return "", fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", ErrEmptyOutput
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			a.logger.DebugContext(ctx, "Agent finished",
				log.FieldAgent, Name,
				log.FieldUserID, userID,
				"turns", turn+1)
			return msg.Content, nil
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			out, err := box.Call(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments))
			if err != nil {
				return "", err
			}
			a.logger.DebugContext(ctx, "Tool call completed",
				log.FieldAgent, Name,
				log.FieldUserID, userID,
				log.FieldTool, call.Function.Name,
				"turn", turn+1)
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    out,
				Name:       call.Function.Name,
				ToolCallID: call.ID,
			})
		}
	}

	return "", fmt.Errorf("%w (%d)", ErrMaxTurns, a.cfg.MaxTurns)
}

func toolSchemas(box *tools.Toolbox) []openai.Tool {
	defs := box.Tools()
	out := make([]openai.Tool, 0, len(defs))
	for _, t := range defs {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}
