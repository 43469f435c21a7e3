// Package tools exposes the expense ledger to the language model as a set of
// JSON-schema described functions bound to a single user.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai/jsonschema"

	"hisaab/internal/storage"
)

// ValidationError reports arguments the model got wrong. Its text is handed
// back to the model so it can correct itself.
type ValidationError struct {
	Tool   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Tool, e.Reason)
}

func invalid(tool, format string, args ...any) error {
	return &ValidationError{Tool: tool, Reason: fmt.Sprintf(format, args...)}
}

// Tool is one callable function.
type Tool struct {
	Name        string
	Description string
	Parameters  jsonschema.Definition

	invoke func(ctx context.Context, args json.RawMessage) (any, error)
}

// Invoke decodes args, runs the tool and returns its JSON-serializable result.
func (t Tool) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	return t.invoke(ctx, args)
}

// Toolbox holds the tools for one user.
type Toolbox struct {
	store  storage.Store
	userID string
	now    func() time.Time

	tools  []Tool
	byName map[string]Tool
}

// ForUser binds the tool set to userID. A nil clock means time.Now.
func ForUser(store storage.Store, userID string, now func() time.Time) *Toolbox {
	if now == nil {
		now = time.Now
	}
	b := &Toolbox{
		store:  store,
		userID: userID,
		now:    now,
	}
	b.tools = []Tool{
		b.setMonthlyIncome(),
		b.addExpense(),
		b.getRemainingCash(),
		b.getMonthSummary(),
		b.getCategoryTotal(),
		b.listRecentExpenses(),
		b.getAllExpenses(),
		b.deleteExpense(),
		b.updateExpense(),
	}
	b.byName = make(map[string]Tool, len(b.tools))
	for _, t := range b.tools {
		b.byName[t.Name] = t
	}
	return b
}

func (b *Toolbox) Tools() []Tool {
	return b.tools
}

func (b *Toolbox) Lookup(name string) (Tool, bool) {
	t, ok := b.byName[name]
	return t, ok
}

type errorOutput struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Call runs the named tool and renders its output as JSON. Unknown tools and
// validation failures become an error payload for the model; any other
// failure is returned.
func (b *Toolbox) Call(ctx context.Context, name string, args json.RawMessage) (string, error) {
	t, ok := b.Lookup(name)
	if !ok {
		return render(errorOutput{Error: fmt.Sprintf("unknown tool %q", name)})
	}

	out, err := t.Invoke(ctx, args)
	var verr *ValidationError
	if errors.As(err, &verr) {
		return render(errorOutput{Error: verr.Error()})
	}
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", name, err)
	}
	return render(out)
}

func render(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode tool output: %w", err)
	}
	return string(b), nil
}

// decodeArgs unmarshals the model's arguments. Missing arguments are treated
// as an empty object.
func decodeArgs(tool string, args json.RawMessage, v any) error {
	args = bytes.TrimSpace(args)
	if len(args) == 0 || bytes.Equal(args, []byte("null")) {
		args = []byte("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return invalid(tool, "malformed arguments: %v", err)
	}
	return nil
}
