package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// Prompt is a system/user template pair. The zero Format is schema.FString.
type Prompt struct {
	System string
	User   string
	Format schema.FormatType
}

// Messages renders the prompt with vars.
func (p Prompt) Messages(ctx context.Context, vars map[string]any) ([]*schema.Message, error) {
	tpl := []schema.MessagesTemplate{}
	if p.System != "" {
		tpl = append(tpl, schema.SystemMessage(p.System))
	}
	tpl = append(tpl, schema.UserMessage(p.User))
	msgs, err := prompt.FromMessages(p.Format, tpl...).Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("format prompt: %w", err)
	}
	return msgs, nil
}

// Text runs one completion and returns the assistant text.
func Text(ctx context.Context, m model.BaseChatModel, msgs []*schema.Message) (string, error) {
	out, err := m.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if out == nil {
		return "", nil
	}
	return out.Content, nil
}
