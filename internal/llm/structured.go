package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"

	"github.com/dyike/CortexFolio/config"
	"github.com/dyike/CortexFolio/internal/extract"
	"github.com/dyike/CortexFolio/internal/result"
)

const deepseekBaseURL = "https://api.deepseek.com/v1"

// StructuredClient asks an OpenAI-compatible endpoint for a JSON document.
// OpenAI gets a json_schema response format; other providers get json_object.
type StructuredClient struct {
	client    *openai.Client
	model     string
	maxTokens int
	useSchema bool
}

func NewStructuredClient(cfg config.Config) *StructuredClient {
	oc := openai.DefaultConfig(cfg.LLMAPIKey())
	switch {
	case cfg.LLMBaseURL != "":
		oc.BaseURL = strings.TrimRight(cfg.LLMBaseURL, "/")
	case cfg.LLMProvider == "deepseek":
		oc.BaseURL = deepseekBaseURL
	}
	return &StructuredClient{
		client:    openai.NewClientWithConfig(oc),
		model:     cfg.LLMModel,
		maxTokens: cfg.LLMMaxTokens,
		useSchema: cfg.LLMProvider == "openai",
	}
}

func (c *StructuredClient) responseFormat(name string, v any) *openai.ChatCompletionResponseFormat {
	if c.useSchema {
		if def, err := jsonschema.GenerateSchemaForType(v); err == nil {
			return &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
				JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
					Name:   name,
					Schema: def,
				},
			}
		}
	}
	return &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
}

// Complete returns the raw JSON text produced for msgs.
func (c *StructuredClient) Complete(ctx context.Context, name string, shape any, msgs []*schema.Message) (string, error) {
	const op = "llm.structured"
	req := openai.ChatCompletionRequest{
		Model:          c.model,
		MaxTokens:      c.maxTokens,
		ResponseFormat: c.responseFormat(name, shape),
		Messages:       make([]openai.ChatCompletionMessage, 0, len(msgs)),
	}
	for _, m := range msgs {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", result.Wrap(result.KindUpstream, op, err)
	}
	if len(resp.Choices) == 0 {
		return "", result.Errorf(result.KindUpstream, op, "no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// JSONModel produces JSON documents, preferring the structured client when
// one is configured and falling back to free text plus extraction.
type JSONModel struct {
	Chat       model.BaseChatModel
	Structured *StructuredClient
	Logger     *zap.Logger
}

// Decode asks for a T and returns it together with the raw model text.
// A parse failure is reported as a KindParse error alongside the raw text.
func Decode[T any](ctx context.Context, m JSONModel, name string, msgs []*schema.Message) (T, string, error) {
	var out T
	logger := m.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if m.Structured != nil {
		raw, err := m.Structured.Complete(ctx, name, out, msgs)
		if err == nil {
			if perr := extract.Into(raw, &out); perr == nil {
				return out, raw, nil
			}
			logger.Warn("structured output did not decode, retrying as text", zap.String("schema", name))
		} else {
			logger.Warn("structured output failed, retrying as text", zap.String("schema", name), zap.Error(err))
		}
		if m.Chat == nil {
			return out, raw, errors.Join(err, result.Errorf(result.KindParse, "llm.decode", "no fallback model for %s", name))
		}
	}
	if m.Chat == nil {
		return out, "", result.Errorf(result.KindPrecondition, "llm.decode", "no chat model configured")
	}

	raw, err := Text(ctx, m.Chat, msgs)
	if err != nil {
		return out, "", result.Wrap(result.KindUpstream, "llm.decode", err)
	}
	if err := extract.Into(raw, &out); err != nil {
		return out, raw, result.Wrap(result.KindParse, "llm.decode", fmt.Errorf("%s: %w", name, err))
	}
	return out, raw, nil
}
