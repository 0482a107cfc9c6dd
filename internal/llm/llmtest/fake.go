// Package llmtest provides a scripted chat model for workflow tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Model answers every call with Respond. It records the messages it was given.
type Model struct {
	Respond func(call int, msgs []*schema.Message) (*schema.Message, error)

	mu    sync.Mutex
	calls [][]*schema.Message
	tools []*schema.ToolInfo
}

// Replies returns a Model that answers with texts in order and repeats the last one.
func Replies(texts ...string) *Model {
	return &Model{Respond: func(call int, _ []*schema.Message) (*schema.Message, error) {
		if len(texts) == 0 {
			return nil, errors.New("llmtest: no reply scripted")
		}
		if call >= len(texts) {
			call = len(texts) - 1
		}
		return schema.AssistantMessage(texts[call], nil), nil
	}}
}

// Failing returns a Model whose every call fails with err.
func Failing(err error) *Model {
	return &Model{Respond: func(int, []*schema.Message) (*schema.Message, error) { return nil, err }}
}

func (m *Model) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	call := len(m.calls)
	m.calls = append(m.calls, input)
	m.mu.Unlock()
	return m.Respond(call, input)
}

func (m *Model) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *Model) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	m.mu.Lock()
	m.tools = tools
	m.mu.Unlock()
	return m, nil
}

// Calls returns the inputs of every call so far.
func (m *Model) Calls() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]*schema.Message(nil), m.calls...)
}

// Tools returns the tools bound by the last WithTools call.
func (m *Model) Tools() []*schema.ToolInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tools
}

// LastUser returns the content of the last user message of call i.
func (m *Model) LastUser(i int) string {
	calls := m.Calls()
	if i < 0 || i >= len(calls) {
		return ""
	}
	msgs := calls[i]
	for j := len(msgs) - 1; j >= 0; j-- {
		if msgs[j].Role == schema.User {
			return msgs[j].Content
		}
	}
	return ""
}
