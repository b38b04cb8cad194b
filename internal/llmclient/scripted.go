package llmclient

import (
	"context"
	"encoding/json"
	"sync"
)

// ScriptedClient replays a queue of canned responses and errors, recording
// every invocation. Tests use it to drive the orchestrator deterministically.
type ScriptedClient struct {
	mu      sync.Mutex
	replies []ScriptedReply
	calls   []ScriptedCall
}

// ScriptedReply is one queued response. Err wins when both are set.
type ScriptedReply struct {
	JSON string
	Err  error
}

// ScriptedCall records the prompt and input of one invocation.
type ScriptedCall struct {
	Prompt string
	Input  any
}

func NewScriptedClient(replies ...ScriptedReply) *ScriptedClient {
	return &ScriptedClient{replies: replies}
}

// Enqueue appends replies to the script.
func (c *ScriptedClient) Enqueue(replies ...ScriptedReply) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, replies...)
}

func (c *ScriptedClient) Name() string { return "scripted" }
func (c *ScriptedClient) Close() error { return nil }

func (c *ScriptedClient) GenerateJSON(_ context.Context, prompt string, input any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, ScriptedCall{Prompt: prompt, Input: input})
	if len(c.replies) == 0 {
		return nil, ErrEmptyResponse
	}
	r := c.replies[0]
	c.replies = c.replies[1:]
	if r.Err != nil {
		return nil, r.Err
	}
	return json.RawMessage(r.JSON), nil
}

// Calls returns a copy of the recorded invocations.
func (c *ScriptedClient) Calls() []ScriptedCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ScriptedCall, len(c.calls))
	copy(out, c.calls)
	return out
}

// CallCount returns the number of invocations so far.
func (c *ScriptedClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}
