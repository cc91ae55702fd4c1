// Package agent defines the boundary to the upstream model/agent API: the
// request shape, the raw streaming event union the vendor emits, and the
// Runner interface implemented by infrastructure clients.
package agent

import "context"

// EventType enumerates the raw streaming event kinds emitted by the vendor
// API. The set mirrors the messages-style streaming protocol: message and
// content-block lifecycle events, deltas, and terminal markers.
type EventType string

const (
	EventMessageStart EventType = "message_start"
	EventBlockStart   EventType = "content_block_start"
	EventBlockDelta   EventType = "content_block_delta"
	EventBlockStop    EventType = "content_block_stop"
	EventMessageDelta EventType = "message_delta"
	EventMessageStop  EventType = "message_stop"
	EventError        EventType = "error"
)

// Content block kinds carried on EventBlockStart.
const (
	BlockText     = "text"
	BlockThinking = "thinking"
	BlockToolUse  = "tool_use"
)

// Delta kinds carried on EventBlockDelta.
const (
	DeltaText      = "text_delta"
	DeltaThinking  = "thinking_delta"
	DeltaInputJSON = "input_json_delta"
	DeltaCitation  = "citations_delta"
)

// Event is one raw streaming event. Exactly the fields relevant to its Type
// are populated; the rest are zero.
type Event struct {
	Type  EventType
	Index int

	// Block is set on content_block_start.
	Block *ContentBlock
	// Delta is set on content_block_delta.
	Delta *Delta
	// Usage is set on message_start (input side) and message_delta (output
	// side) when the vendor reports token counts.
	Usage *Usage
	// StopReason is set on message_delta when generation stopped.
	StopReason string
	// MessageID and Model are set on message_start.
	MessageID string
	Model     string
	// Err is set on error events.
	Err *APIError
}

// ContentBlock describes a block opened by content_block_start.
type ContentBlock struct {
	Type     string `json:"type"`
	ToolID   string `json:"id,omitempty"`
	ToolName string `json:"name,omitempty"`
}

// Delta is an incremental content fragment.
type Delta struct {
	Type        string    `json:"type"`
	Text        string    `json:"text,omitempty"`
	Thinking    string    `json:"thinking,omitempty"`
	PartialJSON string    `json:"partial_json,omitempty"`
	Citation    *Citation `json:"citation,omitempty"`
}

// Citation references a retrieved source backing generated content.
type Citation struct {
	DocumentID    string `json:"document_id,omitempty"`
	DocumentTitle string `json:"document_title,omitempty"`
	Snippet       string `json:"cited_text,omitempty"`
}

// Usage carries token counts reported by the vendor.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// APIError is a structured error reported in-stream by the vendor.
type APIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// TurnMessage is one prior conversation turn sent to the model.
type TurnMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one streamed model invocation.
type Request struct {
	Model     string        `json:"model"`
	System    string        `json:"system,omitempty"`
	Messages  []TurnMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

// Runner starts a streamed agent invocation and delivers raw events on the
// returned channel. The channel is closed after a terminal event
// (message_stop or error) or when ctx is canceled; implementations must not
// leak their pump goroutine in either case.
type Runner interface {
	Run(ctx context.Context, req *Request) (<-chan Event, error)
}
