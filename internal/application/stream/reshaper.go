// Package stream normalizes the vendor agent API's raw streaming events into
// the envelope shape emitted over Server-Sent Events.
package stream

import (
	"context"

	"github.com/nimbusworks/nimbus/internal/domain/agent"
)

// Normalized envelope types delivered to SSE clients.
const (
	TypeInit      = "init"
	TypeDelta     = "delta"
	TypeReasoning = "reasoning"
	TypeToolUse   = "tool_use"
	TypeCitation  = "citation"
	TypeUsage     = "usage"
	TypeComplete  = "complete"
	TypeError     = "error"
	TypeDone      = "done"
)

// Envelope is the normalized event shape: a type tag plus a JSON object.
type Envelope struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Reshape consumes the raw event channel and returns a channel of normalized
// envelopes.
//
// Contract:
//   - Input order is preserved; a raw event fans out to zero or more
//     envelopes (empty deltas are filtered).
//   - On a terminal raw event (message_stop or error) no further input is
//     read; exactly one complete or error envelope is emitted, followed by
//     exactly one done envelope, then the output channel closes.
//   - If the raw channel closes without a terminal event, an error envelope
//     and done are emitted so the transport always sees a clean termination.
//   - Canceling ctx stops the translation goroutine; the upstream runner owns
//     cleanup of the vendor connection via the same context.
//
// Reshape performs no I/O and holds no state beyond one call.
func Reshape(ctx context.Context, raw <-chan agent.Event) <-chan Envelope {
	out := make(chan Envelope)

	go func() {
		defer close(out)

		emit := func(e Envelope) bool {
			select {
			case out <- e:
				return true
			case <-ctx.Done():
				return false
			}
		}
		// finish emits the terminal envelope and the single done marker.
		finish := func(terminal Envelope) {
			if emit(terminal) {
				emit(Envelope{Type: TypeDone, Data: map[string]any{}})
			}
		}

		var stopReason string
		openBlocks := make(map[int]*agent.ContentBlock)

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-raw:
				if !ok {
					finish(errorEnvelope("stream_interrupted",
						"upstream stream ended without a terminal event"))
					return
				}
				switch ev.Type {
				case agent.EventMessageStart:
					if !emit(Envelope{Type: TypeInit, Data: map[string]any{
						"message_id": ev.MessageID,
						"model":      ev.Model,
					}}) {
						return
					}
					// Input-side token counts arrive here, not on
					// message_delta.
					if ev.Usage != nil {
						if !emit(Envelope{Type: TypeUsage, Data: map[string]any{
							"input_tokens":  ev.Usage.InputTokens,
							"output_tokens": ev.Usage.OutputTokens,
						}}) {
							return
						}
					}

				case agent.EventBlockStart:
					if ev.Block == nil {
						continue
					}
					openBlocks[ev.Index] = ev.Block
					if ev.Block.Type == agent.BlockToolUse {
						if !emit(Envelope{Type: TypeToolUse, Data: map[string]any{
							"id":   ev.Block.ToolID,
							"name": ev.Block.ToolName,
						}}) {
							return
						}
					}

				case agent.EventBlockDelta:
					env, emitIt := translateDelta(ev, openBlocks)
					if emitIt && !emit(env) {
						return
					}

				case agent.EventBlockStop:
					delete(openBlocks, ev.Index)

				case agent.EventMessageDelta:
					if ev.StopReason != "" {
						stopReason = ev.StopReason
					}
					if ev.Usage != nil {
						if !emit(Envelope{Type: TypeUsage, Data: map[string]any{
							"input_tokens":  ev.Usage.InputTokens,
							"output_tokens": ev.Usage.OutputTokens,
						}}) {
							return
						}
					}

				case agent.EventMessageStop:
					finish(Envelope{Type: TypeComplete, Data: map[string]any{
						"stop_reason": stopReason,
					}})
					return

				case agent.EventError:
					code, message := "upstream_error", "agent stream failed"
					if ev.Err != nil {
						if ev.Err.Type != "" {
							code = ev.Err.Type
						}
						if ev.Err.Message != "" {
							message = ev.Err.Message
						}
					}
					finish(errorEnvelope(code, message))
					return
				}
			}
		}
	}()

	return out
}

// translateDelta maps a content_block_delta to its envelope. The second
// return value is false for no-op deltas, which are filtered out entirely.
func translateDelta(ev agent.Event, openBlocks map[int]*agent.ContentBlock) (Envelope, bool) {
	if ev.Delta == nil {
		return Envelope{}, false
	}
	switch ev.Delta.Type {
	case agent.DeltaText:
		if ev.Delta.Text == "" {
			return Envelope{}, false
		}
		return Envelope{Type: TypeDelta, Data: map[string]any{
			"text": ev.Delta.Text,
		}}, true

	case agent.DeltaThinking:
		if ev.Delta.Thinking == "" {
			return Envelope{}, false
		}
		return Envelope{Type: TypeReasoning, Data: map[string]any{
			"text": ev.Delta.Thinking,
		}}, true

	case agent.DeltaInputJSON:
		if ev.Delta.PartialJSON == "" {
			return Envelope{}, false
		}
		data := map[string]any{"partial_json": ev.Delta.PartialJSON}
		if block, ok := openBlocks[ev.Index]; ok {
			data["id"] = block.ToolID
		}
		return Envelope{Type: TypeToolUse, Data: data}, true

	case agent.DeltaCitation:
		if ev.Delta.Citation == nil {
			return Envelope{}, false
		}
		return Envelope{Type: TypeCitation, Data: map[string]any{
			"document_id":    ev.Delta.Citation.DocumentID,
			"document_title": ev.Delta.Citation.DocumentTitle,
			"cited_text":     ev.Delta.Citation.Snippet,
		}}, true
	}
	return Envelope{}, false
}

func errorEnvelope(code, message string) Envelope {
	return Envelope{Type: TypeError, Data: map[string]any{
		"code":    code,
		"message": message,
	}}
}
