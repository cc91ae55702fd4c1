package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusworks/nimbus/internal/domain/agent"
)

// feed delivers the scripted events on a channel and closes it.
func feed(events []agent.Event) <-chan agent.Event {
	raw := make(chan agent.Event)
	go func() {
		defer close(raw)
		for _, ev := range events {
			raw <- ev
		}
	}()
	return raw
}

func collect(t *testing.T, out <-chan Envelope) []Envelope {
	t.Helper()
	var got []Envelope
	deadline := time.After(2 * time.Second)
	for {
		select {
		case env, ok := <-out:
			if !ok {
				return got
			}
			got = append(got, env)
		case <-deadline:
			t.Fatalf("reshaper output did not close; got %d envelopes", len(got))
		}
	}
}

func types(envelopes []Envelope) []string {
	out := make([]string, 0, len(envelopes))
	for _, env := range envelopes {
		out = append(out, env.Type)
	}
	return out
}

func TestReshapeHappyPath(t *testing.T) {
	raw := feed([]agent.Event{
		{Type: agent.EventMessageStart, MessageID: "msg_01", Model: "sonnet-4"},
		{Type: agent.EventBlockStart, Index: 0, Block: &agent.ContentBlock{Type: agent.BlockText}},
		{Type: agent.EventBlockDelta, Index: 0, Delta: &agent.Delta{Type: agent.DeltaText, Text: "Hello"}},
		{Type: agent.EventBlockDelta, Index: 0, Delta: &agent.Delta{Type: agent.DeltaText, Text: ", world"}},
		{Type: agent.EventBlockStop, Index: 0},
		{Type: agent.EventMessageDelta, StopReason: "end_turn", Usage: &agent.Usage{InputTokens: 12, OutputTokens: 5}},
		{Type: agent.EventMessageStop},
	})

	got := collect(t, Reshape(context.Background(), raw))

	require.Equal(t,
		[]string{TypeInit, TypeDelta, TypeDelta, TypeUsage, TypeComplete, TypeDone},
		types(got))

	assert.Equal(t, "msg_01", got[0].Data["message_id"])
	assert.Equal(t, "sonnet-4", got[0].Data["model"])
	assert.Equal(t, "Hello", got[1].Data["text"])
	assert.Equal(t, ", world", got[2].Data["text"])
	assert.Equal(t, 12, got[3].Data["input_tokens"])
	assert.Equal(t, 5, got[3].Data["output_tokens"])
	assert.Equal(t, "end_turn", got[4].Data["stop_reason"])
}

func TestReshapeInputUsageOnMessageStart(t *testing.T) {
	// The vendor reports input tokens on message_start and output tokens on
	// message_delta; both must surface as usage envelopes.
	raw := feed([]agent.Event{
		{Type: agent.EventMessageStart, MessageID: "msg_08", Model: "sonnet-4", Usage: &agent.Usage{InputTokens: 123}},
		{Type: agent.EventBlockDelta, Index: 0, Delta: &agent.Delta{Type: agent.DeltaText, Text: "ok"}},
		{Type: agent.EventMessageDelta, StopReason: "end_turn", Usage: &agent.Usage{OutputTokens: 7}},
		{Type: agent.EventMessageStop},
	})

	got := collect(t, Reshape(context.Background(), raw))

	require.Equal(t,
		[]string{TypeInit, TypeUsage, TypeDelta, TypeUsage, TypeComplete, TypeDone},
		types(got))

	inputTokens, outputTokens := 0, 0
	for _, env := range got {
		if env.Type == TypeUsage {
			inputTokens += env.Data["input_tokens"].(int)
			outputTokens += env.Data["output_tokens"].(int)
		}
	}
	assert.Equal(t, 123, inputTokens)
	assert.Equal(t, 7, outputTokens)
}

func TestReshapeFiltersEmptyDeltas(t *testing.T) {
	raw := feed([]agent.Event{
		{Type: agent.EventMessageStart, MessageID: "msg_02", Model: "sonnet-4"},
		{Type: agent.EventBlockDelta, Delta: &agent.Delta{Type: agent.DeltaText, Text: ""}},
		{Type: agent.EventBlockDelta, Delta: &agent.Delta{Type: agent.DeltaThinking, Thinking: ""}},
		{Type: agent.EventBlockDelta, Delta: &agent.Delta{Type: agent.DeltaText, Text: "x"}},
		{Type: agent.EventMessageStop},
	})

	got := collect(t, Reshape(context.Background(), raw))

	assert.Equal(t, []string{TypeInit, TypeDelta, TypeComplete, TypeDone}, types(got))
}

func TestReshapeThinkingAndCitations(t *testing.T) {
	raw := feed([]agent.Event{
		{Type: agent.EventMessageStart, MessageID: "msg_03", Model: "opus-4"},
		{Type: agent.EventBlockStart, Index: 0, Block: &agent.ContentBlock{Type: agent.BlockThinking}},
		{Type: agent.EventBlockDelta, Index: 0, Delta: &agent.Delta{Type: agent.DeltaThinking, Thinking: "considering"}},
		{Type: agent.EventBlockStop, Index: 0},
		{Type: agent.EventBlockDelta, Index: 1, Delta: &agent.Delta{Type: agent.DeltaCitation, Citation: &agent.Citation{
			DocumentID:    "doc-7",
			DocumentTitle: "Handbook",
			Snippet:       "quoted passage",
		}}},
		{Type: agent.EventMessageStop},
	})

	got := collect(t, Reshape(context.Background(), raw))

	require.Equal(t, []string{TypeInit, TypeReasoning, TypeCitation, TypeComplete, TypeDone}, types(got))
	assert.Equal(t, "considering", got[1].Data["text"])
	assert.Equal(t, "doc-7", got[2].Data["document_id"])
	assert.Equal(t, "Handbook", got[2].Data["document_title"])
	assert.Equal(t, "quoted passage", got[2].Data["cited_text"])
}

func TestReshapeToolUse(t *testing.T) {
	raw := feed([]agent.Event{
		{Type: agent.EventMessageStart, MessageID: "msg_04", Model: "sonnet-4"},
		{Type: agent.EventBlockStart, Index: 0, Block: &agent.ContentBlock{
			Type: agent.BlockToolUse, ToolID: "tu_9", ToolName: "web_search",
		}},
		{Type: agent.EventBlockDelta, Index: 0, Delta: &agent.Delta{Type: agent.DeltaInputJSON, PartialJSON: `{"query":`}},
		{Type: agent.EventBlockDelta, Index: 0, Delta: &agent.Delta{Type: agent.DeltaInputJSON, PartialJSON: `"go"}`}},
		{Type: agent.EventBlockStop, Index: 0},
		{Type: agent.EventMessageStop},
	})

	got := collect(t, Reshape(context.Background(), raw))

	require.Equal(t, []string{TypeInit, TypeToolUse, TypeToolUse, TypeToolUse, TypeComplete, TypeDone}, types(got))
	assert.Equal(t, "tu_9", got[1].Data["id"])
	assert.Equal(t, "web_search", got[1].Data["name"])
	assert.Equal(t, "tu_9", got[2].Data["id"])
	assert.Equal(t, `{"query":`, got[2].Data["partial_json"])
	assert.Equal(t, `"go"}`, got[3].Data["partial_json"])
}

func TestReshapeVendorError(t *testing.T) {
	raw := feed([]agent.Event{
		{Type: agent.EventMessageStart, MessageID: "msg_05", Model: "sonnet-4"},
		{Type: agent.EventBlockDelta, Delta: &agent.Delta{Type: agent.DeltaText, Text: "partial"}},
		{Type: agent.EventError, Err: &agent.APIError{Type: "overloaded_error", Message: "try again later"}},
	})

	got := collect(t, Reshape(context.Background(), raw))

	require.Equal(t, []string{TypeInit, TypeDelta, TypeError, TypeDone}, types(got))
	assert.Equal(t, "overloaded_error", got[2].Data["code"])
	assert.Equal(t, "try again later", got[2].Data["message"])
}

func TestReshapeInterruptedStream(t *testing.T) {
	// Raw channel closes with no terminal event: the client still gets a
	// clean error + done termination.
	raw := feed([]agent.Event{
		{Type: agent.EventMessageStart, MessageID: "msg_06", Model: "sonnet-4"},
		{Type: agent.EventBlockDelta, Delta: &agent.Delta{Type: agent.DeltaText, Text: "cut off"}},
	})

	got := collect(t, Reshape(context.Background(), raw))

	require.Equal(t, []string{TypeInit, TypeDelta, TypeError, TypeDone}, types(got))
	assert.Equal(t, "stream_interrupted", got[2].Data["code"])
}

func TestReshapeExactlyOneDone(t *testing.T) {
	cases := map[string][]agent.Event{
		"normal stop": {
			{Type: agent.EventMessageStart},
			{Type: agent.EventMessageStop},
		},
		"vendor error": {
			{Type: agent.EventError, Err: &agent.APIError{Type: "api_error", Message: "boom"}},
		},
		"premature close": {
			{Type: agent.EventMessageStart},
		},
	}

	for name, script := range cases {
		t.Run(name, func(t *testing.T) {
			got := collect(t, Reshape(context.Background(), feed(script)))

			done := 0
			for _, env := range got {
				if env.Type == TypeDone {
					done++
				}
			}
			require.Equal(t, 1, done)
			assert.Equal(t, TypeDone, got[len(got)-1].Type, "done must be last")

			terminal := got[len(got)-2].Type
			assert.Contains(t, []string{TypeComplete, TypeError}, terminal)
		})
	}
}

func TestReshapeContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	// Raw channel never produces a terminal event and never closes.
	raw := make(chan agent.Event)
	out := Reshape(ctx, raw)

	raw <- agent.Event{Type: agent.EventMessageStart, MessageID: "msg_07"}
	env := <-out
	assert.Equal(t, TypeInit, env.Type)

	cancel()

	select {
	case _, ok := <-out:
		assert.False(t, ok, "output channel should close after cancellation")
	case <-time.After(2 * time.Second):
		t.Fatal("output channel did not close after cancellation")
	}
}
