// Package agentapi implements the Runner interface over the vendor's
// streaming HTTP API. It owns the SSE wire parsing; translation into client
// envelopes lives in internal/application/stream.
package agentapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/nimbusworks/nimbus/pkg/errors"
	"github.com/nimbusworks/nimbus/pkg/logger"

	"github.com/nimbusworks/nimbus/internal/config"
	"github.com/nimbusworks/nimbus/internal/domain/agent"
)

const (
	messagesPath     = "/v1/messages"
	apiVersionHeader = "2023-06-01"

	// maxEventSize bounds one SSE data line; large tool inputs arrive as
	// many small deltas, not one big event.
	maxEventSize = 1 << 20
)

// Client streams model invocations from the vendor API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     logger.Logger
}

func NewClient(cfg config.AgentConfig, log logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		// The request timeout covers dialing and headers only; the body is
		// a long-lived stream governed by ctx.
		http: &http.Client{Timeout: 0},
		log:  log.WithComponent("agentapi"),
	}
}

type wireRequest struct {
	Model     string              `json:"model"`
	System    string              `json:"system,omitempty"`
	Messages  []agent.TurnMessage `json:"messages"`
	MaxTokens int                 `json:"max_tokens"`
	Stream    bool                `json:"stream"`
}

// wireEvent is the union payload carried on one SSE data line.
type wireEvent struct {
	Type         string              `json:"type"`
	Index        int                 `json:"index"`
	Message      *wireMessage        `json:"message"`
	ContentBlock *agent.ContentBlock `json:"content_block"`
	Delta        json.RawMessage     `json:"delta"`
	Usage        *agent.Usage        `json:"usage"`
	Error        *agent.APIError     `json:"error"`
}

type wireMessage struct {
	ID    string       `json:"id"`
	Model string       `json:"model"`
	Usage *agent.Usage `json:"usage"`
}

type wireMessageDelta struct {
	StopReason string `json:"stop_reason"`
}

// Run starts a streamed invocation. The returned channel closes after a
// terminal event, on ctx cancellation, or when the connection drops.
func (c *Client) Run(ctx context.Context, req *agent.Request) (<-chan agent.Event, error) {
	payload, err := json.Marshal(&wireRequest{
		Model:     req.Model,
		System:    req.System,
		Messages:  req.Messages,
		MaxTokens: req.MaxTokens,
		Stream:    true,
	})
	if err != nil {
		return nil, apperrors.ErrInternal("encode agent request").WithCause(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+messagesPath, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.ErrInternal("build agent request").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersionHeader)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, apperrors.ErrUpstream("agent API unreachable").WithCause(err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.Warn(ctx, "agent API rejected request",
			logger.Int("status", resp.StatusCode),
			logger.String("model", req.Model),
		)
		return nil, apperrors.ErrUpstream(
			fmt.Sprintf("agent API returned %d", resp.StatusCode)).
			WithCause(fmt.Errorf("%s", strings.TrimSpace(string(body))))
	}

	events := make(chan agent.Event)
	go func() {
		defer close(events)
		defer resp.Body.Close()

		c.pump(ctx, resp.Body, events)
		c.log.Debug(ctx, "agent stream finished",
			logger.String("model", req.Model),
			logger.Duration("duration", time.Since(start)),
		)
	}()
	return events, nil
}

// pump reads SSE lines until a terminal event, read failure, or ctx
// cancellation. Closing the response body on cancellation unblocks the
// scanner, so the goroutine cannot leak.
func (c *Client) pump(ctx context.Context, body io.ReadCloser, events chan<- agent.Event) {
	stop := context.AfterFunc(ctx, func() { body.Close() })
	defer stop()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	for scanner.Scan() {
		line := scanner.Text()
		// Only data lines matter; the event: line repeats the type field
		// and comment lines are keep-alives.
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "" {
			continue
		}

		ev, ok, err := parseEvent([]byte(data))
		if err != nil {
			c.log.Warn(ctx, "skipping malformed stream event", logger.String("error", err.Error()))
			continue
		}
		if !ok {
			continue
		}

		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}
		if ev.Type == agent.EventMessageStop || ev.Type == agent.EventError {
			return
		}
	}
	// Read error or EOF without a terminal event: the channel close is the
	// interruption signal downstream.
}

// parseEvent decodes one data payload. The second return value is false for
// event types the platform ignores (ping and future additions).
func parseEvent(data []byte) (agent.Event, bool, error) {
	var wire wireEvent
	if err := json.Unmarshal(data, &wire); err != nil {
		return agent.Event{}, false, fmt.Errorf("decode event: %w", err)
	}

	switch agent.EventType(wire.Type) {
	case agent.EventMessageStart:
		ev := agent.Event{Type: agent.EventMessageStart}
		if wire.Message != nil {
			ev.MessageID = wire.Message.ID
			ev.Model = wire.Message.Model
			ev.Usage = wire.Message.Usage
		}
		return ev, true, nil

	case agent.EventBlockStart:
		return agent.Event{
			Type:  agent.EventBlockStart,
			Index: wire.Index,
			Block: wire.ContentBlock,
		}, true, nil

	case agent.EventBlockDelta:
		var delta agent.Delta
		if err := json.Unmarshal(wire.Delta, &delta); err != nil {
			return agent.Event{}, false, fmt.Errorf("decode delta: %w", err)
		}
		return agent.Event{
			Type:  agent.EventBlockDelta,
			Index: wire.Index,
			Delta: &delta,
		}, true, nil

	case agent.EventBlockStop:
		return agent.Event{Type: agent.EventBlockStop, Index: wire.Index}, true, nil

	case agent.EventMessageDelta:
		ev := agent.Event{Type: agent.EventMessageDelta, Usage: wire.Usage}
		if len(wire.Delta) > 0 {
			var delta wireMessageDelta
			if err := json.Unmarshal(wire.Delta, &delta); err != nil {
				return agent.Event{}, false, fmt.Errorf("decode message delta: %w", err)
			}
			ev.StopReason = delta.StopReason
		}
		return ev, true, nil

	case agent.EventMessageStop:
		return agent.Event{Type: agent.EventMessageStop}, true, nil

	case agent.EventError:
		return agent.Event{Type: agent.EventError, Err: wire.Error}, true, nil
	}
	return agent.Event{}, false, nil
}
