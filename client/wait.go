package client

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// PromptState is the client-side view of a submitted prompt's lifecycle
// while the wait loop runs.
type PromptState int

const (
	StateSubmitted PromptState = iota
	StateExecuting
	StateCompleted
	StateTimedOut
)

func (s PromptState) String() string {
	switch s {
	case StateSubmitted:
		return "submitted"
	case StateExecuting:
		return "executing"
	case StateCompleted:
		return "completed"
	case StateTimedOut:
		return "timed out"
	}
	return "unknown"
}

// NodeArtifact pairs a node identifier with the artifact reference announced
// for it over the event channel.
type NodeArtifact struct {
	NodeID string
	Image  DataOutput
}

// WaitForCompletion blocks until the server signals that promptID finished
// executing: an "executing" event naming this prompt with a null node. It
// returns the artifact references accumulated from "executed" events, one
// per node in first-seen order (a node announced twice keeps its position,
// the later reference wins).
//
// One event-channel connection is opened for the duration of the call and
// closed on every exit path. The deadline is rechecked only between message
// receives, so a frame that arrives after the budget but before any other
// traffic can still complete the wait; callers that need a hard cutoff must
// enforce it outside.
func (c *ComfyClient) WaitForCompletion(promptID string, timeout time.Duration) ([]NodeArtifact, error) {
	ws, err := c.openWebSocket()
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	state := StateSubmitted
	deadline := time.Now().Add(timeout)
	var artifacts []NodeArtifact
	position := make(map[string]int)

	for time.Now().Before(deadline) {
		msgType, raw, err := ws.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("event channel closed while %s: %w", state, err)
		}
		if msgType != websocket.TextMessage {
			// binary preview frames, not ours to interpret
			continue
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			slog.Warn("discarding undecodable event", "error", err)
			continue
		}

		switch msg.Type {
		case "executing":
			var ev wsExecuting
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				slog.Warn("discarding malformed executing event", "error", err)
				continue
			}
			if ev.PromptID != promptID {
				continue
			}
			if ev.Node == nil {
				state = StateCompleted
				slog.Debug("prompt finished", "prompt_id", promptID)
				return artifacts, nil
			}
			if state == StateSubmitted {
				state = StateExecuting
			}
			slog.Debug("executing node", "node", *ev.Node)
		case "progress":
			var ev wsProgress
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				continue
			}
			if c.OnProgress != nil {
				c.OnProgress(ev.Value, ev.Max)
			} else {
				fmt.Printf("progress: %d/%d\n", ev.Value, ev.Max)
			}
		case "executed":
			var ev wsExecuted
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				slog.Warn("discarding malformed executed event", "error", err)
				continue
			}
			for _, img := range ev.Output.Images {
				if i, seen := position[ev.Node]; seen {
					artifacts[i].Image = img
				} else {
					position[ev.Node] = len(artifacts)
					artifacts = append(artifacts, NodeArtifact{NodeID: ev.Node, Image: img})
				}
			}
		default:
			// status, execution_start, execution_cached and friends
		}
	}

	state = StateTimedOut
	slog.Warn("gave up waiting for prompt", "prompt_id", promptID, "state", state)
	return nil, &TimeoutError{PromptID: promptID, Budget: timeout}
}
