package client

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// responses can carry large tracebacks, keep diagnostics readable
const errBodyLimit = 1000

// ValidationError is one entry of a per-node validation failure reported by
// the server when a prompt is rejected.
type ValidationError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// NodeError groups the validation errors for one node.
type NodeError struct {
	NodeID string
	Errors []ValidationError
}

// RemoteRequestError reports a non-2xx response from the server. For the
// submit path the response body is additionally parsed for a top-level error
// message and per-node validation errors, which are included in the error
// text.
type RemoteRequestError struct {
	Op         string
	StatusCode int
	Status     string
	Body       string
	Message    string
	NodeErrors []NodeError
}

func (e *RemoteRequestError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: server returned %s", e.Op, e.Status)
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	for _, ne := range e.NodeErrors {
		fmt.Fprintf(&b, "\n  node %s:", ne.NodeID)
		for _, ve := range ne.Errors {
			fmt.Fprintf(&b, "\n    - %s: %s", ve.Type, ve.Message)
			if ve.Details != "" {
				fmt.Fprintf(&b, " (%s)", ve.Details)
			}
		}
	}
	if e.Message == "" && len(e.NodeErrors) == 0 && e.Body != "" {
		fmt.Fprintf(&b, ": %s", e.Body)
	}
	return b.String()
}

// MalformedResponseError reports a 2xx response that is missing an expected
// field.
type MalformedResponseError struct {
	Op    string
	Field string
	Body  string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: response missing %q: %s", e.Op, e.Field, e.Body)
}

// TimeoutError reports a completion wait that exceeded its budget. The event
// channel has already been closed when this error is returned.
type TimeoutError struct {
	PromptID string
	Budget   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("prompt %s execution timed out after %s", e.PromptID, e.Budget)
}

func (e *TimeoutError) Timeout() bool { return true }

// newRemoteRequestError builds a RemoteRequestError from a non-2xx response
// body, extracting the structured error breakdown when the body parses as
// the server's error shape.
func newRemoteRequestError(op string, statusCode int, status string, body []byte) *RemoteRequestError {
	e := &RemoteRequestError{
		Op:         op,
		StatusCode: statusCode,
		Status:     status,
		Body:       truncate(string(body), errBodyLimit),
	}

	var parsed struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
			Details string `json:"details"`
		} `json:"error"`
		NodeErrors map[string]struct {
			Errors []ValidationError `json:"errors"`
		} `json:"node_errors"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return e
	}

	e.Message = parsed.Error.Message
	for nodeID, ne := range parsed.NodeErrors {
		if len(ne.Errors) == 0 {
			continue
		}
		e.NodeErrors = append(e.NodeErrors, NodeError{NodeID: nodeID, Errors: ne.Errors})
	}
	// map iteration order is random, keep diagnostics stable
	sort.Slice(e.NodeErrors, func(i, j int) bool {
		return e.NodeErrors[i].NodeID < e.NodeErrors[j].NodeID
	})
	return e
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
