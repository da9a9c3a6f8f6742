package client

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// wsHarness serves the event channel at /ws and runs script against each
// accepted connection.
func wsHarness(t *testing.T, script func(conn *websocket.Conn)) *ComfyClient {
	t.Helper()
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("clientId") == "" {
			t.Error("event channel dialed without clientId")
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		script(conn)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return newTestClient(t, ts.URL)
}

func writeEvent(t *testing.T, conn *websocket.Conn, typ string, data map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "data": data}); err != nil {
		t.Errorf("writing %s event: %v", typ, err)
	}
}

func TestWaitForCompletionStopsOnNullNode(t *testing.T) {
	c := wsHarness(t, func(conn *websocket.Conn) {
		writeEvent(t, conn, "status", map[string]any{"status": map[string]any{"exec_info": map[string]any{"queue_remaining": 1}}})
		// binary preview frames must be skipped, not decoded
		conn.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02, 0x03})
		// completion of someone else's prompt must not end our wait
		writeEvent(t, conn, "executing", map[string]any{"node": nil, "prompt_id": "other"})
		writeEvent(t, conn, "executing", map[string]any{"node": "9", "prompt_id": "p1"})
		writeEvent(t, conn, "progress", map[string]any{"value": 4, "max": 8})
		writeEvent(t, conn, "executed", map[string]any{
			"node": "9", "prompt_id": "p1",
			"output": map[string]any{"images": []any{map[string]any{"filename": "out.png", "subfolder": "", "type": "output"}}},
		})
		// a second announcement for the same node replaces in place
		writeEvent(t, conn, "executed", map[string]any{
			"node": "9", "prompt_id": "p1",
			"output": map[string]any{"images": []any{map[string]any{"filename": "out2.png", "subfolder": "", "type": "output"}}},
		})
		writeEvent(t, conn, "executed", map[string]any{
			"node": "12", "prompt_id": "p1",
			"output": map[string]any{"images": []any{map[string]any{"filename": "pose.png", "subfolder": "", "type": "output"}}},
		})
		writeEvent(t, conn, "executing", map[string]any{"node": nil, "prompt_id": "p1"})
	})

	var progress [][2]int
	c.OnProgress = func(value, max int) { progress = append(progress, [2]int{value, max}) }

	artifacts, err := c.WaitForCompletion("p1", 5*time.Second)
	if err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("artifacts = %v, want 2 entries", artifacts)
	}
	if artifacts[0].NodeID != "9" || artifacts[0].Image.Filename != "out2.png" {
		t.Errorf("artifact[0] = %+v, want node 9 with the replacing out2.png", artifacts[0])
	}
	if artifacts[1].NodeID != "12" || artifacts[1].Image.Filename != "pose.png" {
		t.Errorf("artifact[1] = %+v", artifacts[1])
	}
	if len(progress) != 1 || progress[0] != [2]int{4, 8} {
		t.Errorf("progress events = %v", progress)
	}
}

func TestWaitForCompletionTimeout(t *testing.T) {
	released := make(chan struct{})
	c := wsHarness(t, func(conn *websocket.Conn) {
		// keep the channel chatty so the loop keeps rechecking its deadline
		for {
			if err := conn.WriteJSON(map[string]any{"type": "status", "data": map[string]any{}}); err != nil {
				break
			}
			time.Sleep(20 * time.Millisecond)
		}
		close(released)
	})
	c.OnProgress = func(int, int) {}

	_, err := c.WaitForCompletion("p1", 150*time.Millisecond)
	var terr *TimeoutError
	if !errors.As(err, &terr) {
		t.Fatalf("err = %T (%v), want *TimeoutError", err, err)
	}
	if !terr.Timeout() {
		t.Error("TimeoutError does not report Timeout()")
	}

	// the event channel must be released on the failure path too
	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("event channel connection was not closed after timeout")
	}
}

// The deadline is only rechecked between receives: a qualifying frame that
// arrives after the budget, with no traffic in between, still completes the
// wait. Boundary condition, kept on purpose.
func TestWaitForCompletionDeadlineOverrun(t *testing.T) {
	c := wsHarness(t, func(conn *websocket.Conn) {
		time.Sleep(250 * time.Millisecond)
		writeEvent(t, conn, "executing", map[string]any{"node": nil, "prompt_id": "p1"})
		// give the client time to read before the connection drops
		time.Sleep(100 * time.Millisecond)
	})

	start := time.Now()
	artifacts, err := c.WaitForCompletion("p1", 100*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}
	if len(artifacts) != 0 {
		t.Errorf("artifacts = %v", artifacts)
	}
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Errorf("wait returned after %s; expected it to block past the 100ms budget", elapsed)
	}
}

func TestWaitForCompletionChannelDrop(t *testing.T) {
	c := wsHarness(t, func(conn *websocket.Conn) {
		writeEvent(t, conn, "executing", map[string]any{"node": "9", "prompt_id": "p1"})
		// connection closes with the prompt unfinished
	})
	if _, err := c.WaitForCompletion("p1", time.Second); err == nil {
		t.Fatal("WaitForCompletion succeeded after the event channel dropped")
	}
}

func TestPromptStateString(t *testing.T) {
	states := map[PromptState]string{
		StateSubmitted: "submitted",
		StateExecuting: "executing",
		StateCompleted: "completed",
		StateTimedOut:  "timed out",
	}
	for state, want := range states {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}
