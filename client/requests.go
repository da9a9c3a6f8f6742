package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/gpgcheck/comfyui-api/workflow"
)

/*
The server surface this client consumes:

	GET  /system_stats
	POST /prompt          {"prompt": <workflow>, "client_id": <session id>}
	POST /upload/image    multipart: image, overwrite, subfolder
	GET  /history/{prompt_id}
	GET  /view?filename=&subfolder=&type=
	WS   /ws?clientId=
*/

const pingTimeout = 5 * time.Second

// PingServer probes the server with a lightweight status request. A failed
// probe is logged as a warning and reported in the return value, but it never
// fails the process; the server may simply still be starting.
func (c *ComfyClient) PingServer() bool {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	req, err := c.newRequest("GET", c.apiURL("system_stats", nil), nil)
	if err != nil {
		slog.Warn("could not build probe request", "error", err)
		return false
	}
	resp, err := c.httpc.Do(req.WithContext(ctx))
	if err != nil {
		slog.Warn("could not reach ComfyUI server", "server", c.baseURL.String(), "error", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Warn("ComfyUI server probe failed", "server", c.baseURL.String(), "status", resp.Status)
		return false
	}
	return true
}

// GetSystemStats retrieves the server and device statistics.
func (c *ComfyClient) GetSystemStats() (*SystemStats, error) {
	req, err := c.newRequest("GET", c.apiURL("system_stats", nil), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newRemoteRequestError("system_stats", resp.StatusCode, resp.Status, body)
	}
	stats := &SystemStats{}
	if err := json.Unmarshal(body, stats); err != nil {
		return nil, fmt.Errorf("system_stats: %w", err)
	}
	return stats, nil
}

// QueuePrompt submits the workflow for execution and returns the prompt
// identifier the server assigned. On rejection the structured per-node
// validation errors are extracted from the response when present.
func (c *ComfyClient) QueuePrompt(w workflow.Workflow) (string, error) {
	payload := map[string]any{
		"prompt":    w,
		"client_id": c.clientid,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding prompt: %w", err)
	}

	req, err := c.newRequest("POST", c.apiURL("prompt", nil), bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("queueing prompt: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", newRemoteRequestError("queue prompt", resp.StatusCode, resp.Status, body)
	}

	var parsed struct {
		PromptID string `json:"prompt_id"`
		Error    struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.PromptID == "" {
		if parsed.Error.Message != "" {
			slog.Error("prompt rejected", "message", parsed.Error.Message)
		}
		return "", &MalformedResponseError{
			Op:    "queue prompt",
			Field: "prompt_id",
			Body:  truncate(string(body), errBodyLimit),
		}
	}
	return parsed.PromptID, nil
}

// GetHistory retrieves the recorded outputs for a prompt.
func (c *ComfyClient) GetHistory(promptID string) (History, error) {
	req, err := c.newRequest("GET", c.apiURL("history/"+url.PathEscape(promptID), nil), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newRemoteRequestError("history", resp.StatusCode, resp.Status, body)
	}
	history := History{}
	if err := json.Unmarshal(body, &history); err != nil {
		return nil, fmt.Errorf("decoding history: %w", err)
	}
	return history, nil
}

// GetImage fetches the bytes of one artifact. Single blocking read, no
// retries, no streaming.
func (c *ComfyClient) GetImage(ref DataOutput) ([]byte, error) {
	query := url.Values{}
	query.Set("filename", ref.Filename)
	query.Set("subfolder", ref.Subfolder)
	query.Set("type", ref.Type)

	req, err := c.newRequest("GET", c.apiURL("view", query), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", ref.Filename, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", ref.Filename, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newRemoteRequestError("view "+ref.Filename, resp.StatusCode, resp.Status, body)
	}
	return body, nil
}
