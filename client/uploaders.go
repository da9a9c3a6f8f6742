package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// UploadFileFromReader forwards the data as a multipart upload to the
// server's input storage and returns the server-assigned location.
//
// When the server answers 2xx with a non-JSON body (some reverse proxies
// rewrite it), the original filename is returned as a best-effort fallback
// rather than an error. Known quirk, kept on purpose: the workflow may then
// reference a file the server stored under a different name.
func (c *ComfyClient) UploadFileFromReader(r io.Reader, filename string, overwrite bool, subfolder string) (*UploadResult, error) {
	var requestBody bytes.Buffer
	writer := multipart.NewWriter(&requestBody)

	formFile, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(formFile, r); err != nil {
		return nil, err
	}

	_ = writer.WriteField("overwrite", fmt.Sprintf("%v", overwrite))
	if subfolder != "" {
		_ = writer.WriteField("subfolder", subfolder)
	}
	writer.Close()

	req, err := c.newRequest("POST", c.apiURL("upload/image", nil), &requestBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", filename, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newRemoteRequestError("upload "+filename, resp.StatusCode, resp.Status, body)
	}

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		slog.Warn("unexpected upload response content type, using local filename",
			"content_type", ct, "body", truncate(string(body), 200))
		return &UploadResult{Filename: filename, Subfolder: subfolder, Type: "input"}, nil
	}

	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		slog.Warn("undecodable upload response, using local filename",
			"error", err, "body", truncate(string(body), 200))
		return &UploadResult{Filename: filename, Subfolder: subfolder, Type: "input"}, nil
	}

	result := &UploadResult{Filename: filename, Subfolder: subfolder, Type: "input"}
	if name, ok := data["name"].(string); ok && name != "" {
		result.Filename = name
	}
	if sub, ok := data["subfolder"].(string); ok {
		result.Subfolder = sub
	}
	return result, nil
}

// UploadFileFromPath uploads a local file. A missing file is an error that
// wraps os.ErrNotExist.
func (c *ComfyClient) UploadFileFromPath(path string, overwrite bool, subfolder string) (*UploadResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("input image: %w", err)
	}
	defer file.Close()

	slog.Info("uploading image", "file", filepath.Base(path))
	return c.UploadFileFromReader(file, filepath.Base(path), overwrite, subfolder)
}

// UploadImage uploads a local file and returns only the server-assigned
// filename. It satisfies workflow.Uploader.
func (c *ComfyClient) UploadImage(localPath, subfolder string, overwrite bool) (string, error) {
	result, err := c.UploadFileFromPath(localPath, overwrite, subfolder)
	if err != nil {
		return "", err
	}
	return result.Filename, nil
}
