package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"minuet/internal/api"
)

// apiClient is a thin HTTP wrapper over the daemon's JSON API.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(addr string) *apiClient {
	base := strings.TrimSpace(addr)
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &apiClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *apiClient) getJSON(path string, out any) error {
	resp, err := c.http.Get(c.base + path)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func (c *apiClient) postJSON(path string, out any) error {
	resp, err := c.http.Post(c.base+path, "application/json", nil)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func (c *apiClient) listEntries(userID, sessionID string) (api.ListResponse, error) {
	query := url.Values{}
	if userID != "" {
		query.Set("user_id", userID)
	}
	if sessionID != "" {
		query.Set("session_id", sessionID)
	}
	path := "/api/audio"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var resp api.ListResponse
	err := c.getJSON(path, &resp)
	return resp, err
}

func (c *apiClient) entryStatus(id int64) (api.EntryStatus, error) {
	var status api.EntryStatus
	err := c.getJSON(fmt.Sprintf("/api/audio/%d/status", id), &status)
	return status, err
}

func (c *apiClient) health() (api.HealthResponse, error) {
	var resp api.HealthResponse
	err := c.getJSON("/api/health", &resp)
	return resp, err
}

func (c *apiClient) retrigger(id int64, op string) error {
	var resp api.OKResponse
	if err := c.postJSON(fmt.Sprintf("/api/audio/%d/%s", id, op), &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("%s was not acknowledged", op)
	}
	return nil
}

func (c *apiClient) upload(path, userID, sessionID string) (api.EntryStatus, error) {
	var out api.EntryStatus

	file, err := os.Open(path)
	if err != nil {
		return out, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if userID != "" {
		_ = writer.WriteField("user_id", userID)
	}
	if sessionID != "" {
		_ = writer.WriteField("session_id", sessionID)
	}
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return out, fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return out, fmt.Errorf("read %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		return out, fmt.Errorf("build upload: %w", err)
	}

	resp, err := c.http.Post(c.base+"/api/upload", writer.FormDataContentType(), &buf)
	if err != nil {
		return out, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()
	err = decodeResponse(resp, &out)
	return out, err
}

func decodeResponse(resp *http.Response, out any) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon: http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
