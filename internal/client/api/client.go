// Package api is the chat client's view of the campus API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/campus-sarthi/sarthi/backend/internal/logger"
	"github.com/campus-sarthi/sarthi/backend/internal/model/chat"
	"github.com/campus-sarthi/sarthi/backend/internal/model/escalation"
	"github.com/campus-sarthi/sarthi/backend/internal/model/speech"
)

// StatusError is a non-2xx API reply.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.Code)
	}
	return fmt.Sprintf("api returned status %d: %s", e.Code, e.Message)
}

// Client calls the campus API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

// New builds a client for baseURL. A nil httpClient gets a 30s timeout.
func New(baseURL string, httpClient *http.Client, log *logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     logger.OrNop(log).With("component", "api_client"),
	}
}

// Query posts one chat query.
func (c *Client) Query(ctx context.Context, in chat.QueryRequest) (chat.QueryResponse, error) {
	var out chat.QueryResponse
	if err := c.postJSON(ctx, "/api/query", in, &out); err != nil {
		return chat.QueryResponse{}, err
	}
	return out, nil
}

// Escalate asks for a human hand-off.
func (c *Client) Escalate(ctx context.Context, in escalation.Request) error {
	var out struct {
		OK bool `json:"ok"`
	}
	return c.postJSON(ctx, "/api/escalate", in, &out)
}

// UploadAudio sends a recorded clip and returns its URL and transcript.
func (c *Client) UploadAudio(ctx context.Context, filename string, data []byte, sessionID, language string) (speech.UploadResponse, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile("audio", filename)
	if err != nil {
		return speech.UploadResponse{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return speech.UploadResponse{}, fmt.Errorf("write audio: %w", err)
	}
	for k, v := range map[string]string{"sessionId": sessionID, "language": language} {
		if err := writer.WriteField(k, v); err != nil {
			return speech.UploadResponse{}, fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return speech.UploadResponse{}, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload-audio", buf)
	if err != nil {
		return speech.UploadResponse{}, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out speech.UploadResponse
	if err := c.do(req, &out); err != nil {
		return speech.UploadResponse{}, err
	}
	return out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &apiErr) != nil || apiErr.Error == "" {
			apiErr.Error = strings.TrimSpace(string(raw))
		}
		c.log.Debug("api error", "path", req.URL.Path, "status", resp.StatusCode)
		return &StatusError{Code: resp.StatusCode, Message: apiErr.Error}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}
