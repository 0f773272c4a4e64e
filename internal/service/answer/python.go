package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/campus-sarthi/sarthi/backend/internal/logger"
	"github.com/campus-sarthi/sarthi/backend/internal/model/chat"
)

var (
	ErrUpstreamStatus    = errors.New("answer service returned non-success status")
	ErrMalformedResponse = errors.New("answer service returned a malformed response")
)

// PythonQueryRequest is the retrieval service's /query/ body.
type PythonQueryRequest struct {
	Query  string `json:"query"`
	Branch string `json:"branch,omitempty"`
	Year   string `json:"year,omitempty"`
	TopK   int    `json:"top_k,omitempty"`
}

// PythonQueryResponse is the retrieval service's /query/ reply.
type PythonQueryResponse struct {
	Answer      string `json:"answer"`
	Query       string `json:"query"`
	Branch      string `json:"branch"`
	Year        string `json:"year"`
	Timestamp   string `json:"timestamp"`
	ContextUsed int    `json:"context_used"`
}

// DocumentUploadResponse is the retrieval service's /upload-document/ reply.
type DocumentUploadResponse struct {
	Message         string `json:"message"`
	DocName         string `json:"doc_name"`
	ChunksProcessed int    `json:"chunks_processed"`
	Branch          string `json:"branch"`
	Year            string `json:"year"`
	DocID           string `json:"doc_id"`
}

// PythonClient talks to the external retrieval/answer service.
type PythonClient struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

// NewPythonClient builds a client for baseURL. A nil httpClient gets one
// with the supplied timeout.
func NewPythonClient(baseURL string, timeout time.Duration, httpClient *http.Client, log *logger.Logger) *PythonClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &PythonClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     logger.OrNop(log).With("component", "python-api"),
	}
}

// Health reports whether GET /health answers with a 2xx.
func (c *PythonClient) Health(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("health check failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Query posts a question to /query/.
func (c *PythonClient) Query(ctx context.Context, in PythonQueryRequest) (*PythonQueryResponse, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query/", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out PythonQueryResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadDocument forwards a knowledge-base document to /upload-document/.
func (c *PythonClient) UploadDocument(ctx context.Context, filename, docName string, content io.Reader, branch, year string) (*DocumentUploadResponse, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("copy document: %w", err)
	}
	fields := map[string]string{"doc_name": docName, "branch": orAll(branch), "year": orAll(year)}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload-document/", buf)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out DocumentUploadResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *PythonClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %d %s", ErrUpstreamStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func orAll(v string) string {
	if strings.TrimSpace(v) == "" {
		return "all"
	}
	return v
}

// PythonAnswerer adapts PythonClient to the Answerer port.
type PythonAnswerer struct {
	client *PythonClient
	branch string
	year   string
	topK   int
}

// NewPythonAnswerer scopes queries to branch/year with topK context chunks.
func NewPythonAnswerer(client *PythonClient, branch, year string, topK int) *PythonAnswerer {
	return &PythonAnswerer{client: client, branch: orAll(branch), year: orAll(year), topK: topK}
}

func (p *PythonAnswerer) Name() string { return "python" }

func (p *PythonAnswerer) Answer(ctx context.Context, q Query) (Reply, error) {
	resp, err := p.client.Query(ctx, PythonQueryRequest{
		Query:  q.Text,
		Branch: p.branch,
		Year:   p.year,
		TopK:   p.topK,
	})
	if err != nil {
		return Reply{}, err
	}
	if strings.TrimSpace(resp.Answer) == "" {
		return Reply{}, fmt.Errorf("%w: empty answer", ErrMalformedResponse)
	}
	return Reply{
		Answer:     resp.Answer,
		Confidence: confidenceFromContext(resp.ContextUsed),
		Sources:    []chat.Source{},
	}, nil
}

// confidenceFromContext scores an answer by how many retrieved chunks
// grounded it; the service reports no score of its own.
func confidenceFromContext(used int) int {
	if used <= 0 {
		return 50
	}
	if c := 60 + 10*used; c < 95 {
		return c
	}
	return 95
}

// PythonIndexer forwards admin document uploads to the answer service.
type PythonIndexer struct {
	client *PythonClient
	branch string
	year   string
}

func NewPythonIndexer(client *PythonClient, branch, year string) *PythonIndexer {
	return &PythonIndexer{client: client, branch: branch, year: year}
}

func (p *PythonIndexer) Index(ctx context.Context, filename string, content io.Reader) error {
	docName := strings.TrimSuffix(filename, path.Ext(filename))
	_, err := p.client.UploadDocument(ctx, filename, docName, content, p.branch, p.year)
	return err
}
