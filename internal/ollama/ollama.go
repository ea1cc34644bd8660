package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bz888/murmur/internal/logger"
)

const (
	scannerInitialBuffer = 64 * 1024
	scannerMaxBuffer     = 512 * 1024
)

// ErrChunkTooLarge means a stream line exceeded the 512 KB scanner limit.
// The response was received; it just could not be split into chunks.
var ErrChunkTooLarge = errors.New("chat chunk exceeds 512 KB")

// OllamaClient represents a client for the Ollama API
type OllamaClient struct {
	Client
}

type OllamaClientInterface interface {
	GetModels(ctx context.Context) ([]Model, error)
	Chat(ctx context.Context, req *ChatRequest, fn func([]byte) error) error
}

// StatusError is returned when Ollama answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ollama returned %s", e.Status)
	}
	return fmt.Sprintf("ollama returned %s: %s", e.Status, e.Message)
}

// NewOllamaClient creates a new Ollama API client for host, given in any form
// ParseHost accepts.
func NewOllamaClient(host string, httpClient *http.Client) (*OllamaClient, error) {
	scheme, hostPort, err := ParseHost(host)
	if err != nil {
		return nil, err
	}
	return &OllamaClient{
		Client: *NewClient(ClientConfig{
			Scheme:     scheme,
			Host:       hostPort,
			ModelsPath: "/api/tags",
			ChatPath:   "/api/chat",
			HTTPClient: httpClient,
		}),
	}, nil
}

// GetModels lists the locally installed models.
func (c *OllamaClient) GetModels(ctx context.Context) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.GetModelsURL(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError(resp)
	}

	var response ModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decoding model list: %w", err)
	}
	if response.Models == nil {
		response.Models = []Model{}
	}
	return response.Models, nil
}

// Chat posts req to /api/chat and calls fn with every NDJSON line of the
// response, in order. Reading stops as soon as fn returns an error, which
// Chat then returns unchanged.
func (c *OllamaClient) Chat(ctx context.Context, req *ChatRequest, fn func([]byte) error) error {
	return c.stream(ctx, req, fn)
}

func (c *OllamaClient) stream(ctx context.Context, data *ChatRequest, fn func([]byte) error) error {
	localLogger := logger.NewLogger("ollama stream chat")

	bts, err := json.Marshal(data)
	if err != nil {
		return err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.GetChatURL(), bytes.NewReader(bts))
	if err != nil {
		localLogger.Error("Failed to build ollama chat request", "error", err)
		return err
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/x-ndjson")
	response, err := c.http.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		statusErr := newStatusError(response)
		localLogger.Error("Ollama chat rejected", "status", response.StatusCode, "error", statusErr.Message)
		return statusErr
	}

	scanner := bufio.NewScanner(response.Body)
	scanner.Buffer(make([]byte, 0, scannerInitialBuffer), scannerMaxBuffer)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return fmt.Errorf("%w: %w", ErrChunkTooLarge, err)
		}
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

func newStatusError(resp *http.Response) *StatusError {
	statusErr := &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return statusErr
	}

	var errResp errorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		statusErr.Message = errResp.Error
	} else {
		statusErr.Message = strings.TrimSpace(string(body))
	}
	return statusErr
}
