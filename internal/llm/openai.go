package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxResponseBytes caps how much of a chat completion body is read.
const maxResponseBytes = 8 << 20

// OpenAICompatClient implements Client over an OpenAI-compatible chat completions API.
// It serves both hosted endpoints and local model servers.
type OpenAICompatClient struct {
	config *Config
	apiKey string
	http   *http.Client
	log    *zap.Logger
}

// NewOpenAICompatClient creates a client for config.BaseURL. apiKey may be empty for local servers.
func NewOpenAICompatClient(config *Config, apiKey string, logger *zap.Logger) (*OpenAICompatClient, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required for provider %s", config.Provider)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &OpenAICompatClient{
		config: config,
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
		log:    logger,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type jsonSchemaFormat struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}

type responseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *jsonSchemaFormat `json:"json_schema,omitempty"`
}

type chatCompletionsRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float32         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatCompletionsResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// GenerateStructured sends the schema as a json_schema response format so servers that
// support structured outputs constrain decoding to it.
func (c *OpenAICompatClient) GenerateStructured(ctx context.Context, req StructuredRequest, tier ModelTier) (string, error) {
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}

	name := req.SchemaName
	if name == "" {
		name = "response"
	}

	body := chatCompletionsRequest{
		Model:       modelName,
		Temperature: c.config.Temperature,
		ResponseFormat: &responseFormat{
			Type:       "json_schema",
			JSONSchema: &jsonSchemaFormat{Name: name, Schema: req.Schema},
		},
	}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.Prompt})

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"
	raw, code, err := c.sendJSON(ctx, endpoint, body, headers)
	if err != nil {
		if code > 0 {
			return "", &APIError{
				Kind:       classifyHTTPStatus(code, string(raw)),
				Provider:   c.config.Provider,
				StatusCode: code,
				Message:    errorMessage(raw),
			}
		}
		return "", &APIError{Kind: classifyTransportError(err), Provider: c.config.Provider, Cause: err}
	}

	var out chatCompletionsResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &APIError{Kind: KindInvalidResponse, Provider: c.config.Provider, StatusCode: code,
			Cause: fmt.Errorf("decode chat completion: %w", err)}
	}
	if len(out.Choices) == 0 {
		return "", &APIError{Kind: KindInvalidResponse, Provider: c.config.Provider, StatusCode: code,
			Message: "no choices returned by model"}
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// sendJSON posts body and returns the raw response with its status code.
// A non-2xx status is returned as an error along with the body.
func (c *OpenAICompatClient) sendJSON(ctx context.Context, url string, body any, headers map[string]string) ([]byte, int, error) {
	reqID := uuid.NewString()
	start := time.Now()

	bs, err := json.Marshal(body)
	if err != nil {
		c.log.Error("llm.http.encode_error", zap.String("req_id", reqID), zap.Error(err))
		return nil, 0, fmt.Errorf("encode json: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		c.log.Error("llm.http.build_request_error", zap.String("req_id", reqID), zap.Error(err))
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	c.log.Info("llm.http.request",
		zap.String("req_id", reqID),
		zap.String("url", url),
		zap.Int("content_length", len(bs)),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("llm.http.send_error",
			zap.String("req_id", reqID),
			zap.Error(err),
			zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
		)
		return nil, 0, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Warn("llm.http.response_body_close_error", zap.String("req_id", reqID), zap.Error(err))
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}

	c.log.Info("llm.http.response",
		zap.String("req_id", reqID),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(raw)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)

	if resp.StatusCode/100 != 2 {
		return raw, resp.StatusCode, fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}
	return raw, resp.StatusCode, nil
}

// errorMessage pulls error.message out of an OpenAI-style error body.
func errorMessage(raw []byte) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
			Code    any    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Error.Message == "" {
		return strings.TrimSpace(string(raw))
	}
	return body.Error.Message
}

// GetModel returns the model name for a tier
func (c *OpenAICompatClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases idle connections
func (c *OpenAICompatClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
