package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/koscakluka/receptionist/core/llms"
	"go.opentelemetry.io/otel/codes"
)

const (
	url = "https://api.groq.com/openai/v1/chat/completions"

	defaultModel       = "llama3-70b-8192"
	defaultTemperature = 0.7
	defaultMaxTokens   = 500
	defaultTimeout     = 30 * time.Second
)

var _ llms.Generator = (*Client)(nil)

// Client calls the Groq chat completions API.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

type ClientOption func(*Client)

// WithModel sets the default model for all requests.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithHTTPClient replaces the underlying HTTP client, usually to adjust
// the request timeout.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("groq api key not found")
	}

	client := &Client{
		apiKey:     apiKey,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Generate sends the conversation to the chat completions endpoint and
// returns the assistant's reply.
func (c *Client) Generate(ctx context.Context, messages []llms.Message, opts ...llms.GenerateOption) (string, error) {
	ctx, span := tracer.Start(ctx, "groq generate")
	defer span.End()

	options := llms.GenerateOptions{
		Model:     c.model,
		MaxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(&options)
	}

	temperature := defaultTemperature
	if options.Temperature != nil {
		temperature = *options.Temperature
	}

	reqBody := requestBody{
		Model:       options.Model,
		Messages:    toMessages(messages),
		Temperature: temperature,
		MaxTokens:   options.MaxTokens,
	}

	requestBodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("error marshalling JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return "", fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("error sending request: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err = fmt.Errorf("non-OK HTTP status: %s: %s", resp.Status, string(body))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	var responseBody completionResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&responseBody); err != nil {
		return "", fmt.Errorf("error unmarshalling JSON: %w", err)
	}

	if len(responseBody.Choices) == 0 {
		logger.Warn("no choices returned for completion", "model", options.Model)
		return "", fmt.Errorf("no choices in completion response")
	}

	return responseBody.Choices[0].Message.Content, nil
}

type requestBody struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type completionResponseBody struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}
