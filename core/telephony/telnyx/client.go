package telnyx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/koscakluka/receptionist/core/telephony"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	baseURL = "https://api.telnyx.com/v2"

	// Control-plane actions are quick acknowledgements; anything slower than
	// this is treated as a provider failure.
	defaultTimeout = 5 * time.Second

	defaultVoice          = "female"
	defaultRecordTimeout  = 5
	defaultRecordMaxSecs  = 30
	defaultRecordEncoding = "mp3"
)

var _ telephony.CallController = (*CallControlClient)(nil)

// CallControlClient drives live calls through the Telnyx v2 Call Control
// REST API.
type CallControlClient struct {
	apiKey     string
	baseURL    string
	voice      string
	httpClient *http.Client
}

type ClientOption func(*CallControlClient)

// WithBaseURL points the client at a different API host, used in tests.
func WithBaseURL(url string) ClientOption {
	return func(c *CallControlClient) { c.baseURL = url }
}

// WithVoice sets the provider voice used for speak actions.
func WithVoice(voice string) ClientOption {
	return func(c *CallControlClient) { c.voice = voice }
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *CallControlClient) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func NewCallControlClient(apiKey string, opts ...ClientOption) (*CallControlClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("telnyx api key not found")
	}

	client := &CallControlClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		voice:      defaultVoice,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

func (c *CallControlClient) Answer(ctx context.Context, callID string) error {
	return c.action(ctx, callID, "answer", struct{}{})
}

func (c *CallControlClient) Speak(ctx context.Context, callID string, text string, opts ...telephony.SpeakOption) error {
	options := &telephony.SpeakOptions{Language: "en-US", Voice: c.voice}
	for _, opt := range opts {
		opt(options)
	}

	return c.action(ctx, callID, "speak", speakRequest{
		Payload:  text,
		Voice:    options.Voice,
		Language: options.Language,
	})
}

func (c *CallControlClient) StartRecording(ctx context.Context, callID string) error {
	return c.action(ctx, callID, "record_start", recordStartRequest{
		Format:         defaultRecordEncoding,
		Channels:       "single",
		PlayBeep:       false,
		MaxLength:      defaultRecordMaxSecs,
		TimeoutSecs:    defaultRecordTimeout,
		TrimSilence:    true,
		RecordingTrack: "inbound",
	})
}

func (c *CallControlClient) Transfer(ctx context.Context, callID string, to string) error {
	return c.action(ctx, callID, "transfer", transferRequest{To: to})
}

func (c *CallControlClient) Hangup(ctx context.Context, callID string) error {
	return c.action(ctx, callID, "hangup", struct{}{})
}

func (c *CallControlClient) action(ctx context.Context, callID, action string, body any) error {
	ctx, span := tracer.Start(ctx, "telnyx "+action)
	span.SetAttributes(attribute.String("call_control_id", callID))
	defer span.End()

	requestBodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("error marshalling JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/calls/%s/actions/%s", c.baseURL, callID, action),
		bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("failed to issue %s action: %w", action, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err = fmt.Errorf("%s action returned %s: %s", action, resp.Status, string(respBody))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	logger.Debug("issued call control action", "action", action, "call_control_id", callID)
	return nil
}

type speakRequest struct {
	Payload  string `json:"payload"`
	Voice    string `json:"voice"`
	Language string `json:"language,omitempty"`
}

type recordStartRequest struct {
	Format         string `json:"format"`
	Channels       string `json:"channels"`
	PlayBeep       bool   `json:"play_beep"`
	MaxLength      int    `json:"max_length,omitempty"`
	TimeoutSecs    int    `json:"timeout_secs,omitempty"`
	TrimSilence    bool   `json:"trim_silence,omitempty"`
	RecordingTrack string `json:"recording_track,omitempty"`
}

type transferRequest struct {
	To string `json:"to"`
}
