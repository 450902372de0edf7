package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/koscakluka/receptionist/core/texttospeech"
	"go.opentelemetry.io/otel/codes"
)

const (
	baseURL = "https://api.elevenlabs.io/v1"

	defaultModelID = "eleven_multilingual_v2"
	defaultTimeout = 30 * time.Second
)

// Voice IDs per language, falling back to English.
var voices = map[string]string{
	"en": "EXAVITQu4vr4xnSDxMaL", // Bella
	"es": "VR6AewLTigWG4xSOukaG", // Sofia
	"zh": "yoZ06aMxZJJ28mfd3POQ", // Lin
	"vi": "bVMeCyTHy58xNoL34h3p", // An
	"ko": "g5CIjZEefAph4nQFvHAz", // Min
}

var _ texttospeech.Synthesizer = (*TextToSpeechClient)(nil)

// TextToSpeechClient generates speech through the ElevenLabs REST API.
type TextToSpeechClient struct {
	apiKey     string
	modelID    string
	httpClient *http.Client
}

type ClientOption func(*TextToSpeechClient)

// WithModelID overrides the synthesis model.
func WithModelID(modelID string) ClientOption {
	return func(c *TextToSpeechClient) { c.modelID = modelID }
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *TextToSpeechClient) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func NewTextToSpeechClient(apiKey string, opts ...ClientOption) (*TextToSpeechClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("elevenlabs api key not found")
	}

	client := &TextToSpeechClient{
		apiKey:     apiKey,
		modelID:    defaultModelID,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Synthesize renders text as MP3 audio using a voice matched to the language.
func (c *TextToSpeechClient) Synthesize(ctx context.Context, text string, opts ...texttospeech.SynthesisOption) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "elevenlabs synthesize")
	defer span.End()

	options := &texttospeech.SynthesisOptions{Language: "en"}
	for _, opt := range opts {
		opt(options)
	}

	voiceID := options.VoiceID
	if voiceID == "" {
		voiceID = voices[options.Language]
		if voiceID == "" {
			voiceID = voices["en"]
		}
	}

	reqBody := requestBody{
		Text:    text,
		ModelID: c.modelID,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			UseSpeakerBoost: true,
		},
	}

	requestBodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshalling JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/text-to-speech/%s", baseURL, voiceID),
		bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("error sending request: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err = fmt.Errorf("non-OK HTTP status: %s: %s", resp.Status, string(body))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading audio response: %w", err)
	}

	logger.Debug("synthesized speech", "voice", voiceID, "bytes", len(audio))
	return audio, nil
}

type requestBody struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}
