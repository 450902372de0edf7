package deepgram

import (
	"context"
	"fmt"

	listenv1 "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/rest"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces"
	listen "github.com/deepgram/deepgram-go-sdk/pkg/client/listen"
	"github.com/koscakluka/receptionist/core/speechtotext"
	"go.opentelemetry.io/otel/codes"
)

const defaultModel = "nova-2"

var _ speechtotext.Transcriber = (*TranscriptionClient)(nil)

// TranscriptionClient transcribes prerecorded call audio through Deepgram's
// REST listen API.
type TranscriptionClient struct {
	client *listenv1.Client
	model  string
}

type ClientOption func(*TranscriptionClient)

// WithModel overrides the transcription model.
func WithModel(model string) ClientOption {
	return func(c *TranscriptionClient) { c.model = model }
}

func NewTranscriptionClient(apiKey string, opts ...ClientOption) (*TranscriptionClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	restClient := listen.NewREST(apiKey, &interfaces.ClientOptions{})
	client := &TranscriptionClient{
		client: listenv1.New(restClient),
		model:  defaultModel,
	}
	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Transcribe fetches and transcribes the recording at audioURL.
func (c *TranscriptionClient) Transcribe(ctx context.Context, audioURL string, opts ...speechtotext.TranscriptionOption) (*speechtotext.Transcription, error) {
	ctx, span := tracer.Start(ctx, "deepgram transcribe")
	defer span.End()

	options := &speechtotext.TranscriptionOptions{Language: "en"}
	for _, opt := range opts {
		opt(options)
	}

	response, err := c.client.FromURL(ctx, audioURL, &interfaces.PreRecordedTranscriptionOptions{
		Model:          c.model,
		Language:       options.Language,
		SmartFormat:    true,
		Punctuate:      true,
		DetectLanguage: options.DetectLanguage,
	})
	if err != nil {
		err = fmt.Errorf("failed to transcribe recording: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if response == nil || len(response.Results.Channels) == 0 ||
		len(response.Results.Channels[0].Alternatives) == 0 {
		return nil, fmt.Errorf("transcription response contained no alternatives")
	}

	channel := response.Results.Channels[0]
	alternative := channel.Alternatives[0]

	language := channel.DetectedLanguage
	if language == "" {
		language = options.Language
	}

	logger.Debug("transcribed recording",
		"language", language,
		"confidence", alternative.Confidence,
	)

	return &speechtotext.Transcription{
		Transcript: alternative.Transcript,
		Language:   language,
		Confidence: alternative.Confidence,
	}, nil
}
