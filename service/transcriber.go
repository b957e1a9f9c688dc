package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrTranscription is returned when audio cannot be transcribed.
	ErrTranscription = errors.New("service: transcription failed")
	// ErrGeneration is returned when no report can be generated.
	ErrGeneration = errors.New("service: report generation failed")
	// ErrBadRequest marks a malformed client request.
	ErrBadRequest = errors.New("service: bad request")
)

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, contentType string) (string, error)
}

// DefaultKeywords are boosted terms of cardiac CT dictation, as term:intensifier.
var DefaultKeywords = []string{
	"stenosis:2",
	"calcified plaque:2",
	"non-calcified plaque:2",
	"occlusion:2",
	"LAD:2",
	"LCX:2",
	"RCA:2",
	"LMCA:2",
	"calcium score:2",
	"CAD-RADS:2",
	"right dominant:2",
	"left dominant:2",
}

// DeepgramOption configures a DeepgramTranscriber.
type DeepgramOption func(*DeepgramTranscriber)

// WithDeepgramBaseURL points the transcriber at another API host.
func WithDeepgramBaseURL(base string) DeepgramOption {
	return func(d *DeepgramTranscriber) {
		d.baseURL = strings.TrimRight(base, "/")
	}
}

// WithDeepgramModel sets the recognition model.
func WithDeepgramModel(model string) DeepgramOption {
	return func(d *DeepgramTranscriber) {
		d.model = model
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) DeepgramOption {
	return func(d *DeepgramTranscriber) {
		d.client = c
	}
}

// WithKeywords replaces the boosted keywords.
func WithKeywords(keywords []string) DeepgramOption {
	return func(d *DeepgramTranscriber) {
		d.keywords = keywords
	}
}

// DeepgramTranscriber calls the Deepgram pre-recorded listen endpoint.
type DeepgramTranscriber struct {
	apiKey   string
	baseURL  string
	model    string
	keywords []string
	client   *http.Client
}

// NewDeepgram returns a transcriber authenticating with apiKey.
func NewDeepgram(apiKey string, opts ...DeepgramOption) *DeepgramTranscriber {
	d := &DeepgramTranscriber{
		apiKey:   apiKey,
		baseURL:  "https://api.deepgram.com",
		model:    "nova-3-medical",
		keywords: DefaultKeywords,
		client:   &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type listenResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
	ErrMsg string `json:"err_msg"`
}

// Transcribe uploads audio and returns the first alternative of the first
// channel.
func (d *DeepgramTranscriber) Transcribe(ctx context.Context, audio io.Reader, contentType string) (string, error) {
	if d.apiKey == "" {
		return "", fmt.Errorf("%w: missing API key", ErrTranscription)
	}
	q := url.Values{}
	q.Set("model", d.model)
	q.Set("smart_format", "true")
	q.Set("punctuate", "true")
	for _, k := range d.keywords {
		q.Add("keywords", k)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/v1/listen?"+q.Encode(), audio)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranscription, err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranscription, err)
	}
	defer resp.Body.Close()

	var body listenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decode response (status %d): %w", ErrTranscription, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrTranscription, resp.StatusCode, body.ErrMsg)
	}
	if len(body.Results.Channels) == 0 || len(body.Results.Channels[0].Alternatives) == 0 {
		return "", fmt.Errorf("%w: response has no alternatives", ErrTranscription)
	}
	return body.Results.Channels[0].Alternatives[0].Transcript, nil
}
