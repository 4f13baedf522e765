package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// Synthesizer converts a sentence to audio plus word timestamps.
// Implementations own their own timeouts; a failed or timed-out call is
// reported as an error, never a partial result.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (*Synthesis, error)
}

// ErrSynthesisFailed indicates the remote voice model did not return audio.
var ErrSynthesisFailed = errors.New("speech synthesis failed")

// ClientConfig holds configuration for the HTTP synthesis client.
type ClientConfig struct {
	// Endpoint is the synthesis URL (POST, JSON body).
	Endpoint string

	// Timeout bounds a single request, connect through body read.
	Timeout time.Duration

	// RequestsPerMinute limits call rate against the remote service.
	// Zero means 30.
	RequestsPerMinute int
}

// Client is the HTTP implementation of Synthesizer. It posts
// {text, voice, stream:false} and decodes a base64 audio payload with
// seconds-based word timestamps.
type Client struct {
	endpoint string
	httpc    *http.Client
	limiter  *rate.Limiter
	logger   *log.Logger
}

// NewClient creates a synthesis client for the given endpoint.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("synthesis endpoint not configured")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 30
	}

	return &Client{
		endpoint: cfg.Endpoint,
		httpc:    &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
		logger:   log.Default().With("component", "speech"),
	}, nil
}

type synthesizeRequest struct {
	Text   string `json:"text"`
	Voice  string `json:"voice"`
	Stream bool   `json:"stream"`
}

type synthesizeResponse struct {
	Audio      string         `json:"audio"`
	Timestamps []RawTimestamp `json:"timestamps"`
}

// PrepareText applies the substitutions required before text reaches the
// voice model. A hyphen surrounded by single spaces truncates the model's
// timestamp output, so it is rewritten to a comma pause.
func PrepareText(text string) string {
	return strings.ReplaceAll(text, " - ", ", ")
}

// Synthesize posts the sentence to the voice model and returns decoded
// audio with word timestamps.
func (c *Client) Synthesize(ctx context.Context, text, voice string) (*Synthesis, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(synthesizeRequest{
		Text:   PrepareText(text),
		Voice:  voice,
		Stream: false,
	})
	if err != nil {
		return nil, fmt.Errorf("encode synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d", ErrSynthesisFailed, resp.StatusCode)
	}

	var decoded synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSynthesisFailed, err)
	}

	audio, err := base64.StdEncoding.DecodeString(decoded.Audio)
	if err != nil {
		return nil, fmt.Errorf("%w: decode audio: %v", ErrSynthesisFailed, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio payload", ErrSynthesisFailed)
	}

	c.logger.Debug("synthesis complete",
		"voice", voice,
		"textLength", len(text),
		"audioBytes", len(audio),
		"words", len(decoded.Timestamps),
		"elapsed", time.Since(start))

	return &Synthesis{Audio: audio, Raw: decoded.Timestamps}, nil
}
