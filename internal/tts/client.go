// Package tts provides the client for the Azure Cognitive Services speech
// synthesis REST API.
//
// The client performs exactly one backend request per call. It never retries
// and it never re-encodes the audio the service returns.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/book-expert/tts-batch-service/internal/config"
)

// API endpoints and paths.
const (
	apiSynthesize  = "/cognitiveservices/v1"
	apiVoicesList  = "/cognitiveservices/voices/list"
	endpointFormat = "https://%s.tts.speech.microsoft.com"
)

// HTTP headers.
const (
	headerContentType     = "Content-Type"
	headerSubscriptionKey = "Ocp-Apim-Subscription-Key"
	headerOutputFormat    = "X-Microsoft-OutputFormat"
	headerUserAgent       = "User-Agent"
	contentTypeSSML       = "application/ssml+xml"
	userAgent             = "tts-batch-service"
)

// Error messages.
const (
	errFmtNonOKStatus      = "%s: %s"
	errMsgEmptyAudio       = "service returned empty audio"
	errMsgMissingKeyRegion = "subscription key and region must be provided"
)

// ErrConfiguration is returned when the client lacks credentials or region.
var ErrConfiguration = errors.New("speech synthesis is not configured")

// SynthesisError reports that the backend did not complete synthesis. Reason
// carries the backend's explanation verbatim.
type SynthesisError struct {
	Reason string
}

func (e *SynthesisError) Error() string {
	return "speech synthesis failed: " + e.Reason
}

// Voice is one entry of the backend's voice catalogue.
type Voice struct {
	Name      string `json:"Name"`
	ShortName string `json:"ShortName"`
	Locale    string `json:"Locale"`
	Gender    string `json:"Gender"`
}

// AzureClient synthesizes speech through the Azure REST API.
type AzureClient struct {
	httpClient   *http.Client
	baseURL      string
	key          string
	region       string
	voice        string
	outputFormat string
}

// NewAzureClient builds a client from the Azure section of the configuration.
// Missing credentials are accepted here and reported on first use.
func NewAzureClient(cfg config.AzureTTSConfig) *AzureClient {
	baseURL := cfg.Endpoint
	if baseURL == "" && cfg.Region != "" {
		baseURL = fmt.Sprintf(endpointFormat, cfg.Region)
	}

	outputFormat := cfg.OutputFormat
	if outputFormat == "" {
		outputFormat = config.DefaultOutputFormat
	}

	return &AzureClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		baseURL:      strings.TrimRight(baseURL, "/"),
		key:          cfg.SubscriptionKey,
		region:       cfg.Region,
		voice:        cfg.VoiceName,
		outputFormat: outputFormat,
	}
}

// Synthesize converts text into audio in the configured output format.
func (c *AzureClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	configErr := c.checkConfigured()
	if configErr != nil {
		return nil, configErr
	}

	body, err := buildSSML(c.voice, text)
	if err != nil {
		return nil, fmt.Errorf("failed to build SSML: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+apiSynthesize,
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(headerContentType, contentTypeSSML)
	req.Header.Set(headerSubscriptionKey, c.key)
	req.Header.Set(headerOutputFormat, c.outputFormat)
	req.Header.Set(headerUserAgent, userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &SynthesisError{Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return nil, &SynthesisError{Reason: errMsgEmptyAudio}
	}

	return audioData, nil
}

// Voices fetches the voice catalogue for the configured region.
func (c *AzureClient) Voices(ctx context.Context) ([]Voice, error) {
	configErr := c.checkConfigured()
	if configErr != nil {
		return nil, configErr
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiVoicesList, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create voices request: %w", err)
	}

	req.Header.Set(headerSubscriptionKey, c.key)
	req.Header.Set(headerUserAgent, userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voices request to %s failed: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var voices []Voice

	decodeErr := json.NewDecoder(resp.Body).Decode(&voices)
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to parse voices response: %w", decodeErr)
	}

	return voices, nil
}

// HealthCheck verifies that the backend accepts the credentials and offers
// the configured voice.
func (c *AzureClient) HealthCheck(ctx context.Context) error {
	voices, err := c.Voices(ctx)
	if err != nil {
		return err
	}

	for _, voice := range voices {
		if voice.ShortName == c.voice || voice.Name == c.voice {
			return nil
		}
	}

	return fmt.Errorf("voice %q is not offered in region %q", c.voice, c.region)
}

func (c *AzureClient) checkConfigured() error {
	if c.key == "" || c.region == "" || c.baseURL == "" {
		return fmt.Errorf("%w: %s", ErrConfiguration, errMsgMissingKeyRegion)
	}

	return nil
}

// statusError turns a non-200 response into a SynthesisError that preserves
// the status line and whatever explanation the body carried.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	detail := strings.TrimSpace(string(body))
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}

	return &SynthesisError{Reason: fmt.Sprintf(errFmtNonOKStatus, resp.Status, detail)}
}

// buildSSML wraps text in a single-voice SSML document. The xml:lang
// attribute is derived from the voice name, e.g. zh-CN-XiaoxiaoNeural.
func buildSSML(voice, text string) ([]byte, error) {
	var escaped bytes.Buffer

	err := xml.EscapeText(&escaped, []byte(text))
	if err != nil {
		return nil, fmt.Errorf("failed to escape text: %w", err)
	}

	var doc bytes.Buffer

	doc.WriteString(`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="`)
	doc.WriteString(voiceLocale(voice))
	doc.WriteString(`"><voice name="`)
	_ = xml.EscapeText(&doc, []byte(voice))
	doc.WriteString(`">`)
	doc.Write(escaped.Bytes())
	doc.WriteString(`</voice></speak>`)

	return doc.Bytes(), nil
}

func voiceLocale(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 3 {
		return "en-US"
	}

	return parts[0] + "-" + parts[1]
}
