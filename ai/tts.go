package ai

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	defaultTTSEndpoint = "https://texttospeech.googleapis.com/v1/text:synthesize"
	defaultTokenURL    = "https://oauth2.googleapis.com/token"
	ttsScope           = "https://www.googleapis.com/auth/cloud-platform"
)

// TTSClient wraps one outbound call to the Google Cloud speech-synthesis
// endpoint. Voice and audio encoding are fixed: en-US neutral voice, MP3 at
// 24 kHz with the small-bluetooth-speaker effects profile.
type TTSClient struct {
	account    ServiceAccount
	signingKey *rsa.PrivateKey
	endpoint   string
	tokenURL   string
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// TTSOption customizes a TTSClient
type TTSOption func(*TTSClient)

// WithTTSEndpoint overrides the synthesis endpoint
func WithTTSEndpoint(endpoint string) TTSOption {
	return func(c *TTSClient) { c.endpoint = endpoint }
}

// WithTokenURL overrides the OAuth token endpoint
func WithTokenURL(tokenURL string) TTSOption {
	return func(c *TTSClient) { c.tokenURL = tokenURL }
}

// WithTTSHTTPClient overrides the transport
func WithTTSHTTPClient(hc *http.Client) TTSOption {
	return func(c *TTSClient) { c.httpClient = hc }
}

// NewTTSClient validates the service-account credentials and parses the
// signing key. Missing credentials fail here, before any network attempt.
func NewTTSClient(account ServiceAccount, opts ...TTSOption) (*TTSClient, error) {
	if err := account.Validate(); err != nil {
		return nil, err
	}

	key, err := ParsePrivateKey(account.PrivateKey)
	if err != nil {
		return nil, err
	}

	client := &TTSClient{
		account:    account,
		signingKey: key,
		endpoint:   defaultTTSEndpoint,
		tokenURL:   defaultTokenURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		SSMLGender   string `json:"ssmlGender"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding    string   `json:"audioEncoding"`
		SampleRateHertz  int      `json:"sampleRateHertz"`
		EffectsProfileID []string `json:"effectsProfileId"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize converts text to MP3 audio bytes
func (c *TTSClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, &ConfigurationError{Reason: "text is required"}
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var reqBody synthesizeRequest
	reqBody.Input.Text = text
	reqBody.Voice.LanguageCode = "en-US"
	reqBody.Voice.SSMLGender = "NEUTRAL"
	reqBody.AudioConfig.AudioEncoding = "MP3"
	reqBody.AudioConfig.SampleRateHertz = 24000
	reqBody.AudioConfig.EffectsProfileID = []string{"small-bluetooth-speaker-class-device"}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshaling TTS request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating TTS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Goog-User-Project", c.account.ProjectID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making TTS API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading TTS response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{
			Service: "tts",
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(string(body)),
		}
	}

	var synthResp synthesizeResponse
	if err := json.Unmarshal(body, &synthResp); err != nil {
		return nil, &MalformedResponse{Service: "tts", Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	if synthResp.AudioContent == "" {
		return nil, &EmptyAudioError{}
	}

	audio, err := base64.StdEncoding.DecodeString(synthResp.AudioContent)
	if err != nil {
		return nil, &MalformedResponse{Service: "tts", Reason: fmt.Sprintf("audio content is not valid base64: %v", err)}
	}
	if len(audio) == 0 {
		return nil, &EmptyAudioError{}
	}

	return audio, nil
}

// token returns a cached access token, minting a fresh one when the cached
// token is within a minute of expiry
func (c *TTSClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.accessToken, nil
	}

	assertion, err := c.signAssertion()
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("error creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error requesting access token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &UpstreamError{
			Service: "oauth",
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(string(body)),
		}
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", &MalformedResponse{Service: "oauth", Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if tokenResp.AccessToken == "" {
		return "", &MalformedResponse{Service: "oauth", Reason: "token response has no access_token"}
	}

	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	return c.accessToken, nil
}
