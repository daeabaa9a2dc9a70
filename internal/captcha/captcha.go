package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yaronhayo/contractor-clone-craft-sub000/pkg/logging"
)

// DefaultEndpoint is Google's reCAPTCHA server-side verification URL.
const DefaultEndpoint = "https://www.google.com/recaptcha/api/siteverify"

// Result is the verification service's response. Success reports whether
// the challenge token proved human interaction; a transport failure is
// returned as an error instead, so callers can distinguish the two.
type Result struct {
	Success     bool     `json:"success"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes"`
}

// Verifier confirms a client-presented challenge token with an external
// verification service.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) (*Result, error)
}

// GoogleVerifier verifies reCAPTCHA tokens against the siteverify API.
type GoogleVerifier struct {
	secret   string
	endpoint string
	client   *http.Client
	logger   *logging.Logger
}

// Config holds verifier configuration. An empty Secret disables
// verification; NewGoogleVerifier returns nil in that case.
type Config struct {
	Secret   string
	Endpoint string
	Timeout  time.Duration
}

// NewGoogleVerifier creates a siteverify client, or nil when no secret is
// configured.
func NewGoogleVerifier(cfg Config, logger *logging.Logger) *GoogleVerifier {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &GoogleVerifier{
		secret:   cfg.Secret,
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}
}

// Verify posts the token to the verification service as a form-encoded
// request and parses its JSON verdict. Any transport or decode failure is
// an error; it must never be read as a passed challenge.
func (v *GoogleVerifier) Verify(ctx context.Context, token, remoteIP string) (*Result, error) {
	form := url.Values{
		"secret":   {v.secret},
		"response": {token},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("captcha: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Error("captcha verification request failed", "error", err)
		return nil, fmt.Errorf("captcha: verification request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		v.logger.Error("captcha verification returned error status", "status", resp.StatusCode)
		return nil, fmt.Errorf("captcha: verification service returned status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		v.logger.Error("captcha verification response not parseable", "error", err)
		return nil, fmt.Errorf("captcha: decode response: %w", err)
	}

	if !result.Success {
		v.logger.Info("captcha challenge failed", "error_codes", result.ErrorCodes, "remote_ip", remoteIP)
	}
	return &result, nil
}

var _ Verifier = (*GoogleVerifier)(nil)
