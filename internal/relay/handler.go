package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yaronhayo/contractor-clone-craft-sub000/internal/captcha"
	"github.com/yaronhayo/contractor-clone-craft-sub000/internal/clientip"
	"github.com/yaronhayo/contractor-clone-craft-sub000/internal/notify"
	"github.com/yaronhayo/contractor-clone-craft-sub000/internal/observability/metrics"
	"github.com/yaronhayo/contractor-clone-craft-sub000/internal/ratelimit"
	"github.com/yaronhayo/contractor-clone-craft-sub000/pkg/logging"
)

// Requests larger than this are junk; real form posts are a few KB.
const maxBodyBytes = 64 << 10

// globalBucketKey throttles requests whose client IP cannot be derived.
const globalBucketKey = "global"

// Config holds the relay's delivery settings. FromEmail and ToEmail are
// operator-supplied; their absence is a 500, not a client error.
type Config struct {
	FromEmail       string
	FromName        string
	ToEmail         string
	DispatchTimeout time.Duration
	Location        *time.Location // timezone for the submitted-at row
}

// Handler implements the lead relay endpoint: one POST in, zero or one
// email out.
type Handler struct {
	cfg      Config
	sender   notify.EmailSender
	verifier captcha.Verifier // nil disables CAPTCHA enforcement
	limiter  ratelimit.Limiter
	metrics  *metrics.RelayMetrics
	logger   *logging.Logger
	now      func() time.Time
}

// NewHandler creates the relay handler. verifier and metrics may be nil.
func NewHandler(cfg Config, sender notify.EmailSender, verifier captcha.Verifier, limiter ratelimit.Limiter, m *metrics.RelayMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.DispatchTimeout <= 0 {
		cfg.DispatchTimeout = 10 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Handler{
		cfg:      cfg,
		sender:   sender,
		verifier: verifier,
		limiter:  limiter,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

type okResponse struct {
	OK bool `json:"ok"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type rateLimitedResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter"`
}

// SendEmail handles POST /api/send-email. Each step is a guard that
// short-circuits the remainder; the order is fixed: method, rate limit,
// config, parse, required fields, email format, sanitize, phone format,
// honeypot, captcha, compose, dispatch.
func (h *Handler) SendEmail(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	defer func() {
		h.metrics.ObserveLatency(time.Since(start).Seconds())
	}()

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
		return
	}

	clientKey := clientip.FromRequest(r)
	if clientKey == "" {
		clientKey = globalBucketKey
	}
	if h.limiter != nil {
		res, err := h.limiter.Allow(r.Context(), clientKey)
		if err != nil {
			// A limiter backend outage should not take lead capture down
			// with it; admit and flag for the operator.
			h.logger.Warn("rate limiter unavailable, admitting request", "error", err)
		} else if !res.OK {
			h.metrics.ObserveSubmission(metrics.OutcomeRateLimited)
			writeJSON(w, http.StatusTooManyRequests, rateLimitedResponse{
				Error:      "Too many requests. Please try again in a minute.",
				RetryAfter: res.RetryAfter,
			})
			return
		}
	}

	if h.sender == nil || h.cfg.FromEmail == "" || h.cfg.ToEmail == "" {
		h.logger.Error("email relay misconfigured",
			"sender_configured", h.sender != nil,
			"from_set", h.cfg.FromEmail != "",
			"to_set", h.cfg.ToEmail != "",
		)
		h.metrics.ObserveSubmission(metrics.OutcomeError)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "Email service is not configured. Set the provider API key and sender/destination addresses.",
		})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.metrics.ObserveSubmission(metrics.OutcomeRejected)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Unable to read request body"})
		return
	}
	sub, err := ParseSubmission(body)
	if err != nil {
		h.metrics.ObserveSubmission(metrics.OutcomeRejected)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	if missing := sub.MissingFields(); len(missing) > 0 {
		h.metrics.ObserveSubmission(metrics.OutcomeRejected)
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "Missing required fields: " + strings.Join(missing, ", "),
		})
		return
	}

	if !validEmail(sub.Email) {
		h.metrics.ObserveSubmission(metrics.OutcomeRejected)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid email address"})
		return
	}

	clean := sub.Sanitize()

	if !validPhone(clean.Phone) {
		h.metrics.ObserveSubmission(metrics.OutcomeRejected)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid phone number"})
		return
	}

	if field, trapped := sub.TrapField(); trapped {
		// Respond as if accepted so automated submitters get no signal
		// that they were filtered.
		h.logger.Info("decoy field populated, dropping submission", "field", field, "client_ip", clientKey)
		h.metrics.ObserveSubmission(metrics.OutcomeDropped)
		writeJSON(w, http.StatusOK, okResponse{OK: true})
		return
	}

	if h.verifier != nil && clean.Type != TypeTest {
		if !h.verifyCaptcha(w, r, sub) {
			return
		}
	}

	subject := buildSubject(clean.Type, clean.Name)
	rows := buildRows(clean, h.now().In(h.cfg.Location))
	msg := notify.EmailMessage{
		To:      h.cfg.ToEmail,
		ToName:  h.cfg.FromName,
		ReplyTo: clean.Email,
		Subject: subject,
		Body:    buildTextBody(rows),
		HTML:    buildHTMLBody(rows),
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.DispatchTimeout)
	defer cancel()
	if err := h.sender.Send(ctx, msg); err != nil {
		h.logger.Error("email dispatch failed", "error", err, "subject", subject)
		h.metrics.ObserveDispatch(false)
		h.metrics.ObserveSubmission(metrics.OutcomeError)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: dispatchErrorMessage(err)})
		return
	}

	h.logger.Info("lead notification sent", "subject", subject, "type", clean.Type, "client_ip", clientKey)
	h.metrics.ObserveDispatch(true)
	h.metrics.ObserveSubmission(metrics.OutcomeSent)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// verifyCaptcha runs the optional CAPTCHA guard. It writes the response and
// returns false when the request must not proceed. A verification transport
// failure is a 500 and never passes an unverified submission through.
func (h *Handler) verifyCaptcha(w http.ResponseWriter, r *http.Request, sub *Submission) bool {
	token := strings.TrimSpace(sub.RecaptchaToken)
	if token == "" {
		h.metrics.ObserveCaptcha("missing")
		h.metrics.ObserveSubmission(metrics.OutcomeRejected)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing CAPTCHA token"})
		return false
	}

	result, err := h.verifier.Verify(r.Context(), token, clientip.FromRequest(r))
	if err != nil {
		h.metrics.ObserveCaptcha("error")
		h.metrics.ObserveSubmission(metrics.OutcomeError)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "CAPTCHA verification failed. Please try again."})
		return false
	}
	if !result.Success {
		h.metrics.ObserveCaptcha("fail")
		h.metrics.ObserveSubmission(metrics.OutcomeRejected)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "CAPTCHA challenge failed"})
		return false
	}

	h.metrics.ObserveCaptcha("pass")
	return true
}

// SendTest handles POST /admin/test-send: an operator smoke test that
// exercises composition and dispatch with the CAPTCHA-exempt test type.
func (h *Handler) SendTest(w http.ResponseWriter, r *http.Request) {
	if h.sender == nil || h.cfg.FromEmail == "" || h.cfg.ToEmail == "" {
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "Email service is not configured. Set the provider API key and sender/destination addresses.",
		})
		return
	}

	sub := &Submission{
		Name:    "Relay Smoke Test",
		Phone:   "+15555550100",
		Email:   h.cfg.ToEmail,
		Address: "n/a",
		Message: "Manual test send triggered from the admin endpoint.",
	}
	if body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes)); err == nil && len(strings.TrimSpace(string(body))) > 0 {
		if parsed, perr := ParseSubmission(body); perr == nil {
			sub = parsed
		}
	}
	sub.Type = TypeTest

	clean := sub.Sanitize()
	subject := buildSubject(clean.Type, clean.Name)
	rows := buildRows(clean, h.now().In(h.cfg.Location))

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.DispatchTimeout)
	defer cancel()
	err := h.sender.Send(ctx, notify.EmailMessage{
		To:      h.cfg.ToEmail,
		ReplyTo: clean.Email,
		Subject: subject,
		Body:    buildTextBody(rows),
		HTML:    buildHTMLBody(rows),
	})
	if err != nil {
		h.logger.Error("test send failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: dispatchErrorMessage(err)})
		return
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func dispatchErrorMessage(err error) string {
	if err == nil || err.Error() == "" {
		return "Failed to send email"
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
