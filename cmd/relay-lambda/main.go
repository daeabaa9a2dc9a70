package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/yaronhayo/contractor-clone-craft-sub000/internal/app/bootstrap"
	appconfig "github.com/yaronhayo/contractor-clone-craft-sub000/internal/config"
	"github.com/yaronhayo/contractor-clone-craft-sub000/internal/relay"
	"github.com/yaronhayo/contractor-clone-craft-sub000/pkg/logging"
)

// app holds the relay wiring built once per cold start.
type app struct {
	handler *relay.Handler
}

func newApp(ctx context.Context) *app {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	location, err := time.LoadLocation(cfg.TimestampZone)
	if err != nil {
		logger.Warn("invalid timestamp zone, using UTC", "zone", cfg.TimestampZone, "error", err)
		location = time.UTC
	}

	sender := bootstrap.BuildEmailSender(ctx, cfg, logger)
	verifier := bootstrap.BuildVerifier(cfg, logger)
	limiter := bootstrap.BuildLimiter(ctx, cfg, logger)

	return &app{
		handler: relay.NewHandler(relay.Config{
			FromEmail:       cfg.EmailFrom,
			FromName:        cfg.EmailFromName,
			ToEmail:         cfg.EmailTo,
			DispatchTimeout: cfg.DispatchTimeout,
			Location:        location,
		}, sender, verifier, limiter, nil, logger),
	}
}

func main() {
	a := newApp(context.Background())
	lambda.Start(a.handle)
}

func (a *app) handle(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}

	if path == "/health" || path == "/_health" {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusOK, Body: "ok"}, nil
	}

	req, err := newHTTPRequest(ctx, evt, path)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: `{"error":"Invalid request body"}`}, nil
	}

	rec := &responseBuffer{header: http.Header{}, status: http.StatusOK}
	a.handler.SendEmail(rec, req)

	out := events.APIGatewayV2HTTPResponse{
		StatusCode: rec.status,
		Body:       rec.body.String(),
		Headers:    map[string]string{},
	}
	if ct := rec.header.Get("Content-Type"); ct != "" {
		out.Headers["content-type"] = ct
	}
	return out, nil
}

// newHTTPRequest adapts the API Gateway event into the http.Request shape
// the relay handler expects, preserving the caller identity headers the
// rate limiter and CAPTCHA verifier read.
func newHTTPRequest(ctx context.Context, evt events.APIGatewayV2HTTPRequest, path string) (*http.Request, error) {
	body, err := decodeBody(evt)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, v := range evt.Headers {
		req.Header.Set(k, v)
	}
	if sourceIP := strings.TrimSpace(evt.RequestContext.HTTP.SourceIP); sourceIP != "" {
		req.RemoteAddr = sourceIP + ":0"
	}
	return req, nil
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	return base64.StdEncoding.DecodeString(evt.Body)
}

// responseBuffer is a minimal http.ResponseWriter backed by memory.
type responseBuffer struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func (r *responseBuffer) Header() http.Header { return r.header }

func (r *responseBuffer) WriteHeader(status int) { r.status = status }

func (r *responseBuffer) Write(p []byte) (int, error) { return r.body.Write(p) }
