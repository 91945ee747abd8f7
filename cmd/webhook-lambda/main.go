// Command webhook-lambda fronts the WhatsApp webhook from API Gateway and
// relays each Twilio request to the API service.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/wolfman30/lysandra-ai-platform/internal/conversation"
	"github.com/wolfman30/lysandra-ai-platform/internal/messaging"
	"github.com/wolfman30/lysandra-ai-platform/pkg/logging"
)

const (
	defaultUpstreamPath    = "/api/webhook"
	defaultUpstreamTimeout = 28 * time.Second
)

type config struct {
	apiURL          string
	upstreamPath    string
	upstreamTimeout time.Duration
}

func loadConfig() (config, error) {
	apiURL := strings.TrimSpace(os.Getenv("API_URL"))
	if apiURL == "" {
		return config{}, errors.New("API_URL is required")
	}

	timeout := defaultUpstreamTimeout
	if raw := strings.TrimSpace(os.Getenv("UPSTREAM_TIMEOUT")); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return config{}, fmt.Errorf("invalid UPSTREAM_TIMEOUT: %w", err)
		}
		timeout = parsed
	}

	path := strings.TrimSpace(os.Getenv("UPSTREAM_PATH"))
	if path == "" {
		path = defaultUpstreamPath
	}

	return config{
		apiURL:          strings.TrimRight(apiURL, "/"),
		upstreamPath:    path,
		upstreamTimeout: timeout,
	}, nil
}

func main() {
	logger := logging.New(os.Getenv("LOG_LEVEL"))
	cfg, err := loadConfig()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	client := &http.Client{Timeout: cfg.upstreamTimeout}
	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return handle(ctx, cfg, client, logger, evt)
	})
}

func handle(ctx context.Context, cfg config, client *http.Client, logger *logging.Logger, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}

	if path == "/health" || path == "/_health" {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusOK, Body: "ok"}, nil
	}
	if method != http.MethodPost {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusMethodNotAllowed}, nil
	}

	body, err := decodeBody(evt)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: "invalid body"}, nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, cfg.upstreamTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, cfg.apiURL+cfg.upstreamPath, bytes.NewReader(body))
	if err != nil {
		return apologyResponse(), nil
	}
	if ct := headerValue(evt.Headers, "content-type"); ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	copyHeader(req.Header, evt.Headers, messaging.SignatureHeader)

	// The signature covers the public URL Twilio called, not the upstream one.
	if host := publicHost(evt); host != "" {
		req.Header.Set("X-Forwarded-Host", host)
	}
	if uri := publicURI(evt, path); uri != "" {
		req.Header.Set(messaging.ForwardedURIHeader, uri)
	}
	proto := strings.TrimSpace(headerValue(evt.Headers, "x-forwarded-proto"))
	if proto == "" {
		proto = "https"
	}
	req.Header.Set("X-Forwarded-Proto", proto)

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("upstream webhook failed", "error", err)
		return apologyResponse(), nil
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusInternalServerError {
		logger.Error("upstream webhook error", "status", resp.StatusCode)
		return apologyResponse(), nil
	}

	out := events.APIGatewayV2HTTPResponse{
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
		Headers:    map[string]string{},
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		out.Headers["content-type"] = ct
	}
	return out, nil
}

// apologyResponse keeps Twilio from retrying when the API is unreachable.
func apologyResponse() events.APIGatewayV2HTTPResponse {
	body, _ := messaging.RenderTwiML(conversation.Apology)
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers:    map[string]string{"content-type": "text/xml"},
	}
}

func publicHost(evt events.APIGatewayV2HTTPRequest) string {
	if host := strings.TrimSpace(evt.RequestContext.DomainName); host != "" {
		return host
	}
	return strings.TrimSpace(headerValue(evt.Headers, "host"))
}

func publicURI(evt events.APIGatewayV2HTTPRequest, path string) string {
	if path == "" {
		return ""
	}
	if query := strings.TrimSpace(evt.RawQueryString); query != "" {
		return path + "?" + query
	}
	return path
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	return base64.StdEncoding.DecodeString(evt.Body)
}

func headerValue(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func copyHeader(dst http.Header, src map[string]string, header string) {
	if value := strings.TrimSpace(headerValue(src, header)); value != "" {
		dst.Set(header, value)
	}
}
