package messaging

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// SignatureHeader carries Twilio's request signature.
const SignatureHeader = "X-Twilio-Signature"

// ForwardedURIHeader carries the path and query Twilio called when a relay
// posts to a different upstream route.
const ForwardedURIHeader = "X-Forwarded-Uri"

// ValidateTwilioSignature validates that a request came from Twilio.
func ValidateTwilioSignature(r *http.Request, authToken, webhookURL string) bool {
	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		return false
	}
	if err := r.ParseForm(); err != nil {
		return false
	}

	expected := ComputeSignature(webhookURL, r.PostForm, authToken)
	return hmac.Equal([]byte(signature), []byte(expected))
}

// ComputeSignature returns the base64 HMAC-SHA1 of the URL followed by the
// sorted form parameters.
func ComputeSignature(webhookURL string, params url.Values, authToken string) string {
	return computeSignature(buildSignaturePayload(webhookURL, params), authToken)
}

func buildSignaturePayload(url string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	payload.WriteString(url)
	for _, key := range keys {
		for _, value := range params[key] {
			payload.WriteString(key)
			payload.WriteString(value)
		}
	}
	return payload.String()
}

func computeSignature(data, key string) string {
	h := hmac.New(sha1.New, []byte(key))
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// TwilioWebhookRequest represents an incoming Twilio WhatsApp webhook.
type TwilioWebhookRequest struct {
	MessageSid  string
	AccountSid  string
	From        string
	To          string
	Body        string
	ProfileName string
	NumMedia    string
}

// ParseTwilioWebhook parses a Twilio webhook request.
func ParseTwilioWebhook(r *http.Request) (*TwilioWebhookRequest, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("failed to parse form: %w", err)
	}

	return &TwilioWebhookRequest{
		MessageSid:  r.FormValue("MessageSid"),
		AccountSid:  r.FormValue("AccountSid"),
		From:        r.FormValue("From"),
		To:          r.FormValue("To"),
		Body:        r.FormValue("Body"),
		ProfileName: r.FormValue("ProfileName"),
		NumMedia:    r.FormValue("NumMedia"),
	}, nil
}

// BuildAbsoluteURL reconstructs the public URL Twilio signed, honoring
// proxy forwarding headers.
func BuildAbsoluteURL(r *http.Request) string {
	if r.URL == nil {
		return ""
	}
	if r.URL.Scheme != "" && r.URL.Host != "" {
		return r.URL.String()
	}
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "https"
		if r.TLS == nil {
			scheme = "http"
		}
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	uri := r.Header.Get(ForwardedURIHeader)
	if !strings.HasPrefix(uri, "/") {
		uri = r.URL.RequestURI()
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, uri)
}
