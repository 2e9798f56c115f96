// Package delivery performs the single signed or authenticated POST of a
// payload to a webhook or LRS endpoint.
package delivery

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/mind-engage/xapi-tracker/internal/auth"
)

// Payload is anything that serialises to a transport body: xapi.Batch or
// webhook.Envelope.
type Payload interface {
	ContentType() string
	Body() ([]byte, error)
}

// Authorizer produces an Authorization header value.
type Authorizer interface {
	Authorization(ctx context.Context) string
}

type Request struct {
	URL        string
	Payload    Payload
	Signer     auth.Signer
	Authorizer Authorizer // nil sends no Authorization header
	Debug      bool
}

// Response is what came back. Sent is false when the request never left
// (bad URL, body encoding failure, transport error).
type Response struct {
	Sent     bool
	Status   int
	Body     string
	Headers  http.Header
	Payload  []byte
	Duration time.Duration
}

type Client struct {
	HTTP *retryablehttp.Client
	Log  logrus.FieldLogger
	Now  func() time.Time
}

func New(hc *retryablehttp.Client, log logrus.FieldLogger) *Client {
	return &Client{HTTP: hc, Log: log, Now: time.Now}
}

// ValidURL accepts absolute http(s) URLs with a host.
func ValidURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// Post sends r once. Nothing is returned as an error: configuration and
// transport problems are logged and reflected in the Response.
func (c *Client) Post(ctx context.Context, r Request) Response {
	log := c.Log.WithField("url", r.URL)
	var out Response
	if !ValidURL(r.URL) {
		log.Warn("delivery skipped: empty or malformed url")
		return out
	}
	body, err := r.Payload.Body()
	if err != nil {
		log.WithError(err).Error("delivery skipped: encode payload")
		return out
	}
	out.Payload = body

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(body))
	if err != nil {
		log.WithError(err).Error("delivery skipped: build request")
		return out
	}
	req.Header.Set("Content-Type", r.Payload.ContentType())
	req.Header.Set("Content-Length", strconv.Itoa(len(body)))
	req.ContentLength = int64(len(body))
	if r.Signer.Enabled() {
		name, sig := r.Signer.Signature(body)
		req.Header.Set(name, sig)
	}
	if r.Authorizer != nil {
		req.Header.Set("Authorization", r.Authorizer.Authorization(ctx))
	}
	out.Headers = req.Header.Clone()
	if r.Debug {
		log.WithField("headers", redact(out.Headers)).Info("delivery request headers")
	}

	start := c.now()
	res, err := c.HTTP.Do(req)
	out.Duration = c.now().Sub(start)
	if err != nil {
		log.WithError(err).Error("delivery failed")
		return out
	}
	defer res.Body.Close()
	out.Sent = true
	out.Status = res.StatusCode
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		log.WithError(err).Warn("delivery: reading response body")
	}
	out.Body = string(raw)
	if res.StatusCode/100 != 2 {
		log.WithFields(logrus.Fields{"status": res.StatusCode, "body": out.Body}).Warn("delivery rejected")
	} else {
		log.WithField("status", res.StatusCode).Debug("delivered")
	}
	return out
}

func (c *Client) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// redact masks credentials for logging.
func redact(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		v := h.Get(k)
		if k == "Authorization" && len(v) > 10 {
			v = v[:10] + "..."
		}
		out[k] = v
	}
	return out
}
