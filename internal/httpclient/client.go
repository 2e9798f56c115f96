// Package httpclient builds the outbound HTTP client shared by the LRS,
// webhook, token endpoint and remote-control callers.
package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

// New returns a client that never retries. Every outbound call is a single
// attempt; failures are reported to the caller and logged there.
func New(log logrus.FieldLogger, timeout time.Duration) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 0
	c.CheckRetry = NoRetry
	c.Logger = LeveledLogger{Log: log}
	if timeout > 0 {
		c.HTTPClient.Timeout = timeout
	}
	return c
}

// NoRetry hands every response or error straight back to the caller.
func NoRetry(ctx context.Context, _ *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return false, err
}

// LeveledLogger adapts logrus to retryablehttp's key/value logger.
type LeveledLogger struct {
	Log logrus.FieldLogger
}

func (l LeveledLogger) entry(kv []interface{}) logrus.FieldLogger {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			fields[k] = kv[i+1]
		}
	}
	return l.Log.WithFields(fields)
}

func (l LeveledLogger) Error(msg string, kv ...interface{}) { l.entry(kv).Error(msg) }
func (l LeveledLogger) Warn(msg string, kv ...interface{})  { l.entry(kv).Warn(msg) }
func (l LeveledLogger) Info(msg string, kv ...interface{})  { l.entry(kv).Debug(msg) }
func (l LeveledLogger) Debug(msg string, kv ...interface{}) { l.entry(kv).Debug(msg) }
