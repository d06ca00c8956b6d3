package sourcedata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/httpextra"
	"github.com/jamesrr39/goutil/logpkg"
)

// NewRetryableClient returns an HTTP client that retries connection errors and 5xx responses
func NewRetryableClient(logger *logpkg.Logger, maxRetries int) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = maxRetries
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 10 * time.Second
	client.HTTPClient.Timeout = 60 * time.Second
	client.Logger = &leveledLogger{logger}
	return client
}

// Get fetches url and returns the (decompressed) body. Any status other than 200 is an error.
func Get(ctx context.Context, client *retryablehttp.Client, url string) ([]byte, errorsx.Error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errorsx.Wrap(err, "url", url)
	}
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := client.Do(req)
	if err != nil {
		return nil, errorsx.Wrap(err, "url", url)
	}
	defer resp.Body.Close()

	err = httpextra.CheckResponseCode(http.StatusOK, resp.StatusCode)
	if err != nil {
		return nil, errorsx.Wrap(err, "url", url, "body", httpextra.GetBodyOrErrorMsg(resp))
	}

	body, err := httpextra.RemoveGzip(resp)
	if err != nil {
		return nil, errorsx.Wrap(err, "url", url)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errorsx.Wrap(err, "url", url)
	}

	return data, nil
}

// leveledLogger adapts logpkg to the key/value logging calls retryablehttp makes
type leveledLogger struct {
	logger *logpkg.Logger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error("%s", formatKeysAndValues(msg, keysAndValues))
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info("%s", formatKeysAndValues(msg, keysAndValues))
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("%s", formatKeysAndValues(msg, keysAndValues))
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn("%s", formatKeysAndValues(msg, keysAndValues))
}

func formatKeysAndValues(msg string, keysAndValues []interface{}) string {
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i < len(keysAndValues); i += 2 {
		var value interface{} = "[empty]"
		if i+1 < len(keysAndValues) {
			value = keysAndValues[i+1]
		}
		sb.WriteString(fmt.Sprintf(" %v=%v", keysAndValues[i], value))
	}
	return sb.String()
}
