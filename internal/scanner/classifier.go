package scanner

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/maxvaer/dateprobe/internal/config"
)

const maxBodySize = 1 << 20 // 1MB

// Classifier decides whether a single URL exists on the remote server.
// A non-nil error is a recoverable transport failure; the returned Outcome
// is then Absent.
type Classifier interface {
	Classify(ctx context.Context, url string) (Outcome, error)
}

// rule is one step of the ordered classification policy. match reports
// whether the rule applies and, if so, the outcome it decides.
type rule struct {
	name  string
	match func(body []byte, status int) (Outcome, bool)
}

// The markers are the target server's error-page text, matched verbatim and
// case sensitively. If the server changes its wording, probes silently
// misclassify.
var (
	notFoundMarker  = []byte("Not found")
	notAFileMarker  = []byte("Not a file")
	classifierRules = []rule{
		{"not-found-body", func(body []byte, _ int) (Outcome, bool) {
			return Absent, bytes.Contains(body, notFoundMarker)
		}},
		// A directory without an index file answers "Not a file".
		{"directory-body", func(body []byte, _ int) (Outcome, bool) {
			return Exists, bytes.Contains(body, notAFileMarker)
		}},
		{"status-200", func(_ []byte, status int) (Outcome, bool) {
			return Exists, status == http.StatusOK
		}},
	}
)

// ClassifyResponse maps a response body and status code to an Outcome.
// Rules run in order and short-circuit on the first match; body markers win
// over the status code.
func ClassifyResponse(body []byte, status int) Outcome {
	for _, r := range classifierRules {
		if outcome, ok := r.match(body, status); ok {
			return outcome
		}
	}
	return Absent
}

// HTTPClassifier probes URLs with a single GET each.
type HTTPClassifier struct {
	client    *http.Client
	headers   map[string]string
	userAgent string
	timeout   time.Duration
}

// NewHTTPClassifier creates an HTTPClassifier from the provided options.
func NewHTTPClassifier(opts *config.Options) (*HTTPClassifier, error) {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		DialContext: (&net.Dialer{
			Timeout: opts.Timeout,
		}).DialContext,
		MaxIdleConnsPerHost: opts.Threads,
		MaxIdleConns:        opts.Threads,
	}

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", opts.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &HTTPClassifier{
		// no client timeout - the deadline is applied per request via context
		client:    &http.Client{Transport: transport},
		headers:   opts.Headers,
		userAgent: opts.EffectiveUserAgent(),
		timeout:   opts.Timeout,
	}, nil
}

// Classify sends one GET to rawURL and classifies the response. It never
// retries.
func (c *HTTPClassifier) Classify(ctx context.Context, rawURL string) (Outcome, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Absent, &TransportError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Absent, &TransportError{URL: rawURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Absent, &TransportError{URL: rawURL, Err: fmt.Errorf("reading response body: %w", err)}
	}

	return ClassifyResponse(body, resp.StatusCode), nil
}

// Close releases idle connections held by the classifier.
func (c *HTTPClassifier) Close() {
	if t, ok := c.client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
}
