// Package httpclient is the shared HTTP Client Pool from spec §4, item 2:
// one resty client reused across the resolver, downloader, and auth engine,
// with connection reuse, connect and total timeouts, and a streaming-download
// helper. The pool itself never retries; retries live in the Download Executor.
// This generalizes the teacher's single package-level `client = resty.New()`
// (api/api.go) into a configurable, timeout-aware pool.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mrnavastar/launchcore/internal/logging"
)

var log = logging.For("httpclient")

const (
	connectTimeout = 30 * time.Second
	totalTimeout   = 10 * time.Minute
)

// Pool is the shared client. Resolver, downloader, and CurseForge/Modrinth
// adapters all take a *Pool instead of constructing their own resty.Client,
// so connection reuse and timeouts are process-wide.
type Pool struct {
	client *resty.Client
}

func New() *Pool {
	c := resty.New().
		SetTimeout(totalTimeout).
		SetRetryCount(0). // retries are modeled explicitly per spec §4.2, not via resty's blanket retry
		SetHeader("User-Agent", "launchcore/1.0")

	c.GetClient().Transport = &http.Transport{
		DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
		ResponseHeaderTimeout: connectTimeout,
	}

	return &Pool{client: c}
}

func (p *Pool) Client() *resty.Client { return p.client }

// GetJSON fetches url and unmarshals the JSON body into out.
func (p *Pool) GetJSON(ctx context.Context, url string, out any) error {
	resp, err := p.client.R().SetContext(ctx).SetResult(out).Get(url)
	if err != nil {
		return fmt.Errorf("httpclient: GET %s: %w", url, err)
	}
	if resp.IsError() {
		return fmt.Errorf("httpclient: GET %s: status %d", url, resp.StatusCode())
	}
	return nil
}

// PostJSON posts body as JSON and unmarshals the response into out (when
// out is non-nil).
func (p *Pool) PostJSON(ctx context.Context, url string, body, out any) (*resty.Response, error) {
	req := p.client.R().SetContext(ctx).SetHeader("Content-Type", "application/json").SetBody(body)
	if out != nil {
		req = req.SetResult(out)
	}
	resp, err := req.Post(url)
	if err != nil {
		return resp, fmt.Errorf("httpclient: POST %s: %w", url, err)
	}
	return resp, nil
}

// StreamTo issues a GET and copies the response body into dst as it
// arrives, invoking onChunk after every write so callers can maintain a
// running hash and byte count (Integrity Verifier, download progress).
func (p *Pool) StreamTo(ctx context.Context, url string, dst io.Writer, onChunk func(n int)) (contentLength int64, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := p.client.GetClient().Do(req)
	if err != nil {
		return 0, fmt.Errorf("httpclient: GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return resp.ContentLength, werr
			}
			if onChunk != nil {
				onChunk(n)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return resp.ContentLength, readErr
		}
	}
	return resp.ContentLength, nil
}

// StatusError carries the URL and HTTP status for a terminal (4xx) or
// transient (5xx) response so the Download Executor's retry classifier
// (spec §4.2) can tell them apart without re-parsing strings. Connection
// failures are not StatusErrors; StreamTo returns them as wrapped errors.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d for %s", e.StatusCode, e.URL)
}

// Transient reports whether this status is retriable per spec §4.2: 5xx is
// transient, 4xx is terminal.
func (e *StatusError) Transient() bool {
	return e.StatusCode >= 500
}

func init() {
	log.Debug("http client pool initialized (connect timeout %s, total timeout %s)", connectTimeout, totalTimeout)
}
