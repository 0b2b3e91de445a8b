package feign

import (
	"context"
	"io"
	"net/http"
	"time"
)

// HttpClient is the subset of *http.Client the default transport needs.
type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
	CloseIdleConnections()
}

// RequestOptions carry per-request limits, passed opaquely through to the
// transport.
type RequestOptions struct {
	// ConnectTimeout bounds connection establishment.
	ConnectTimeout time.Duration

	// ReadTimeout bounds the whole round trip after the connection is up.
	ReadTimeout time.Duration
}

func DefaultRequestOptions() RequestOptions {
	return RequestOptions{
		ConnectTimeout: 10 * time.Second,
		ReadTimeout:    60 * time.Second,
	}
}

// Transport performs the network round trip for a resolved request.
type Transport interface {
	Execute(ctx context.Context, req *http.Request, opts RequestOptions) (*http.Response, error)
}

// httpTransport is the default Transport over an HttpClient. Redirects
// are not followed when the default client is used, the caller sees the
// redirect response.
type httpTransport struct {
	client HttpClient
}

func newHTTPTransport(client HttpClient) *httpTransport {
	if client == nil {
		client = &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return &httpTransport{client: client}
}

func (t *httpTransport) Execute(ctx context.Context, req *http.Request, opts RequestOptions) (*http.Response, error) {
	if total := opts.ConnectTimeout + opts.ReadTimeout; total > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, total)
		// The timer must outlive Execute: the response body is read by
		// the decoder after we return. Tie release to body close instead.
		res, err := t.client.Do(req.WithContext(ctx))
		if err != nil {
			cancel()
			return nil, err
		}
		res.Body = &cancelOnClose{ReadCloser: res.Body, cancel: cancel}
		return res, nil
	}
	return t.client.Do(req.WithContext(ctx))
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}

// Close releases idle connections and closes the underlying client if it
// supports closing.
func (t *httpTransport) Close() error {
	t.client.CloseIdleConnections()
	if closer, ok := t.client.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
