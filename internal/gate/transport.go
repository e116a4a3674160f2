package gate

import (
	"context"
	"io"
	"net/http"
	"time"
)

// HTTPTransport probes with a plain GET and discards the body.
type HTTPTransport struct {
	Client *http.Client
}

// NewHTTPTransport returns a transport with the given timeout. A zero timeout
// leaves the client without a deadline of its own.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{Client: &http.Client{Timeout: timeout}}
}

func (t *HTTPTransport) Get(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}

	res, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 64<<10))

	return res.StatusCode, nil
}
