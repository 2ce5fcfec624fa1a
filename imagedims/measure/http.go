package measure

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/IvanBrykalov/dimcache/imagedims"
)

// DefaultTimeout bounds a remote probe when HTTP.Client is nil.
const DefaultTimeout = 15 * time.Second

// StatusError reports a non-2xx response to a probe.
type StatusError struct {
	URI  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("measure: GET %s: unexpected status %d", e.URI, e.Code)
}

// HTTP probes remote images. It fetches the URI and decodes only the image
// header from the response stream, then closes the body.
type HTTP struct {
	// Client performs the request; nil => a client with DefaultTimeout.
	Client *http.Client

	// IgnoreHeaders probes without the source's headers, the way a
	// browser-side probe would.
	IgnoreHeaders bool

	// UserAgent is sent when set and the source does not override it.
	UserAgent string
}

var defaultClient = &http.Client{Timeout: DefaultTimeout}

// Measure implements imagedims.Measurer.
func (h *HTTP) Measure(ctx context.Context, src imagedims.Source) (imagedims.Dimensions, error) {
	if src.IsAsset() || src.URI() == "" {
		return imagedims.Dimensions{}, fmt.Errorf("%w: http probe needs a uri", ErrUnsupportedSource)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URI(), nil)
	if err != nil {
		return imagedims.Dimensions{}, fmt.Errorf("measure: build request: %w", err)
	}
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}
	if !h.IgnoreHeaders {
		for k, v := range src.Headers() {
			req.Header.Set(k, v)
		}
	}

	client := h.Client
	if client == nil {
		client = defaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return imagedims.Dimensions{}, fmt.Errorf("measure: GET %s: %w", src.URI(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return imagedims.Dimensions{}, &StatusError{URI: src.URI(), Code: resp.StatusCode}
	}

	d, err := decodeConfig(resp.Body)
	if err != nil {
		return imagedims.Dimensions{}, fmt.Errorf("measure: %s: %w", src.URI(), err)
	}
	return d, nil
}

var _ imagedims.Measurer = (*HTTP)(nil)
