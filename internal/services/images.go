package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/vinyl/internal/shared"
	"github.com/gabriel-vasile/mimetype"
)

// ImageHost is the only host album art is proxied from.
const ImageHost = "i.scdn.co"

// ImageCacheControl is sent with every proxied image.
const ImageCacheControl = "public, max-age=86400, immutable"

// maxImageBytes caps how much of an upstream image is read.
const maxImageBytes = 10 << 20

// Image is a fetched album art image.
type Image struct {
	ContentType string
	Body        []byte
}

// UpstreamStatusError carries a non-success status answered upstream. Detail is the short text
// shown to the client.
type UpstreamStatusError struct {
	StatusCode int
	Detail     string
}

func (e *UpstreamStatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("upstream error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream error: status %d: %s", e.StatusCode, e.Detail)
}

func (e *UpstreamStatusError) Unwrap() error { return shared.ErrUpstream }

// ImageProxy fetches album art from the Spotify CDN.
type ImageProxy struct {
	httpClient *http.Client
}

// NewImageProxy shares client's transport but never follows redirects, so every fetched URL has
// passed [ValidateImageURL].
func NewImageProxy(client *http.Client) *ImageProxy {
	if client == nil {
		client = NewHTTPClient()
	}
	c := *client
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &ImageProxy{httpClient: &c}
}

// ValidateImageURL parses src and checks it against the allow-list: scheme http or https and host
// exactly [ImageHost].
func ValidateImageURL(src string) (*url.URL, error) {
	u, err := url.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid image url", shared.ErrBadRequest)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: invalid image scheme", shared.ErrBadRequest)
	}
	if !strings.EqualFold(u.Hostname(), ImageHost) {
		return nil, fmt.Errorf("%w: image host not allowed", shared.ErrBadRequest)
	}
	return u, nil
}

// Fetch downloads src after validating it.
//
// Network failures wrap [shared.ErrImageFetch]; a non-200 answer is an [*UpstreamStatusError].
// The content type falls back to sniffing the body when the CDN omits it.
func (p *ImageProxy) Fetch(ctx context.Context, src string) (*Image, error) {
	u, err := ValidateImageURL(src)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrImageFetch, err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrImageFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamStatusError{StatusCode: resp.StatusCode, Detail: "Upstream image error"}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrImageFetch, err)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = mimetype.Detect(body).String()
	}
	return &Image{ContentType: ct, Body: body}, nil
}
