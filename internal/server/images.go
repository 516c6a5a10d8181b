package server

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vinyl/internal/services"
	"github.com/desertthunder/vinyl/internal/shared"
	"golang.org/x/time/rate"
)

// ImageFetcher downloads allow-listed album art.
type ImageFetcher interface {
	Fetch(ctx context.Context, src string) (*services.Image, error)
}

// ImageHandler proxies album art so the browser can draw it on a canvas without CORS errors.
type ImageHandler struct {
	images  ImageFetcher
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewImageHandler creates an ImageHandler. A nil limiter disables rate limiting.
func NewImageHandler(images ImageFetcher, limiter *rate.Limiter, logger *log.Logger) *ImageHandler {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &ImageHandler{images: images, limiter: limiter, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *ImageHandler) Routes() []Route {
	return []Route{
		{http.MethodGet, "/api/proxy/image", RateLimit(h.limiter)(http.HandlerFunc(h.Proxy))},
	}
}

// Proxy relays the image at ?src= with a long lived cache header.
func (h *ImageHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	img, err := h.images.Fetch(r.Context(), r.URL.Query().Get("src"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	header := w.Header()
	header.Set("Content-Type", img.ContentType)
	header.Set("Content-Length", strconv.Itoa(len(img.Body)))
	header.Set("Cache-Control", services.ImageCacheControl)
	w.WriteHeader(http.StatusOK)
	w.Write(img.Body)
}
