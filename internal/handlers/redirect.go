package handlers

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sjbitcode/url-shortener/internal/analytics"
	"github.com/sjbitcode/url-shortener/internal/links"
)

type RedirectHandler struct {
	Links     *links.Registry
	Collector *analytics.Collector
	// MaxAge is sent as the private Cache-Control max-age of redirects.
	MaxAge time.Duration
	Log    *zap.Logger
}

func (h *RedirectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		http.NotFound(w, r)
		return
	}

	link, err := h.Links.Lookup(r.Context(), key)
	if err != nil {
		if errors.Is(err, links.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.Log.Error("redirect lookup", zap.String("key", key), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// chi's RealIP middleware already sets RemoteAddr from X-Forwarded-For/X-Real-IP
	ip, _, _ := net.SplitHostPort(r.RemoteAddr)
	if ip == "" {
		ip = r.RemoteAddr
	}

	h.Collector.Push(analytics.RawVisit{
		Link:      link,
		At:        time.Now().UTC(),
		IP:        ip,
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
	})

	w.Header().Set("Cache-Control", "private, max-age="+strconv.Itoa(int(h.MaxAge.Seconds())))
	http.Redirect(w, r, link.Destination, http.StatusMovedPermanently)
}
