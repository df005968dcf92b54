package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sjbitcode/url-shortener/internal/config"
	"github.com/sjbitcode/url-shortener/internal/links"
	"github.com/sjbitcode/url-shortener/internal/models"
	"github.com/sjbitcode/url-shortener/internal/tags"
	"github.com/sjbitcode/url-shortener/internal/validation"
)

type LinkHandler struct {
	Links *links.Registry
	Tags  *tags.Linker
	Cfg   *config.Config
	Log   *zap.Logger
}

type createLinkRequest struct {
	Destination string `json:"destination" validate:"required,http_url,max=300"`
	Key         string `json:"key" validate:"max=80"`
	Title       string `json:"title" validate:"max=300"`
	OwnerID     *int64 `json:"owner_id"`
	// Tags is the comma-delimited tag input.
	Tags string `json:"tags"`
}

type updateLinkRequest struct {
	Destination string  `json:"destination" validate:"omitempty,http_url,max=300"`
	Title       string  `json:"title" validate:"max=300"`
	Tags        *string `json:"tags"`
}

type linkResponse struct {
	*models.Link
	ShortURL string   `json:"short_url"`
	Tags     []string `json:"tags"`
}

type listResponse struct {
	Links  []linkResponse `json:"links"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func (h *LinkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.Validate(req); err != nil {
		jsonError(w, validation.Message(err), http.StatusBadRequest)
		return
	}
	if h.pointsAtSite(req.Destination) {
		jsonError(w, "destination cannot point at this service", http.StatusBadRequest)
		return
	}

	rawTags := tags.Split(req.Tags)
	if _, err := h.Tags.Validate(rawTags); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var set []models.Tag
	link, err := h.Links.Create(r.Context(), links.CreateParams{
		Key:         req.Key,
		Destination: req.Destination,
		Title:       req.Title,
		OwnerID:     req.OwnerID,
		Attach: func(ctx context.Context, tx models.DBTX, l *models.Link) error {
			var err error
			set, err = h.Tags.SetTagsTx(ctx, tx, l.ID, rawTags)
			return err
		},
	})
	if err != nil {
		h.linkError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.response(link, set))
}

func (h *LinkHandler) Get(w http.ResponseWriter, r *http.Request) {
	link, err := h.Links.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.linkError(w, err)
		return
	}
	set, err := h.Tags.Tags(r.Context(), link.ID)
	if err != nil {
		h.Log.Error("load tags", zap.String("key", link.Key), zap.Error(err))
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.response(link, set))
}

func (h *LinkHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateLinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.Validate(req); err != nil {
		jsonError(w, validation.Message(err), http.StatusBadRequest)
		return
	}
	if req.Destination != "" && h.pointsAtSite(req.Destination) {
		jsonError(w, "destination cannot point at this service", http.StatusBadRequest)
		return
	}

	var rawTags []string
	if req.Tags != nil {
		rawTags = tags.Split(*req.Tags)
		if _, err := h.Tags.Validate(rawTags); err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	link, err := h.Links.Update(r.Context(), chi.URLParam(r, "key"), links.UpdateParams{
		Destination: req.Destination,
		Title:       req.Title,
	})
	if err != nil {
		h.linkError(w, err)
		return
	}

	var set []models.Tag
	if req.Tags != nil {
		set, err = h.Tags.SetTags(r.Context(), link.ID, rawTags)
	} else {
		set, err = h.Tags.Tags(r.Context(), link.ID)
	}
	if err != nil {
		h.Log.Error("update tags", zap.String("key", link.Key), zap.Error(err))
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, h.response(link, set))
}

func (h *LinkHandler) Stats(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10, 100)
	stats, err := h.Links.Stats(r.Context(), chi.URLParam(r, "key"), limit)
	if err != nil {
		h.linkError(w, err)
		return
	}
	if stats.Referers == nil {
		stats.Referers = []models.Referer{}
	}
	if stats.Regions == nil {
		stats.Regions = []models.Region{}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *LinkHandler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	ownerID, err := strconv.ParseInt(chi.URLParam(r, "ownerID"), 10, 64)
	if err != nil {
		jsonError(w, "invalid owner id", http.StatusBadRequest)
		return
	}
	limit := queryInt(r, "limit", 25, 100)
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	list, total, err := h.Links.ListByOwner(r.Context(), ownerID, limit, offset)
	if err != nil {
		h.Log.Error("list links", zap.Int64("owner_id", ownerID), zap.Error(err))
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := listResponse{Links: make([]linkResponse, 0, len(list)), Total: total, Limit: limit, Offset: offset}
	for i := range list {
		set, err := h.Tags.Tags(r.Context(), list[i].ID)
		if err != nil {
			h.Log.Error("load tags", zap.String("key", list[i].Key), zap.Error(err))
			jsonError(w, "internal error", http.StatusInternalServerError)
			return
		}
		resp.Links = append(resp.Links, h.response(&list[i], set))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *LinkHandler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.Links.Summary(r.Context(), queryInt(r, "limit", 10, 100))
	if err != nil {
		h.Log.Error("summary", zap.Error(err))
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *LinkHandler) shortURL(key string) string {
	return "https://" + h.Cfg.SiteDomain + "/" + key
}

func (h *LinkHandler) pointsAtSite(destination string) bool {
	u, err := url.Parse(destination)
	if err != nil {
		return false
	}
	return h.Cfg.IsSiteDomain(u.Hostname())
}

func (h *LinkHandler) response(l *models.Link, set []models.Tag) linkResponse {
	names := make([]string, len(set))
	for i, t := range set {
		names[i] = t.Name
	}
	return linkResponse{Link: l, ShortURL: h.shortURL(l.Key), Tags: names}
}

// linkError maps registry errors to responses.
func (h *LinkHandler) linkError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, links.ErrInvalidKey), errors.Is(err, links.ErrReservedKey),
		errors.Is(err, tags.ErrTagLimitExceeded):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, links.ErrDuplicateKey):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, links.ErrNotFound):
		jsonError(w, "not found", http.StatusNotFound)
	default:
		h.Log.Error("link request failed", zap.Error(err))
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		jsonError(w, "invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

func queryInt(r *http.Request, name string, fallback, max int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n <= 0 {
		return fallback
	}
	if n > max {
		return max
	}
	return n
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
