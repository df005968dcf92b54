package handlers

import (
	"bytes"
	"io"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"
)

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// QRCode renders the short URL of a link as a PNG. Query params: shape
// (square|circle), fg (#rrggbb) and dl=1 to download.
func (h *LinkHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	link, err := h.Links.Lookup(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.linkError(w, err)
		return
	}

	q := r.URL.Query()
	opts := []standard.ImageOption{
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
		standard.WithQRWidth(10),
		standard.WithBorderWidth(20),
		standard.WithBgTransparent(),
	}
	if q.Get("shape") == "circle" {
		opts = append(opts, standard.WithCircleShape())
	}
	if fg := q.Get("fg"); hexColorRe.MatchString(fg) {
		opts = append(opts, standard.WithFgColorRGBHex(fg))
	}

	qrc, err := qrcode.New(h.shortURL(link.Key))
	if err != nil {
		jsonError(w, "failed to generate qr code", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := qrc.Save(standard.NewWithWriter(nopCloser{&buf}, opts...)); err != nil {
		jsonError(w, "failed to render qr code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if q.Get("dl") == "1" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+link.Key+`-qr.png"`)
	}
	w.Write(buf.Bytes())
}
