package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/carpenike/helix/internal/lumio"
)

// Cards proxies markdown learning cards.
type Cards struct {
	Fetcher *lumio.Fetcher
}

// Fetch downloads the card at cardUrl and returns its front matter and
// content with image links made absolute.
func (h *Cards) Fetch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CardURL string `json:"cardUrl"`
	}
	if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.CardURL) == "" {
		writeError(w, http.StatusBadRequest, "cardUrl is required")
		return
	}
	if err := lumio.ValidateURL(req.CardURL); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid cardUrl format")
		return
	}

	card, err := h.Fetcher.Fetch(r.Context(), req.CardURL)
	if err != nil {
		var fe *lumio.FetchError
		switch {
		case errors.As(err, &fe):
			writeError(w, fe.HTTPStatus(), fe.Error())
		case errors.Is(err, lumio.ErrInvalidURL):
			writeError(w, http.StatusBadRequest, "Invalid cardUrl format")
		default:
			reqLog(r).WithError(err).WithField("url", req.CardURL).Error("handlers: fetch card")
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=3600, s-maxage=86400")
	writeJSON(w, http.StatusOK, card)
}
