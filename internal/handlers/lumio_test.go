package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/carpenike/helix/internal/lumio"
)

const cardMarkdown = `---
title: Squat
tags: [gambe, forza]
difficulty: 2
language: it
---
# Squat

![Posizione](./img/squat.png)
`

func TestLumioCard(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cards/squat.md":
			fmt.Fprint(w, cardMarkdown)
		case "/cards/broken.md":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer upstream.Close()

	s := newTestServer(t)

	t.Run("ok", func(t *testing.T) {
		rr := s.do(t, http.MethodPost, "/api/lumio-card", s.key, map[string]string{"cardUrl": upstream.URL + "/cards/squat.md"})
		expectStatus(t, rr, http.StatusOK)
		if cc := rr.Header().Get("Cache-Control"); cc != "public, max-age=3600, s-maxage=86400" {
			t.Errorf("Cache-Control = %q", cc)
		}
		var card lumio.Card
		decodeBody(t, rr, &card)
		if card.Frontmatter.Title != "Squat" || len(card.Frontmatter.Tags) != 2 {
			t.Errorf("frontmatter = %+v", card.Frontmatter)
		}
		if card.BaseURL != upstream.URL+"/cards" {
			t.Errorf("baseUrl = %q", card.BaseURL)
		}
		if !strings.Contains(card.Content, "("+upstream.URL+"/cards/img/squat.png)") {
			t.Errorf("image not resolved:\n%s", card.Content)
		}
	})

	tests := []struct {
		name   string
		body   map[string]string
		status int
		msg    string
	}{
		{"missing url", map[string]string{}, http.StatusBadRequest, "cardUrl is required"},
		{"invalid url", map[string]string{"cardUrl": "not a url"}, http.StatusBadRequest, "Invalid cardUrl format"},
		{"not found", map[string]string{"cardUrl": upstream.URL + "/cards/missing.md"}, http.StatusNotFound, "Failed to fetch card: 404 Not Found"},
		{"upstream error", map[string]string{"cardUrl": upstream.URL + "/cards/broken.md"}, http.StatusBadGateway, "Failed to fetch card: 500 Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, http.MethodPost, "/api/lumio-card", s.key, tt.body)
			expectStatus(t, rr, tt.status)
			if msg := errorMessage(t, rr); msg != tt.msg {
				t.Errorf("error = %q, want %q", msg, tt.msg)
			}
		})
	}
}
