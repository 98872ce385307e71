package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/finance-tips/finance-tips-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Financial tips and newsletter handlers
// ============================================================

func listTipsHandler(contentService *service.ContentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}

		tips, err := contentService.ListTips(r.Context(), r.URL.Query().Get("category"), limit)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tips": tips})
	}
}

func getTipHandler(contentService *service.ContentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tip, err := contentService.GetTipBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tip)
	}
}

type newsletterRequest struct {
	Email string `json:"email"`
}

func subscribeNewsletterHandler(contentService *service.ContentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req newsletterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := contentService.SubscribeNewsletter(r.Context(), req.Email); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"status": "subscribed"})
	}
}

func unsubscribeNewsletterHandler(contentService *service.ContentService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := chi.URLParam(r, "email")
		if err := contentService.UnsubscribeNewsletter(r.Context(), email); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "unsubscribed"})
	}
}
