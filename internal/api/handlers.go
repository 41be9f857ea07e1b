package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/vipulpandey12345/member-qa-system-api/internal/auth"
	"github.com/vipulpandey12345/member-qa-system-api/internal/config"
	"github.com/vipulpandey12345/member-qa-system-api/internal/core"
)

type APIHandler struct {
	askService *core.AskService
}

func NewAPIHandler(as *core.AskService) *APIHandler {
	return &APIHandler{askService: as}
}

// JWTAuthMiddleware enforces bearer auth when JWT_SECRET is configured.
// With no secret set the API is open, matching the original deployment.
func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if config.AppConfig.JWTSecret == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if _, err := auth.ValidateJWT(tokenString); err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type AskRequest struct {
	Question string `json:"question"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (h *APIHandler) AskHandler(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error(), false)
		return
	}

	result, err := h.askService.Ask(r.Context(), req.Question)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrValidation):
			writeError(w, http.StatusBadRequest, "Please provide a non-empty 'question' field.", false)
		case errors.Is(err, core.ErrUpstream):
			log.Printf("Upstream failure answering question: %v", err)
			writeError(w, http.StatusBadGateway, "The answer service is temporarily unavailable. Please retry.", true)
		default:
			log.Printf("Internal failure answering question: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to answer the question.", false)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func writeError(w http.ResponseWriter, status int, msg string, retryable bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: msg, Retryable: retryable})
}
