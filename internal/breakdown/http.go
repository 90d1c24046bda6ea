package breakdown

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/s1natex/breakdown-api-GO/internal/provider"
	"github.com/s1natex/breakdown-api-GO/internal/tasks"
)

const maxInputLen = 2000

type breakdownRequest struct {
	Input string `json:"input"`
}

type credentialRequest struct {
	APIKey string `json:"api_key"`
}

type credentialStatus struct {
	Configured bool `json:"configured"`
}

// CredentialStore is the part of the storage layer holding the provider key.
type CredentialStore interface {
	LoadCredential(ctx context.Context) (string, bool, error)
	SaveCredential(ctx context.Context, credential string) error
}

func RegisterRoutes(r chi.Router, d *Decomposer) {
	r.Post("/breakdown", createBreakdown(d))
}

func RegisterCredentialRoutes(r chi.Router, creds CredentialStore) {
	r.Put("/credential", saveCredential(creds))
	r.Get("/credential", getCredential(creds))
}

func createBreakdown(d *Decomposer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req breakdownRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			tasks.WriteJSON(w, http.StatusBadRequest, tasks.ErrResponse{Error: "invalid_json"})
			return
		}
		if utf8.RuneCountInString(req.Input) > maxInputLen {
			tasks.WriteJSON(w, http.StatusUnprocessableEntity, tasks.ErrResponse{
				Error: "validation_error",
				Details: []tasks.FieldError{
					{Field: "input", Message: fmt.Sprintf("input must be at most %d characters", maxInputLen)},
				},
			})
			return
		}

		l, err := d.Decompose(r.Context(), req.Input)
		if err != nil {
			writeBreakdownError(w, err)
			return
		}
		tasks.WriteJSON(w, http.StatusCreated, tasks.ListView{List: l, Draft: true})
	}
}

func saveCredential(creds CredentialStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			tasks.WriteJSON(w, http.StatusBadRequest, tasks.ErrResponse{Error: "invalid_json"})
			return
		}
		key := strings.TrimSpace(req.APIKey)
		if key == "" {
			tasks.WriteJSON(w, http.StatusUnprocessableEntity, tasks.ErrResponse{
				Error:   "validation_error",
				Details: []tasks.FieldError{{Field: "api_key", Message: "api_key is required"}},
			})
			return
		}
		if err := creds.SaveCredential(r.Context(), key); err != nil {
			tasks.WriteJSON(w, http.StatusInternalServerError, tasks.ErrResponse{Error: "storage_error"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func getCredential(creds CredentialStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok, err := creds.LoadCredential(r.Context())
		if err != nil {
			tasks.WriteJSON(w, http.StatusInternalServerError, tasks.ErrResponse{Error: "unexpected_error"})
			return
		}
		tasks.WriteJSON(w, http.StatusOK, credentialStatus{Configured: ok && key != ""})
	}
}

func writeBreakdownError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyInput):
		tasks.WriteJSON(w, http.StatusUnprocessableEntity, tasks.ErrResponse{
			Error:   "validation_error",
			Details: []tasks.FieldError{{Field: "input", Message: "input is required"}},
		})
	case errors.Is(err, ErrBusy):
		tasks.WriteJSON(w, http.StatusConflict, tasks.ErrResponse{Error: "breakdown_in_progress"})
	case errors.Is(err, ErrNoArrayFound), errors.Is(err, ErrMalformedJSON), errors.Is(err, ErrNoTasks):
		tasks.WriteJSON(w, http.StatusBadGateway, tasks.ErrResponse{Error: "invalid_model_output"})
	case errors.Is(err, provider.ErrUnauthorized):
		tasks.WriteJSON(w, http.StatusUnauthorized, tasks.ErrResponse{Error: "provider_unauthorized"})
	case errors.Is(err, provider.ErrTimeout):
		tasks.WriteJSON(w, http.StatusGatewayTimeout, tasks.ErrResponse{Error: "provider_timeout"})
	case errors.Is(err, provider.ErrRequestFailed):
		tasks.WriteJSON(w, http.StatusBadGateway, tasks.ErrResponse{Error: "provider_error"})
	default:
		tasks.WriteJSON(w, http.StatusInternalServerError, tasks.ErrResponse{Error: "unexpected_error"})
	}
}
