package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
)

const (
	maxTitleLen = 200
	maxNameLen  = 120
)

type saveListRequest struct {
	Name string `json:"name"`
}

type editTaskRequest struct {
	Title string `json:"title"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ErrResponse struct {
	Error   string       `json:"error"`
	Details []FieldError `json:"details,omitempty"`
}

// ListView is what the UI renders for the active list.
type ListView struct {
	List  TaskList `json:"list"`
	Draft bool     `json:"draft"`
}

func RegisterRoutes(r chi.Router, store *Store) {
	r.Get("/active", getActive(store))
	r.Post("/active/save", saveActive(store))
	r.Post("/active/tasks/{taskID}/toggle", toggleTask(store))
	r.Patch("/active/tasks/{taskID}", editTask(store))
	r.Delete("/active/tasks/{taskID}", deleteTask(store))

	r.Get("/lists", listSummaries(store))
	r.Post("/lists/{listID}/load", loadList(store))
	r.Delete("/lists/{listID}", deleteList(store))
}

func getActive(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, ok := store.Active()
		if !ok {
			WriteJSON(w, http.StatusNotFound, ErrResponse{Error: "no_active_list"})
			return
		}
		WriteJSON(w, http.StatusOK, ListView{List: l, Draft: store.IsDraft()})
	}
}

func saveActive(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req saveListRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteJSON(w, http.StatusBadRequest, ErrResponse{Error: "invalid_json"})
			return
		}
		// Save reports a missing active list ahead of an empty name.
		if vErrs := validateLength("name", req.Name, maxNameLen); len(vErrs) > 0 {
			writeValidation(w, vErrs)
			return
		}

		l, err := store.Save(r.Context(), req.Name)
		if err != nil {
			writeStoreError(w, err, "name")
			return
		}
		WriteJSON(w, http.StatusOK, ListView{List: l, Draft: false})
	}
}

func toggleTask(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := store.ToggleTask(r.Context(), chi.URLParam(r, "taskID"))
		if err != nil {
			writeStoreError(w, err, "")
			return
		}
		WriteJSON(w, http.StatusOK, t)
	}
}

func editTask(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req editTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteJSON(w, http.StatusBadRequest, ErrResponse{Error: "invalid_json"})
			return
		}
		if vErrs := validateText("title", req.Title, maxTitleLen); len(vErrs) > 0 {
			writeValidation(w, vErrs)
			return
		}

		t, err := store.EditTask(r.Context(), chi.URLParam(r, "taskID"), req.Title)
		if err != nil {
			writeStoreError(w, err, "title")
			return
		}
		WriteJSON(w, http.StatusOK, t)
	}
}

func deleteTask(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteTask(r.Context(), chi.URLParam(r, "taskID")); err != nil {
			writeStoreError(w, err, "")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listSummaries(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, store.Summaries())
	}
}

func loadList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, err := store.Load(chi.URLParam(r, "listID"))
		if err != nil {
			writeStoreError(w, err, "")
			return
		}
		WriteJSON(w, http.StatusOK, ListView{List: l, Draft: false})
	}
}

func deleteList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteList(r.Context(), chi.URLParam(r, "listID")); err != nil {
			writeStoreError(w, err, "")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func validateText(field, value string, maxLen int) []FieldError {
	var errs []FieldError

	if strings.TrimSpace(value) == "" {
		errs = append(errs, FieldError{
			Field:   field,
			Message: field + " is required",
		})
	}

	return append(errs, validateLength(field, value, maxLen)...)
}

// validateLength counts characters, not bytes.
func validateLength(field, value string, maxLen int) []FieldError {
	if utf8.RuneCountInString(value) <= maxLen {
		return nil
	}
	return []FieldError{{
		Field:   field,
		Message: fmt.Sprintf("%s must be at most %d characters", field, maxLen),
	}}
}

func writeValidation(w http.ResponseWriter, details []FieldError) {
	WriteJSON(w, http.StatusUnprocessableEntity, ErrResponse{
		Error:   "validation_error",
		Details: details,
	})
}

func writeStoreError(w http.ResponseWriter, err error, field string) {
	switch {
	case errors.Is(err, ErrEmptyName):
		writeValidation(w, []FieldError{{Field: field, Message: field + " is required"}})
	case errors.Is(err, ErrNoActiveList):
		WriteJSON(w, http.StatusConflict, ErrResponse{Error: "no_active_list"})
	case errors.Is(err, ErrNotFound):
		WriteJSON(w, http.StatusNotFound, ErrResponse{Error: "not_found"})
	case errors.Is(err, ErrStorage):
		WriteJSON(w, http.StatusInternalServerError, ErrResponse{Error: "storage_error"})
	default:
		WriteJSON(w, http.StatusInternalServerError, ErrResponse{Error: "unexpected_error"})
	}
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
