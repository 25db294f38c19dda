package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// envelope is the body of every API response.
type envelope struct {
	IsSuccess bool   `json:"isSuccess"`
	Data      any    `json:"data"`
	Message   string `json:"message"`
}

func respond(w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{
		IsSuccess: status < 400,
		Data:      data,
		Message:   message,
	})
}

func respondOK(w http.ResponseWriter, data any, message string) {
	respond(w, http.StatusOK, data, message)
}

func respondCreated(w http.ResponseWriter, data any, message string) {
	respond(w, http.StatusCreated, data, message)
}

// Page is a paginated list.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid request body")
	}
	return nil
}

func pathID(r *http.Request, name string) (uint, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, badRequest(fmt.Sprintf("invalid %s %q", name, raw))
	}
	return uint(id), nil
}

func queryID(r *http.Request, name string) (uint, error) {
	raw := r.URL.Query().Get(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, badRequest(fmt.Sprintf("invalid %s %q", name, raw))
	}
	return uint(id), nil
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

var errBadRequest = errors.New("bad request")

func badRequest(message string) error {
	return fmt.Errorf("%w: %s", errBadRequest, message)
}
