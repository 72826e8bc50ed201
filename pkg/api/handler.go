// Package api exposes the engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dheena017/multimind/pkg/engine"
	"github.com/dheena017/multimind/pkg/history"
	"github.com/dheena017/multimind/pkg/ledger"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps are the handler's collaborators.
type Deps struct {
	Engine    *engine.Engine
	TokenHash string
	Logger    *zap.Logger
}

// SynthesizeRequest is the body of POST /v1/synthesize.
type SynthesizeRequest struct {
	Query string `json:"query"`
}

// ModelInfo describes one panel member.
type ModelInfo struct {
	Adapter   string  `json:"adapter"`
	Model     string  `json:"model"`
	Tier      string  `json:"tier"`
	Quality   float64 `json:"quality"`
	Available bool    `json:"available"`
}

// NewHandler returns the HTTP API. Everything except /health sits behind
// TokenAuth.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(TokenAuth(deps.TokenHash))

		r.Get("/v1/models", handleModels(deps))
		r.Post("/v1/synthesize", handleSynthesize(deps))

		r.Get("/v1/ledger", handleLedgerStats(deps))
		r.Get("/v1/ledger/history", handleLedgerHistory(deps))
		r.Get("/v1/ledger/export", handleLedgerExport(deps))
		r.Post("/v1/ledger/import", handleLedgerImport(deps))
		r.Post("/v1/ledger/reset", handleLedgerReset(deps))

		r.Get("/v1/history", handleListHistory(deps))
		r.Get("/v1/history/{id}", handleGetHistory(deps))
		r.Delete("/v1/history/{id}", handleDeleteHistory(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleModels(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		available := deps.Engine.Available()
		members := deps.Engine.Panel().Members
		models := make([]ModelInfo, 0, len(members))
		for _, m := range members {
			models = append(models, ModelInfo{
				Adapter:   m.Adapter,
				Model:     m.Model,
				Tier:      m.Tier,
				Quality:   m.Quality,
				Available: available[m.Adapter],
			})
		}
		writeJSON(w, map[string]any{"object": "list", "data": models})
	}
}

func handleSynthesize(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req SynthesizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		answer, err := deps.Engine.Ask(r.Context(), req.Query)
		switch {
		case errors.Is(err, engine.ErrEmptyQuery):
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required and must not be empty")
			return
		case errors.Is(err, engine.ErrNoProviders):
			httpError(w, http.StatusServiceUnavailable, "api_error", "%v", err)
			return
		case errors.Is(err, context.DeadlineExceeded):
			httpError(w, http.StatusGatewayTimeout, "api_error", "%v", err)
			return
		case err != nil:
			httpError(w, http.StatusBadGateway, "api_error", "synthesis failed: %v", err)
			return
		}

		deps.Logger.Debug("synthesize request served",
			zap.String("topic", answer.Decision.Topic),
			zap.Duration("elapsed", answer.Elapsed))
		writeJSON(w, answer)
	}
}

func handleLedgerStats(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, deps.Engine.Ledger().Stats())
	}
}

func handleLedgerHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 50, ledger.HistoryCap)
		writeJSON(w, deps.Engine.Ledger().History(limit))
	}
}

func handleLedgerExport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := deps.Engine.Ledger().Export()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to export ledger: %v", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}
}

func handleLedgerImport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 16*maxRequestBodySize)
		defer r.Body.Close()

		data, err := io.ReadAll(r.Body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reading body: %v", err)
			return
		}
		if err := deps.Engine.Ledger().Import(data); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		persist(deps)
		writeJSON(w, map[string]string{"status": "imported"})
	}
}

func handleLedgerReset(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Engine.Ledger().Reset()
		persist(deps)
		writeJSON(w, map[string]string{"status": "reset"})
	}
}

func persist(deps Deps) {
	if err := deps.Engine.SaveLedger(); err != nil {
		deps.Logger.Warn("ledger save failed", zap.Error(err))
	}
}

func handleListHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := deps.Engine.History()
		if store == nil {
			httpError(w, http.StatusNotFound, "not_found", "history is disabled")
			return
		}
		limit := parseIntParam(r, "limit", 20, 100)

		var (
			records []history.Record
			err     error
		)
		if q := r.URL.Query().Get("q"); q != "" {
			records, err = store.Search(r.Context(), q, limit)
		} else {
			records, err = store.List(r.Context(), limit, parseIntParam(r, "offset", 0, 0))
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list history: %v", err)
			return
		}
		if records == nil {
			records = []history.Record{}
		}
		writeJSON(w, records)
	}
}

func handleGetHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := deps.Engine.History()
		if store == nil {
			httpError(w, http.StatusNotFound, "not_found", "history is disabled")
			return
		}
		rec, err := store.Get(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, history.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "history record not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get history record: %v", err)
			return
		}
		writeJSON(w, rec)
	}
}

func handleDeleteHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := deps.Engine.History()
		if store == nil {
			httpError(w, http.StatusNotFound, "not_found", "history is disabled")
			return
		}
		err := store.Delete(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, history.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "history record not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete history record: %v", err)
			return
		}
		writeJSON(w, map[string]string{"status": "deleted"})
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}
