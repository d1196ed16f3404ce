package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/comalice/tapemachine"
	"github.com/comalice/tapemachine/internal/core"
	"github.com/comalice/tapemachine/internal/tables"
)

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// dotRequest is the body of POST /v1/tables/dot.
type dotRequest struct {
	Table   tapemachine.Table   `json:"table"`
	Names   []string            `json:"names,omitempty"`
	Current tapemachine.StateID `json:"current"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRunError maps engine and registry errors to status codes.
func writeRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Detail: err.Error()})
	case errors.Is(err, errBadRequest):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Detail: err.Error()})
	case errors.Is(err, errInvalidTape):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "invalid_tape", Detail: err.Error()})
	default:
		kind := core.ErrorKind(err)
		if kind == "other" || kind == "canceled" {
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal", Detail: err.Error()})
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: kind, Detail: err.Error()})
	}
}

var (
	errBadRequest  = errors.New("malformed request")
	errInvalidTape = errors.New("invalid tape")
)

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// checkRequest validates an untrusted request eagerly.
func checkRequest(req core.Request) error {
	if err := tables.Validate(req.Table); err != nil {
		return err
	}
	if err := tables.ValidateTape(req.Tape); err != nil {
		return fmt.Errorf("%w: %v", errInvalidTape, err)
	}
	return nil
}

func (s *server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req core.Request
	if err := decodeBody(w, r, &req); err != nil {
		writeRunError(w, err)
		return
	}
	if err := checkRequest(req); err != nil {
		writeRunError(w, err)
		return
	}

	rec, err := s.runner.Run(r.Context(), req)
	if err != nil {
		writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []core.Request
	if err := decodeBody(w, r, &reqs); err != nil {
		writeRunError(w, err)
		return
	}
	for i, req := range reqs {
		if err := checkRequest(req); err != nil {
			writeRunError(w, fmt.Errorf("batch item %d: %w", i, err))
			return
		}
	}

	recs, err := s.runner.RunBatch(r.Context(), reqs)
	if err != nil {
		writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, recs)
}

func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	recs, err := s.runner.Records(r.Context())
	if err != nil {
		writeRunError(w, err)
		return
	}
	if recs == nil {
		recs = []core.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	rec, err := s.runner.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *server) handleDOT(w http.ResponseWriter, r *http.Request) {
	if s.visualizer == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "no_visualizer"})
		return
	}
	var req dotRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeRunError(w, err)
		return
	}
	if err := tables.Validate(req.Table); err != nil {
		writeRunError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(s.visualizer.ExportDOT(req.Table, req.Names, req.Current)))
}
