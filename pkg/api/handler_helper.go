package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dd0wney/cluso-airnet/pkg/validation"
)

// requestDecoder decodes and validates request bodies.
// It provides a fluent interface for common request handling patterns.
type requestDecoder struct {
	r          *http.Request
	w          http.ResponseWriter
	server     *Server
	err        error
	statusCode int
}

// newRequestDecoder creates a new request decoder for the given request.
func (s *Server) newRequestDecoder(w http.ResponseWriter, r *http.Request) *requestDecoder {
	return &requestDecoder{r: r, w: w, server: s}
}

// DecodeJSON decodes the request body into v. Unknown fields are rejected.
func (rd *requestDecoder) DecodeJSON(v any) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	dec := json.NewDecoder(rd.r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			rd.err = fmt.Errorf("request body exceeds %d bytes", maxBytes.Limit)
			rd.statusCode = http.StatusRequestEntityTooLarge
			return rd
		}
		rd.err = fmt.Errorf("invalid request body: %w", err)
		rd.statusCode = http.StatusBadRequest
	}
	return rd
}

// Validate checks v against its validate struct tags.
func (rd *requestDecoder) Validate(v any) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	if err := validation.ValidateStruct(v); err != nil {
		rd.err = err
		rd.statusCode = http.StatusBadRequest
	}
	return rd
}

// RespondError sends the error response and returns true if there was an error.
// Returns false if no error occurred.
func (rd *requestDecoder) RespondError() bool {
	if rd.err == nil {
		return false
	}
	rd.server.respondError(rd.w, rd.r, rd.statusCode, rd.err.Error())
	return true
}

// pathID reads a positive integer path wildcard. On failure the error
// response has been sent and ok is false.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request, name string) (id int64, ok bool) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, fmt.Sprintf("%s must be an integer, got %q", name, raw))
		return 0, false
	}
	if err := validation.ValidateID(name, id); err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return id, true
}

// queryInt reads an optional integer query parameter, returning def when it
// is absent.
func (s *Server) queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, fmt.Sprintf("%s must be an integer, got %q", name, raw))
		return 0, false
	}
	return n, true
}

// queryLimit reads the limit query parameter, bounded to
// [1, validation.MaxResultLimit].
func (s *Server) queryLimit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	limit, ok := s.queryInt(w, r, "limit", def)
	if !ok {
		return 0, false
	}
	if err := validation.ValidateLimit(limit); err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return limit, true
}
