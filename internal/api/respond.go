package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/dreamware/herald/internal/chat"
)

// MaxSubscribeTimeout caps the timeout query parameter of the subscribe
// endpoints.
const MaxSubscribeTimeout = 5 * time.Minute

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeErr maps a collaborator error to a status code. Unclassified errors
// are logged and answered with a generic 500.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, chat.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chat.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logFrom(r).WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}

// parseTimeout reads the optional timeout query parameter, given either as
// a Go duration ("2s") or as whole seconds ("2"). Zero means the default.
func parseTimeout(r *http.Request) (time.Duration, error) {
	raw := r.URL.Query().Get("timeout")
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		secs, serr := strconv.Atoi(raw)
		if serr != nil {
			return 0, errors.Errorf("invalid timeout %q", raw)
		}
		d = time.Duration(secs) * time.Second
	}
	if d <= 0 || d > MaxSubscribeTimeout {
		return 0, errors.Errorf("timeout must be in (0, %s]", MaxSubscribeTimeout)
	}
	return d, nil
}

// queryID reads the first non-empty integer query parameter among names.
func queryID(r *http.Request, names ...string) (int64, error) {
	for _, name := range names {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, errors.Errorf("%s must be an integer", name)
		}
		return id, nil
	}
	return 0, errors.Errorf("%s is required", names[0])
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
