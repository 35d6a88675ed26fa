package launchapi

import (
	"encoding/json"
	"errors"
	"net/http"

	coreerrors "launchpad/core/errors"
	"launchpad/native/bootstrap"
	"launchpad/native/dispenser"
)

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps the ledger error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	if errors.Is(err, bootstrap.ErrContributorNotFound) || errors.Is(err, dispenser.ErrDistributionNotFound) ||
		errors.Is(err, errAccountNotFound) {
		return http.StatusNotFound
	}
	switch coreerrors.KindOf(err) {
	case coreerrors.KindValidation:
		return http.StatusBadRequest
	case coreerrors.KindCapacity:
		if coreerrors.CodeOf(err) == "RateLimited" {
			return http.StatusTooManyRequests
		}
		return http.StatusConflict
	case coreerrors.KindAuthorization:
		return http.StatusForbidden
	case coreerrors.KindArithmetic:
		return http.StatusUnprocessableEntity
	case coreerrors.KindState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error(), RequestID: requestIDFrom(r.Context())}
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "route", r.URL.Path, "request_id", resp.RequestID, "error", err)
		resp.Error = http.StatusText(status)
	} else {
		resp.Kind = coreerrors.KindOf(err).String()
		resp.Code = coreerrors.CodeOf(err)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var errInvalidPayload = coreerrors.New(coreerrors.KindValidation, "InvalidPayload", "invalid payload")

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return coreerrors.Wrap(errInvalidPayload, "%v", err)
	}
	return nil
}
