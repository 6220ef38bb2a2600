package httpadapter

import (
    "encoding/json"
    "errors"
    "io"
    "net/http"

    "linkpulse/internal/domain"
)

const maxRequestBodySize = 1 << 20

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
    r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
    dec := json.NewDecoder(r.Body)
    dec.DisallowUnknownFields()
    if err := dec.Decode(dst); err != nil {
        var tooLarge *http.MaxBytesError
        if errors.As(err, &tooLarge) {
            return &runtimeError{code: http.StatusRequestEntityTooLarge, msg: "request body too large"}
        }
        return &runtimeError{code: http.StatusBadRequest, msg: "bad json: " + err.Error()}
    }
    if err := dec.Decode(&struct{}{}); err != io.EOF {
        return &runtimeError{code: http.StatusBadRequest, msg: "bad json: trailing data"}
    }
    return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(v)
}

type runtimeError struct{ code int; msg string }
func (e *runtimeError) Error() string { return e.msg }

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) (int, string) {
    var rt *runtimeError
    switch {
    case errors.As(err, &rt) && rt.code == http.StatusRequestEntityTooLarge:
        return rt.code, "payload_too_large"
    case errors.As(err, &rt):
        return rt.code, "bad_request"
    case errors.Is(err, domain.ErrNotFound):
        return http.StatusNotFound, "not_found"
    case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidConcurrency):
        return http.StatusBadRequest, "invalid_input"
    case errors.Is(err, domain.ErrResourceExhausted):
        return http.StatusConflict, "resource_exhausted"
    default:
        return http.StatusInternalServerError, "internal"
    }
}
