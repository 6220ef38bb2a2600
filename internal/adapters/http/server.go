package httpadapter

import (
    "context"
    "errors"
    "fmt"
    "log/slog"
    "net/http"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/go-chi/chi/v5/middleware"
    "github.com/oapi-codegen/runtime"

    "linkpulse/internal/ports"
    scanrunner "linkpulse/internal/workers/scanrunner"
)

const defaultWaitTimeout = 30

// Server exposes company scans and profile verdicts over HTTP.
type Server struct {
    scans     ports.Scans
    profiles  ports.Profiles
    jobs      ports.JobRepository
    processor scanrunner.ScanProcessor
    logger    *slog.Logger
}

func New(scans ports.Scans, profiles ports.Profiles, jobs ports.JobRepository, processor scanrunner.ScanProcessor, logger *slog.Logger) *Server {
    if logger == nil {
        logger = slog.Default()
    }
    return &Server{scans: scans, profiles: profiles, jobs: jobs, processor: processor, logger: logger}
}

// Routes returns a chi.Router with every endpoint mounted.
func (s *Server) Routes() chi.Router {
    r := chi.NewRouter()
    r.Use(middleware.RequestID)
    r.Use(middleware.Recoverer)
    r.Use(s.logRequests)

    r.Get("/healthz", s.getHealthz)
    r.Post("/scans", s.handle(s.postScan))
    r.Get("/scans/{id}", s.handle(s.getScan))
    r.Get("/scans/{id}/result", s.handle(s.getScanResult))
    r.Get("/profiles/activity", s.handle(s.getProfileActivity))
    return r
}

type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (s *Server) handle(h handlerFunc) http.HandlerFunc {
    return func(w http.ResponseWriter, r *http.Request) {
        err := h(w, r)
        if err == nil {
            return
        }
        status, code := statusFor(err)
        msg := err.Error()
        if status >= http.StatusInternalServerError {
            s.logger.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
            msg = "internal error"
        }
        writeJSON(w, status, errorResponse{Code: code, Message: msg})
    }
}

func (s *Server) logRequests(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
        start := time.Now()
        next.ServeHTTP(ww, r)
        s.logger.Info("http request",
            "method", r.Method,
            "path", r.URL.Path,
            "status", ww.Status(),
            "duration_ms", time.Since(start).Milliseconds(),
            "request_id", middleware.GetReqID(r.Context()),
        )
    })
}

func (s *Server) getHealthz(w http.ResponseWriter, _ *http.Request) {
    writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) postScan(w http.ResponseWriter, r *http.Request) error {
    var wait *bool
    var timeout *int
    q := r.URL.Query()
    if err := runtime.BindQueryParameter("form", true, false, "wait", q, &wait); err != nil {
        return &runtimeError{code: http.StatusBadRequest, msg: fmt.Sprintf("invalid format for parameter wait: %s", err)}
    }
    if err := runtime.BindQueryParameter("form", true, false, "timeout", q, &timeout); err != nil {
        return &runtimeError{code: http.StatusBadRequest, msg: fmt.Sprintf("invalid format for parameter timeout: %s", err)}
    }

    var body scanRequest
    if err := readJSON(w, r, &body); err != nil {
        return err
    }
    inline := wait != nil && *wait
    id, err := s.scans.Enqueue(r.Context(), ports.ScanRequest{
        Company:     body.Company,
        Profiles:    body.Profiles,
        Concurrency: body.Concurrency,
        Inline:      inline,
    })
    if err != nil {
        return err
    }

    if !inline {
        writeJSON(w, http.StatusAccepted, scanAcceptedResponse{ScanID: id})
        return nil
    }

    // Blocking path: run the scan with the processor the workers use.
    secs := defaultWaitTimeout
    if timeout != nil && *timeout > 0 { secs = *timeout }
    ctx, cancel := context.WithTimeout(r.Context(), time.Duration(secs)*time.Second)
    defer cancel()
    if err := scanrunner.ProcessInline(ctx, s.jobs, s.processor, id); err != nil && !errors.Is(err, scanrunner.ErrIncomplete) {
        return err
    }

    scan, err := s.scans.Status(r.Context(), id)
    if err != nil {
        return err
    }
    result, err := s.scans.Result(r.Context(), id)
    if err != nil {
        return err
    }
    resp := toScanResponse(scan)
    rr := toResultResponse(result)
    resp.Result = &rr
    writeJSON(w, http.StatusOK, resp)
    return nil
}

func scanIDParam(r *http.Request) (string, error) {
    var id string
    err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
        runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
    if err != nil {
        return "", &runtimeError{code: http.StatusBadRequest, msg: fmt.Sprintf("invalid format for parameter id: %s", err)}
    }
    return id, nil
}

func (s *Server) getScan(w http.ResponseWriter, r *http.Request) error {
    id, err := scanIDParam(r)
    if err != nil {
        return err
    }
    scan, err := s.scans.Status(r.Context(), id)
    if err != nil {
        return err
    }
    writeJSON(w, http.StatusOK, toScanResponse(scan))
    return nil
}

func (s *Server) getScanResult(w http.ResponseWriter, r *http.Request) error {
    id, err := scanIDParam(r)
    if err != nil {
        return err
    }
    result, err := s.scans.Result(r.Context(), id)
    if err != nil {
        return err
    }
    writeJSON(w, http.StatusOK, toResultResponse(result))
    return nil
}

func (s *Server) getProfileActivity(w http.ResponseWriter, r *http.Request) error {
    var profile string
    if err := runtime.BindQueryParameter("form", true, true, "url", r.URL.Query(), &profile); err != nil {
        return &runtimeError{code: http.StatusBadRequest, msg: fmt.Sprintf("invalid format for parameter url: %s", err)}
    }
    act, err := s.profiles.GetLatest(r.Context(), profile)
    if err != nil {
        return err
    }
    writeJSON(w, http.StatusOK, profileActivityResponse{
        Profile:   act.Profile.String(),
        Status:    string(act.Status),
        Reason:    act.Reason,
        ScanID:    act.ScanID,
        Company:   act.Company,
        VisitedAt: act.VisitedAt,
    })
    return nil
}
