package ports

import (
    "context"

    "linkpulse/internal/domain"
)

// Visitor loads a profile's activity view and returns the raw timestamp
// texts found on it, in document order. An empty slice is a successful
// visit; navigation problems are errors.
type Visitor interface {
    Visit(ctx context.Context, profile domain.ProfileID) ([]string, error)
}

// Classifier decides whether timestamp texts show recent activity.
type Classifier interface {
    Classify(texts []string) bool
}

// SurfaceCounter is implemented by visitors backed by a fixed number of
// independent navigation surfaces.
type SurfaceCounter interface {
    Surfaces() int
}

// SurfaceReserver is implemented by visitors whose surfaces are shared
// between scans. Reserve blocks until n surfaces are free and returns a
// visitor that only uses those; release hands them back.
type SurfaceReserver interface {
    SurfaceCounter
    Reserve(ctx context.Context, n int) (v Visitor, release func(), err error)
}
