package domain

import "errors"

var (
    ErrInvalidInput       = errors.New("invalid input")
    ErrNotFound           = errors.New("not found")
    ErrVisitFailed        = errors.New("profile visit failed")
    ErrVisitTimeout       = errors.New("profile visit timed out")
    ErrResourceExhausted  = errors.New("not enough navigation surfaces for requested concurrency")
    ErrInvalidConcurrency = errors.New("concurrency must be positive")
)
