package domain

import "github.com/google/uuid"

func NewScanID() string {
    return uuid.NewString()
}
