package utils

import (
	"context"
	"time"
)

const (
	// DefaultTimeout covers most database operations
	DefaultTimeout = 10 * time.Second

	// LongTimeout covers the indexing pipeline and model calls
	LongTimeout = 3 * time.Minute
)

func WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultTimeout)
}

func WithLongTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, LongTimeout)
}
