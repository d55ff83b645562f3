package store

import (
	"context"
	"errors"

	"github.com/fwdask/fwdask/flow"
)

var (
	ErrStoreRead        = errors.New("store: read failed")
	ErrStoreWriteFailed = errors.New("store: write failed")
)

// Reader is the read-only view of the flow-record store handed to evaluators.
// A query without matches yields an empty, non-nil slice.
type Reader interface {
	FindBySource(ctx context.Context, addr string) ([]*flow.Flow, error)
	FindByDestination(ctx context.Context, addr string) ([]*flow.Flow, error)
}

type Writer interface {
	Insert(ctx context.Context, f *flow.Flow) error
}

type Store interface {
	Reader
	Writer
	Close() error
}
