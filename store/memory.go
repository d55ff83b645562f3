package store

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/fwdask/fwdask/flow"
	"github.com/google/btree"
)

type indexItem struct {
	addr string
	ts   int64
	seq  uint64
	flow *flow.Flow
}

func lessIndexItem(a, b indexItem) bool {
	if a.addr != b.addr {
		return a.addr < b.addr
	}
	if a.ts != b.ts {
		return a.ts < b.ts
	}
	return a.seq < b.seq
}

type memoryStore struct {
	mu  sync.RWMutex
	seq uint64
	src *btree.BTreeG[indexItem]
	dst *btree.BTreeG[indexItem]
}

// NewMemoryStore creates an in-process Store keeping every inserted flow
// ordered by network address and observation time.
func NewMemoryStore() Store {
	return &memoryStore{
		src: btree.NewG(32, lessIndexItem),
		dst: btree.NewG(32, lessIndexItem),
	}
}

func (s *memoryStore) Insert(ctx context.Context, f *flow.Flow) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cp := *f
	var ts int64
	if !cp.Timestamp.IsZero() {
		ts = cp.Timestamp.UnixNano()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.src.ReplaceOrInsert(indexItem{addr: cp.NetSource, ts: ts, seq: s.seq, flow: &cp})
	s.dst.ReplaceOrInsert(indexItem{addr: cp.NetDestination, ts: ts, seq: s.seq, flow: &cp})
	return nil
}

func (s *memoryStore) FindBySource(ctx context.Context, addr string) ([]*flow.Flow, error) {
	return s.find(ctx, s.src, addr)
}

func (s *memoryStore) FindByDestination(ctx context.Context, addr string) ([]*flow.Flow, error) {
	return s.find(ctx, s.dst, addr)
}

func (s *memoryStore) find(ctx context.Context, index *btree.BTreeG[indexItem], addr string) ([]*flow.Flow, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreRead, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	flows := []*flow.Flow{}
	index.AscendGreaterOrEqual(indexItem{addr: addr, ts: math.MinInt64}, func(item indexItem) bool {
		if item.addr != addr {
			return false
		}
		cp := *item.flow
		flows = append(flows, &cp)
		return true
	})
	return flows, nil
}

func (s *memoryStore) Close() error {
	return nil
}
