package ledger

import (
	"context"
	"fmt"
	"sync"
)

// MemoryLedger is an in-process Ledger used by tests and local
// development. It hands out sequential transaction references.
type MemoryLedger struct {
	mu       sync.Mutex
	anchored []string
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

func (l *MemoryLedger) Anchor(_ context.Context, contentHash string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.anchored = append(l.anchored, contentHash)
	return fmt.Sprintf("memtx-%d", len(l.anchored)), nil
}

// Anchored returns the hashes recorded so far. Test helper.
func (l *MemoryLedger) Anchored() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.anchored))
	copy(out, l.anchored)
	return out
}
