package service

import (
	"sync"

	"github.com/google/uuid"
)

// loanLocks serializes mutations per loan. Record, amend, and retract all
// read-then-write the loan account aggregate, so two mutations interleaving
// on the same loan would corrupt paid/remaining. Mutations on different loans
// proceed in parallel.
type loanLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newLoanLocks() *loanLocks {
	return &loanLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// Lock acquires the mutex for a loan, creating it on first use, and returns
// the unlock function.
func (l *loanLocks) Lock(loanID uuid.UUID) func() {
	l.mu.Lock()
	m, ok := l.locks[loanID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[loanID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
