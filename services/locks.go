package services

import "sync"

// TournamentLocks serializes mutations per tournament: every mutation
// entry point runs as if under a single-writer-per-tournament lock, so
// two concurrent approvals cannot jointly exceed the team cap and two
// concurrent generations cannot both insert a schedule. Unrelated
// tournaments never contend.
type TournamentLocks struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func NewTournamentLocks() *TournamentLocks {
	return &TournamentLocks{locks: make(map[int]*sync.Mutex)}
}

// Lock acquires the lock for one tournament and returns the unlock
// function.
func (l *TournamentLocks) Lock(tournamentID int) func() {
	l.mu.Lock()
	m, ok := l.locks[tournamentID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[tournamentID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
