package services

import (
	"context"
	"sync"
	"time"

	"auction-marketplace/internal/domain"
)

// KeyedLotLocker hands out one exclusive section per lot ID. Lots that nobody
// is bidding on carry no entry; entries are reference counted and removed
// when the last waiter leaves. Waiters that cannot get the section within
// the configured timeout fail with ErrLotBusy instead of queueing forever.
type KeyedLotLocker struct {
	mu      sync.Mutex
	locks   map[string]*lotLock
	timeout time.Duration
}

type lotLock struct {
	token chan struct{}
	refs  int
}

func NewKeyedLotLocker(timeout time.Duration) *KeyedLotLocker {
	return &KeyedLotLocker{
		locks:   make(map[string]*lotLock),
		timeout: timeout,
	}
}

func (l *KeyedLotLocker) Acquire(ctx context.Context, lotID string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[lotID]
	if !ok {
		entry = &lotLock{token: make(chan struct{}, 1)}
		l.locks[lotID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case entry.token <- struct{}{}:
		var once sync.Once
		release := func() {
			once.Do(func() {
				<-entry.token
				l.unref(lotID, entry)
			})
		}
		return release, nil
	case <-timer.C:
		l.unref(lotID, entry)
		return nil, domain.ErrLotBusy
	case <-ctx.Done():
		l.unref(lotID, entry)
		return nil, ctx.Err()
	}
}

func (l *KeyedLotLocker) unref(lotID string, entry *lotLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, lotID)
	}
}
