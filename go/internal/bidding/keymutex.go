package bidding

import (
	"sync"

	"github.com/google/uuid"
)

// auctionLocks hands out one mutex per auction ID so that bids on the same
// auction are serialized while different auctions proceed independently.
// Entries are refcounted and dropped once the last holder releases them,
// so the map stays bounded by the number of auctions with in-flight bids.
type auctionLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*auctionLock
}

type auctionLock struct {
	sync.Mutex
	refs int
}

func newAuctionLocks() *auctionLocks {
	return &auctionLocks{locks: make(map[uuid.UUID]*auctionLock)}
}

func (a *auctionLocks) lock(id uuid.UUID) {
	a.mu.Lock()
	l, ok := a.locks[id]
	if !ok {
		l = &auctionLock{}
		a.locks[id] = l
	}
	l.refs++
	a.mu.Unlock()

	l.Mutex.Lock()
}

func (a *auctionLocks) unlock(id uuid.UUID) {
	a.mu.Lock()
	l := a.locks[id]
	l.refs--
	if l.refs == 0 {
		delete(a.locks, id)
	}
	a.mu.Unlock()

	l.Mutex.Unlock()
}
