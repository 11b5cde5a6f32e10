package bidding

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestAuctionLocks_SerializesSameAuction(t *testing.T) {
	locks := newAuctionLocks()
	id := uuid.New()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locks.lock(id)
			defer locks.unlock(id)
			counter++
		}()
	}
	wg.Wait()

	require.Equal(t, 50, counter)
}

func TestAuctionLocks_IndependentAuctionsDoNotBlock(t *testing.T) {
	locks := newAuctionLocks()
	first := uuid.New()
	second := uuid.New()

	locks.lock(first)
	// would deadlock if the two IDs shared a mutex
	locks.lock(second)
	locks.unlock(second)
	locks.unlock(first)
}

func TestAuctionLocks_EntriesDroppedAfterRelease(t *testing.T) {
	locks := newAuctionLocks()
	id := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locks.lock(id)
			locks.unlock(id)
		}()
	}
	wg.Wait()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	require.Empty(t, locks.locks)
}
