// internal/services/lock_manager_test.go
package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetGameLockReturnsSameLock(t *testing.T) {
	lm := NewLockManager()
	defer lm.Stop()

	a := lm.GetGameLock("game-1")
	b := lm.GetGameLock("game-1")
	other := lm.GetGameLock("game-2")

	assert.Same(t, a, b)
	assert.NotSame(t, a, other)
}

func TestExecuteWithGameLockSerializes(t *testing.T) {
	lm := NewLockManager()
	defer lm.Stop()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lm.ExecuteWithGameLock("game-1", func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestExecuteWithGameLockPropagatesError(t *testing.T) {
	lm := NewLockManager()
	defer lm.Stop()

	err := lm.ExecuteWithGameLock("game-1", func() error {
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestExecuteWithGameReadLockAllowsConcurrentReaders(t *testing.T) {
	lm := NewLockManager()
	defer lm.Stop()

	entered := make(chan struct{})
	release := make(chan struct{})

	go lm.ExecuteWithGameReadLock("game-1", func() error {
		close(entered)
		<-release
		return nil
	})

	<-entered

	// A second reader gets in while the first still holds the lock.
	done := make(chan struct{})
	go lm.ExecuteWithGameReadLock("game-1", func() error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second reader blocked behind the first")
	}
	close(release)
}

func TestGetGameLockRefreshesLastUsed(t *testing.T) {
	lm := NewLockManager()
	defer lm.Stop()

	lm.GetGameLock("game-1")

	lm.globalLock.Lock()
	lm.gameLocks["game-1"].lastUsed = time.Now().Add(-time.Hour)
	lm.globalLock.Unlock()

	lm.GetGameLock("game-1")

	lm.globalLock.Lock()
	age := time.Since(lm.gameLocks["game-1"].lastUsed)
	lm.globalLock.Unlock()

	assert.Less(t, age, time.Minute)
}

func TestCleanupKeepsSmallLockSets(t *testing.T) {
	lm := NewLockManager()
	defer lm.Stop()

	for i := 0; i < 10; i++ {
		lm.GetGameLock(string(rune('a' + i)))
	}
	lm.cleanupUnusedLocks()

	require.Len(t, lm.gameLocks, 10)
}
