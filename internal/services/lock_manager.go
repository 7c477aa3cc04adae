// internal/services/lock_manager.go
package services

import (
	"sync"
	"time"
)

// LockManager serializes turn processing per game. Two concurrent
// messages for the same game take turns; messages for different games
// run in parallel. Idle locks are reclaimed in the background.
type LockManager struct {
	gameLocks     map[string]*lockInfo
	globalLock    sync.RWMutex
	cleanupTicker *time.Ticker
}

type lockInfo struct {
	mutex    *sync.RWMutex
	lastUsed time.Time
}

func NewLockManager() *LockManager {
	lm := &LockManager{
		gameLocks: make(map[string]*lockInfo),
	}
	lm.startCleanup()
	return lm
}

// GetGameLock returns the lock for gameID, creating it if needed.
func (lm *LockManager) GetGameLock(gameID string) *sync.RWMutex {
	lm.globalLock.RLock()
	info, exists := lm.gameLocks[gameID]
	lm.globalLock.RUnlock()
	if exists {
		lm.touch(gameID)
		return info.mutex
	}

	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	// Another goroutine may have created the lock between the two
	// acquisitions.
	if info, exists := lm.gameLocks[gameID]; exists {
		info.lastUsed = time.Now()
		return info.mutex
	}

	mutex := &sync.RWMutex{}
	lm.gameLocks[gameID] = &lockInfo{
		mutex:    mutex,
		lastUsed: time.Now(),
	}
	return mutex
}

// ExecuteWithGameLock runs fn while holding the game's write lock.
func (lm *LockManager) ExecuteWithGameLock(gameID string, fn func() error) error {
	lock := lm.GetGameLock(gameID)
	lock.Lock()
	defer lock.Unlock()

	lm.touch(gameID)
	return fn()
}

// ExecuteWithGameReadLock runs fn while holding the game's read lock.
func (lm *LockManager) ExecuteWithGameReadLock(gameID string, fn func() error) error {
	lock := lm.GetGameLock(gameID)
	lock.RLock()
	defer lock.RUnlock()

	lm.touch(gameID)
	return fn()
}

func (lm *LockManager) touch(gameID string) {
	lm.globalLock.Lock()
	if info, exists := lm.gameLocks[gameID]; exists {
		info.lastUsed = time.Now()
	}
	lm.globalLock.Unlock()
}

func (lm *LockManager) startCleanup() {
	lm.cleanupTicker = time.NewTicker(5 * time.Minute)
	go func() {
		for range lm.cleanupTicker.C {
			lm.cleanupUnusedLocks()
		}
	}()
}

func (lm *LockManager) cleanupUnusedLocks() {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	const maxLocks = 200
	const lockTimeout = 30 * time.Minute

	if len(lm.gameLocks) <= maxLocks {
		return
	}

	now := time.Now()
	for gameID, info := range lm.gameLocks {
		if now.Sub(info.lastUsed) > lockTimeout {
			delete(lm.gameLocks, gameID)
		}
	}
}

// Stop halts the background cleanup. Intended for tests.
func (lm *LockManager) Stop() {
	if lm.cleanupTicker != nil {
		lm.cleanupTicker.Stop()
	}
}
