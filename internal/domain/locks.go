package domain

import "sync"

// connectionLocks serialises sync attempts per connection key. Kafka keeps
// per-connection ordering via partition keys, but the manual trigger path
// bypasses the consumer, so state writes still need an in-process guard.
type connectionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newConnectionLocks() *connectionLocks {
	return &connectionLocks{locks: make(map[string]*sync.Mutex)}
}

func (c *connectionLocks) acquire(key string) *sync.Mutex {
	c.mu.Lock()
	lock, ok := c.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[key] = lock
	}
	c.mu.Unlock()

	lock.Lock()
	return lock
}
