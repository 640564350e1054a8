package cache

// Subscribe registers a change listener. The returned channel receives the
// cache version after writes; sends never block, so a slow reader sees the
// latest version rather than every intermediate one. cancel unregisters the
// listener and closes the channel; calling it more than once is safe.
func (c *Cache) Subscribe() (<-chan uint64, func()) {
	ch := make(chan uint64, 1)

	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	c.subMu.Unlock()

	cancel := func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if cur, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(cur)
		}
	}
	return ch, cancel
}

// Subscribers returns the number of registered listeners.
func (c *Cache) Subscribers() int {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	return len(c.subs)
}

func (c *Cache) notify(version uint64) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- version:
		default:
			// Drop the stale pending version and replace it with the latest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- version:
			default:
			}
		}
	}
}
