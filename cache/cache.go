package cache

import (
	"container/list"
	"sync"

	"github.com/mit-pdos/go-journal/util"
)

// A shared, fixed-size cache mapping from uint64 to a
// reference-counted slot in the cache.  The cache has a fixed number
// of slots.  A lookup for key, increments the reference count for
// that slot. Callers are responsible for filling a slot.  When a
// caller doesn't need the slot anymore (because it is done with the
// object in the slot), then caller must decrement the reference count
// for the slot.  When a reference counter for slot is 0, the slot
// moves to the lru list and the cache can evict it, if it needs space
// for other objects.

type Cslot struct {
	mu  *sync.Mutex // mutex protecting obj in this slot
	Obj interface{}
}

func (slot *Cslot) Lock() {
	slot.mu.Lock()
}

func (slot *Cslot) Unlock() {
	slot.mu.Unlock()
}

type entry struct {
	id   uint64
	ref  uint32 // the slot's reference count
	slot Cslot
	elem *list.Element // position in lru if ref == 0
}

type Cache struct {
	mu      *sync.Mutex
	entries map[uint64]*entry
	lru     *list.List // unreferenced entries, least recently used first
	sz      uint64
}

func MkCache(sz uint64) *Cache {
	return &Cache{
		mu:      new(sync.Mutex),
		entries: make(map[uint64]*entry, sz),
		lru:     list.New(),
		sz:      sz,
	}
}

func (c *Cache) evict() bool {
	e := c.lru.Front()
	if e == nil {
		return false
	}
	victim := c.lru.Remove(e).(*entry)
	util.DPrintf(10, "evict: %d\n", victim.id)
	delete(c.entries, victim.id)
	return true
}

// Lookup the cache slot for id.  Create the slot if id isn't in the
// cache and if there is space in the cache. If no space, return
// nil to indicate the caller to bypass the cache.
func (c *Cache) LookupSlot(id uint64) *Cslot {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[id]
	if e != nil {
		if e.ref == 0 {
			c.lru.Remove(e.elem)
			e.elem = nil
		}
		e.ref = e.ref + 1
		return &e.slot
	}
	if uint64(len(c.entries)) >= c.sz {
		if !c.evict() {
			return nil
		}
	}
	enew := &entry{id: id, ref: 1, slot: Cslot{mu: new(sync.Mutex), Obj: nil}}
	c.entries[id] = enew
	return &enew.slot
}

// Decrease ref count of the cache slot for id so that the slot may be
// evicted.
func (c *Cache) FreeSlot(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[id]
	if e == nil || e.ref == 0 {
		panic("FreeSlot")
	}
	e.ref = e.ref - 1
	if e.ref == 0 {
		e.elem = c.lru.PushBack(e)
	}
}

// Drop forgets every unreferenced slot.
func (c *Cache) Drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.evict() {
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
