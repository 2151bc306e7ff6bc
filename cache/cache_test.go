package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCache(t *testing.T) {
	c := MkCache(10)
	for i := uint64(0); i < uint64(10); i++ {
		c.LookupSlot(i)
		c.FreeSlot(i)
	}
	if c.lru.Len() != 10 {
		t.Errorf("lru wrong")
	}
	c.LookupSlot(0)
	if c.lru.Len() != 9 {
		t.Errorf("lru too short")
	}
	c.FreeSlot(0)
	e := c.lru.Front()
	v := e.Value.(*entry)
	if v.id != 1 {
		t.Errorf("lru wrong head")
	}
	if !c.evict() {
		t.Errorf("evict failed")
	}
	if c.lru.Len() != 9 {
		t.Errorf("lru too short")
	}
	e = c.lru.Front()
	v = e.Value.(*entry)
	if v.id != 2 {
		t.Errorf("lru wrong head 2")
	}
}

func TestCacheFull(t *testing.T) {
	assert := assert.New(t)
	c := MkCache(2)
	s0 := c.LookupSlot(0)
	assert.NotNil(s0)
	s0.Obj = "zero"
	assert.NotNil(c.LookupSlot(1))

	// both slots referenced, nothing to evict
	assert.Nil(c.LookupSlot(2))

	c.FreeSlot(0)
	assert.NotNil(c.LookupSlot(2))
	assert.Equal(2, c.Len())
	c.FreeSlot(2)

	s := c.LookupSlot(0)
	assert.NotNil(s)
	assert.Nil(s.Obj, "slot 0 was evicted")
}

func TestCacheHit(t *testing.T) {
	c := MkCache(4)
	s := c.LookupSlot(7)
	s.Obj = 42
	c.FreeSlot(7)
	s = c.LookupSlot(7)
	assert.Equal(t, 42, s.Obj)
	c.FreeSlot(7)
	assert.Panics(t, func() { c.FreeSlot(7) })
}

func TestCacheDrop(t *testing.T) {
	c := MkCache(4)
	c.LookupSlot(1)
	c.LookupSlot(2)
	c.FreeSlot(2)
	c.Drop()
	assert.Equal(t, 1, c.Len())
}
