package cache

import "testing"

func TestBoundedEviction(t *testing.T) {
	c := NewBounded[string, int](2)

	c.Put("a", 1)
	c.Put("b", 2)
	evicted, did := c.Put("c", 3)
	if !did || evicted != "a" {
		t.Fatalf("expected eviction of a, got %q (evicted=%v)", evicted, did)
	}

	if _, ok := c.Get("a"); ok {
		t.Error("a should have been evicted")
	}
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Errorf("expected b=2, got %d (ok=%v)", v, ok)
	}
}

func TestBoundedRecencyOrder(t *testing.T) {
	c := NewBounded[string, int](2)

	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a") // a is now most recently used

	evicted, did := c.Put("c", 3)
	if !did || evicted != "b" {
		t.Fatalf("expected eviction of b, got %q (evicted=%v)", evicted, did)
	}

	keys := c.Keys()
	if len(keys) != 2 || keys[0] != "c" || keys[1] != "a" {
		t.Errorf("unexpected key order %v", keys)
	}
}

func TestBoundedUpdateDoesNotEvict(t *testing.T) {
	c := NewBounded[string, int](2)

	c.Put("a", 1)
	c.Put("b", 2)
	if _, did := c.Put("a", 10); did {
		t.Error("updating an existing key must not evict")
	}

	if v, _ := c.Get("a"); v != 10 {
		t.Errorf("expected updated value 10, got %d", v)
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", c.Len())
	}
}

func TestBoundedDelete(t *testing.T) {
	c := NewBounded[string, int](2)

	c.Put("a", 1)
	if !c.Delete("a") {
		t.Error("delete of present key should report true")
	}
	if c.Delete("a") {
		t.Error("delete of absent key should report false")
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Len())
	}
}

func TestUnboundedCapacity(t *testing.T) {
	c := NewBounded[int, int](0)
	for i := 0; i < 1000; i++ {
		c.Put(i, i)
	}
	if c.Len() != 1000 {
		t.Errorf("unbounded cache should keep everything, got %d", c.Len())
	}
}
