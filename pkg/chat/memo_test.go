package chat

import (
	"testing"
	"time"

	"oho-chat-gateway/pkg/flow/extract"
)

func TestMemoCacheDisabled(t *testing.T) {
	var c *MemoCache
	if c = NewMemoCache(0, 10); c != nil {
		t.Fatal("ttl 0 must disable the cache")
	}

	// A nil cache is safe to use.
	c.Set("k", extract.Reply{Text: "x"})
	if _, hit := c.Get("k"); hit {
		t.Error("nil cache reported a hit")
	}
}

func TestMemoCacheHitAndKeying(t *testing.T) {
	c := NewMemoCache(time.Minute, 10)

	key := c.Key("hello", "User: earlier", "s1")
	c.Set(key, extract.Reply{Text: "cached"})

	if reply, hit := c.Get(key); !hit || reply.Text != "cached" {
		t.Errorf("Get = %v, %v", reply, hit)
	}

	// Same message under different history or session must not collide:
	// this is the documented staleness boundary.
	if other := c.Key("hello", "User: different", "s1"); other == key {
		t.Error("key ignores rendered history")
	}
	if other := c.Key("hello", "User: earlier", "s2"); other == key {
		t.Error("key ignores session id")
	}
}

func TestMemoCacheBounded(t *testing.T) {
	c := NewMemoCache(time.Minute, 2)

	c.Set(c.Key("a", "", ""), extract.Reply{Text: "a"})
	c.Set(c.Key("b", "", ""), extract.Reply{Text: "b"})
	c.Set(c.Key("c", "", ""), extract.Reply{Text: "c"})

	if _, hit := c.Get(c.Key("c", "", "")); hit {
		t.Error("cache accepted entries beyond its bound")
	}
}
