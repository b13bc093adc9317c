package chat

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	ctx := context.Background()

	if _, found, err := store.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("Get(missing) = found=%v err=%v, want miss", found, err)
	}

	s := NewSession("abc")
	s.Append(RoleUser, "hi")
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, found, err := store.Get(ctx, "abc")
	if err != nil || !found {
		t.Fatalf("Get = found=%v err=%v", found, err)
	}
	if len(got.Turns) != 1 || got.Turns[0].Text != "hi" {
		t.Errorf("turns = %v", got.Turns)
	}

	if err := store.Delete(ctx, "abc"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found, _ := store.Get(ctx, "abc"); found {
		t.Error("session survived delete")
	}
}

func TestNewStoreDrivers(t *testing.T) {
	if _, err := NewStore("memory", nil, time.Minute); err != nil {
		t.Errorf("memory driver: %v", err)
	}
	if _, err := NewStore("", nil, time.Minute); err != nil {
		t.Errorf("default driver: %v", err)
	}
	if _, err := NewStore("redis", nil, time.Minute); err == nil {
		t.Error("redis driver without client must fail")
	}
	if _, err := NewStore("bogus", nil, time.Minute); err == nil {
		t.Error("unknown driver must fail")
	}
}
