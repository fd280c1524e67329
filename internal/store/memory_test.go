package store

import (
	"context"
	"errors"
	"testing"

	"github.com/pairs-game/go-server/internal/game"
)

func TestSaveGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	e := game.New(game.Config{Pairs: 2, Seed: 1})
	if err := m.Save(ctx, e); err != nil {
		t.Fatal(err)
	}

	got, err := m.Get(ctx, e.ID())
	if err != nil {
		t.Fatal(err)
	}
	if got != e {
		t.Error("Get returned a different engine")
	}

	if err := m.Delete(ctx, e.ID()); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(ctx, e.ID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete: err = %v, want ErrNotFound", err)
	}

	// Unknown IDs are a no-op.
	if err := m.Delete(ctx, "nope"); err != nil {
		t.Fatal(err)
	}
}
