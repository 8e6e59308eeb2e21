package inmemory

import (
	"context"
	"testing"

	"github.com/rcliao/story-memory/internal/model"
	"github.com/rcliao/story-memory/internal/store"
	"github.com/rcliao/story-memory/internal/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}

func TestSaveCopiesValue(t *testing.T) {
	ctx := context.Background()
	s := New()
	m := storetest.Memorandum("m1", "w", storetest.Base)
	s.Save(ctx, m)

	m.States[model.LevelEvent] = model.NewCanonicalState("x", "w", model.LevelEvent, storetest.Base)
	m.Violations[0].Description = "changed"

	got, _ := s.Get(ctx, "m1")
	if got.State(model.LevelEvent).Len() != 2 {
		t.Errorf("expected stored state untouched, got %d facts", got.State(model.LevelEvent).Len())
	}
	if got.Violations[0].Description == "changed" {
		t.Error("expected stored violations untouched")
	}
}
