package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestMockStorage_SaveAndLoadRun(t *testing.T) {
	m := NewMockStorage()
	ctx := context.Background()

	run := &Run{ID: uuid.New(), Seed: "7", Scenario: "Bedtime"}
	if err := m.SaveRun(ctx, run); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}

	loaded, err := m.LoadRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("Failed to load run: %v", err)
	}
	if loaded == nil || loaded.Scenario != "Bedtime" {
		t.Errorf("Expected the saved run, got %+v", loaded)
	}

	missing, err := m.LoadRun(ctx, uuid.New())
	if err != nil || missing != nil {
		t.Errorf("Expected nil, nil for a missing run, got %+v, %v", missing, err)
	}

	if err := m.SaveRun(ctx, nil); err == nil {
		t.Error("Expected error saving a nil run")
	}
}

func TestMockStorage_RecentRuns(t *testing.T) {
	m := NewMockStorage()
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < RecentRunsLimit+5; i++ {
		run := &Run{ID: uuid.New()}
		ids = append(ids, run.ID)
		if err := m.SaveRun(ctx, run); err != nil {
			t.Fatalf("Failed to save run: %v", err)
		}
	}

	recent, _ := m.RecentRuns(ctx, 0)
	if len(recent) != RecentRunsLimit {
		t.Fatalf("Expected %d recent runs, got %d", RecentRunsLimit, len(recent))
	}
	if recent[0] != ids[len(ids)-1] {
		t.Error("Expected newest run first")
	}

	if err := m.DeleteRun(ctx, recent[0]); err != nil {
		t.Fatalf("Failed to delete run: %v", err)
	}
	recent, _ = m.RecentRuns(ctx, 3)
	if len(recent) != 3 || recent[0] != ids[len(ids)-2] {
		t.Errorf("Unexpected recent runs after delete: %v", recent)
	}
}

func TestMockStorage_Ping(t *testing.T) {
	m := NewMockStorage()
	if err := m.Ping(context.Background()); err != nil {
		t.Errorf("Expected ping to succeed, got %v", err)
	}
	m.SetPingError(errors.New("down"))
	if err := m.Ping(context.Background()); err == nil {
		t.Error("Expected ping to fail")
	}
}
