package campaign

import (
	"testing"
)

func TestStore_CreateGetUpdate(t *testing.T) {
	s := NewStore(t.TempDir())

	cs, err := s.Create("sweep", "scripts/fix-any.sh", "phase1", 100)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if cs.Status != "pending" || cs.FilesTotal != 100 {
		t.Errorf("unexpected initial state: %+v", cs)
	}

	// Duplicate create fails
	if _, err := s.Create("sweep", "x", "y", 1); err == nil {
		t.Fatal("expected error for duplicate campaign")
	}

	if err := s.Update("sweep", func(cs *CampaignState) {
		cs.Status = "in_progress"
		cs.FilesDone = 15
		cs.BatchHistory = append(cs.BatchHistory, BatchHistoryEntry{BatchID: "b-1", Outcome: "committed"})
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.Get("sweep")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != "in_progress" || got.FilesDone != 15 {
		t.Errorf("update not persisted: %+v", got)
	}
	if len(got.BatchHistory) != 1 || got.BatchHistory[0].BatchID != "b-1" {
		t.Errorf("batch history not persisted: %v", got.BatchHistory)
	}
	if got.UpdatedAt == got.CreatedAt {
		t.Log("updated_at unchanged; same-second write")
	}
}

func TestStore_GetNotFound(t *testing.T) {
	s := NewStore(t.TempDir())

	if _, err := s.Get("nope"); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestStore_ListFiltersByStatus(t *testing.T) {
	s := NewStore(t.TempDir())

	s.Create("alpha", "s.sh", "p", 10)
	s.Create("beta", "s.sh", "p", 20)
	s.Update("beta", func(cs *CampaignState) { cs.Status = "completed" })

	all, err := s.List("")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].Name != "alpha" {
		t.Errorf("unexpected list: %v", all)
	}

	done, err := s.List("completed")
	if err != nil {
		t.Fatalf("list completed: %v", err)
	}
	if len(done) != 1 || done[0].Name != "beta" {
		t.Errorf("unexpected filtered list: %v", done)
	}
}

func TestStore_Delete(t *testing.T) {
	s := NewStore(t.TempDir())

	s.Create("sweep", "s.sh", "p", 10)
	if err := s.Delete("sweep"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get("sweep"); err == nil {
		t.Fatal("expected not-found after delete")
	}
	if err := s.Delete("sweep"); err == nil {
		t.Fatal("expected error deleting missing campaign")
	}
}
