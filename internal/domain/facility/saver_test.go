package facility

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
)

type mockPersistence struct {
	created []string
	updated []string
	failOn  string
}

func (m *mockPersistence) CreateFacility(ctx context.Context, p *SpecializationPayload) error {
	if p.SpecializationName == m.failOn {
		return fmt.Errorf("connection reset")
	}
	m.created = append(m.created, p.SpecializationName)
	return nil
}

func (m *mockPersistence) UpdateFacility(ctx context.Context, specializationID int, p *SpecializationPayload) error {
	if p.SpecializationName == m.failOn {
		return fmt.Errorf("connection reset")
	}
	m.updated = append(m.updated, p.SpecializationName)
	return nil
}

func TestSaver_CreateVersusUpdate(t *testing.T) {
	st := NewStore()
	st.SeedDepartment("Cardiology", 12) // server id -> update
	if _, err := st.AddDepartment("Oncology", 7); err != nil { // local id -> create
		t.Fatalf("AddDepartment: %v", err)
	}

	repo := &mockPersistence{}
	result, err := NewSaver(repo, zerolog.Nop()).Save(context.Background(), st)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if len(repo.updated) != 1 || repo.updated[0] != "Cardiology" {
		t.Errorf("updated = %v, want [Cardiology]", repo.updated)
	}
	if len(repo.created) != 1 || repo.created[0] != "Oncology" {
		t.Errorf("created = %v, want [Oncology]", repo.created)
	}
	if len(result.Saved) != 2 {
		t.Errorf("saved = %v, want both departments", result.Saved)
	}
}

func TestSaver_SkipsUnresolvableSpecialization(t *testing.T) {
	st := NewStore()
	if _, err := st.AddDepartment("Improvised Unit", 0); err != nil {
		t.Fatalf("AddDepartment: %v", err)
	}
	st.SeedDepartment("Cardiology", 12)

	repo := &mockPersistence{}
	result, err := NewSaver(repo, zerolog.Nop()).Save(context.Background(), st)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if len(result.Skipped) != 1 || result.Skipped[0].Name != "Improvised Unit" {
		t.Errorf("skipped = %+v", result.Skipped)
	}
	if len(result.Saved) != 1 || result.Saved[0] != "Cardiology" {
		t.Errorf("saved = %v, want [Cardiology] (skip must not abort the batch)", result.Saved)
	}
	if len(repo.created) != 0 {
		t.Errorf("skipped department must not reach the repository, got %v", repo.created)
	}
}

func TestSaver_AbortsOnPersistenceError(t *testing.T) {
	st := NewStore()
	st.SeedDepartment("Cardiology", 1)
	st.SeedDepartment("Oncology", 2)
	st.SeedDepartment("Pediatrics", 3)

	repo := &mockPersistence{failOn: "Oncology"}
	result, err := NewSaver(repo, zerolog.Nop()).Save(context.Background(), st)

	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("got %v, want ErrPersistence", err)
	}
	if len(result.Saved) != 1 || result.Saved[0] != "Cardiology" {
		t.Errorf("partial result = %v, want [Cardiology]", result.Saved)
	}
	if len(repo.updated) != 1 {
		t.Errorf("departments after the failure must not be attempted, got %v", repo.updated)
	}
}

func TestSaver_ResaveAfterFailureUpdatesCreatedDepartments(t *testing.T) {
	st := NewStore()
	if _, err := st.AddDepartment("Cardiology", 7); err != nil {
		t.Fatalf("AddDepartment: %v", err)
	}
	if _, err := st.AddDepartment("Oncology", 9); err != nil {
		t.Fatalf("AddDepartment: %v", err)
	}

	repo := &mockPersistence{failOn: "Oncology"}
	saver := NewSaver(repo, zerolog.Nop())

	if _, err := saver.Save(context.Background(), st); !errors.Is(err, ErrPersistence) {
		t.Fatalf("first save: got %v, want ErrPersistence", err)
	}
	if len(repo.created) != 1 || repo.created[0] != "Cardiology" {
		t.Fatalf("first save created = %v, want [Cardiology]", repo.created)
	}

	repo.failOn = ""
	if _, err := saver.Save(context.Background(), st); err != nil {
		t.Fatalf("re-save: %v", err)
	}

	count := 0
	for _, name := range repo.created {
		if name == "Cardiology" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Cardiology was create-persisted %d times, re-save must update instead", count)
	}
	if len(repo.updated) != 1 || repo.updated[0] != "Cardiology" {
		t.Errorf("re-save updated = %v, want [Cardiology]", repo.updated)
	}
	if len(repo.created) != 2 || repo.created[1] != "Oncology" {
		t.Errorf("created = %v, want Oncology created on the re-save", repo.created)
	}
}
