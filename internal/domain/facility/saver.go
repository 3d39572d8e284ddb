package facility

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// SkippedDepartment records a department whose serialization failed
// validation. The rest of the batch is unaffected.
type SkippedDepartment struct {
	DepartmentID string `json:"department_id"`
	Name         string `json:"name"`
	Reason       string `json:"reason"`
}

// SaveResult reports what a save run accomplished. On a persistence failure
// Saved still lists the departments written before the abort.
type SaveResult struct {
	Saved   []string            `json:"saved"`
	Skipped []SkippedDepartment `json:"skipped,omitempty"`
}

// Saver walks the exported payloads and persists them one department at a
// time, sequentially, so a failure is isolated to the department that
// failed. Departments already written are not rolled back; the save is
// at-least-once and the caller re-invokes it after fixing the cause. A
// department created by an earlier run has adopted its server id by then,
// so the re-run updates it rather than creating it twice.
type Saver struct {
	repo Persistence
	log  zerolog.Logger
}

func NewSaver(repo Persistence, log zerolog.Logger) *Saver {
	return &Saver{repo: repo, log: log}
}

// Save serializes the aggregate and issues one create or update per
// department. A department with a local id is new and created; one with a
// server id is updated in place. A department whose specialization id does
// not resolve is skipped with a reason; a persistence error aborts the
// remaining sequence.
func (s *Saver) Save(ctx context.Context, st *Store) (*SaveResult, error) {
	result := &SaveResult{}

	for _, payload := range st.ExportForSave() {
		payload := payload
		if payload.SpecializationID == nil {
			s.log.Warn().
				Str("department_id", payload.DepartmentID).
				Str("department", payload.SpecializationName).
				Msg("skipping department with unresolvable specialization id")
			result.Skipped = append(result.Skipped, SkippedDepartment{
				DepartmentID: payload.DepartmentID,
				Name:         payload.SpecializationName,
				Reason:       "specialization id does not resolve to a positive integer",
			})
			continue
		}

		var err error
		if IsLocalID(payload.DepartmentID) {
			err = s.repo.CreateFacility(ctx, &payload)
			if err == nil {
				// The department now exists server-side. Adopt the server
				// identity so a later save of this aggregate updates it
				// instead of creating it again.
				if perr := st.PromoteDepartment(payload.DepartmentID, *payload.SpecializationID); perr != nil {
					s.log.Warn().Err(perr).
						Str("department", payload.SpecializationName).
						Msg("could not adopt server id after create")
				}
			}
		} else {
			err = s.repo.UpdateFacility(ctx, *payload.SpecializationID, &payload)
		}
		if err != nil {
			s.log.Error().Err(err).
				Str("department", payload.SpecializationName).
				Msg("facility save aborted")
			return result, fmt.Errorf("%w: department %q: %v", ErrPersistence, payload.SpecializationName, err)
		}
		result.Saved = append(result.Saved, payload.SpecializationName)
	}

	return result, nil
}
