package facility

import "context"

// Persistence is the external create/update collaborator. Each call persists
// one serialized department payload. UpdateFacility must be idempotent so a
// re-save after a partial failure is safe for departments already written.
type Persistence interface {
	CreateFacility(ctx context.Context, payload *SpecializationPayload) error
	UpdateFacility(ctx context.Context, specializationID int, payload *SpecializationPayload) error
}

// Repository extends Persistence with the edit-mode fetch.
type Repository interface {
	Persistence
	FetchWardRecord(ctx context.Context, wardID string) (*ServerWardRecord, error)
}
