package facility

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// repoPG persists serialized department payloads into the facility tables
// and assembles the nested ward record for edit mode. Ids minted locally by
// a wizard session are replaced with server ids (uuids) on first write;
// server-origin ids are written back verbatim.
type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) CreateFacility(ctx context.Context, payload *SpecializationPayload) error {
	return r.writeFacility(ctx, payload)
}

func (r *repoPG) UpdateFacility(ctx context.Context, specializationID int, payload *SpecializationPayload) error {
	return r.writeFacility(ctx, payload)
}

// writeFacility replaces every ward previously stored for the specialization
// with the payload's wards, in one transaction. Both create and update go
// through the same replacement, so re-running a save that failed partway
// converges instead of stacking duplicate rows.
func (r *repoPG) writeFacility(ctx context.Context, payload *SpecializationPayload) error {
	if payload.SpecializationID == nil {
		return fmt.Errorf("specialization id is required")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// Room and bed rows cascade from the ward delete.
	if _, err := tx.Exec(ctx,
		`DELETE FROM facility_ward WHERE specialization_id = $1`, *payload.SpecializationID); err != nil {
		return fmt.Errorf("clear specialization %d: %w", *payload.SpecializationID, err)
	}

	for _, ward := range payload.Wards {
		wardID := serverID(ward.WardID)
		if _, err := tx.Exec(ctx, `
			INSERT INTO facility_ward (id, specialization_id, name, ward_type_id)
			VALUES ($1, $2, $3, $4)`,
			wardID, *payload.SpecializationID, ward.WardName, ward.WardTypeID,
		); err != nil {
			return fmt.Errorf("insert ward %q: %w", ward.WardName, err)
		}

		for _, room := range ward.Rooms {
			roomID := serverID(room.RoomID)
			if _, err := tx.Exec(ctx, `
				INSERT INTO facility_room (id, ward_id, name, number, amenities)
				VALUES ($1, $2, $3, $4, $5)`,
				roomID, wardID, room.RoomName, room.RoomNumber, intsToPG(room.Amenities),
			); err != nil {
				return fmt.Errorf("insert room %q: %w", room.RoomName, err)
			}

			for _, bed := range room.Beds {
				if _, err := tx.Exec(ctx, `
					INSERT INTO facility_bed (id, room_id, name, number, status, amenities)
					VALUES ($1, $2, $3, $4, $5, $6)`,
					serverID(bed.BedID), roomID, bed.BedName, bed.BedNumber, bed.Status, intsToPG(bed.Amenities),
				); err != nil {
					return fmt.Errorf("insert bed %q: %w", bed.BedName, err)
				}
			}
		}
	}

	return tx.Commit(ctx)
}

func (r *repoPG) FetchWardRecord(ctx context.Context, wardID string) (*ServerWardRecord, error) {
	rec := &ServerWardRecord{}

	var specID int
	var wardName string
	var wardTypeID int
	var specName *string
	var wardTypeName *string
	err := r.pool.QueryRow(ctx, `
		SELECT w.id, w.specialization_id, w.name, w.ward_type_id, s.name, t.name
		FROM facility_ward w
		LEFT JOIN specialization s ON s.id = w.specialization_id
		LEFT JOIN ward_type t ON t.id = w.ward_type_id
		WHERE w.id = $1`, wardID,
	).Scan(&wardID, &specID, &wardName, &wardTypeID, &specName, &wardTypeName)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: ward %s", ErrNotFound, wardID)
		}
		return nil, fmt.Errorf("fetch ward %s: %w", wardID, err)
	}

	rec.WardID = flexString(wardID)
	rec.WardName = wardName
	sid := flexInt(specID)
	rec.SpecializationID = &sid
	wtid := flexInt(wardTypeID)
	rec.WardTypeID = &wtid
	if specName != nil {
		rec.SpecializationName = *specName
	}
	if wardTypeName != nil {
		rec.WardType = *wardTypeName
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, name, number, amenities
		FROM facility_room WHERE ward_id = $1 ORDER BY number`, wardID)
	if err != nil {
		return nil, fmt.Errorf("fetch rooms for ward %s: %w", wardID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, name, number string
		var amenities []int32
		if err := rows.Scan(&id, &name, &number, &amenities); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rec.Rooms = append(rec.Rooms, ServerRoom{
			RoomID:     flexString(id),
			RoomName:   name,
			RoomNumber: flexString(number),
			Amenities:  pgToFlex(amenities),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	bedRows, err := r.pool.Query(ctx, `
		SELECT b.id, b.name, b.number, b.room_id, b.status, b.amenities
		FROM facility_bed b
		JOIN facility_room r ON r.id = b.room_id
		WHERE r.ward_id = $1 ORDER BY r.number, b.number`, wardID)
	if err != nil {
		return nil, fmt.Errorf("fetch beds for ward %s: %w", wardID, err)
	}
	defer bedRows.Close()
	for bedRows.Next() {
		var id, name, roomID, status string
		var number int
		var amenities []int32
		if err := bedRows.Scan(&id, &name, &number, &roomID, &status, &amenities); err != nil {
			return nil, fmt.Errorf("scan bed: %w", err)
		}
		n := flexInt(number)
		rec.Beds = append(rec.Beds, ServerBed{
			BedID:     flexString(id),
			BedName:   name,
			BedNumber: &n,
			RoomID:    flexString(roomID),
			Status:    status,
			Amenities: pgToFlex(amenities),
		})
	}
	if err := bedRows.Err(); err != nil {
		return nil, err
	}

	return rec, nil
}

// serverID keeps server-origin ids verbatim and assigns a fresh server id
// to anything minted locally.
func serverID(id string) string {
	if id == "" || IsLocalID(id) {
		return uuid.NewString()
	}
	return id
}

func intsToPG(in []int) []int32 {
	out := make([]int32, 0, len(in))
	for _, v := range in {
		out = append(out, int32(v))
	}
	return out
}

func pgToFlex(in []int32) []flexString {
	out := make([]flexString, 0, len(in))
	for _, v := range in {
		out = append(out, flexString(strconv.Itoa(int(v))))
	}
	return out
}
