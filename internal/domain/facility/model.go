package facility

import "strings"

// BedStatus enumerates the occupancy states a bed can be in.
type BedStatus string

const (
	BedAvailable   BedStatus = "available"
	BedOccupied    BedStatus = "occupied"
	BedMaintenance BedStatus = "maintenance"
	BedReserved    BedStatus = "reserved"
)

// ParseBedStatus maps a free-form status string onto a BedStatus.
// Unrecognized values fall back to available.
func ParseBedStatus(s string) BedStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "occupied":
		return BedOccupied
	case "maintenance", "under maintenance":
		return BedMaintenance
	case "reserved":
		return BedReserved
	default:
		return BedAvailable
	}
}

// Department is the top level of the facility hierarchy. Locked departments
// are seeded from the specialization catalog and cannot be deleted.
type Department struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	SpecializationID int    `json:"specialization_id,omitempty"`
	Locked           bool   `json:"locked"`
}

// Ward belongs to a department. Its display name is computed from the ward
// type at creation time and is a convenience, not a uniqueness constraint.
type Ward struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type,omitempty"`
	WardTypeID   int    `json:"ward_type_id"`
	DepartmentID string `json:"department_id"`
}

// Room belongs to a ward. Amenities are seeded from the ward's accumulated
// room-amenity defaults at creation time and may diverge per room afterwards.
type Room struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Number    string   `json:"number"`
	WardID    string   `json:"ward_id"`
	Amenities []string `json:"amenities"`
}

// Bed belongs to a room. Amenities are a snapshot of the room's amenities at
// the moment the bed was created; later room edits do not flow back into it.
type Bed struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Number    int       `json:"number"`
	RoomID    string    `json:"room_id"`
	Status    BedStatus `json:"status"`
	Amenities []string  `json:"amenities"`
}

// Selection tracks which ward/room/bed the wizard currently has open.
// Cascading deletes clear any pointer that references a removed entity.
type Selection struct {
	WardID string `json:"ward_id,omitempty"`
	RoomID string `json:"room_id,omitempty"`
	BedID  string `json:"bed_id,omitempty"`
}
