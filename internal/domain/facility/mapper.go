package facility

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// The server's ward record is loosely typed: ids arrive as strings or
// numbers depending on which backend produced them, and several fields have
// aliases. flexString and flexInt absorb that at the decoding boundary so
// the rest of the mapper works with one shape.

type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexInt(n)
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexInt(int(n))
	return nil
}

// ServerWardRecord is the nested payload returned by the "fetch full ward
// record" call. Validation and field fallbacks happen exactly once, in
// ImportWardRecord; nothing else touches this shape.
type ServerWardRecord struct {
	SpecializationID   *flexInt     `json:"specializationId"`
	SpecializationName string       `json:"specializationName"`
	Department         string       `json:"department"`
	WardID             flexString   `json:"wardId"`
	Name               string       `json:"name"`
	WardName           string       `json:"wardName"`
	WardType           string       `json:"wardType"`
	Type               string       `json:"type"`
	WardTypeID         *flexInt     `json:"wardTypeId"`
	Rooms              []ServerRoom `json:"rooms"`
	Beds               []ServerBed  `json:"beds"`
}

type ServerRoom struct {
	RoomID        flexString   `json:"roomId"`
	Name          string       `json:"name"`
	RoomName      string       `json:"roomName"`
	RoomNumber    flexString   `json:"roomNumber"`
	Amenities     []flexString `json:"amenities"`
	RoomAmenities []flexString `json:"roomAmenities"`
}

type ServerBed struct {
	BedID        flexString   `json:"bedId"`
	Name         string       `json:"name"`
	BedName      string       `json:"bedName"`
	BedNumber    *flexInt     `json:"bedNumber"`
	RoomID       flexString   `json:"roomId"`
	RoomNumber   flexString   `json:"roomNumber"`
	Status       string       `json:"status"`
	BedStatusID  *flexInt     `json:"bedStatusId"`
	Amenities    []flexString `json:"amenities"`
	BedAmenities []flexString `json:"bedAmenities"`
}

// defaultRoomAmenities seeds rooms that arrive with no amenity data at all.
var defaultRoomAmenities = []string{"1", "2"}

// ImportWardRecord maps a nested server record onto a fresh aggregate:
// exactly one department, one ward, the record's rooms and beds. Server
// ids are taken verbatim; anything the record lacks gets a minted local id.
func ImportWardRecord(rec *ServerWardRecord) *Store {
	st := NewStore()

	dept := &Department{Locked: false}
	if rec.SpecializationID != nil && int(*rec.SpecializationID) != 0 {
		dept.SpecializationID = int(*rec.SpecializationID)
		dept.ID = strconv.Itoa(int(*rec.SpecializationID))
	} else {
		dept.ID = NewLocalID(KindDepartment)
	}
	dept.Name = firstNonEmpty(rec.SpecializationName, rec.Department, "Unknown Department")
	st.departments = append(st.departments, dept)

	typeStr := firstNonEmpty(rec.WardType, rec.Type)
	ward := &Ward{
		ID:           string(rec.WardID),
		Name:         firstNonEmpty(rec.Name, rec.WardName, typeStr, "Ward"),
		Type:         strings.ToLower(typeStr),
		DepartmentID: dept.ID,
	}
	if ward.ID == "" {
		ward.ID = NewLocalID(KindWard)
	}
	if rec.WardTypeID != nil {
		ward.WardTypeID = int(*rec.WardTypeID)
	}
	st.wards = append(st.wards, ward)

	for _, sr := range rec.Rooms {
		room := &Room{
			ID:     string(sr.RoomID),
			Number: string(sr.RoomNumber),
			WardID: ward.ID, // the source format has no room-level ward reference
		}
		if room.ID == "" {
			room.ID = NewLocalID(KindRoom)
		}
		room.Name = firstNonEmpty(sr.RoomName, sr.Name, strings.TrimSpace("Room "+room.Number))
		switch {
		case len(sr.Amenities) > 0:
			room.Amenities = flexToStrings(sr.Amenities)
		case len(sr.RoomAmenities) > 0:
			room.Amenities = flexToStrings(sr.RoomAmenities)
		default:
			room.Amenities = cloneAmenities(defaultRoomAmenities)
		}
		st.rooms = append(st.rooms, room)
		st.roomAmenitiesByWard[ward.ID] = unionAmenities(st.roomAmenitiesByWard[ward.ID], room.Amenities)
	}

	for i, sb := range rec.Beds {
		bed := &Bed{
			ID:     string(sb.BedID),
			RoomID: resolveBedRoom(sb, st.rooms),
			Status: bedStatusFrom(sb),
		}
		if bed.ID == "" {
			bed.ID = NewLocalID(KindBed)
		}
		if sb.BedNumber != nil && int(*sb.BedNumber) > 0 {
			bed.Number = int(*sb.BedNumber)
		} else {
			bed.Number = i + 1
		}
		bed.Name = firstNonEmpty(sb.BedName, sb.Name, fmt.Sprintf("Bed %d", bed.Number))
		switch {
		case len(sb.Amenities) > 0:
			bed.Amenities = flexToStrings(sb.Amenities)
		case len(sb.BedAmenities) > 0:
			bed.Amenities = flexToStrings(sb.BedAmenities)
		}
		st.beds = append(st.beds, bed)
		st.bedAmenitiesByRoom[bed.RoomID] = unionAmenities(st.bedAmenitiesByRoom[bed.RoomID], bed.Amenities)
	}

	return st
}

// resolveBedRoom picks the bed's room in priority order: exact id match,
// then room-number match, then the first mapped room, then a synthetic id.
func resolveBedRoom(sb ServerBed, rooms []*Room) string {
	if id := string(sb.RoomID); id != "" {
		for _, r := range rooms {
			if r.ID == id {
				return r.ID
			}
		}
	}
	if num := string(sb.RoomNumber); num != "" {
		for _, r := range rooms {
			if r.Number == num {
				return r.ID
			}
		}
	}
	if len(rooms) > 0 {
		return rooms[0].ID
	}
	return NewLocalID(KindRoom)
}

func bedStatusFrom(sb ServerBed) BedStatus {
	if sb.Status != "" {
		return ParseBedStatus(sb.Status)
	}
	if sb.BedStatusID != nil && int(*sb.BedStatusID) == 2 {
		return BedOccupied
	}
	return BedAvailable
}

func flexToStrings(in []flexString) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		out = append(out, string(v))
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// -- Export direction --

// SpecializationPayload is the nested wire form the persistence collaborator
// accepts: one entry per department, wards inside, rooms inside wards, beds
// inside rooms. SpecializationID is nil when the department's id cannot be
// resolved to a positive integer; callers must check before persisting.
type SpecializationPayload struct {
	SpecializationID   *int          `json:"specializationId"`
	SpecializationName string        `json:"specializationName"`
	DepartmentID       string        `json:"departmentId"`
	Wards              []WardPayload `json:"wards"`
}

type WardPayload struct {
	WardID     string        `json:"wardId"`
	WardName   string        `json:"wardName"`
	WardTypeID int           `json:"wardTypeId"`
	Rooms      []RoomPayload `json:"rooms"`
}

type RoomPayload struct {
	RoomID     string       `json:"roomId"`
	RoomName   string       `json:"roomName"`
	RoomNumber string       `json:"roomNumber"`
	Amenities  []int        `json:"amenities"`
	Beds       []BedPayload `json:"beds"`
}

type BedPayload struct {
	BedID     string `json:"bedId"`
	BedName   string `json:"bedName"`
	BedNumber int    `json:"bedNumber"`
	Status    string `json:"status"`
	Amenities []int  `json:"amenities"`
}

// ExportForSave walks the aggregate depth-first and emits one nested payload
// per department. Ids pass through verbatim, local or server-assigned.
func (s *Store) ExportForSave() []SpecializationPayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	payloads := make([]SpecializationPayload, 0, len(s.departments))
	for _, dept := range s.departments {
		p := SpecializationPayload{
			SpecializationID:   resolveSpecializationID(dept),
			SpecializationName: dept.Name,
			DepartmentID:       dept.ID,
		}
		for _, ward := range s.wards {
			if ward.DepartmentID != dept.ID {
				continue
			}
			wp := WardPayload{
				WardID:     ward.ID,
				WardName:   ward.Name,
				WardTypeID: ward.WardTypeID,
			}
			for _, room := range s.rooms {
				if room.WardID != ward.ID {
					continue
				}
				rp := RoomPayload{
					RoomID:     room.ID,
					RoomName:   room.Name,
					RoomNumber: room.Number,
					Amenities:  coerceAmenityIDs(room.Amenities),
				}
				for _, bed := range s.beds {
					if bed.RoomID != room.ID {
						continue
					}
					rp.Beds = append(rp.Beds, BedPayload{
						BedID:     bed.ID,
						BedName:   bed.Name,
						BedNumber: bed.Number,
						Status:    string(bed.Status),
						Amenities: coerceAmenityIDs(bed.Amenities),
					})
				}
				wp.Rooms = append(wp.Rooms, rp)
			}
			p.Wards = append(p.Wards, wp)
		}
		payloads = append(payloads, p)
	}
	return payloads
}

// coerceAmenityIDs parses amenity ids as integers. Unparsable or
// non-positive values are not real amenity ids and are dropped silently.
func coerceAmenityIDs(in []string) []int {
	var out []int
	for _, v := range in {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n <= 0 {
			continue
		}
		out = append(out, n)
	}
	return out
}

// resolveSpecializationID resolves the department to a positive integer
// specialization id, or nil when it cannot.
func resolveSpecializationID(dept *Department) *int {
	if dept.SpecializationID > 0 {
		id := dept.SpecializationID
		return &id
	}
	if n, err := strconv.Atoi(dept.ID); err == nil && n > 0 {
		return &n
	}
	return nil
}
