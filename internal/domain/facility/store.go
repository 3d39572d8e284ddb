package facility

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// AmenityLevel selects which entity level an amenity toggle applies to.
type AmenityLevel string

const (
	LevelRoom AmenityLevel = "room"
	LevelBed  AmenityLevel = "bed"
)

// Store holds the in-session facility aggregate: the four entity levels, the
// derived amenity index maps, and the wizard's current selection. All
// mutation goes through the methods below; each one validates its
// preconditions before touching anything, so a failed operation leaves the
// aggregate unchanged.
type Store struct {
	mu sync.Mutex

	departments []*Department
	wards       []*Ward
	rooms       []*Room
	beds        []*Bed

	// Derived, append-only unions of amenities ever assigned under a parent.
	// Entries are removed only when the owning ward/room is cascade-deleted.
	roomAmenitiesByWard map[string][]string
	bedAmenitiesByRoom  map[string][]string

	selected Selection
}

// NewStore returns an empty aggregate.
func NewStore() *Store {
	return &Store{
		roomAmenitiesByWard: make(map[string][]string),
		bedAmenitiesByRoom:  make(map[string][]string),
	}
}

// -- Lookup helpers (caller holds the lock) --

func (s *Store) findDepartment(id string) *Department {
	for _, d := range s.departments {
		if d.ID == id {
			return d
		}
	}
	return nil
}

func (s *Store) findWard(id string) *Ward {
	for _, w := range s.wards {
		if w.ID == id {
			return w
		}
	}
	return nil
}

func (s *Store) findRoom(id string) *Room {
	for _, r := range s.rooms {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (s *Store) findBed(id string) *Bed {
	for _, b := range s.beds {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// -- Department operations --

// AddDepartment creates an unlocked department. It rejects an empty name and
// a display-name collision with any existing department.
func (s *Store) AddDepartment(name string, specializationID int) (*Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		return nil, fmt.Errorf("%w: department name is required", ErrValidation)
	}
	for _, d := range s.departments {
		if d.Name == name {
			return nil, fmt.Errorf("%w: department %q already exists", ErrDuplicate, name)
		}
	}

	dept := &Department{
		ID:               NewLocalID(KindDepartment),
		Name:             name,
		SpecializationID: specializationID,
	}
	s.departments = append(s.departments, dept)
	return dept, nil
}

// SeedDepartment installs a locked department from the specialization
// catalog. Its id is the specialization's server id, so an edit/save round
// trip keeps it stable. Seeding an already-present name is a no-op.
func (s *Store) SeedDepartment(name string, specializationID int) *Department {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.departments {
		if d.Name == name {
			return d
		}
	}
	dept := &Department{
		ID:               strconv.Itoa(specializationID),
		Name:             name,
		SpecializationID: specializationID,
		Locked:           true,
	}
	s.departments = append(s.departments, dept)
	return dept
}

// PromoteDepartment rewrites a locally-minted department id to the server
// identity of its specialization, rewiring the department's wards to the new
// id. The saver calls this after a create persists, so that saving the same
// aggregate again takes the update path instead of creating a duplicate.
func (s *Store) PromoteDepartment(id string, specializationID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dept := s.findDepartment(id)
	if dept == nil {
		return fmt.Errorf("%w: department %s", ErrNotFound, id)
	}
	if !IsLocalID(id) {
		return nil
	}

	serverID := strconv.Itoa(specializationID)
	dept.ID = serverID
	if dept.SpecializationID == 0 {
		dept.SpecializationID = specializationID
	}
	for _, w := range s.wards {
		if w.DepartmentID == id {
			w.DepartmentID = serverID
		}
	}
	return nil
}

// DeleteDepartment removes the department and cascades through its wards,
// their rooms and their beds. Locked departments cannot be deleted.
func (s *Store) DeleteDepartment(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dept := s.findDepartment(id)
	if dept == nil {
		return fmt.Errorf("%w: department %s", ErrNotFound, id)
	}
	if dept.Locked {
		return fmt.Errorf("%w: department %q is locked", ErrValidation, dept.Name)
	}

	for i, d := range s.departments {
		if d.ID == id {
			s.departments = append(s.departments[:i], s.departments[i+1:]...)
			break
		}
	}

	var doomed []string
	for _, w := range s.wards {
		if w.DepartmentID == id {
			doomed = append(doomed, w.ID)
		}
	}
	for _, wardID := range doomed {
		s.removeWardCascade(wardID)
	}
	return nil
}

// -- Ward operations --

// AddWard creates a ward under departmentID. The display name continues the
// per-department numbering of the ward type: "<TypeName> <N+1>" where N is
// the count of existing wards of the same type in that department.
func (s *Store) AddWard(wardTypeID int, wardTypeName, departmentID string) (*Ward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findDepartment(departmentID) == nil {
		return nil, fmt.Errorf("%w: department %s", ErrNotFound, departmentID)
	}

	sameType := 0
	for _, w := range s.wards {
		if w.DepartmentID == departmentID && w.WardTypeID == wardTypeID {
			sameType++
		}
	}
	if wardTypeName == "" {
		wardTypeName = "Ward"
	}

	ward := &Ward{
		ID:           NewLocalID(KindWard),
		Name:         fmt.Sprintf("%s %d", wardTypeName, sameType+1),
		Type:         strings.ToLower(wardTypeName),
		WardTypeID:   wardTypeID,
		DepartmentID: departmentID,
	}
	s.wards = append(s.wards, ward)
	return ward, nil
}

// DeleteWard removes the ward and cascades to its rooms and their beds.
func (s *Store) DeleteWard(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findWard(id) == nil {
		return fmt.Errorf("%w: ward %s", ErrNotFound, id)
	}
	s.removeWardCascade(id)
	return nil
}

// removeWardCascade deletes the ward, its rooms, their beds and the ward's
// amenity index entry. Caller holds the lock.
func (s *Store) removeWardCascade(wardID string) {
	for i, w := range s.wards {
		if w.ID == wardID {
			s.wards = append(s.wards[:i], s.wards[i+1:]...)
			break
		}
	}

	var doomed []string
	for _, r := range s.rooms {
		if r.WardID == wardID {
			doomed = append(doomed, r.ID)
		}
	}
	for _, roomID := range doomed {
		s.removeRoomCascade(roomID)
	}

	delete(s.roomAmenitiesByWard, wardID)
	if s.selected.WardID == wardID {
		s.selected.WardID = ""
	}
}

// -- Room operations --

// AddRoom creates a room under wardID. wardAmenities is the caller's
// snapshot of the ward's accumulated room-amenity defaults; it seeds the new
// room's amenities and is unioned into the ward's index entry.
func (s *Store) AddRoom(name, number, wardID string, wardAmenities []string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findWard(wardID) == nil {
		return nil, fmt.Errorf("%w: ward %s", ErrNotFound, wardID)
	}
	if name == "" {
		name = "Room " + number
	}

	room := &Room{
		ID:        NewLocalID(KindRoom),
		Name:      name,
		Number:    number,
		WardID:    wardID,
		Amenities: cloneAmenities(wardAmenities),
	}
	s.rooms = append(s.rooms, room)
	s.roomAmenitiesByWard[wardID] = unionAmenities(s.roomAmenitiesByWard[wardID], room.Amenities)
	return room, nil
}

// DeleteRoom removes the room and cascades to its beds.
func (s *Store) DeleteRoom(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findRoom(id) == nil {
		return fmt.Errorf("%w: room %s", ErrNotFound, id)
	}
	s.removeRoomCascade(id)
	return nil
}

// removeRoomCascade deletes the room, its beds and its amenity index entry.
// Caller holds the lock.
func (s *Store) removeRoomCascade(roomID string) {
	for i, r := range s.rooms {
		if r.ID == roomID {
			s.rooms = append(s.rooms[:i], s.rooms[i+1:]...)
			break
		}
	}

	kept := s.beds[:0]
	for _, b := range s.beds {
		if b.RoomID == roomID {
			if s.selected.BedID == b.ID {
				s.selected.BedID = ""
			}
			continue
		}
		kept = append(kept, b)
	}
	s.beds = kept

	delete(s.bedAmenitiesByRoom, roomID)
	if s.selected.RoomID == roomID {
		s.selected.RoomID = ""
	}
}

// -- Bed operations --

// AddBeds creates count beds in roomID. Numbering continues from the highest
// bed number still live in the room, so a number freed by deletion is never
// reused and the sequence can have gaps. Each bed is seeded with the room's
// amenity set as of this call.
func (s *Store) AddBeds(roomID string, count int) ([]*Bed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if count <= 0 {
		return nil, fmt.Errorf("%w: bed count must be positive", ErrValidation)
	}
	room := s.findRoom(roomID)
	if room == nil {
		return nil, fmt.Errorf("%w: room %s", ErrNotFound, roomID)
	}

	highest := 0
	for _, b := range s.beds {
		if b.RoomID == roomID && b.Number > highest {
			highest = b.Number
		}
	}

	created := make([]*Bed, 0, count)
	for i := 0; i < count; i++ {
		n := highest + i + 1
		bed := &Bed{
			ID:        NewLocalID(KindBed),
			Name:      fmt.Sprintf("Bed %d", n),
			Number:    n,
			RoomID:    roomID,
			Status:    BedAvailable,
			Amenities: cloneAmenities(room.Amenities),
		}
		s.beds = append(s.beds, bed)
		created = append(created, bed)
	}
	s.bedAmenitiesByRoom[roomID] = unionAmenities(s.bedAmenitiesByRoom[roomID], room.Amenities)
	return created, nil
}

// DeleteBed removes a single bed. Leaf level, no cascade.
func (s *Store) DeleteBed(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, b := range s.beds {
		if b.ID == id {
			s.beds = append(s.beds[:i], s.beds[i+1:]...)
			if s.selected.BedID == id {
				s.selected.BedID = ""
			}
			return nil
		}
	}
	return fmt.Errorf("%w: bed %s", ErrNotFound, id)
}

// -- Amenity toggle --

// ToggleAmenity flips amenityID on the room or bed's amenity set. When the
// toggle adds a value it is also unioned into the matching index map; a
// toggle-off never shrinks the index, only cascade deletes do.
func (s *Store) ToggleAmenity(level AmenityLevel, entityID, amenityID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amenityID == "" {
		return false, fmt.Errorf("%w: amenity id is required", ErrValidation)
	}

	switch level {
	case LevelRoom:
		room := s.findRoom(entityID)
		if room == nil {
			return false, fmt.Errorf("%w: room %s", ErrNotFound, entityID)
		}
		var added bool
		room.Amenities, added = toggleAmenity(room.Amenities, amenityID)
		if added {
			s.roomAmenitiesByWard[room.WardID] = unionAmenities(s.roomAmenitiesByWard[room.WardID], []string{amenityID})
		}
		return added, nil
	case LevelBed:
		bed := s.findBed(entityID)
		if bed == nil {
			return false, fmt.Errorf("%w: bed %s", ErrNotFound, entityID)
		}
		var added bool
		bed.Amenities, added = toggleAmenity(bed.Amenities, amenityID)
		if added {
			s.bedAmenitiesByRoom[bed.RoomID] = unionAmenities(s.bedAmenitiesByRoom[bed.RoomID], []string{amenityID})
		}
		return added, nil
	default:
		return false, fmt.Errorf("%w: unknown amenity level %q", ErrValidation, level)
	}
}

// -- Selection --

// SetSelection records the wizard's current ward/room/bed. Any id that does
// not resolve is rejected so the selection never dangles.
func (s *Store) SetSelection(sel Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sel.WardID != "" && s.findWard(sel.WardID) == nil {
		return fmt.Errorf("%w: ward %s", ErrNotFound, sel.WardID)
	}
	if sel.RoomID != "" && s.findRoom(sel.RoomID) == nil {
		return fmt.Errorf("%w: room %s", ErrNotFound, sel.RoomID)
	}
	if sel.BedID != "" && s.findBed(sel.BedID) == nil {
		return fmt.Errorf("%w: bed %s", ErrNotFound, sel.BedID)
	}
	s.selected = sel
	return nil
}

// Selection returns the current (possibly empty) selection.
func (s *Store) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// -- Read-only views --

// View is a copy of the aggregate handed to rendering collaborators.
type View struct {
	Departments         []Department        `json:"departments"`
	Wards               []Ward              `json:"wards"`
	Rooms               []Room              `json:"rooms"`
	Beds                []Bed               `json:"beds"`
	RoomAmenitiesByWard map[string][]string `json:"room_amenities_by_ward"`
	BedAmenitiesByRoom  map[string][]string `json:"bed_amenities_by_room"`
	Selected            Selection           `json:"selected"`
}

// Snapshot returns a deep copy of the aggregate for rendering.
func (s *Store) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Departments:         make([]Department, 0, len(s.departments)),
		Wards:               make([]Ward, 0, len(s.wards)),
		Rooms:               make([]Room, 0, len(s.rooms)),
		Beds:                make([]Bed, 0, len(s.beds)),
		RoomAmenitiesByWard: make(map[string][]string, len(s.roomAmenitiesByWard)),
		BedAmenitiesByRoom:  make(map[string][]string, len(s.bedAmenitiesByRoom)),
		Selected:            s.selected,
	}
	for _, d := range s.departments {
		v.Departments = append(v.Departments, *d)
	}
	for _, w := range s.wards {
		v.Wards = append(v.Wards, *w)
	}
	for _, r := range s.rooms {
		room := *r
		room.Amenities = cloneAmenities(r.Amenities)
		v.Rooms = append(v.Rooms, room)
	}
	for _, b := range s.beds {
		bed := *b
		bed.Amenities = cloneAmenities(b.Amenities)
		v.Beds = append(v.Beds, bed)
	}
	for k, a := range s.roomAmenitiesByWard {
		v.RoomAmenitiesByWard[k] = cloneAmenities(a)
	}
	for k, a := range s.bedAmenitiesByRoom {
		v.BedAmenitiesByRoom[k] = cloneAmenities(a)
	}
	return v
}

// WardRoomDefaults returns the ward's accumulated room-amenity defaults,
// the usual seed for a new room.
func (s *Store) WardRoomDefaults(wardID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAmenities(s.roomAmenitiesByWard[wardID])
}

// BedTally is the derived bed count breakdown used in save summaries.
type BedTally struct {
	Total       int `json:"total"`
	Available   int `json:"available"`
	Occupied    int `json:"occupied"`
	Maintenance int `json:"maintenance"`
	Reserved    int `json:"reserved"`
}

// CountBeds tallies beds by status.
func (s *Store) CountBeds() BedTally {
	s.mu.Lock()
	defer s.mu.Unlock()

	var t BedTally
	for _, b := range s.beds {
		t.Total++
		switch b.Status {
		case BedOccupied:
			t.Occupied++
		case BedMaintenance:
			t.Maintenance++
		case BedReserved:
			t.Reserved++
		default:
			t.Available++
		}
	}
	return t
}
