package catalog

// Specialization is a hospital specialization (Cardiology, Oncology, ...)
// that a department can be configured for.
type Specialization struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// WardType is a configurable ward category (ICU, General, Maternity, ...).
type WardType struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// AmenityLevel distinguishes amenities offered per room from amenities
// offered per bed.
type AmenityLevel string

const (
	AmenityRoom AmenityLevel = "room"
	AmenityBed  AmenityLevel = "bed"
)

// Amenity is a catalog entry referenced from room and bed configurations
// by its integer id.
type Amenity struct {
	ID    int          `json:"id"`
	Name  string       `json:"name"`
	Level AmenityLevel `json:"level"`
}
