package catalog

import "context"

// Repository provides read access to the configuration catalogs. Catalogs
// are seeded by migrations and administered out of band.
type Repository interface {
	ListSpecializations(ctx context.Context) ([]Specialization, error)
	ListWardTypes(ctx context.Context) ([]WardType, error)
	GetWardType(ctx context.Context, id int) (*WardType, error)
	ListAmenities(ctx context.Context, level AmenityLevel, limit, offset int) ([]Amenity, int, error)
}
