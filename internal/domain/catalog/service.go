package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var ErrNotFound = errors.New("not found")

// Service fronts the catalog repository with a short-lived read cache.
// Catalogs change rarely; the facility wizard hits them on every session
// open and every ward creation.
type Service struct {
	repo Repository
	log  zerolog.Logger

	mu        sync.Mutex
	wardTypes map[int]string
	cachedAt  time.Time
	cacheTTL  time.Duration
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		log:      log.With().Str("component", "catalog").Logger(),
		cacheTTL: 5 * time.Minute,
	}
}

func (s *Service) ListSpecializations(ctx context.Context) ([]Specialization, error) {
	return s.repo.ListSpecializations(ctx)
}

func (s *Service) ListWardTypes(ctx context.Context) ([]WardType, error) {
	return s.repo.ListWardTypes(ctx)
}

func (s *Service) ListAmenities(ctx context.Context, level AmenityLevel, limit, offset int) ([]Amenity, int, error) {
	return s.repo.ListAmenities(ctx, level, limit, offset)
}

// WardTypeName resolves a ward type id to its display name, caching the
// whole table on first use.
func (s *Service) WardTypeName(ctx context.Context, id int) (string, error) {
	s.mu.Lock()
	fresh := s.wardTypes != nil && time.Since(s.cachedAt) < s.cacheTTL
	if fresh {
		name, ok := s.wardTypes[id]
		s.mu.Unlock()
		if ok {
			return name, nil
		}
		return "", ErrNotFound
	}
	s.mu.Unlock()

	types, err := s.repo.ListWardTypes(ctx)
	if err != nil {
		return "", err
	}

	byID := make(map[int]string, len(types))
	for _, t := range types {
		byID[t.ID] = t.Name
	}

	s.mu.Lock()
	s.wardTypes = byID
	s.cachedAt = time.Now()
	name, ok := s.wardTypes[id]
	s.mu.Unlock()

	if !ok {
		return "", ErrNotFound
	}
	return name, nil
}
