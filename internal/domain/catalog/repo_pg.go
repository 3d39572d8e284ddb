package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) ListSpecializations(ctx context.Context) ([]Specialization, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, COALESCE(description, '') FROM specialization ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list specializations: %w", err)
	}
	defer rows.Close()

	var out []Specialization
	for rows.Next() {
		var s Specialization
		if err := rows.Scan(&s.ID, &s.Name, &s.Description); err != nil {
			return nil, fmt.Errorf("scan specialization: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repoPG) ListWardTypes(ctx context.Context) ([]WardType, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, COALESCE(description, '') FROM ward_type ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list ward types: %w", err)
	}
	defer rows.Close()

	var out []WardType
	for rows.Next() {
		var w WardType
		if err := rows.Scan(&w.ID, &w.Name, &w.Description); err != nil {
			return nil, fmt.Errorf("scan ward type: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *repoPG) GetWardType(ctx context.Context, id int) (*WardType, error) {
	var w WardType
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(description, '') FROM ward_type WHERE id = $1`, id,
	).Scan(&w.ID, &w.Name, &w.Description)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("%w: ward type %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get ward type %d: %w", id, err)
	}
	return &w, nil
}

func (r *repoPG) ListAmenities(ctx context.Context, level AmenityLevel, limit, offset int) ([]Amenity, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM amenity WHERE level = $1`, string(level)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count amenities: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, name, level FROM amenity WHERE level = $1 ORDER BY id LIMIT $2 OFFSET $3`,
		string(level), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list amenities: %w", err)
	}
	defer rows.Close()

	var out []Amenity
	for rows.Next() {
		var a Amenity
		if err := rows.Scan(&a.ID, &a.Name, &a.Level); err != nil {
			return nil, 0, fmt.Errorf("scan amenity: %w", err)
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}
