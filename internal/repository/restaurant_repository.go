// Package repository contains data access logic separated from HTTP handlers.
// This file defines the restaurant document store.  A restaurant and its
// table inventory are read and written as one unit so that the version
// column can serve as the compare-and-swap token for every mutation.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

// RestaurantRepo encapsulates all database queries related to restaurants.
// It works against MySQL and SQLite; the SQL used here is the common
// subset of both dialects.
type RestaurantRepo struct {
	db *sql.DB // db is the underlying database connection pool
}

// NewRestaurantRepo constructs a RestaurantRepo with the provided DB handle.
func NewRestaurantRepo(db *sql.DB) *RestaurantRepo {
	return &RestaurantRepo{db: db}
}

const restaurantColumns = `id, admin_id, name, location, open_time, close_time, capacity, tables_json, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRestaurant(row rowScanner) (*model.Restaurant, error) {
	var (
		r         model.Restaurant
		tablesRaw []byte
	)
	if err := row.Scan(&r.ID, &r.AdminID, &r.Name, &r.Location, &r.OpenTime, &r.CloseTime,
		&r.Capacity, &tablesRaw, &r.Version, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tablesRaw, &r.Tables); err != nil {
		return nil, fmt.Errorf("decode tables of restaurant %d: %w", r.ID, err)
	}
	if r.Tables == nil {
		r.Tables = []model.Table{}
	}
	return &r, nil
}

// GetByID fetches a restaurant with its tables.  It returns
// ErrRestaurantNotFound if no row is found.
func (r *RestaurantRepo) GetByID(ctx context.Context, id uint64) (*model.Restaurant, error) {
	q := "SELECT " + restaurantColumns + " FROM restaurants WHERE id = ?"
	rest, err := scanRestaurant(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRestaurantNotFound
	}
	return rest, err
}

// GetByAdmin fetches the restaurant owned by adminID.  It returns
// ErrRestaurantNotFound when the admin has not created one yet.
func (r *RestaurantRepo) GetByAdmin(ctx context.Context, adminID uint64) (*model.Restaurant, error) {
	q := "SELECT " + restaurantColumns + " FROM restaurants WHERE admin_id = ?"
	rest, err := scanRestaurant(r.db.QueryRowContext(ctx, q, adminID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRestaurantNotFound
	}
	return rest, err
}

// List returns every restaurant ordered by name, then id.  The result is
// a snapshot; concurrent writers may commit while rows are being read.
func (r *RestaurantRepo) List(ctx context.Context) ([]model.Restaurant, error) {
	q := "SELECT " + restaurantColumns + " FROM restaurants ORDER BY name ASC, id ASC"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Restaurant{}
	for rows.Next() {
		rest, err := scanRestaurant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rest)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a new restaurant.  On success ID, Version, CreatedAt and
// UpdatedAt are populated on rest.  A second restaurant for the same
// admin yields ErrAdminHasRestaurant.
func (r *RestaurantRepo) Create(ctx context.Context, rest *model.Restaurant) error {
	tablesJSON, err := json.Marshal(rest.Tables)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Truncate(time.Second)
	const q = `INSERT INTO restaurants (admin_id, name, location, open_time, close_time, capacity, tables_json, version, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, rest.AdminID, rest.Name, rest.Location, rest.OpenTime,
		rest.CloseTime, rest.Capacity, string(tablesJSON), now, now)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrAdminHasRestaurant
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rest.ID = uint64(id)
	rest.Version = 1
	rest.CreatedAt = now
	rest.UpdatedAt = now
	return nil
}

// UpdateIfVersion writes every mutable column of rest, but only if the
// stored version still equals expected.  On success rest.Version is
// advanced to the new stored value.  When another writer got there first
// no row matches and ErrVersionConflict is returned; a restaurant that
// does not exist at all yields ErrRestaurantNotFound.
func (r *RestaurantRepo) UpdateIfVersion(ctx context.Context, rest *model.Restaurant, expected uint64) error {
	tablesJSON, err := json.Marshal(rest.Tables)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Truncate(time.Second)
	const q = `UPDATE restaurants
	           SET name = ?, location = ?, open_time = ?, close_time = ?, capacity = ?, tables_json = ?,
	               version = version + 1, updated_at = ?
	           WHERE id = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, q, rest.Name, rest.Location, rest.OpenTime, rest.CloseTime,
		rest.Capacity, string(tablesJSON), now, rest.ID, expected)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		err := r.db.QueryRowContext(ctx, "SELECT 1 FROM restaurants WHERE id = ?", rest.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRestaurantNotFound
		}
		if err != nil {
			return err
		}
		return ErrVersionConflict
	}
	rest.Version = expected + 1
	rest.UpdatedAt = now
	return nil
}
