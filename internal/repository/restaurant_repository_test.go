package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/database"
	"github.com/iliyamo/table-reservation/internal/model"
)

type restaurantStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Restaurant, error)
	GetByAdmin(ctx context.Context, adminID uint64) (*model.Restaurant, error)
	List(ctx context.Context) ([]model.Restaurant, error)
	Create(ctx context.Context, rest *model.Restaurant) error
	UpdateIfVersion(ctx context.Context, rest *model.Restaurant, expected uint64) error
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, database.DialectSQLite))
	return db
}

// stores returns a fresh instance of every store implementation.
func stores(t *testing.T) map[string]restaurantStore {
	return map[string]restaurantStore{
		"sqlite": NewRestaurantRepo(openTestDB(t)),
		"memory": NewMemoryStore(),
	}
}

func newRestaurant(adminID uint64, name string, capacity int) *model.Restaurant {
	return &model.Restaurant{
		AdminID:   adminID,
		Name:      name,
		Location:  "Main St 1",
		OpenTime:  "09:00",
		CloseTime: "23:00",
		Capacity:  capacity,
		Tables:    model.NewInventory(capacity),
	}
}

func TestStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			r := newRestaurant(10, "Trattoria", 3)
			require.NoError(t, s.Create(ctx, r))
			assert.NotZero(t, r.ID)
			assert.Equal(t, uint64(1), r.Version)

			got, err := s.GetByID(ctx, r.ID)
			require.NoError(t, err)
			assert.Equal(t, "Trattoria", got.Name)
			assert.Equal(t, uint64(10), got.AdminID)
			require.Len(t, got.Tables, 3)
			assert.Equal(t, model.TableFree, got.Tables[2].Status)

			byAdmin, err := s.GetByAdmin(ctx, 10)
			require.NoError(t, err)
			assert.Equal(t, r.ID, byAdmin.ID)

			_, err = s.GetByID(ctx, r.ID+100)
			assert.ErrorIs(t, err, ErrRestaurantNotFound)
			_, err = s.GetByAdmin(ctx, 99)
			assert.ErrorIs(t, err, ErrRestaurantNotFound)
		})
	}
}

func TestStoreRejectsSecondRestaurantForAdmin(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Create(ctx, newRestaurant(1, "First", 1)))
			err := s.Create(ctx, newRestaurant(1, "Second", 2))
			assert.ErrorIs(t, err, ErrAdminHasRestaurant)
		})
	}
}

func TestStoreUpdateIfVersion(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			r := newRestaurant(1, "Bistro", 2)
			require.NoError(t, s.Create(ctx, r))

			first, err := s.GetByID(ctx, r.ID)
			require.NoError(t, err)
			second, err := s.GetByID(ctx, r.ID)
			require.NoError(t, err)

			first.Tables[0].Book(7, "Alice", "555", "19:00")
			require.NoError(t, s.UpdateIfVersion(ctx, first, 1))
			assert.Equal(t, uint64(2), first.Version)

			// second still holds version 1 and must lose
			second.Tables[1].Book(8, "Bob", "556", "20:00")
			assert.ErrorIs(t, s.UpdateIfVersion(ctx, second, 1), ErrVersionConflict)

			got, err := s.GetByID(ctx, r.ID)
			require.NoError(t, err)
			assert.Equal(t, uint64(2), got.Version)
			assert.Equal(t, uint64(7), got.Tables[0].BookedBy)
			assert.False(t, got.Tables[1].IsBooked())

			missing := newRestaurant(5, "Ghost", 1)
			missing.ID = 999
			assert.ErrorIs(t, s.UpdateIfVersion(ctx, missing, 1), ErrRestaurantNotFound)
		})
	}
}

func TestStoreListSortedByName(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Create(ctx, newRestaurant(1, "Zucca", 1)))
			require.NoError(t, s.Create(ctx, newRestaurant(2, "Anchor", 2)))
			require.NoError(t, s.Create(ctx, newRestaurant(3, "Mezze", 0)))

			list, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 3)
			assert.Equal(t, "Anchor", list[0].Name)
			assert.Equal(t, "Mezze", list[1].Name)
			assert.Empty(t, list[1].Tables)
			assert.Equal(t, "Zucca", list[2].Name)
		})
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	r := newRestaurant(1, "Copy", 1)
	require.NoError(t, s.Create(ctx, r))

	r.Tables[0].Book(1, "x", "y", "z")
	got, err := s.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, got.Tables[0].IsBooked())
}
