package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

func TestUpsertCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	eng, dir := newTestEngine(t, store, nil)

	r := seed(t, dir, 1, luigis, 3)
	assert.Equal(t, uint64(1), r.AdminID)
	assert.Len(t, r.Tables, 3)

	_, err := eng.Reserve(ctx, r.ID, 2, 42, "Alice", "555", "19:00")
	require.NoError(t, err)

	d := luigis
	d.Location = "Second Ave"
	updated, err := dir.Upsert(ctx, 1, d, 3)
	require.NoError(t, err)
	assert.Equal(t, r.ID, updated.ID)
	assert.Equal(t, "Second Ave", updated.Location)
	assert.True(t, updated.Tables[1].IsBooked(), "same capacity must keep bookings")

	resized, err := dir.Upsert(ctx, 1, d, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, resized.Capacity)
	assert.Zero(t, resized.BookedCount())

	all, err := dir.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpsertValidation(t *testing.T) {
	ctx := context.Background()
	_, dir := newTestEngine(t, repository.NewMemoryStore(), nil)

	_, err := dir.Upsert(ctx, 0, luigis, 3)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = dir.Upsert(ctx, 1, Details{Name: "Luigi's"}, 3)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "location")

	_, err = dir.Upsert(ctx, 1, luigis, -2)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestConcurrentUpsertSameAdminCreatesOne(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	_, dir := newTestEngine(t, store, nil)

	var wg sync.WaitGroup
	ids := make([]uint64, 6)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := dir.Upsert(ctx, 7, luigis, 3)
			if assert.NoError(t, err) {
				ids[i] = r.ID
			}
		}(i)
	}
	wg.Wait()

	all, err := dir.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	for _, id := range ids {
		assert.Equal(t, all[0].ID, id)
	}
}

func TestGetByAdmin(t *testing.T) {
	ctx := context.Background()
	_, dir := newTestEngine(t, repository.NewMemoryStore(), nil)

	_, err := dir.GetByAdmin(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	seed(t, dir, 1, luigis, 2)
	r, err := dir.GetByAdmin(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Luigi's", r.Name)
}

func TestListAllEmptyAndSorted(t *testing.T) {
	ctx := context.Background()
	_, dir := newTestEngine(t, repository.NewMemoryStore(), nil)

	all, err := dir.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	seed(t, dir, 1, Details{Name: "Zeta", Location: "a", OpenTime: "9", CloseTime: "5"}, 1)
	seed(t, dir, 2, Details{Name: "Alpha", Location: "b", OpenTime: "9", CloseTime: "5"}, 1)
	all, err = dir.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Alpha", all[0].Name)
	assert.Equal(t, "Zeta", all[1].Name)
}

func TestGetBookingsForCaller(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	eng, dir := newTestEngine(t, store, nil)
	zeta := seed(t, dir, 1, Details{Name: "Zeta", Location: "a", OpenTime: "9", CloseTime: "5"}, 4)
	alpha := seed(t, dir, 2, Details{Name: "Alpha", Location: "b", OpenTime: "9", CloseTime: "5"}, 4)

	for _, b := range []struct {
		rest   uint64
		table  int
		caller uint64
	}{
		{zeta.ID, 3, 42}, {alpha.ID, 4, 42}, {alpha.ID, 1, 42}, {zeta.ID, 1, 43},
	} {
		_, err := eng.Reserve(ctx, b.rest, b.table, b.caller, "Alice", "555", "19:00")
		require.NoError(t, err)
	}

	got, err := dir.GetBookingsForCaller(ctx, 42)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, model.BookingRef(alpha.ID, 1), got[0].BookingRef)
	assert.Equal(t, model.BookingRef(alpha.ID, 4), got[1].BookingRef)
	assert.Equal(t, model.BookingRef(zeta.ID, 3), got[2].BookingRef)
	assert.Equal(t, "Zeta", got[2].RestaurantName)
	assert.Equal(t, "19:00", got[2].TimeLabel)

	none, err := dir.GetBookingsForCaller(ctx, 99)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
