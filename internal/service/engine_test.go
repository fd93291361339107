package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyBooking(ctx context.Context, ev queue.BookingConfirmedEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

// conflictStore loses every compare-and-swap.
type conflictStore struct {
	*repository.MemoryStore
	updates atomic.Int32
}

func (s *conflictStore) UpdateIfVersion(context.Context, *model.Restaurant, uint64) error {
	s.updates.Add(1)
	return repository.ErrVersionConflict
}

// flakyStore loses the first n compare-and-swaps, then behaves.
type flakyStore struct {
	*repository.MemoryStore
	remaining atomic.Int32
}

func (s *flakyStore) UpdateIfVersion(ctx context.Context, rest *model.Restaurant, expected uint64) error {
	if s.remaining.Add(-1) >= 0 {
		return repository.ErrVersionConflict
	}
	return s.MemoryStore.UpdateIfVersion(ctx, rest, expected)
}

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func newTestEngine(t *testing.T, store RestaurantStore, n Notifier) (*Engine, *Directory) {
	t.Helper()
	eng := NewEngine(store, n, testLogger(), Options{MaxAttempts: 5})
	t.Cleanup(eng.Wait)
	return eng, NewDirectory(store, eng, testLogger())
}

var luigis = Details{Name: "Luigi's", Location: "Main St", OpenTime: "10:00", CloseTime: "22:00"}

func seed(t *testing.T, dir *Directory, adminID uint64, d Details, capacity int) *model.Restaurant {
	t.Helper()
	r, err := dir.Upsert(context.Background(), adminID, d, capacity)
	require.NoError(t, err)
	return r
}

func TestReserveAndCancelScenario(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	eng, dir := newTestEngine(t, store, nil)
	r := seed(t, dir, 1, luigis, 4)

	ref, err := eng.Reserve(ctx, r.ID, 2, 42, "Alice", "5551234567", "19:00")
	require.NoError(t, err)
	assert.Equal(t, model.BookingRef(r.ID, 2), ref)

	list, err := dir.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	tbl := list[0].Tables[1]
	assert.Equal(t, model.TableBooked, tbl.Status)
	assert.Equal(t, uint64(42), tbl.BookedBy)
	assert.Equal(t, "Alice", tbl.PartyName)
	assert.Equal(t, "5551234567", tbl.PartyPhone)
	assert.Equal(t, "19:00", tbl.TimeLabel)

	_, err = eng.Reserve(ctx, r.ID, 2, 43, "Bob", "5550000000", "20:00")
	assert.ErrorIs(t, err, ErrAlreadyBooked)

	assert.ErrorIs(t, eng.Cancel(ctx, ref, 43), ErrForbidden)
	require.NoError(t, eng.Cancel(ctx, ref, 42))
	assert.ErrorIs(t, eng.Cancel(ctx, ref, 42), ErrNotBooked)

	ref2, err := eng.Reserve(ctx, r.ID, 2, 43, "Bob", "5550000000", "20:00")
	require.NoError(t, err)
	assert.Equal(t, ref, ref2)
}

func TestResizeDiscardsBookingsScenario(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	eng, dir := newTestEngine(t, store, nil)
	r := seed(t, dir, 1, luigis, 3)

	_, err := eng.Reserve(ctx, r.ID, 1, 42, "Alice", "555", "19:00")
	require.NoError(t, err)

	assert.ErrorIs(t, eng.ResizeInventory(ctx, r.ID, 5, 2), ErrForbidden)
	require.NoError(t, eng.ResizeInventory(ctx, r.ID, 5, 1))

	got, err := store.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Capacity)
	require.Len(t, got.Tables, 5)
	for i, tbl := range got.Tables {
		assert.Equal(t, i+1, tbl.Number)
		assert.Equal(t, model.TableFree, tbl.Status)
	}

	bookings, err := dir.GetBookingsForCaller(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestResizeSameCapacityKeepsBookings(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	eng, dir := newTestEngine(t, store, nil)
	r := seed(t, dir, 1, luigis, 3)

	_, err := eng.Reserve(ctx, r.ID, 3, 42, "Alice", "555", "19:00")
	require.NoError(t, err)
	before, _ := store.GetByID(ctx, r.ID)

	require.NoError(t, eng.ResizeInventory(ctx, r.ID, 3, 1))
	after, _ := store.GetByID(ctx, r.ID)
	assert.Equal(t, before.Version, after.Version)
	assert.True(t, after.Tables[2].IsBooked())
}

func TestResizeToZero(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	eng, dir := newTestEngine(t, store, nil)
	r := seed(t, dir, 1, luigis, 2)

	require.NoError(t, eng.ResizeInventory(ctx, r.ID, 0, 1))
	_, err := eng.Reserve(ctx, r.ID, 1, 42, "Alice", "555", "19:00")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, eng.ResizeInventory(ctx, r.ID, -1, 1), ErrInvalidInput)
	assert.ErrorIs(t, eng.ResizeInventory(ctx, r.ID, MaxCapacity+1, 1), ErrInvalidInput)
}

func TestUpdateDetailsKeepsTables(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	eng, dir := newTestEngine(t, store, nil)
	r := seed(t, dir, 1, luigis, 2)
	_, err := eng.Reserve(ctx, r.ID, 1, 42, "Alice", "555", "19:00")
	require.NoError(t, err)

	d := luigis
	d.Name = "Luigi's Trattoria"
	require.NoError(t, eng.UpdateDetails(ctx, r.ID, 1, d))
	assert.ErrorIs(t, eng.UpdateDetails(ctx, r.ID, 9, d), ErrForbidden)
	assert.ErrorIs(t, eng.UpdateDetails(ctx, r.ID, 1, Details{Name: "x"}), ErrInvalidInput)

	got, _ := store.GetByID(ctx, r.ID)
	assert.Equal(t, "Luigi's Trattoria", got.Name)
	assert.True(t, got.Tables[0].IsBooked())
}

func TestReserveValidation(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	eng, dir := newTestEngine(t, store, nil)
	r := seed(t, dir, 1, luigis, 2)

	_, err := eng.Reserve(ctx, r.ID, 1, 42, "  ", "555", "19:00")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "party_name")

	_, err = eng.Reserve(ctx, r.ID, 3, 42, "Alice", "555", "19:00")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = eng.Reserve(ctx, r.ID, 0, 42, "Alice", "555", "19:00")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = eng.Reserve(ctx, 999, 1, 42, "Alice", "555", "19:00")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, eng.Cancel(ctx, "garbage", 42), ErrInvalidInput)
	assert.ErrorIs(t, eng.Cancel(ctx, model.BookingRef(r.ID, 9), 42), ErrNotFound)
}

func TestAdminRelease(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	eng, dir := newTestEngine(t, store, nil)
	mine := seed(t, dir, 1, luigis, 2)
	other := seed(t, dir, 2, Details{Name: "Other", Location: "x", OpenTime: "9", CloseTime: "5"}, 2)

	_, err := eng.Reserve(ctx, mine.ID, 2, 42, "Alice", "555", "19:00")
	require.NoError(t, err)
	_, err = eng.Reserve(ctx, other.ID, 2, 42, "Alice", "555", "19:00")
	require.NoError(t, err)

	assert.ErrorIs(t, eng.AdminRelease(ctx, other.ID, 2, 1), ErrForbidden)
	require.NoError(t, eng.AdminRelease(ctx, mine.ID, 2, 1))
	assert.ErrorIs(t, eng.AdminRelease(ctx, mine.ID, 2, 1), ErrNotBooked)
	assert.ErrorIs(t, eng.AdminRelease(ctx, mine.ID, 5, 1), ErrNotFound)

	got, _ := store.GetByID(ctx, other.ID)
	assert.True(t, got.Tables[1].IsBooked())
}

func TestConcurrentReserveSameTable(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	eng, dir := newTestEngine(t, store, nil)
	r := seed(t, dir, 1, luigis, 4)

	const callers = 20
	var wins, lost atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(caller uint64) {
			defer wg.Done()
			_, err := eng.Reserve(ctx, r.ID, 2, caller, "Party", "555", "19:00")
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrAlreadyBooked):
				lost.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(uint64(100 + i))
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(callers-1), lost.Load())
}

func TestConcurrentReserveDifferentTables(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	eng := NewEngine(store, nil, testLogger(), Options{MaxAttempts: 50})
	dir := NewDirectory(store, eng, testLogger())
	r := seed(t, dir, 1, luigis, 10)

	var wg sync.WaitGroup
	for n := 1; n <= 10; n++ {
		wg.Add(1)
		go func(table int) {
			defer wg.Done()
			_, err := eng.Reserve(ctx, r.ID, table, uint64(table), "Party", "555", "19:00")
			assert.NoError(t, err)
		}(n)
	}
	wg.Wait()

	got, _ := store.GetByID(ctx, r.ID)
	assert.Equal(t, 10, got.BookedCount())
	for _, tbl := range got.Tables {
		assert.Equal(t, uint64(tbl.Number), tbl.BookedBy)
	}
}

func TestConcurrentCancelOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	eng, dir := newTestEngine(t, store, nil)
	r := seed(t, dir, 1, luigis, 2)
	ref, err := eng.Reserve(ctx, r.ID, 1, 42, "Alice", "555", "19:00")
	require.NoError(t, err)

	var ok, notBooked atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch err := eng.Cancel(ctx, ref, 42); {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrNotBooked):
				notBooked.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(7), notBooked.Load())
}

func TestTransientConflictAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	store := &conflictStore{MemoryStore: repository.NewMemoryStore()}
	rest := &model.Restaurant{AdminID: 1, Name: "Luigi's", Capacity: 2, Tables: model.NewInventory(2)}
	require.NoError(t, store.Create(ctx, rest))

	eng := NewEngine(store, nil, testLogger(), Options{MaxAttempts: 3})
	_, err := eng.Reserve(ctx, rest.ID, 1, 42, "Alice", "555", "19:00")
	assert.ErrorIs(t, err, ErrTransientConflict)
	assert.Equal(t, int32(3), store.updates.Load())

	got, _ := store.GetByID(ctx, rest.ID)
	assert.False(t, got.Tables[0].IsBooked())
}

func TestRetryRecoversFromConflict(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: repository.NewMemoryStore()}
	store.remaining.Store(2)
	rest := &model.Restaurant{AdminID: 1, Name: "Luigi's", Capacity: 2, Tables: model.NewInventory(2)}
	require.NoError(t, store.MemoryStore.Create(ctx, rest))

	eng := NewEngine(store, nil, testLogger(), Options{MaxAttempts: 3})
	_, err := eng.Reserve(ctx, rest.ID, 1, 42, "Alice", "555", "19:00")
	require.NoError(t, err)
	got, _ := store.GetByID(ctx, rest.ID)
	assert.True(t, got.Tables[0].IsBooked())
}

func TestReserveNotifies(t *testing.T) {
	ctx := context.Background()
	n := &mockNotifier{}
	n.On("NotifyBooking", mock.Anything, mock.MatchedBy(func(ev queue.BookingConfirmedEvent) bool {
		return ev.TableNumber == 2 && ev.UserID == 42 && ev.RestaurantName == "Luigi's" && ev.PartyName == "Alice"
	})).Return(nil).Once()

	store := repository.NewMemoryStore()
	eng, dir := newTestEngine(t, store, n)
	r := seed(t, dir, 1, luigis, 3)

	ref, err := eng.Reserve(ctx, r.ID, 2, 42, "Alice", "555", "19:00")
	require.NoError(t, err)
	eng.Wait()
	n.AssertExpectations(t)
	assert.Equal(t, ref, n.Calls[0].Arguments.Get(1).(queue.BookingConfirmedEvent).BookingRef)
}

func TestNotifierFailureKeepsBooking(t *testing.T) {
	ctx := context.Background()
	n := &mockNotifier{}
	n.On("NotifyBooking", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	store := repository.NewMemoryStore()
	eng, dir := newTestEngine(t, store, n)
	r := seed(t, dir, 1, luigis, 3)

	_, err := eng.Reserve(ctx, r.ID, 1, 42, "Alice", "555", "19:00")
	require.NoError(t, err)
	eng.Wait()

	got, _ := store.GetByID(ctx, r.ID)
	assert.True(t, got.Tables[0].IsBooked())
	n.AssertNumberOfCalls(t, "NotifyBooking", 1)
}

func TestReserveSurvivesCancelledContextAfterRead(t *testing.T) {
	store := repository.NewMemoryStore()
	eng, dir := newTestEngine(t, store, nil)
	r := seed(t, dir, 1, luigis, 2)

	// MemoryStore ignores ctx on reads, so this only exercises the detached write.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := eng.Reserve(ctx, r.ID, 1, 42, "Alice", "555", "19:00")
	require.NoError(t, err)
}
