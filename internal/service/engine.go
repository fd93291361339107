// Package service holds the reservation engine and the restaurant
// directory.  The engine is the only code that mutates table booking
// state; every mutation is a read-modify-write of the whole restaurant
// document guarded by the store's version compare-and-swap.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/table-reservation/internal/metrics"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// MaxCapacity bounds the number of tables a restaurant may declare, since
// the whole inventory is stored in one document.
const MaxCapacity = 500

// RestaurantStore is the persistence the engine needs: document reads and
// a conditional write.  UpdateIfVersion must fail with
// repository.ErrVersionConflict when the stored version differs from
// expected, and must apply all columns or none.
type RestaurantStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Restaurant, error)
	GetByAdmin(ctx context.Context, adminID uint64) (*model.Restaurant, error)
	List(ctx context.Context) ([]model.Restaurant, error)
	Create(ctx context.Context, rest *model.Restaurant) error
	UpdateIfVersion(ctx context.Context, rest *model.Restaurant, expected uint64) error
}

// Notifier receives confirmed bookings.  Delivery is best effort.
type Notifier interface {
	NotifyBooking(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// Details are the descriptive fields of a restaurant.  Changing them
// never touches the table inventory.
type Details struct {
	Name      string `json:"name"`
	Location  string `json:"location"`
	OpenTime  string `json:"open_time"`
	CloseTime string `json:"close_time"`
}

func (d Details) normalized() Details {
	return Details{
		Name:      strings.TrimSpace(d.Name),
		Location:  strings.TrimSpace(d.Location),
		OpenTime:  strings.TrimSpace(d.OpenTime),
		CloseTime: strings.TrimSpace(d.CloseTime),
	}
}

func (d Details) validate() error {
	var missing []string
	if d.Name == "" {
		missing = append(missing, "name")
	}
	if d.Location == "" {
		missing = append(missing, "location")
	}
	if d.OpenTime == "" {
		missing = append(missing, "open_time")
	}
	if d.CloseTime == "" {
		missing = append(missing, "close_time")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

func validateCapacity(n int) error {
	if n < 0 || n > MaxCapacity {
		return fmt.Errorf("%w: capacity must be between 0 and %d", ErrInvalidInput, MaxCapacity)
	}
	return nil
}

// Options tunes the engine.  Zero values select the defaults.
type Options struct {
	MaxAttempts   int           // read-modify-write attempts per mutation, default 5
	RetryBackoff  time.Duration // upper bound of the jittered pause per attempt, default 5ms
	NotifyTimeout time.Duration // deadline for one notification, default 5s
}

// Engine validates and applies table state transitions.
type Engine struct {
	store         RestaurantStore
	notifier      Notifier
	log           *zerolog.Logger
	maxAttempts   int
	backoff       time.Duration
	notifyTimeout time.Duration
	pending       sync.WaitGroup
}

// NewEngine wires an engine.  notifier may be nil to disable
// notifications.
func NewEngine(store RestaurantStore, notifier Notifier, log *zerolog.Logger, opts Options) *Engine {
	if store == nil {
		panic("nil store passed to NewEngine")
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 5
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 5 * time.Millisecond
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 5 * time.Second
	}
	return &Engine{
		store:         store,
		notifier:      notifier,
		log:           log,
		maxAttempts:   opts.MaxAttempts,
		backoff:       opts.RetryBackoff,
		notifyTimeout: opts.NotifyTimeout,
	}
}

// Reserve books a free table for callerID and returns the booking
// reference "<restaurantID>#<tableNumber>".  Of several concurrent
// reserves on the same free table exactly one succeeds; the others get
// ErrAlreadyBooked.  A notification is dispatched after the write commits.
func (e *Engine) Reserve(ctx context.Context, restaurantID uint64, tableNumber int, callerID uint64, partyName, partyPhone, timeLabel string) (string, error) {
	partyName = strings.TrimSpace(partyName)
	partyPhone = strings.TrimSpace(partyPhone)
	timeLabel = strings.TrimSpace(timeLabel)

	var missing []string
	if partyName == "" {
		missing = append(missing, "party_name")
	}
	if partyPhone == "" {
		missing = append(missing, "party_phone")
	}
	if timeLabel == "" {
		missing = append(missing, "time_label")
	}
	if len(missing) > 0 {
		metrics.IncBookingAttempt("invalid")
		return "", fmt.Errorf("%w: %s required", ErrInvalidInput, strings.Join(missing, ", "))
	}
	if callerID == 0 {
		metrics.IncBookingAttempt("invalid")
		return "", fmt.Errorf("%w: caller id required", ErrInvalidInput)
	}

	rest, err := e.mutate(ctx, "reserve", restaurantID, func(r *model.Restaurant) (bool, error) {
		t, ok := r.Table(tableNumber)
		if !ok {
			return false, fmt.Errorf("%w: table %d", ErrNotFound, tableNumber)
		}
		if t.IsBooked() {
			return false, ErrAlreadyBooked
		}
		t.Book(callerID, partyName, partyPhone, timeLabel)
		return true, nil
	})
	if err != nil {
		metrics.IncBookingAttempt(outcome(err))
		return "", err
	}
	metrics.IncBookingAttempt("booked")

	ref := model.BookingRef(rest.ID, tableNumber)
	e.log.Info().Str("booking_ref", ref).Uint64("user_id", callerID).Msg("table reserved")
	e.notify(queue.BookingConfirmedEvent{
		BookingRef:     ref,
		RestaurantID:   rest.ID,
		RestaurantName: rest.Name,
		TableNumber:    tableNumber,
		UserID:         callerID,
		PartyName:      partyName,
		PartyPhone:     partyPhone,
		TimeLabel:      timeLabel,
		ConfirmedAt:    time.Now().UTC().Format(time.RFC3339),
	})
	return ref, nil
}

// Cancel frees the table named by bookingRef.  Only the caller that made
// the booking may cancel it.
func (e *Engine) Cancel(ctx context.Context, bookingRef string, callerID uint64) error {
	restaurantID, tableNumber, err := model.ParseBookingRef(bookingRef)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	_, err = e.mutate(ctx, "cancel", restaurantID, func(r *model.Restaurant) (bool, error) {
		t, ok := r.Table(tableNumber)
		if !ok {
			return false, fmt.Errorf("%w: table %d", ErrNotFound, tableNumber)
		}
		if !t.IsBooked() {
			return false, ErrNotBooked
		}
		if t.BookedBy != callerID {
			return false, ErrForbidden
		}
		t.Release()
		return true, nil
	})
	if err != nil {
		return err
	}
	e.log.Info().Str("booking_ref", bookingRef).Uint64("user_id", callerID).Msg("booking cancelled")
	return nil
}

// AdminRelease lets the restaurant's admin force a booked table free.
func (e *Engine) AdminRelease(ctx context.Context, restaurantID uint64, tableNumber int, callerID uint64) error {
	_, err := e.mutate(ctx, "admin_release", restaurantID, func(r *model.Restaurant) (bool, error) {
		if r.AdminID != callerID {
			return false, ErrForbidden
		}
		t, ok := r.Table(tableNumber)
		if !ok {
			return false, fmt.Errorf("%w: table %d", ErrNotFound, tableNumber)
		}
		if !t.IsBooked() {
			return false, ErrNotBooked
		}
		t.Release()
		return true, nil
	})
	if err != nil {
		return err
	}
	e.log.Info().Str("booking_ref", model.BookingRef(restaurantID, tableNumber)).
		Uint64("admin_id", callerID).Msg("table released by admin")
	return nil
}

// ResizeInventory changes the number of tables.  A different capacity
// regenerates tables 1..newCapacity, all free, discarding every existing
// booking of the restaurant.  The same capacity is a no-op.
func (e *Engine) ResizeInventory(ctx context.Context, restaurantID uint64, newCapacity int, callerID uint64) error {
	if err := validateCapacity(newCapacity); err != nil {
		return err
	}
	_, err := e.reconfigure(ctx, "resize", restaurantID, callerID, nil, newCapacity, true)
	return err
}

// UpdateDetails changes name, location and hours.  Tables and bookings
// are left untouched.
func (e *Engine) UpdateDetails(ctx context.Context, restaurantID, callerID uint64, details Details) error {
	details = details.normalized()
	if err := details.validate(); err != nil {
		return err
	}
	_, err := e.reconfigure(ctx, "update_details", restaurantID, callerID, &details, 0, false)
	return err
}

// Wait blocks until all dispatched notifications have finished.
func (e *Engine) Wait() { e.pending.Wait() }

// reconfigure applies admin-owned changes in a single write.  details is
// optional; the inventory is only regenerated when resize is set and the
// capacity actually differs.
func (e *Engine) reconfigure(ctx context.Context, op string, restaurantID, callerID uint64, details *Details, capacity int, resize bool) (*model.Restaurant, error) {
	discarded, regenerated := 0, false
	rest, err := e.mutate(ctx, op, restaurantID, func(r *model.Restaurant) (bool, error) {
		if r.AdminID != callerID {
			return false, ErrForbidden
		}
		discarded, regenerated = 0, false
		changed := false
		if details != nil && (r.Name != details.Name || r.Location != details.Location ||
			r.OpenTime != details.OpenTime || r.CloseTime != details.CloseTime) {
			r.Name, r.Location = details.Name, details.Location
			r.OpenTime, r.CloseTime = details.OpenTime, details.CloseTime
			changed = true
		}
		if resize && r.Capacity != capacity {
			discarded = r.BookedCount()
			r.Capacity = capacity
			r.Tables = model.NewInventory(capacity)
			regenerated = true
			changed = true
		}
		return changed, nil
	})
	if err != nil {
		return nil, err
	}
	if regenerated {
		metrics.IncInventoryReset()
		e.log.Warn().Uint64("restaurant_id", rest.ID).Int("capacity", rest.Capacity).
			Int("discarded_bookings", discarded).Msg("table inventory regenerated")
	}
	return rest, nil
}

// mutate runs apply against a fresh copy of the restaurant and writes the
// result back if the version is unchanged, retrying on conflict.  apply
// returns false when there is nothing to write; any error it returns
// aborts without writing.  The write itself ignores request cancellation
// so a disconnecting client cannot cut it short.
func (e *Engine) mutate(ctx context.Context, op string, restaurantID uint64, apply func(r *model.Restaurant) (bool, error)) (*model.Restaurant, error) {
	for attempt := 1; ; attempt++ {
		rest, err := e.store.GetByID(ctx, restaurantID)
		if err != nil {
			if errors.Is(err, repository.ErrRestaurantNotFound) {
				return nil, fmt.Errorf("%w: restaurant %d", ErrNotFound, restaurantID)
			}
			return nil, e.internal(err, op, restaurantID)
		}
		expected := rest.Version
		changed, err := apply(rest)
		if err != nil {
			return nil, err
		}
		if !changed {
			return rest, nil
		}

		err = e.store.UpdateIfVersion(context.WithoutCancel(ctx), rest, expected)
		switch {
		case err == nil:
			return rest, nil
		case errors.Is(err, repository.ErrVersionConflict):
			metrics.IncCASConflict(op)
			if attempt >= e.maxAttempts {
				e.log.Warn().Str("op", op).Uint64("restaurant_id", restaurantID).
					Int("attempts", attempt).Msg("giving up after repeated version conflicts")
				return nil, fmt.Errorf("%w: %s on restaurant %d", ErrTransientConflict, op, restaurantID)
			}
			if err := e.pause(ctx, attempt); err != nil {
				return nil, err
			}
		case errors.Is(err, repository.ErrRestaurantNotFound):
			return nil, fmt.Errorf("%w: restaurant %d", ErrNotFound, restaurantID)
		default:
			return nil, e.internal(err, op, restaurantID)
		}
	}
}

// pause sleeps a random duration up to attempt*backoff.
func (e *Engine) pause(ctx context.Context, attempt int) error {
	d := time.Duration(rand.Int64N(int64(e.backoff)*int64(attempt)) + 1)
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrTransientConflict, ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (e *Engine) internal(err error, op string, restaurantID uint64) error {
	e.log.Error().Err(err).Str("op", op).Uint64("restaurant_id", restaurantID).Msg("store failure")
	return fmt.Errorf("%w: %v", ErrInternal, err)
}

// notify hands ev to the notifier on its own goroutine with a detached
// deadline.  Failures are logged and counted, never reported back.
func (e *Engine) notify(ev queue.BookingConfirmedEvent) {
	if e.notifier == nil {
		return
	}
	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		defer func() {
			if p := recover(); p != nil {
				metrics.IncNotification("failed")
				e.log.Error().Interface("panic", p).Str("booking_ref", ev.BookingRef).Msg("notifier panicked")
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), e.notifyTimeout)
		defer cancel()
		if err := e.notifier.NotifyBooking(ctx, ev); err != nil {
			metrics.IncNotification("failed")
			e.log.Warn().Err(err).Str("booking_ref", ev.BookingRef).Msg("booking notification failed")
			return
		}
		metrics.IncNotification("sent")
	}()
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyBooked):
		return "already_booked"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTransientConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidInput):
		return "invalid"
	default:
		return "error"
	}
}
