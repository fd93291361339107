package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// BookingSummary is one booked table as seen by the customer who holds it.
type BookingSummary struct {
	BookingRef     string `json:"booking_ref"`
	RestaurantID   uint64 `json:"restaurant_id"`
	RestaurantName string `json:"restaurant_name"`
	TableNumber    int    `json:"table_number"`
	PartyName      string `json:"party_name"`
	TimeLabel      string `json:"time_label"`
}

// Directory manages restaurant registration and the read side.  Changes
// to an existing restaurant go through the Engine so they share its
// versioned write path.
type Directory struct {
	store  RestaurantStore
	engine *Engine
	log    *zerolog.Logger
}

func NewDirectory(store RestaurantStore, engine *Engine, log *zerolog.Logger) *Directory {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Directory{store: store, engine: engine, log: log}
}

// Upsert creates the admin's restaurant or updates it.  On update the
// descriptive fields are replaced and, only when capacity differs, the
// inventory is regenerated with every booking discarded.  Both happen in
// one write.
func (d *Directory) Upsert(ctx context.Context, adminID uint64, details Details, capacity int) (*model.Restaurant, error) {
	if adminID == 0 {
		return nil, fmt.Errorf("%w: admin id required", ErrInvalidInput)
	}
	details = details.normalized()
	if err := details.validate(); err != nil {
		return nil, err
	}
	if err := validateCapacity(capacity); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= d.engine.maxAttempts; attempt++ {
		existing, err := d.store.GetByAdmin(ctx, adminID)
		if err == nil {
			return d.engine.reconfigure(ctx, "upsert", existing.ID, adminID, &details, capacity, true)
		}
		if !errors.Is(err, repository.ErrRestaurantNotFound) {
			return nil, d.engine.internal(err, "upsert", 0)
		}

		rest := &model.Restaurant{
			AdminID:   adminID,
			Name:      details.Name,
			Location:  details.Location,
			OpenTime:  details.OpenTime,
			CloseTime: details.CloseTime,
			Capacity:  capacity,
			Tables:    model.NewInventory(capacity),
		}
		err = d.store.Create(context.WithoutCancel(ctx), rest)
		if err == nil {
			d.log.Info().Uint64("restaurant_id", rest.ID).Uint64("admin_id", adminID).
				Int("capacity", capacity).Msg("restaurant created")
			return rest, nil
		}
		if !errors.Is(err, repository.ErrAdminHasRestaurant) {
			return nil, d.engine.internal(err, "upsert", 0)
		}
		// a concurrent upsert by the same admin created it first; update instead
	}
	return nil, fmt.Errorf("%w: upsert for admin %d", ErrTransientConflict, adminID)
}

// GetByAdmin returns the restaurant owned by adminID.
func (d *Directory) GetByAdmin(ctx context.Context, adminID uint64) (*model.Restaurant, error) {
	rest, err := d.store.GetByAdmin(ctx, adminID)
	if errors.Is(err, repository.ErrRestaurantNotFound) {
		return nil, fmt.Errorf("%w: no restaurant for admin %d", ErrNotFound, adminID)
	}
	if err != nil {
		return nil, d.engine.internal(err, "get_by_admin", 0)
	}
	return rest, nil
}

// ListAll returns every restaurant ordered by name.
func (d *Directory) ListAll(ctx context.Context) ([]model.Restaurant, error) {
	items, err := d.store.List(ctx)
	if err != nil {
		return nil, d.engine.internal(err, "list", 0)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// GetBookingsForCaller lists the tables held by callerID, ordered by
// restaurant name and then table number.
func (d *Directory) GetBookingsForCaller(ctx context.Context, callerID uint64) ([]BookingSummary, error) {
	items, err := d.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := []BookingSummary{}
	for _, r := range items {
		for _, t := range r.Tables {
			if !t.IsBooked() || t.BookedBy != callerID {
				continue
			}
			out = append(out, BookingSummary{
				BookingRef:     model.BookingRef(r.ID, t.Number),
				RestaurantID:   r.ID,
				RestaurantName: r.Name,
				TableNumber:    t.Number,
				PartyName:      t.PartyName,
				TimeLabel:      t.TimeLabel,
			})
		}
	}
	return out, nil
}
