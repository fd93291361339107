package model

import (
    "errors"
    "fmt"
    "strconv"
    "strings"
    "time"
)

// Table status values.  A table is either FREE or BOOKED; there is no
// intermediate hold state.
const (
    TableFree   = "FREE"
    TableBooked = "BOOKED"
)

// ErrInvalidBookingRef is returned by ParseBookingRef when the reference
// does not have the form "<restaurantID>#<tableNumber>".
var ErrInvalidBookingRef = errors.New("invalid booking reference")

// Restaurant is an admin-owned venue together with its table inventory.
// The whole struct is persisted as a single versioned document: the
// restaurants row holds the descriptive columns and the Tables slice is
// embedded as JSON.  Version is bumped by the store on every successful
// write and is what concurrent writers compare against.
//
// Fields:
//  ID        – primary key identifier.
//  AdminID   – user ID of the owning admin (unique, one restaurant per admin).
//  Name      – display name, also the sort key of the public listing.
//  Location  – free-form address text.
//  OpenTime  – opening time label (opaque, not parsed).
//  CloseTime – closing time label (opaque, not parsed).
//  Capacity  – number of tables; always equals len(Tables).
//  Tables    – ordered inventory, numbers 1..Capacity.
//  Version   – optimistic locking counter.
type Restaurant struct {
    ID        uint64    `json:"id"`
    AdminID   uint64    `json:"admin_id"`
    Name      string    `json:"name"`
    Location  string    `json:"location"`
    OpenTime  string    `json:"open_time"`
    CloseTime string    `json:"close_time"`
    Capacity  int       `json:"capacity"`
    Tables    []Table   `json:"tables"`
    Version   uint64    `json:"version"`
    CreatedAt time.Time `json:"created_at"`
    UpdatedAt time.Time `json:"updated_at"`
}

// Table is one bookable unit inside a restaurant.  When Status is
// BOOKED the four booking fields (BookedBy, PartyName, PartyPhone,
// TimeLabel) describe the occupancy; when FREE they are all zero.
type Table struct {
    Number     int    `json:"table_number"`
    Status     string `json:"status"`
    BookedBy   uint64 `json:"booked_by,omitempty"`
    PartyName  string `json:"party_name,omitempty"`
    PartyPhone string `json:"party_phone,omitempty"`
    TimeLabel  string `json:"time_label,omitempty"`
}

// NewInventory returns capacity free tables numbered 1..capacity.  A zero
// or negative capacity yields an empty, non-nil slice.
func NewInventory(capacity int) []Table {
    if capacity < 0 {
        capacity = 0
    }
    tables := make([]Table, capacity)
    for i := range tables {
        tables[i] = Table{Number: i + 1, Status: TableFree}
    }
    return tables
}

// Table returns a pointer to the table with the given number, or false
// when the number is outside 1..len(Tables).  The pointer aliases the
// slice element so callers can mutate it in place.
func (r *Restaurant) Table(number int) (*Table, bool) {
    if number < 1 || number > len(r.Tables) {
        return nil, false
    }
    // inventory is kept ordered, so table n lives at index n-1
    return &r.Tables[number-1], true
}

// BookedCount reports how many tables are currently booked.
func (r *Restaurant) BookedCount() int {
    n := 0
    for _, t := range r.Tables {
        if t.IsBooked() {
            n++
        }
    }
    return n
}

// Clone returns a deep copy; mutating it never touches r.
func (r *Restaurant) Clone() *Restaurant {
    cp := *r
    cp.Tables = make([]Table, len(r.Tables))
    copy(cp.Tables, r.Tables)
    return &cp
}

// IsBooked reports whether the table is occupied.
func (t *Table) IsBooked() bool { return t.Status == TableBooked }

// Book records a reservation.  All four booking fields change together.
func (t *Table) Book(callerID uint64, partyName, partyPhone, timeLabel string) {
    t.Status = TableBooked
    t.BookedBy = callerID
    t.PartyName = partyName
    t.PartyPhone = partyPhone
    t.TimeLabel = timeLabel
}

// Release resets the table to its free defaults.
func (t *Table) Release() {
    *t = Table{Number: t.Number, Status: TableFree}
}

// BookingRef formats the external booking identifier of a table.
func BookingRef(restaurantID uint64, tableNumber int) string {
    return strconv.FormatUint(restaurantID, 10) + "#" + strconv.Itoa(tableNumber)
}

// ParseBookingRef splits a booking reference into restaurant ID and table
// number.  Both parts must be positive integers.
func ParseBookingRef(ref string) (uint64, int, error) {
    idPart, numPart, ok := strings.Cut(strings.TrimSpace(ref), "#")
    if !ok {
        return 0, 0, fmt.Errorf("%w: %q", ErrInvalidBookingRef, ref)
    }
    restaurantID, err := strconv.ParseUint(idPart, 10, 64)
    if err != nil || restaurantID == 0 {
        return 0, 0, fmt.Errorf("%w: %q", ErrInvalidBookingRef, ref)
    }
    tableNumber, err := strconv.Atoi(numPart)
    if err != nil || tableNumber < 1 {
        return 0, 0, fmt.Errorf("%w: %q", ErrInvalidBookingRef, ref)
    }
    return restaurantID, tableNumber, nil
}
