// Package queue defines the booking events exchanged over RabbitMQ along
// with the publisher used by the reservation engine and the consumer
// that archives them.
package queue

// BookingQueueName is the durable queue carrying confirmed bookings.
const BookingQueueName = "booking.confirmed"

// BookingConfirmedEvent is published after a reservation has been
// committed.  It carries enough detail for downstream consumers to log
// or notify the party without querying the primary database.
type BookingConfirmedEvent struct {
    EventID        string `json:"event_id"`
    BookingRef     string `json:"booking_ref"`
    RestaurantID   uint64 `json:"restaurant_id"`
    RestaurantName string `json:"restaurant_name"`
    TableNumber    int    `json:"table_number"`
    UserID         uint64 `json:"user_id"`
    PartyName      string `json:"party_name"`
    PartyPhone     string `json:"party_phone"`
    TimeLabel      string `json:"time_label"`
    ConfirmedAt    string `json:"confirmed_at"`
}
