package handler

import (
    "time"

    "github.com/iliyamo/table-reservation/internal/model"
)

// publicTable hides who booked the table.
type publicTable struct {
    Number     int    `json:"table_number"`
    Status     string `json:"status"`
    PartyName  string `json:"party_name,omitempty"`
    PartyPhone string `json:"party_phone,omitempty"`
    TimeLabel  string `json:"time_label,omitempty"`
}

type publicRestaurant struct {
    ID        uint64        `json:"id"`
    Name      string        `json:"name"`
    Location  string        `json:"location"`
    OpenTime  string        `json:"open_time"`
    CloseTime string        `json:"close_time"`
    Capacity  int           `json:"capacity"`
    Tables    []publicTable `json:"tables"`
}

func toPublicRestaurant(r model.Restaurant) publicRestaurant {
    out := publicRestaurant{
        ID:        r.ID,
        Name:      r.Name,
        Location:  r.Location,
        OpenTime:  r.OpenTime,
        CloseTime: r.CloseTime,
        Capacity:  r.Capacity,
        Tables:    make([]publicTable, 0, len(r.Tables)),
    }
    for _, t := range r.Tables {
        out.Tables = append(out.Tables, publicTable{
            Number:     t.Number,
            Status:     t.Status,
            PartyName:  t.PartyName,
            PartyPhone: t.PartyPhone,
            TimeLabel:  t.TimeLabel,
        })
    }
    return out
}

// adminRestaurant is the owner's view, including who holds each table.
type adminRestaurant struct {
    ID        uint64        `json:"id"`
    AdminID   uint64        `json:"admin_id"`
    Name      string        `json:"name"`
    Location  string        `json:"location"`
    OpenTime  string        `json:"open_time"`
    CloseTime string        `json:"close_time"`
    Capacity  int           `json:"capacity"`
    Booked    int           `json:"booked"`
    Tables    []model.Table `json:"tables"`
    UpdatedAt time.Time     `json:"updated_at"`
}

func toAdminRestaurant(r *model.Restaurant) adminRestaurant {
    return adminRestaurant{
        ID:        r.ID,
        AdminID:   r.AdminID,
        Name:      r.Name,
        Location:  r.Location,
        OpenTime:  r.OpenTime,
        CloseTime: r.CloseTime,
        Capacity:  r.Capacity,
        Booked:    r.BookedCount(),
        Tables:    r.Tables,
        UpdatedAt: r.UpdatedAt,
    }
}
