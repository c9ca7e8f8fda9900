package query

import (
	"time"

	"github.com/example/minibar-selfservice/internal/coordinator"
)

// ItemStat is one row of a room's consumption breakdown.
type ItemStat struct {
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// RoomSummary aggregates a room's consumption for display and billing.
type RoomSummary struct {
	Room             string              `json:"room"`
	Guest            string              `json:"guest,omitempty"`
	Checkin          string              `json:"checkin,omitempty"`
	Checkout         string              `json:"checkout,omitempty"`
	TotalPrice       float64             `json:"total_price"`
	Items            map[string]ItemStat `json:"items"`
	ConsumptionCount int                 `json:"consumption_count"`
}

// Handler answers read-only queries against the coordinator's state. It
// never mutates anything.
type Handler struct {
	coord *coordinator.Coordinator
}

func NewHandler(coord *coordinator.Coordinator) *Handler {
	return &Handler{coord: coord}
}

// RoomSummary computes the room's total price, per-item breakdown, and the
// guest identity from the room's most recent reservation grant.
func (h *Handler) RoomSummary(room string, now time.Time) RoomSummary {
	summary := RoomSummary{
		Room:  room,
		Items: make(map[string]ItemStat),
	}

	for _, entry := range h.coord.ConsumptionForRoom(room) {
		summary.ConsumptionCount++
		summary.TotalPrice += entry.Price * float64(entry.Quantity)

		stat := summary.Items[entry.Item]
		stat.Quantity += entry.Quantity
		stat.Price += entry.Price * float64(entry.Quantity)
		summary.Items[entry.Item] = stat
	}

	if grant, ok := h.coord.GrantForRoom(room, now); ok {
		summary.Guest = grant.Guest
		summary.Checkin = grant.Checkin
		summary.Checkout = grant.Checkout
	}

	return summary
}

// Inventory returns the current stock map.
func (h *Handler) Inventory() map[string]coordinator.StockItem {
	return h.coord.Inventory()
}

// History returns the audit log, oldest first.
func (h *Handler) History() []coordinator.HistoryEntry {
	return h.coord.History()
}
