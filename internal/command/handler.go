package command

import (
	"context"
	"log"
	"time"

	"github.com/example/minibar-selfservice/internal/coordinator"
	"github.com/example/minibar-selfservice/internal/events"
	"github.com/example/minibar-selfservice/internal/previo"
	"github.com/example/minibar-selfservice/internal/query"
)

// Business-rule failure reasons surfaced to callers and mirrored in
// outbound notifications.
const (
	ReasonOutOfStock  = "out_of_stock"
	ReasonUnknownCode = "unknown_code"
	ReasonInvalidPIN  = "invalid_pin"
)

// ScanResult is the outcome of a barcode scan.
type ScanResult struct {
	Item    string `json:"item,omitempty"`
	Room    string `json:"room,omitempty"`
	Removed bool   `json:"removed"`
	Reason  string `json:"reason,omitempty"`
}

// ConsumeResult is the outcome of a self-service consumption.
type ConsumeResult struct {
	Room           string `json:"room,omitempty"`
	SuccessCount   int    `json:"success_count"`
	FailedProducts []int  `json:"failed_products"`
}

// VerifyResult is the outcome of a PIN verification, including the room's
// running bill when valid.
type VerifyResult struct {
	PIN              string                    `json:"pin"`
	Valid            bool                      `json:"valid"`
	Room             string                    `json:"room,omitempty"`
	GuestName        string                    `json:"guest_name,omitempty"`
	Checkin          string                    `json:"checkin,omitempty"`
	Checkout         string                    `json:"checkout,omitempty"`
	TotalPrice       float64                   `json:"total_price"`
	ItemSummary      map[string]query.ItemStat `json:"item_summary,omitempty"`
	ConsumptionCount int                       `json:"consumption_count"`
}

// Handler executes inbound commands against the coordinator and fires the
// matching outbound notification for each.
type Handler struct {
	coord     *coordinator.Coordinator
	queries   *query.Handler
	publisher events.Publisher
}

func NewHandler(coord *coordinator.Coordinator, queries *query.Handler, publisher events.Publisher) *Handler {
	return &Handler{
		coord:     coord,
		queries:   queries,
		publisher: publisher,
	}
}

// AddItem adds stock.
func (h *Handler) AddItem(ctx context.Context, cmd AddItem) error {
	if err := h.coord.AddItem(ctx, cmd.Name, cmd.Quantity, cmd.Code); err != nil {
		return err
	}
	log.Printf("[Kiosk] Added %dx %s to inventory", cmd.Quantity, cmd.Name)
	return nil
}

// RemoveItem removes stock, attributing the consumption to the room the PIN
// resolves to. Returns false when the item is absent or out of stock.
func (h *Handler) RemoveItem(ctx context.Context, cmd RemoveItem) bool {
	room := h.resolveRoom(cmd.PIN)

	price := 0.0
	if item, ok := h.coord.Item(cmd.Name); ok {
		price = item.Price
	}

	ok := h.coord.RemoveItem(ctx, cmd.Name, cmd.Quantity, room, price)
	if !ok {
		log.Printf("[Kiosk] Failed to remove %s: insufficient quantity", cmd.Name)
	}
	return ok
}

// UpdateItem sets the provided stock fields.
func (h *Handler) UpdateItem(ctx context.Context, cmd UpdateItem) {
	h.coord.UpdateItem(ctx, cmd.Name, cmd.Quantity, cmd.Code, cmd.Price)
}

// ScanCode looks up the scanned barcode and, when it maps to a stocked item,
// removes one unit attributed to the PIN's room.
func (h *Handler) ScanCode(ctx context.Context, cmd ScanCode) ScanResult {
	room := h.resolveRoom(cmd.PIN)

	name, found := h.coord.ItemByBarcode(cmd.Code)
	if !found {
		log.Printf("[Kiosk] Unknown code scanned: %s", cmd.Code)
		result := ScanResult{Room: room, Reason: ReasonUnknownCode}
		h.publish(ctx, events.TypeItemScanned, events.ItemScanned{
			Code: cmd.Code, Room: room, Success: false, Reason: ReasonUnknownCode,
		})
		return result
	}

	price := 0.0
	if item, ok := h.coord.Item(name); ok {
		price = item.Price
	}

	if !h.coord.RemoveItem(ctx, name, 1, room, price) {
		log.Printf("[Kiosk] Scanned code %s but %s is out of stock", cmd.Code, name)
		h.publish(ctx, events.TypeItemScanned, events.ItemScanned{
			Item: name, Code: cmd.Code, Room: room, Success: false, Reason: ReasonOutOfStock,
		})
		return ScanResult{Item: name, Room: room, Reason: ReasonOutOfStock}
	}

	h.publish(ctx, events.TypeItemScanned, events.ItemScanned{
		Item: name, Code: cmd.Code, Room: room, Success: true,
	})
	return ScanResult{Item: name, Room: room, Removed: true}
}

// ResetInventory clears stock and the consumption log.
func (h *Handler) ResetInventory(ctx context.Context) {
	h.coord.ResetInventory(ctx)
	log.Printf("[Kiosk] Inventory reset")
}

// AddProductCode registers a keypad selector.
func (h *Handler) AddProductCode(ctx context.Context, cmd AddProductCode) error {
	return h.coord.AddProductCode(ctx, cmd.Code, cmd.Name, cmd.Price, cmd.Barcode)
}

// RemoveProductCode removes a keypad selector.
func (h *Handler) RemoveProductCode(ctx context.Context, cmd RemoveProductCode) {
	h.coord.RemoveProductCode(ctx, cmd.Code)
}

// ConsumeProducts processes a list of keypad selections for one PIN. An
// invalid PIN fails the whole call closed: nothing is processed.
func (h *Handler) ConsumeProducts(ctx context.Context, cmd ConsumeProducts) ConsumeResult {
	room := h.resolveRoom(cmd.PIN)
	if room == "" {
		log.Printf("[Kiosk] Invalid PIN for consume request")
		h.publish(ctx, events.TypeConsumeFailed, events.ConsumeFailed{
			Reason: ReasonInvalidPIN, PIN: cmd.PIN,
		})
		return ConsumeResult{FailedProducts: append([]int(nil), cmd.Products...)}
	}

	result := ConsumeResult{Room: room}
	for _, code := range cmd.Products {
		product, ok := h.coord.ProductByCode(code)
		if !ok {
			log.Printf("[Kiosk] Unknown product code: %d", code)
			result.FailedProducts = append(result.FailedProducts, code)
			continue
		}
		if h.coord.RemoveItem(ctx, product.Name, 1, room, product.Price) {
			result.SuccessCount++
		} else {
			result.FailedProducts = append(result.FailedProducts, code)
		}
	}

	log.Printf("[Kiosk] Consumed %d products for room %s", result.SuccessCount, room)
	h.publish(ctx, events.TypeProductsConsumed, events.ProductsConsumed{
		Room:           room,
		SuccessCount:   result.SuccessCount,
		FailedProducts: result.FailedProducts,
	})
	return result
}

// VerifyPIN resolves the PIN and, when valid, returns the room's guest
// identity and running bill.
func (h *Handler) VerifyPIN(ctx context.Context, cmd VerifyPIN) VerifyResult {
	result := VerifyResult{PIN: cmd.PIN}

	if cmd.PIN == "" {
		log.Printf("[Kiosk] PIN verification failed: empty PIN")
		h.publish(ctx, events.TypePinVerified, events.PinVerified{Valid: false})
		return result
	}

	room := h.coord.ResolvePIN(cmd.PIN, time.Now())
	result.Valid = room != ""
	result.Room = room

	if result.Valid {
		summary := h.queries.RoomSummary(room, time.Now())
		result.GuestName = summary.Guest
		result.Checkin = summary.Checkin
		result.Checkout = summary.Checkout
		result.TotalPrice = summary.TotalPrice
		result.ItemSummary = summary.Items
		result.ConsumptionCount = summary.ConsumptionCount
	}

	log.Printf("[Kiosk] PIN verification: room=%q valid=%v", room, result.Valid)
	h.publish(ctx, events.TypePinVerified, events.PinVerified{
		PIN: cmd.PIN, Valid: result.Valid, Room: room,
	})
	return result
}

// ClearRoomConsumption wipes one room's consumption entries, typically at
// check-out, and returns how many were removed.
func (h *Handler) ClearRoomConsumption(ctx context.Context, cmd ClearRoomConsumption) int {
	removed := h.coord.ClearRoomConsumption(ctx, cmd.Room)
	log.Printf("[Kiosk] Cleared %d consumption entries for %s", removed, cmd.Room)
	return removed
}

// SetRoomPin sets a room's static PIN.
func (h *Handler) SetRoomPin(ctx context.Context, room, pinCode string) {
	h.coord.SetRoomPin(ctx, room, pinCode)
	log.Printf("[Kiosk] Updated static PIN for %s", room)
}

// IngestReservation feeds one reservation record from the Previo sensor.
func (h *Handler) IngestReservation(ctx context.Context, cmd IngestReservation) error {
	return h.coord.IngestReservation(ctx, previo.Reservation{
		SensorID: cmd.SensorID,
		Room:     cmd.Room,
		CardKeys: cmd.CardKeys,
		Checkin:  cmd.Checkin,
		Checkout: cmd.Checkout,
		Guest:    cmd.Guest,
	})
}

// RecordRecentAccess feeds one door-keypad fallback signal.
func (h *Handler) RecordRecentAccess(cmd RecordRecentAccess) {
	h.coord.RecordRecentAccess(cmd.PIN, cmd.Room)
}

func (h *Handler) resolveRoom(pinCode string) string {
	if pinCode == "" {
		return ""
	}
	return h.coord.ResolvePIN(pinCode, time.Now())
}

// publish fires an outbound notification; delivery failures are logged but
// never fail the command that produced them.
func (h *Handler) publish(ctx context.Context, eventType string, payload any) {
	if err := h.publisher.Publish(ctx, eventType, payload); err != nil {
		log.Printf("[Kiosk] Failed to publish %s notification: %v", eventType, err)
	}
}
