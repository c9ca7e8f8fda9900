package command

import (
	"context"
	"testing"
	"time"

	"github.com/example/minibar-selfservice/internal/coordinator"
	"github.com/example/minibar-selfservice/internal/events"
	"github.com/example/minibar-selfservice/internal/infrastructure/store"
	"github.com/example/minibar-selfservice/internal/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const layout = "2006-01-02 15:04"

type published struct {
	Type    string
	Payload any
}

// recordingPublisher captures outbound notifications for assertions.
type recordingPublisher struct {
	Published []published
}

func (r *recordingPublisher) Publish(_ context.Context, eventType string, payload any) error {
	r.Published = append(r.Published, published{Type: eventType, Payload: payload})
	return nil
}

func newTestHandler(t *testing.T) (*Handler, *coordinator.Coordinator, *recordingPublisher) {
	t.Helper()
	coord, err := coordinator.New(context.Background(), store.NewMemoryStore(), "test")
	require.NoError(t, err)
	publisher := &recordingPublisher{}
	return NewHandler(coord, query.NewHandler(coord), publisher), coord, publisher
}

func ingestReservation(t *testing.T, h *Handler, room, pin, guest string) {
	t.Helper()
	now := time.Now()
	err := h.IngestReservation(context.Background(), IngestReservation{
		SensorID: "sensor.previo_reservation_1",
		Room:     room,
		CardKeys: []string{pin},
		Checkin:  now.Add(-time.Hour).Format(layout),
		Checkout: now.Add(time.Hour).Format(layout),
		Guest:    guest,
	})
	require.NoError(t, err)
}

// ============================================
// Verify PIN
// ============================================

func TestHandler_VerifyPIN_EndToEnd(t *testing.T) {
	h, _, publisher := newTestHandler(t)
	ctx := context.Background()

	ingestReservation(t, h, "2", "4471", "Alice")

	result := h.VerifyPIN(ctx, VerifyPIN{PIN: "4471"})
	assert.True(t, result.Valid)
	assert.Equal(t, "room2", result.Room)
	assert.Equal(t, "Alice", result.GuestName)
	assert.Equal(t, 0.0, result.TotalPrice)

	// Stock a priced item and bill one to the room.
	require.NoError(t, h.AddItem(ctx, AddItem{Name: "Cola", Quantity: 5}))
	price := 30.0
	h.UpdateItem(ctx, UpdateItem{Name: "Cola", Price: &price})
	require.True(t, h.RemoveItem(ctx, RemoveItem{Name: "Cola", Quantity: 1, PIN: "4471"}))

	result = h.VerifyPIN(ctx, VerifyPIN{PIN: "4471"})
	assert.True(t, result.Valid)
	assert.Equal(t, 30.0, result.TotalPrice)
	assert.Equal(t, 1, result.ConsumptionCount)
	assert.Equal(t, 1, result.ItemSummary["Cola"].Quantity)
	assert.NotEmpty(t, result.Checkin)
	assert.NotEmpty(t, result.Checkout)

	last := publisher.Published[len(publisher.Published)-1]
	assert.Equal(t, events.TypePinVerified, last.Type)
	assert.Equal(t, events.PinVerified{PIN: "4471", Valid: true, Room: "room2"}, last.Payload)
}

func TestHandler_VerifyPIN_Invalid(t *testing.T) {
	h, _, publisher := newTestHandler(t)

	result := h.VerifyPIN(context.Background(), VerifyPIN{PIN: "9999"})

	assert.False(t, result.Valid)
	assert.Empty(t, result.Room)
	require.Len(t, publisher.Published, 1)
	assert.Equal(t, events.PinVerified{PIN: "9999", Valid: false}, publisher.Published[0].Payload)
}

func TestHandler_VerifyPIN_Empty(t *testing.T) {
	h, _, _ := newTestHandler(t)

	result := h.VerifyPIN(context.Background(), VerifyPIN{})

	assert.False(t, result.Valid)
	assert.Empty(t, result.Room)
}

// ============================================
// Scan code
// ============================================

func TestHandler_ScanCode_Success(t *testing.T) {
	h, coord, publisher := newTestHandler(t)
	ctx := context.Background()

	ingestReservation(t, h, "2", "4471", "Alice")
	require.NoError(t, h.AddItem(ctx, AddItem{Name: "Cola", Quantity: 2, Code: "0001234567"}))

	result := h.ScanCode(ctx, ScanCode{Code: "0001234567", PIN: "4471"})

	assert.True(t, result.Removed)
	assert.Equal(t, "Cola", result.Item)
	assert.Equal(t, "room2", result.Room)

	item, _ := coord.Item("Cola")
	assert.Equal(t, 1, item.Quantity)

	last := publisher.Published[len(publisher.Published)-1]
	assert.Equal(t, events.TypeItemScanned, last.Type)
	scanned := last.Payload.(events.ItemScanned)
	assert.True(t, scanned.Success)
	assert.Equal(t, "Cola", scanned.Item)
}

func TestHandler_ScanCode_UnknownCode(t *testing.T) {
	h, coord, publisher := newTestHandler(t)
	ctx := context.Background()

	require.NoError(t, h.AddItem(ctx, AddItem{Name: "Cola", Quantity: 2, Code: "111"}))

	result := h.ScanCode(ctx, ScanCode{Code: "0001234567"})

	assert.False(t, result.Removed)
	assert.Equal(t, ReasonUnknownCode, result.Reason)
	assert.Empty(t, result.Item)

	item, _ := coord.Item("Cola")
	assert.Equal(t, 2, item.Quantity, "no stock mutation on unknown code")

	last := publisher.Published[len(publisher.Published)-1]
	scanned := last.Payload.(events.ItemScanned)
	assert.False(t, scanned.Success)
	assert.Equal(t, ReasonUnknownCode, scanned.Reason)
}

func TestHandler_ScanCode_OutOfStock(t *testing.T) {
	h, _, publisher := newTestHandler(t)
	ctx := context.Background()

	code := "111"
	h.UpdateItem(ctx, UpdateItem{Name: "Cola", Code: &code}) // quantity 0

	result := h.ScanCode(ctx, ScanCode{Code: "111"})

	assert.False(t, result.Removed)
	assert.Equal(t, "Cola", result.Item)
	assert.Equal(t, ReasonOutOfStock, result.Reason)

	last := publisher.Published[len(publisher.Published)-1]
	scanned := last.Payload.(events.ItemScanned)
	assert.Equal(t, ReasonOutOfStock, scanned.Reason)
}

// ============================================
// Consume products
// ============================================

func TestHandler_ConsumeProducts_InvalidPINFailsClosed(t *testing.T) {
	h, coord, publisher := newTestHandler(t)
	ctx := context.Background()

	require.NoError(t, h.AddItem(ctx, AddItem{Name: "Cola", Quantity: 5}))
	require.NoError(t, h.AddProductCode(ctx, AddProductCode{Code: 1, Name: "Cola", Price: 30}))

	result := h.ConsumeProducts(ctx, ConsumeProducts{PIN: "9999", Products: []int{1, 2}})

	assert.Empty(t, result.Room)
	assert.Equal(t, 0, result.SuccessCount)
	assert.Equal(t, []int{1, 2}, result.FailedProducts)

	item, _ := coord.Item("Cola")
	assert.Equal(t, 5, item.Quantity, "inventory untouched")

	last := publisher.Published[len(publisher.Published)-1]
	assert.Equal(t, events.TypeConsumeFailed, last.Type)
	assert.Equal(t, events.ConsumeFailed{Reason: ReasonInvalidPIN, PIN: "9999"}, last.Payload)
}

func TestHandler_ConsumeProducts_MixedOutcome(t *testing.T) {
	h, coord, publisher := newTestHandler(t)
	ctx := context.Background()

	ingestReservation(t, h, "2", "4471", "Alice")
	require.NoError(t, h.AddItem(ctx, AddItem{Name: "Cola", Quantity: 1}))
	require.NoError(t, h.AddProductCode(ctx, AddProductCode{Code: 1, Name: "Cola", Price: 30}))
	require.NoError(t, h.AddProductCode(ctx, AddProductCode{Code: 2, Name: "Fanta", Price: 25}))

	// Code 1 consumes the last Cola, second code 1 is out of stock, code 2
	// names an unstocked item, code 99 is unmapped.
	result := h.ConsumeProducts(ctx, ConsumeProducts{PIN: "4471", Products: []int{1, 1, 2, 99}})

	assert.Equal(t, "room2", result.Room)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, []int{1, 2, 99}, result.FailedProducts)

	item, _ := coord.Item("Cola")
	assert.Equal(t, 0, item.Quantity)

	last := publisher.Published[len(publisher.Published)-1]
	assert.Equal(t, events.TypeProductsConsumed, last.Type)
	consumed := last.Payload.(events.ProductsConsumed)
	assert.Equal(t, "room2", consumed.Room)
	assert.Equal(t, 1, consumed.SuccessCount)
}

func TestHandler_ConsumeProducts_StaticPIN(t *testing.T) {
	h, _, _ := newTestHandler(t)
	ctx := context.Background()

	require.NoError(t, h.AddItem(ctx, AddItem{Name: "Cola", Quantity: 5}))
	require.NoError(t, h.AddProductCode(ctx, AddProductCode{Code: 1, Name: "Cola", Price: 30}))

	result := h.ConsumeProducts(ctx, ConsumeProducts{PIN: "0000", Products: []int{1}})

	assert.Equal(t, "owner", result.Room)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Empty(t, result.FailedProducts)
}

// ============================================
// Remove item / clear room
// ============================================

func TestHandler_RemoveItem_LooksUpPriceFromStock(t *testing.T) {
	h, coord, _ := newTestHandler(t)
	ctx := context.Background()

	ingestReservation(t, h, "2", "4471", "Alice")
	require.NoError(t, h.AddItem(ctx, AddItem{Name: "Cola", Quantity: 5}))
	price := 42.0
	h.UpdateItem(ctx, UpdateItem{Name: "Cola", Price: &price})

	require.True(t, h.RemoveItem(ctx, RemoveItem{Name: "Cola", Quantity: 1, PIN: "4471"}))

	entries := coord.ConsumptionForRoom("room2")
	require.Len(t, entries, 1)
	assert.Equal(t, 42.0, entries[0].Price)
}

func TestHandler_RemoveItem_OutOfStock(t *testing.T) {
	h, _, _ := newTestHandler(t)
	ctx := context.Background()

	require.NoError(t, h.AddItem(ctx, AddItem{Name: "Cola", Quantity: 1}))

	assert.False(t, h.RemoveItem(ctx, RemoveItem{Name: "Cola", Quantity: 2}))
	assert.False(t, h.RemoveItem(ctx, RemoveItem{Name: "Fanta", Quantity: 1}))
}

func TestHandler_ClearRoomConsumption(t *testing.T) {
	h, _, _ := newTestHandler(t)
	ctx := context.Background()

	ingestReservation(t, h, "3", "4471", "Alice")
	require.NoError(t, h.AddItem(ctx, AddItem{Name: "Cola", Quantity: 5}))
	require.True(t, h.RemoveItem(ctx, RemoveItem{Name: "Cola", Quantity: 1, PIN: "4471"}))

	assert.Equal(t, 1, h.ClearRoomConsumption(ctx, ClearRoomConsumption{Room: "room3"}))
	assert.Equal(t, 0, h.ClearRoomConsumption(ctx, ClearRoomConsumption{Room: "room3"}))
}

// ============================================
// Recent access fallback
// ============================================

func TestHandler_RecordRecentAccess_EnablesFallback(t *testing.T) {
	h, _, _ := newTestHandler(t)

	result := h.VerifyPIN(context.Background(), VerifyPIN{PIN: "7777"})
	assert.False(t, result.Valid)

	h.RecordRecentAccess(RecordRecentAccess{PIN: "7777", Room: "room4"})

	result = h.VerifyPIN(context.Background(), VerifyPIN{PIN: "7777"})
	assert.True(t, result.Valid)
	assert.Equal(t, "room4", result.Room)
}
