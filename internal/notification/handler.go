package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/example/minibar-selfservice/internal/events"
)

// Handler turns outbound kiosk notifications into reception desk messages.
// It consumes the notification topic and forwards a human-readable line per
// event to the configured sink (stdout by default; the desk display tails it).
type Handler struct {
	sink func(string)
}

func NewHandler(sink func(string)) *Handler {
	if sink == nil {
		sink = func(msg string) { log.Printf("[Notifier] %s", msg) }
	}
	return &Handler{sink: sink}
}

// HandleEvent processes one message from the notification topic.
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var env events.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		log.Printf("[Notifier] Failed to unmarshal envelope: %v", err)
		return err
	}

	switch env.Type {
	case events.TypeProductsConsumed:
		var e events.ProductsConsumed
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return err
		}
		msg := fmt.Sprintf("%s consumed %d product(s)", e.Room, e.SuccessCount)
		if len(e.FailedProducts) > 0 {
			msg += fmt.Sprintf(", %d failed", len(e.FailedProducts))
		}
		h.sink(msg)

	case events.TypeItemScanned:
		var e events.ItemScanned
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return err
		}
		if e.Success {
			h.sink(fmt.Sprintf("scan: %s taken by %s", e.Item, orUnknown(e.Room)))
		} else {
			h.sink(fmt.Sprintf("scan failed for code %s: %s", e.Code, e.Reason))
		}

	case events.TypeConsumeFailed:
		var e events.ConsumeFailed
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return err
		}
		h.sink(fmt.Sprintf("consume rejected: %s", e.Reason))

	case events.TypePinVerified:
		// High-volume and informational only; not forwarded to the desk.
	}

	return nil
}

func orUnknown(room string) string {
	if room == "" {
		return "unknown room"
	}
	return room
}
