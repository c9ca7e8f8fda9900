package events

import (
	"encoding/json"
	"time"
)

// Outbound notification types, mirroring each command's result.
const (
	TypeItemScanned      = "item_scanned"
	TypeConsumeFailed    = "consume_failed"
	TypeProductsConsumed = "products_consumed"
	TypePinVerified      = "pin_verified"
)

// ItemScanned reports the outcome of a barcode scan.
type ItemScanned struct {
	Item    string `json:"item,omitempty"`
	Code    string `json:"code"`
	Room    string `json:"room,omitempty"`
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

// ConsumeFailed reports a consume-products call rejected before processing.
type ConsumeFailed struct {
	Reason string `json:"reason"`
	PIN    string `json:"pin"`
}

// ProductsConsumed reports the outcome of a self-service consumption.
type ProductsConsumed struct {
	Room           string `json:"room"`
	SuccessCount   int    `json:"success_count"`
	FailedProducts []int  `json:"failed_products"`
}

// PinVerified reports a PIN verification attempt.
type PinVerified struct {
	PIN   string `json:"pin"`
	Valid bool   `json:"valid"`
	Room  string `json:"room,omitempty"`
}

// Envelope wraps a notification payload on the wire.
type Envelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}
