package coordinator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/minibar-selfservice/internal/previo"
)

const (
	maxConsumptionEntries = 1000
	maxHistoryEntries     = 200

	// OwnerRoom is the distinguished room for staff access.
	OwnerRoom       = "owner"
	defaultOwnerPIN = "0000"
	defaultRooms    = 10

	minProductCode = 1
	maxProductCode = 100
)

// History actions.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionUpdate = "update"
	ActionReset  = "reset"
)

// StockItem is one inventory row. Quantity never goes negative; operations
// that would make it so are rejected, not clamped.
type StockItem struct {
	Quantity int       `json:"quantity"`
	Code     string    `json:"code"`
	Price    float64   `json:"price"`
	Added    time.Time `json:"added"`
}

// ConsumptionEntry records one billable removal. Immutable once appended.
type ConsumptionEntry struct {
	Item      string    `json:"item"`
	Quantity  int       `json:"quantity"`
	Room      string    `json:"room,omitempty"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryEntry records one inventory state change for auditing.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Item      string    `json:"item,omitempty"`
	Delta     int       `json:"delta"`
	Room      string    `json:"room,omitempty"`
	Guest     string    `json:"guest,omitempty"`
	Details   string    `json:"details"`
}

// ProductCode maps a numeric selector on the kiosk keypad to an inventory
// item name and price.
type ProductCode struct {
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
	Barcode string  `json:"barcode"`
	Code    int     `json:"code"`
}

// State is everything persisted for one coordinator instance, stored as a
// single blob.
type State struct {
	Inventory      map[string]*StockItem   `json:"inventory"`
	RoomPins       map[string]string       `json:"room_pins"`
	ConsumptionLog []ConsumptionEntry      `json:"consumption_log"`
	ProductCodes   map[string]ProductCode  `json:"product_codes"`
	History        []HistoryEntry          `json:"history"`
	PrevioPins     map[string]previo.Grant `json:"previo_pins"`
}

func defaultState() *State {
	s := &State{
		Inventory:    make(map[string]*StockItem),
		RoomPins:     make(map[string]string),
		ProductCodes: make(map[string]ProductCode),
		PrevioPins:   make(map[string]previo.Grant),
	}
	s.ensureDefaults()
	return s
}

// decodeState unmarshals a persisted blob and migrates it forward: any
// top-level key missing from an older blob is initialized to its default
// instead of failing the load.
func decodeState(data []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode persisted state: %w", err)
	}
	if s.Inventory == nil {
		s.Inventory = make(map[string]*StockItem)
	}
	if s.RoomPins == nil {
		s.RoomPins = make(map[string]string)
	}
	if s.ProductCodes == nil {
		s.ProductCodes = make(map[string]ProductCode)
	}
	if s.PrevioPins == nil {
		s.PrevioPins = make(map[string]previo.Grant)
	}
	s.ensureDefaults()
	return &s, nil
}

// ensureDefaults fills in the static PIN table: the owner PIN and one
// deterministic PIN per room (room1 -> 1001, room2 -> 1002, ...). Existing
// entries are never overwritten.
func (s *State) ensureDefaults() {
	if _, ok := s.RoomPins[OwnerRoom]; !ok {
		s.RoomPins[OwnerRoom] = defaultOwnerPIN
	}
	for i := 1; i <= defaultRooms; i++ {
		room := fmt.Sprintf("room%d", i)
		if _, ok := s.RoomPins[room]; !ok {
			s.RoomPins[room] = fmt.Sprintf("%04d", 1000+i)
		}
	}
}
