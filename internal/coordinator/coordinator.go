package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/example/minibar-selfservice/internal/infrastructure/store"
	"github.com/example/minibar-selfservice/internal/pin"
	"github.com/example/minibar-selfservice/internal/previo"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrInvalidProductCode = errors.New("product code must be between 1 and 100")
)

const (
	saveAttempts     = 3
	maxRecentSignals = 20
)

// Change is the typed notification emitted to subscribers after every
// successful state mutation.
type Change struct {
	Action string
	Item   string
	Room   string
}

// Listener receives change notifications. Called outside the coordinator
// lock, after the mutation has been persisted.
type Listener func(Change)

// Coordinator is the single owner of all mutable state: the inventory
// ledger, consumption and history logs, reservation grants, static room
// PINs, and product codes. Every operation is one critical section that
// reads, mutates, appends its log rows, persists, and notifies as a unit.
type Coordinator struct {
	mu    sync.Mutex
	store store.BlobStore
	key   string
	state *State

	// recent holds door-keypad fallback signals; in-memory only.
	recent []pin.RecentAccess

	listeners []Listener
	dirty     bool
}

// New loads persisted state (or initializes defaults on first run) and
// returns a ready coordinator.
func New(ctx context.Context, blobs store.BlobStore, key string) (*Coordinator, error) {
	c := &Coordinator{store: blobs, key: key}

	data, err := blobs.Load(ctx, key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.state = defaultState()
		log.Printf("[Kiosk] No persisted state for %q, starting fresh", key)
	case err != nil:
		return nil, fmt.Errorf("failed to load state: %w", err)
	default:
		c.state, err = decodeState(data)
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Subscribe registers a listener for change notifications.
func (c *Coordinator) Subscribe(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// ============================================
// Inventory ledger
// ============================================

// AddItem creates the item if absent, otherwise increments its quantity. A
// non-empty barcode overwrites the stored one.
func (c *Coordinator) AddItem(ctx context.Context, name string, quantity int, code string) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	c.mu.Lock()
	item, ok := c.state.Inventory[name]
	if ok {
		item.Quantity += quantity
		if code != "" {
			item.Code = code
		}
	} else {
		c.state.Inventory[name] = &StockItem{
			Quantity: quantity,
			Code:     code,
			Added:    time.Now(),
		}
	}
	c.appendHistoryLocked(ActionAdd, name, quantity, "", "",
		fmt.Sprintf("added %dx %s", quantity, name))
	c.persistLocked(ctx)
	c.mu.Unlock()

	c.notify(Change{Action: ActionAdd, Item: name})
	return nil
}

// RemoveItem decrements the item's quantity and logs the consumption,
// attributing the guest resolved from the room's active reservation grant at
// log time. Returns false, with no mutation and no log rows, when the item is
// absent or stock is insufficient; that is the caller's "out of stock"
// signal, distinct from success.
func (c *Coordinator) RemoveItem(ctx context.Context, name string, quantity int, room string, price float64) bool {
	if quantity <= 0 {
		return false
	}

	c.mu.Lock()
	item, ok := c.state.Inventory[name]
	if !ok || item.Quantity < quantity {
		c.mu.Unlock()
		return false
	}

	item.Quantity -= quantity

	c.state.ConsumptionLog = append(c.state.ConsumptionLog, ConsumptionEntry{
		Item:      name,
		Quantity:  quantity,
		Room:      room,
		Price:     price,
		Timestamp: time.Now(),
	})
	if n := len(c.state.ConsumptionLog); n > maxConsumptionEntries {
		c.state.ConsumptionLog = c.state.ConsumptionLog[n-maxConsumptionEntries:]
	}

	guest := c.guestForRoomLocked(room, time.Now())
	c.appendHistoryLocked(ActionRemove, name, -quantity, room, guest,
		fmt.Sprintf("removed %dx %s", quantity, name))
	c.persistLocked(ctx)
	c.mu.Unlock()

	c.notify(Change{Action: ActionRemove, Item: name, Room: room})
	return true
}

// UpdateItem sets the provided fields, creating the item with quantity 0
// when absent. Nil fields are left untouched.
func (c *Coordinator) UpdateItem(ctx context.Context, name string, quantity *int, code *string, price *float64) {
	c.mu.Lock()
	item, ok := c.state.Inventory[name]
	if !ok {
		item = &StockItem{Added: time.Now()}
		c.state.Inventory[name] = item
	}

	before := item.Quantity
	if quantity != nil {
		item.Quantity = *quantity
	}
	if code != nil {
		item.Code = *code
	}
	if price != nil {
		item.Price = *price
	}
	c.appendHistoryLocked(ActionUpdate, name, item.Quantity-before, "", "",
		fmt.Sprintf("quantity %d -> %d", before, item.Quantity))
	c.persistLocked(ctx)
	c.mu.Unlock()

	c.notify(Change{Action: ActionUpdate, Item: name})
}

// ResetInventory clears the stock map and the consumption log. The history
// log is kept: it records the reset itself.
func (c *Coordinator) ResetInventory(ctx context.Context) {
	c.mu.Lock()
	c.state.Inventory = make(map[string]*StockItem)
	c.state.ConsumptionLog = nil
	c.appendHistoryLocked(ActionReset, "", 0, "", "", "inventory reset")
	c.persistLocked(ctx)
	c.mu.Unlock()

	c.notify(Change{Action: ActionReset})
}

// ClearRoomConsumption removes only the given room's consumption entries and
// returns how many were removed. Other rooms and the history log are
// untouched.
func (c *Coordinator) ClearRoomConsumption(ctx context.Context, room string) int {
	c.mu.Lock()
	kept := c.state.ConsumptionLog[:0]
	removed := 0
	for _, entry := range c.state.ConsumptionLog {
		if entry.Room == room {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	c.state.ConsumptionLog = kept
	if removed > 0 {
		c.persistLocked(ctx)
	}
	c.mu.Unlock()

	if removed > 0 {
		c.notify(Change{Action: ActionUpdate, Room: room})
	}
	return removed
}

// ============================================
// Room PINs and product codes
// ============================================

// SetRoomPin sets the static PIN for a room.
func (c *Coordinator) SetRoomPin(ctx context.Context, room, pinCode string) {
	c.mu.Lock()
	c.state.RoomPins[room] = pinCode
	c.persistLocked(ctx)
	c.mu.Unlock()

	c.notify(Change{Action: ActionUpdate, Room: room})
}

// AddProductCode registers or replaces a keypad selector mapping.
func (c *Coordinator) AddProductCode(ctx context.Context, code int, name string, price float64, barcode string) error {
	if code < minProductCode || code > maxProductCode {
		return ErrInvalidProductCode
	}

	c.mu.Lock()
	c.state.ProductCodes[fmt.Sprint(code)] = ProductCode{
		Name:    name,
		Price:   price,
		Barcode: barcode,
		Code:    code,
	}
	c.persistLocked(ctx)
	c.mu.Unlock()

	c.notify(Change{Action: ActionUpdate, Item: name})
	return nil
}

// RemoveProductCode deletes a keypad selector mapping if present.
func (c *Coordinator) RemoveProductCode(ctx context.Context, code int) {
	c.mu.Lock()
	key := fmt.Sprint(code)
	if _, ok := c.state.ProductCodes[key]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.state.ProductCodes, key)
	c.persistLocked(ctx)
	c.mu.Unlock()

	c.notify(Change{Action: ActionUpdate})
}

// ============================================
// Reservation grants
// ============================================

// IngestReservation materializes grants from one feed record. Re-ingestion
// from the same sensor overwrites grants with identical keys, making repeated
// observation idempotent. A record failing validation is skipped whole.
func (c *Coordinator) IngestReservation(ctx context.Context, r previo.Reservation) error {
	grants, err := r.Grants()
	if err != nil {
		log.Printf("[Previo] Sensor %s: skipping reservation: %v", r.SensorID, err)
		return err
	}
	if len(grants) == 0 {
		log.Printf("[Previo] Sensor %s: reservation yielded no valid room/PIN pairings", r.SensorID)
		return nil
	}

	c.mu.Lock()
	for _, g := range grants {
		c.state.PrevioPins[g.Key()] = g
	}
	c.persistLocked(ctx)
	c.mu.Unlock()

	log.Printf("[Previo] Sensor %s: stored %d grant(s)", r.SensorID, len(grants))
	c.notify(Change{Action: ActionUpdate})
	return nil
}

// SweepStaleGrants deletes every grant whose check-out lies more than the
// grace period in the past. Implements previo.GrantStore.
func (c *Coordinator) SweepStaleGrants(now time.Time) int {
	c.mu.Lock()
	removed := 0
	for key, g := range c.state.PrevioPins {
		if g.Stale(now) {
			delete(c.state.PrevioPins, key)
			removed++
		}
	}
	if removed > 0 {
		c.persistLocked(context.Background())
	}
	c.mu.Unlock()

	if removed > 0 {
		c.notify(Change{Action: ActionUpdate})
	}
	return removed
}

// RecordRecentAccess feeds one door-keypad fallback signal. Kept in memory
// only, capped to the most recent signals.
func (c *Coordinator) RecordRecentAccess(pinCode, room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recent = append([]pin.RecentAccess{{PIN: pinCode, Room: room}}, c.recent...)
	if len(c.recent) > maxRecentSignals {
		c.recent = c.recent[:maxRecentSignals]
	}
}

// ============================================
// Reads
// ============================================

// ResolvePIN maps a PIN to the room it currently authorizes, or "". The
// resolution runs against the live state under the coordinator lock, so a
// single call always sees one consistent snapshot.
func (c *Coordinator) ResolvePIN(pinCode string, now time.Time) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return pin.Resolve(pinCode, now, pin.Snapshot{
		Grants: c.state.PrevioPins,
		Recent: c.recent,
		Static: c.state.RoomPins,
	})
}

// Item returns a copy of one stock row.
func (c *Coordinator) Item(name string) (StockItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.state.Inventory[name]
	if !ok {
		return StockItem{}, false
	}
	return *item, true
}

// ItemByBarcode finds the inventory item carrying the given barcode.
func (c *Coordinator) ItemByBarcode(code string) (string, bool) {
	if code == "" {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.state.Inventory))
	for name := range c.state.Inventory {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if c.state.Inventory[name].Code == code {
			return name, true
		}
	}
	return "", false
}

// ProductByCode returns the keypad selector mapping for a code.
func (c *Coordinator) ProductByCode(code int) (ProductCode, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.state.ProductCodes[fmt.Sprint(code)]
	return p, ok
}

// Inventory returns a copy of the stock map.
func (c *Coordinator) Inventory() map[string]StockItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]StockItem, len(c.state.Inventory))
	for name, item := range c.state.Inventory {
		out[name] = *item
	}
	return out
}

// ConsumptionForRoom returns copies of the room's consumption entries, oldest
// first.
func (c *Coordinator) ConsumptionForRoom(room string) []ConsumptionEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []ConsumptionEntry
	for _, entry := range c.state.ConsumptionLog {
		if entry.Room == room {
			out = append(out, entry)
		}
	}
	return out
}

// History returns a copy of the audit log, oldest first.
func (c *Coordinator) History() []HistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]HistoryEntry, len(c.state.History))
	copy(out, c.state.History)
	return out
}

// RoomPins returns a copy of the static PIN table.
func (c *Coordinator) RoomPins() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.state.RoomPins))
	for room, p := range c.state.RoomPins {
		out[room] = p
	}
	return out
}

// Grants returns a copy of the reservation grant store.
func (c *Coordinator) Grants() map[string]previo.Grant {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]previo.Grant, len(c.state.PrevioPins))
	for key, g := range c.state.PrevioPins {
		out[key] = g
	}
	return out
}

// GrantForRoom returns the reservation grant to display for a room: the
// active grant with the latest check-in, falling back to the most recent
// grant of any state.
func (c *Coordinator) GrantForRoom(room string, now time.Time) (previo.Grant, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grantForRoomLocked(room, now)
}

func (c *Coordinator) grantForRoomLocked(room string, now time.Time) (previo.Grant, bool) {
	var (
		bestActive, bestAny     previo.Grant
		bestActiveAt, bestAnyAt time.Time
		haveActive, haveAny     bool
	)
	for _, g := range c.state.PrevioPins {
		if g.Room != room {
			continue
		}
		checkin, _ := previo.ParseInstant(g.Checkin)
		if !haveAny || checkin.After(bestAnyAt) {
			bestAny, bestAnyAt, haveAny = g, checkin, true
		}
		if g.Active(now) && (!haveActive || checkin.After(bestActiveAt)) {
			bestActive, bestActiveAt, haveActive = g, checkin, true
		}
	}
	if haveActive {
		return bestActive, true
	}
	return bestAny, haveAny
}

func (c *Coordinator) guestForRoomLocked(room string, now time.Time) string {
	if room == "" {
		return ""
	}
	if g, ok := c.grantForRoomLocked(room, now); ok && g.Active(now) {
		return g.Guest
	}
	return ""
}

// ============================================
// Internals
// ============================================

func (c *Coordinator) appendHistoryLocked(action, item string, delta int, room, guest, details string) {
	c.state.History = append(c.state.History, HistoryEntry{
		Timestamp: time.Now(),
		Action:    action,
		Item:      item,
		Delta:     delta,
		Room:      room,
		Guest:     guest,
		Details:   details,
	})
	if n := len(c.state.History); n > maxHistoryEntries {
		c.state.History = c.state.History[n-maxHistoryEntries:]
	}
}

// persistLocked saves the state blob with a bounded retry. On total failure
// the in-memory state is kept authoritative and marked dirty; the next
// successful save reconciles storage.
func (c *Coordinator) persistLocked(ctx context.Context) {
	data, err := json.Marshal(c.state)
	if err != nil {
		log.Printf("[Kiosk] Failed to encode state: %v", err)
		return
	}
	for attempt := 1; attempt <= saveAttempts; attempt++ {
		if err = c.store.Save(ctx, c.key, data); err == nil {
			c.dirty = false
			return
		}
	}
	c.dirty = true
	log.Printf("[Kiosk] Failed to persist state after %d attempts: %v (will retry on next change)", saveAttempts, err)
}

func (c *Coordinator) notify(change Change) {
	c.mu.Lock()
	listeners := make([]Listener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, l := range listeners {
		l(change)
	}
}
