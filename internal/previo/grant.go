package previo

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"
)

const (
	minRoomNumber = 1
	maxRoomNumber = 10
)

var (
	ErrMissingRoom   = errors.New("reservation has no room field")
	ErrMissingPins   = errors.New("reservation has no card keys")
	ErrMissingWindow = errors.New("reservation has no check-in/check-out")
)

// Grant is a room-scoped access credential derived from one reservation.
// Check-in/check-out are kept verbatim as the feed delivered them and parsed
// lazily; the feed's date formats vary and an unparseable value must gate
// access conservatively rather than fail ingestion.
type Grant struct {
	Room     string `json:"room"`
	PIN      string `json:"pin"`
	Checkin  string `json:"checkin"`
	Checkout string `json:"checkout"`
	Guest    string `json:"guest"`
	SensorID string `json:"sensor_id"`
}

// Key identifies a grant in storage. Keyed by room and PIN together so
// simultaneous reservations for the same room coexist.
func (g Grant) Key() string {
	return g.Room + "_" + g.PIN
}

// Active reports whether now falls inside the grant's validity window.
// An unparseable boundary denies.
func (g Grant) Active(now time.Time) bool {
	checkin, ok := ParseInstant(g.Checkin)
	if !ok {
		return false
	}
	checkout, ok := ParseInstant(g.Checkout)
	if !ok {
		return false
	}
	return !now.Before(checkin) && !now.After(checkout)
}

// Reservation is one record from the Previo feed, as observed on a sensor.
type Reservation struct {
	SensorID string
	Room     string   // may encode several rooms, comma-separated
	CardKeys []string // PINs, positionally matched to the room tokens
	Checkin  string
	Checkout string
	Guest    string
}

// Grants materializes one grant per valid (room, PIN) pairing. A reservation
// missing its room field, card keys, or either window boundary is rejected
// whole; no partial grants are produced. Individual room tokens that do not
// parse to a number in [1,10] are skipped with a warning, as are tokens
// beyond the card key list.
func (r Reservation) Grants() ([]Grant, error) {
	if strings.TrimSpace(r.Room) == "" {
		return nil, ErrMissingRoom
	}
	if len(r.CardKeys) == 0 {
		return nil, ErrMissingPins
	}
	if r.Checkin == "" || r.Checkout == "" {
		return nil, ErrMissingWindow
	}

	var grants []Grant
	for i, token := range strings.Split(r.Room, ",") {
		token = strings.TrimSpace(token)
		n, err := strconv.Atoi(token)
		if err != nil || n < minRoomNumber || n > maxRoomNumber {
			log.Printf("[Previo] Sensor %s: skipping room token %q", r.SensorID, token)
			continue
		}
		if i >= len(r.CardKeys) {
			log.Printf("[Previo] Sensor %s: no card key for room %d", r.SensorID, n)
			continue
		}
		pin := strings.TrimSpace(r.CardKeys[i])
		if pin == "" {
			log.Printf("[Previo] Sensor %s: empty card key for room %d", r.SensorID, n)
			continue
		}
		grants = append(grants, Grant{
			Room:     fmt.Sprintf("room%d", n),
			PIN:      pin,
			Checkin:  r.Checkin,
			Checkout: r.Checkout,
			Guest:    r.Guest,
			SensorID: r.SensorID,
		})
	}
	return grants, nil
}
