package pin

import (
	"log"
	"sort"
	"time"

	"github.com/example/minibar-selfservice/internal/previo"
)

// RecentAccess is a secondary "recently used PIN" signal fed from the door
// keypad integration. It carries no validity window of its own.
type RecentAccess struct {
	PIN  string `json:"pin"`
	Room string `json:"room"`
}

// Snapshot is the read-only state a single resolution call runs against.
// Callers hand the resolver a consistent view; the resolver never mutates it.
type Snapshot struct {
	Grants map[string]previo.Grant
	Recent []RecentAccess
	Static map[string]string // room name -> PIN
}

// verdict is one strategy's answer. A strategy either has no opinion, grants
// a room, or denies outright (stopping evaluation of later strategies).
type verdict struct {
	decided bool
	room    string
}

var skip = verdict{}

func grantRoom(room string) verdict { return verdict{decided: true, room: room} }

// deny is a decided verdict with no room: a later strategy must not get a
// chance to authorize the same PIN.
var deny = verdict{decided: true}

// strategy is a pure function over the submitted PIN, the evaluation instant,
// and the state snapshot.
type strategy func(pin string, now time.Time, s Snapshot) verdict

// strategies are evaluated in fixed priority order; the first decisive
// verdict wins.
var strategies = []strategy{
	resolveReservationGrants,
	resolveRecentAccess,
	resolveStaticPins,
}

// Resolve maps a submitted PIN to the room it authorizes, or "" when no
// source authorizes it. Side-effect free apart from diagnostic logging.
func Resolve(pin string, now time.Time, s Snapshot) string {
	if pin == "" {
		return ""
	}
	for _, strat := range strategies {
		if v := strat(pin, now, s); v.decided {
			return v.room
		}
	}
	return ""
}

// resolveReservationGrants matches on PIN equality first, then gates by the
// validity window. If grants carry the PIN but none is currently in-window,
// the whole resolution is denied: a reservation PIN outside its stay must not
// fall through to another source.
func resolveReservationGrants(pin string, now time.Time, s Snapshot) verdict {
	keys := make([]string, 0, len(s.Grants))
	for key, g := range s.Grants {
		if g.PIN == pin {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return skip
	}
	// Sorted so the same snapshot always yields the same answer, even when
	// one PIN collides across rooms.
	sort.Strings(keys)
	for _, key := range keys {
		if g := s.Grants[key]; g.Active(now) {
			return grantRoom(g.Room)
		}
	}
	log.Printf("[PIN] PIN matches %d reservation grant(s) but none is inside its validity window", len(keys))
	return deny
}

// resolveRecentAccess accepts keypad signals by plain string equality. When a
// reservation grant corroborates the PIN it is time-validated; a signal with
// no corroborating grant is accepted as-is, since static and manually issued
// codes carry no dates.
func resolveRecentAccess(pin string, now time.Time, s Snapshot) verdict {
	for _, recent := range s.Recent {
		if recent.PIN != pin {
			continue
		}
		corroborated := false
		for _, g := range s.Grants {
			if g.PIN == pin {
				corroborated = true
				if g.Active(now) {
					return grantRoom(g.Room)
				}
			}
		}
		if corroborated {
			log.Printf("[PIN] Recent access signal for room %s denied: corroborating grant out of window", recent.Room)
			return deny
		}
		return grantRoom(recent.Room)
	}
	return skip
}

// resolveStaticPins is the fallback of last resort: the fixed per-room table
// plus the owner PIN. No expiry.
func resolveStaticPins(pin string, _ time.Time, s Snapshot) verdict {
	rooms := make([]string, 0, len(s.Static))
	for room := range s.Static {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	for _, room := range rooms {
		if s.Static[room] == pin {
			return grantRoom(room)
		}
	}
	return skip
}
