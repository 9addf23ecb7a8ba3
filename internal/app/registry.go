package app

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"vitisco-room-service/internal/domain"
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// PresenceMarker mirrors the set of live room codes into an external store,
// best effort. The registry never depends on it for correctness.
type PresenceMarker interface {
	Mark(code string)
	Clear(code string)
}

type noopPresence struct{}

func (noopPresence) Mark(string)  {}
func (noopPresence) Clear(string) {}

// Registry is the authoritative map of active rooms. The registry mutex only
// guards the code and connection indexes; game operations go straight to the
// room and its own mutex, so unrelated rooms never contend.
type Registry struct {
	cfg      GameConfig
	presence PresenceMarker
	onFinish func(code string, results []domain.GameResult)

	mu     sync.RWMutex
	rooms  map[string]*Room
	byConn map[string]string
	rnd    *rand.Rand
}

func NewRegistry(cfg GameConfig, presence PresenceMarker, onFinish func(string, []domain.GameResult)) *Registry {
	if presence == nil {
		presence = noopPresence{}
	}
	return &Registry{
		cfg:      cfg.withDefaults(),
		presence: presence,
		onFinish: onFinish,
		rooms:    make(map[string]*Room),
		byConn:   make(map[string]string),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateRoom inserts a new waiting room with the requester as host. An
// explicit code that is already taken fails with ErrCodeConflict; generated
// codes are retried until unique.
func (g *Registry) CreateRoom(connID, name string, sink chan<- domain.Event, requestedCode string) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	code := strings.ToUpper(strings.TrimSpace(requestedCode))
	if code != "" {
		if _, taken := g.rooms[code]; taken {
			return nil, domain.ErrCodeConflict
		}
	} else {
		code = g.generateCodeLocked()
	}
	return g.createLocked(connID, name, sink, code)
}

func (g *Registry) createLocked(connID, name string, sink chan<- domain.Event, code string) (*Room, error) {
	g.removeConnLocked(connID)

	room := newRoom(code, g.cfg, g.onFinish)
	if err := room.join(connID, name, sink, domain.EventRoomCreated); err != nil {
		return nil, err
	}
	g.rooms[code] = room
	g.byConn[connID] = code
	g.presence.Mark(code)
	return room, nil
}

// JoinRoom adds a connection to a waiting room by code. A missing room and a
// room past waiting both report ErrRoomNotFound; a full room ErrRoomFull.
func (g *Registry) JoinRoom(code, connID, name string, sink chan<- domain.Event) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	code = strings.ToUpper(strings.TrimSpace(code))
	room, ok := g.rooms[code]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}

	g.removeConnLocked(connID)
	if err := room.join(connID, name, sink, domain.EventRoomJoined); err != nil {
		return nil, err
	}
	g.byConn[connID] = code
	return room, nil
}

// JoinRandom places the connection in the first waiting room with space, or
// creates a fresh one. Runs under the registry lock so two concurrent quick
// joins can never jointly overflow a room the capacity check approved.
func (g *Registry) JoinRandom(connID, name string, sink chan<- domain.Event) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.removeConnLocked(connID)
	for code, room := range g.rooms {
		if err := room.join(connID, name, sink, domain.EventRoomJoined); err == nil {
			g.byConn[connID] = code
			return room, nil
		}
	}
	return g.createLocked(connID, name, sink, g.generateCodeLocked())
}

// RemovePlayer detaches a connection from whatever room holds it, deleting
// the room in the same operation if it became empty.
func (g *Registry) RemovePlayer(connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeConnLocked(connID)
}

func (g *Registry) removeConnLocked(connID string) {
	code, ok := g.byConn[connID]
	if !ok {
		return
	}
	delete(g.byConn, connID)
	room, ok := g.rooms[code]
	if !ok {
		return
	}
	if empty := room.removePlayer(connID); empty {
		delete(g.rooms, code)
		g.presence.Clear(code)
	}
}

// DeleteRoom removes a room and its connection index entries. Idempotent.
func (g *Registry) DeleteRoom(code string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	room, ok := g.rooms[code]
	if !ok {
		return
	}
	room.shutdown()
	for _, id := range room.playerIDs() {
		delete(g.byConn, id)
	}
	delete(g.rooms, code)
	g.presence.Clear(code)
}

// Get returns the room for a code, if active.
func (g *Registry) Get(code string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	room, ok := g.rooms[strings.ToUpper(strings.TrimSpace(code))]
	return room, ok
}

// RoomCount reports the number of active rooms.
func (g *Registry) RoomCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

func (g *Registry) generateCodeLocked() string {
	for {
		b := make([]byte, 6)
		for i := range b {
			b[i] = codeAlphabet[g.rnd.Intn(len(codeAlphabet))]
		}
		code := string(b)
		if _, taken := g.rooms[code]; !taken {
			return code
		}
	}
}
