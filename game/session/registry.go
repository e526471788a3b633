package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ludoroyale/game-server/game/engine"
	"github.com/ludoroyale/game-server/game/rules"
	"github.com/ludoroyale/game-server/game/turn"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrRegistryClosed       = errors.New("registry closed")
)

// taskQueueSize bounds how many mutations can wait on a single session.
// Timer callbacks and gateway actions both land here; a session that falls
// this far behind is effectively wedged and callers should see backpressure.
const taskQueueSize = 64

// entry pairs a controller with its worker goroutine. All mutations for the
// session run on the worker, one at a time, in arrival order.
type entry struct {
	ctrl  *turn.Controller
	tasks chan func()
	quit  chan struct{}
	stop  sync.Once

	touched time.Time
	overAt  time.Time // first sweep that saw the session terminal
}

func (e *entry) run() {
	for {
		select {
		case fn := <-e.tasks:
			fn()
		case <-e.quit:
			return
		}
	}
}

// dispatch hands fn to the worker. Used as the controller's timer dispatcher,
// so expired timers execute in line with gateway actions.
func (e *entry) dispatch(fn func()) {
	select {
	case e.tasks <- fn:
	case <-e.quit:
	}
}

func (e *entry) close() {
	e.stop.Do(func() {
		close(e.quit)
		e.ctrl.Close()
	})
}

// Registry owns every live session and serializes mutations per session.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	closed  bool
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
	}
}

// Create registers a new session and starts its worker. An empty id or room
// code is generated. The returned controller must only be mutated through
// WithSession; it is returned so callers can read the initial snapshot.
func (r *Registry) Create(id, roomCode string, variant rules.Variant, cfg rules.Config, hooks turn.Hooks, opts ...turn.Option) (*turn.Controller, error) {
	if id == "" {
		id = generateSessionID()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	if _, exists := r.entries[strings.ToLower(id)]; exists {
		return nil, ErrSessionAlreadyExists
	}
	if roomCode == "" {
		roomCode = r.uniqueRoomCode()
	}

	gameSession, err := engine.NewSession(id, roomCode, variant, cfg)
	if err != nil {
		return nil, err
	}

	e := &entry{
		tasks:   make(chan func(), taskQueueSize),
		quit:    make(chan struct{}),
		touched: time.Now(),
	}
	e.ctrl = turn.NewController(gameSession, hooks, opts...)
	e.ctrl.Bind(e.dispatch)
	go e.run()

	r.entries[strings.ToLower(id)] = e
	return e.ctrl, nil
}

// WithSession runs fn on the session's worker and waits for it to finish.
// Concurrent callers against the same session are applied one at a time;
// the error returned is fn's own.
func (r *Registry) WithSession(id string, fn func(c *turn.Controller) error) error {
	e, err := r.lookup(id)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	select {
	case e.tasks <- func() { errCh <- fn(e.ctrl) }:
	case <-e.quit:
		return ErrSessionNotFound
	}

	select {
	case err := <-errCh:
		return err
	case <-e.quit:
		return ErrSessionNotFound
	}
}

// Snapshot reads the session state without going through the worker queue,
// so observers never wait behind mutators.
func (r *Registry) Snapshot(id string) (engine.Snapshot, error) {
	e, err := r.lookup(id)
	if err != nil {
		return engine.Snapshot{}, err
	}
	return e.ctrl.Session().Snapshot(), nil
}

// History returns a page of the session's move log and the total count.
func (r *Registry) History(id string, offset, limit int) ([]engine.Move, int, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, 0, err
	}
	page, total := e.ctrl.Session().HistoryPage(offset, limit)
	return page, total, nil
}

// List returns snapshots of all live sessions.
func (r *Registry) List() []engine.Snapshot {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	result := make([]engine.Snapshot, 0, len(entries))
	for _, e := range entries {
		result = append(result, e.ctrl.Session().Snapshot())
	}
	return result
}

// Remove stops the session's worker and timers and drops it from the registry.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	key := strings.ToLower(id)
	e, exists := r.entries[key]
	if exists {
		delete(r.entries, key)
	}
	r.mu.Unlock()

	if !exists {
		return ErrSessionNotFound
	}
	e.close()
	return nil
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Sweep removes sessions that are done with their retention window and
// lobbies that never started. It returns how many sessions were removed.
//
// A terminal session is kept for one full retention window after the sweep
// first observes it, so late readers can still fetch the final snapshot.
func (r *Registry) Sweep(idleTimeout, retention time.Duration) int {
	now := time.Now()
	type victim struct {
		key string
		e   *entry
	}
	var victims []victim

	r.mu.Lock()
	for key, e := range r.entries {
		status := e.ctrl.Session().CurrentStatus()
		switch {
		case status.Terminal():
			if e.overAt.IsZero() {
				e.overAt = now
			} else if now.Sub(e.overAt) >= retention {
				victims = append(victims, victim{key, e})
			}
		case status == engine.StatusWaiting:
			if now.Sub(e.touched) >= idleTimeout {
				victims = append(victims, victim{key, e})
			}
		}
	}
	for _, v := range victims {
		delete(r.entries, v.key)
	}
	r.mu.Unlock()

	for _, v := range victims {
		v.e.close()
	}
	return len(victims)
}

// Close stops every session worker and rejects further creates.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range entries {
		e.close()
	}
}

func (r *Registry) lookup(id string) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.entries[strings.ToLower(id)]
	if !exists {
		return nil, ErrSessionNotFound
	}
	e.touched = time.Now()
	return e, nil
}

// uniqueRoomCode generates a 6-character uppercase hex room code not used
// by any live session. Caller holds r.mu.
func (r *Registry) uniqueRoomCode() string {
	for {
		code := generateRoomCode()
		taken := false
		for _, e := range r.entries {
			if e.ctrl.Session().RoomCode == code {
				taken = true
				break
			}
		}
		if !taken {
			return code
		}
	}
}

func generateSessionID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func generateRoomCode() string {
	bytes := make([]byte, 3)
	rand.Read(bytes)
	return strings.ToUpper(hex.EncodeToString(bytes))
}
