// Package session derives the signed-in principal from credential changes.
package session

import (
	"sync"
	"time"

	"github.com/dimitrije/medportal-api/internal/models"
)

// Principal is the authorization-relevant view of a signed-in, approved user.
// It is rebuilt on every credential change and never mutated in place.
type Principal struct {
	UID       string         `json:"uid"`
	Email     string         `json:"email"`
	IsAdmin   bool           `json:"isAdmin"`
	Approved  bool           `json:"approved"`
	CreatedAt time.Time      `json:"createdAt"`
	Profile   models.Profile `json:"profile"`
}

// State is the value held by a Cell. While IsResolving is set, Principal is
// always nil and must be read as "not known yet" rather than "signed out".
type State struct {
	Principal   *Principal `json:"principal"`
	IsResolving bool       `json:"isResolving"`
	Seq         uint64     `json:"seq"`
}

// View is the read side of a Cell.
type View interface {
	Load() State
	// Subscribe calls fn with every state stored after it returns, in order.
	Subscribe(fn func(State)) (cancel func())
}

// Cell holds the current State. Only the Materializer that owns it writes.
type Cell struct {
	mu    sync.RWMutex
	state State

	// writeMu orders notifications; it is held while subscribers run.
	writeMu sync.Mutex
	subsMu  sync.Mutex
	subs    map[uint64]func(State)
	nextSub uint64
}

func NewCell() *Cell {
	return &Cell{subs: make(map[uint64]func(State))}
}

func (c *Cell) Load() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Cell) Subscribe(fn func(State)) func() {
	c.subsMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subsMu.Lock()
			delete(c.subs, id)
			c.subsMu.Unlock()
		})
	}
}

func (c *Cell) store(s State) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	c.state = s
	c.mu.Unlock()

	c.subsMu.Lock()
	fns := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subsMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
