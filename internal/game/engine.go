// internal/game/engine.go
//
// Core engine for a single pairs game.
// Responsibilities:
//   - Deck generation: 2*Pairs cards, each value appearing exactly twice,
//     uniformly shuffled.
//   - The flip state machine: idle -> one selected -> resolving, with
//     idempotent no-op guards for busy/face-up/matched cards.
//   - Scoring: fixed reward on match, fixed penalty on mismatch, floored at 0.
//   - The elapsed-seconds timer (owned by the engine, stopped on win).
//   - Deferred mismatch resolution tagged with a generation counter so a
//     Restart can never be mutated by a stale timer.
//
// Notes:
//   - All mutation happens under a single mutex; HTTP handlers, the internal
//     ticker, and mismatch timers may call in from different goroutines.
//   - Listeners are invoked synchronously after each mutation, outside the
//     lock, with an immutable Snapshot.

package game

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Listener receives a state snapshot after every engine mutation.
type Listener func(Snapshot)

// Engine owns the deck and all rules for one game.
type Engine struct {
	mu  sync.Mutex
	id  string
	cfg Config
	rng *rand.Rand

	cards   []Card
	pending int // index of the first card of the current pair; -1 when none
	busy    bool
	score   int
	elapsed int
	won     bool

	// seq counts mutations. Snapshots carry it so consumers that receive
	// them concurrently (the watch feed) can discard out-of-order frames.
	seq uint64

	// gen is bumped by Restart and Stop. Deferred mismatch resolutions carry
	// the generation they were scheduled under and bail out if it moved on.
	gen     uint64
	resolve *time.Timer

	ticker     *time.Ticker
	tickerDone chan struct{}

	nextSub int
	subs    map[int]Listener
}

// New constructs an engine with a fresh shuffled deck and, when
// cfg.TickInterval > 0, starts the elapsed-seconds ticker.
func New(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	e := &Engine{
		id:      uuid.NewString(),
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(seed)),
		pending: -1,
		subs:    make(map[int]Listener),
	}
	e.cards = newDeck(cfg.Pairs, e.rng)
	e.mu.Lock()
	e.startTickerLocked()
	e.mu.Unlock()
	return e
}

// newDeck builds the value multiset (each of [0,pairs) twice) and shuffles it.
// Card IDs are the positions in the shuffled order.
func newDeck(pairs int, rng *rand.Rand) []Card {
	values := make([]int, 0, 2*pairs)
	for v := 0; v < pairs; v++ {
		values = append(values, v, v)
	}
	rng.Shuffle(len(values), func(i, j int) {
		values[i], values[j] = values[j], values[i]
	})
	cards := make([]Card, len(values))
	for i, v := range values {
		cards[i] = Card{ID: i, Value: v}
	}
	return cards
}

// ID returns the engine's stable identifier.
func (e *Engine) ID() string { return e.id }

// Config returns the engine's effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Flip reveals the card with the given id and advances the state machine.
//
// No-op (nil error, no state change) when the engine is busy resolving a
// mismatch, or when the card is already face up or matched. An id outside
// the deck returns ErrUnknownCard: that means the caller is not working
// from the current snapshot.
func (e *Engine) Flip(cardID int) error {
	e.mu.Lock()
	if cardID < 0 || cardID >= len(e.cards) {
		e.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownCard, cardID)
	}
	c := &e.cards[cardID]
	if e.busy || c.FaceUp || c.Matched {
		e.mu.Unlock()
		return nil
	}

	c.FaceUp = true

	if e.pending < 0 {
		// First card of a pair.
		e.pending = cardID
		e.seq++
		snap := e.snapshotLocked()
		e.mu.Unlock()
		e.publish(snap)
		return nil
	}

	first := &e.cards[e.pending]
	if first.Value == c.Value {
		// Match: resolve synchronously.
		first.Matched = true
		c.Matched = true
		e.score += e.cfg.MatchReward
		e.pending = -1
		if e.allMatchedLocked() {
			e.won = true
			e.stopTickerLocked()
		}
	} else {
		// Mismatch: penalize now, flip back after the delay. The pair stays
		// face up and the engine refuses input until the timer fires.
		e.score -= e.cfg.MismatchPenalty
		if e.score < 0 {
			e.score = 0
		}
		e.busy = true
		gen := e.gen
		a, b := e.pending, cardID
		e.resolve = time.AfterFunc(e.cfg.MismatchDelay, func() {
			e.resolveMismatch(gen, a, b)
		})
	}

	e.seq++
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)
	return nil
}

// resolveMismatch flips a mismatched pair back down. It runs on a timer
// goroutine; the generation check makes it a no-op if Restart or Stop
// replaced the deck in the meantime.
func (e *Engine) resolveMismatch(gen uint64, a, b int) {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	e.cards[a].FaceUp = false
	e.cards[b].FaceUp = false
	e.pending = -1
	e.busy = false
	e.seq++
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)
}

// Tick advances the elapsed-seconds counter by one. Once the game is won
// it is a no-op, so a late ticker fire can never move the clock.
func (e *Engine) Tick() {
	e.mu.Lock()
	if e.won {
		e.mu.Unlock()
		return
	}
	e.elapsed++
	e.seq++
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)
}

// Restart discards the deck and all derived state and reinitializes as at
// construction: new shuffle, zero score and clock, timer running. Any
// in-flight mismatch resolution is invalidated via the generation counter.
func (e *Engine) Restart() {
	e.mu.Lock()
	e.gen++
	if e.resolve != nil {
		e.resolve.Stop()
		e.resolve = nil
	}
	e.cards = newDeck(e.cfg.Pairs, e.rng)
	e.pending = -1
	e.busy = false
	e.score = 0
	e.elapsed = 0
	e.won = false
	if e.ticker == nil {
		e.startTickerLocked()
	}
	e.seq++
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)
}

// Stop halts the ticker and invalidates any pending mismatch resolution.
// Used when a session is evicted; the engine is not usable afterwards.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.gen++
	if e.resolve != nil {
		e.resolve.Stop()
		e.resolve = nil
	}
	e.stopTickerLocked()
	e.mu.Unlock()
}

// Snapshot returns an immutable copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Score returns the current score.
func (e *Engine) Score() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.score
}

// Elapsed returns whole seconds played while unsolved.
func (e *Engine) Elapsed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.elapsed
}

// Won reports whether every card is matched.
func (e *Engine) Won() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.won
}

// OnChange registers a listener invoked after every mutation. The returned
// function unsubscribes it (watchers come and go with their connections).
func (e *Engine) OnChange(fn Listener) func() {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

// publish fans a snapshot out to the current listener set, outside the lock.
func (e *Engine) publish(s Snapshot) {
	e.mu.Lock()
	fns := make([]Listener, 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

// snapshotLocked copies state; callers hold e.mu.
func (e *Engine) snapshotLocked() Snapshot {
	cards := make([]Card, len(e.cards))
	copy(cards, e.cards)
	return Snapshot{
		GameID:  e.id,
		Seq:     e.seq,
		Cards:   cards,
		Score:   e.score,
		Elapsed: e.elapsed,
		Busy:    e.busy,
		Won:     e.won,
	}
}

// allMatchedLocked reports whether the whole deck is matched; callers hold e.mu.
func (e *Engine) allMatchedLocked() bool {
	for i := range e.cards {
		if !e.cards[i].Matched {
			return false
		}
	}
	return true
}

// startTickerLocked starts the elapsed-seconds ticker; callers hold e.mu.
// No-op when TickInterval is zero (tests drive Tick directly).
func (e *Engine) startTickerLocked() {
	if e.cfg.TickInterval <= 0 || e.ticker != nil {
		return
	}
	e.ticker = time.NewTicker(e.cfg.TickInterval)
	e.tickerDone = make(chan struct{})
	go func(t *time.Ticker, done chan struct{}) {
		for {
			select {
			case <-t.C:
				e.Tick()
			case <-done:
				return
			}
		}
	}(e.ticker, e.tickerDone)
}

// stopTickerLocked stops the ticker goroutine; callers hold e.mu.
func (e *Engine) stopTickerLocked() {
	if e.ticker == nil {
		return
	}
	e.ticker.Stop()
	close(e.tickerDone)
	e.ticker = nil
	e.tickerDone = nil
}
