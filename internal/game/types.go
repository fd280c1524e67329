// internal/game/types.go
//
// Core type definitions for the pairs (memory-matching) game engine.
// Defines:
//   - Card: one tile on the board (identity, value, flip/match flags).
//   - Snapshot: immutable copy of the engine state handed to listeners.
//   - Config: board size, score deltas, and timing knobs.

package game

import (
	"errors"
	"time"
)

// ErrUnknownCard is returned by Flip when the card id does not exist in the
// current deck. This indicates a caller bug, not a normal game event.
var ErrUnknownCard = errors.New("unknown card id")

// Card is a single tile on the board.
type Card struct {
	ID      int  `json:"id"`      // Stable position index within the deck (0..len-1).
	Value   int  `json:"value"`   // Pair identity in [0, pairs); exactly two cards share a value.
	FaceUp  bool `json:"faceUp"`  // True once revealed; only mismatch resolution turns it back.
	Matched bool `json:"matched"` // True once permanently paired; only a new deck resets it.
}

// Snapshot is an immutable copy of the engine state, taken after a mutation.
// Listeners and HTTP handlers read from snapshots, never from the live deck.
type Snapshot struct {
	GameID  string // Engine identifier (random UUID).
	Seq     uint64 // Mutation counter; later snapshots carry larger values.
	Cards   []Card // Copy of the deck in board order.
	Score   int    // Current score (never negative).
	Elapsed int    // Whole seconds played while unsolved.
	Busy    bool   // True while a mismatched pair is waiting to flip back.
	Won     bool   // True once every card is matched; monotone until Restart.
}

// Config tunes an engine. Zero values fall back to the defaults below,
// except TickInterval: zero disables the internal ticker so tests can
// drive Tick by hand.
type Config struct {
	Pairs           int           // Number of value pairs; deck size is 2*Pairs.
	MatchReward     int           // Score added when a pair is matched.
	MismatchPenalty int           // Score removed (floored at 0) on a mismatch.
	MismatchDelay   time.Duration // Wall-clock delay before a mismatch flips back.
	TickInterval    time.Duration // Elapsed-seconds tick period; 0 = no internal timer.
	Seed            int64         // Deck shuffle seed; 0 = random.
}

const (
	defaultPairs           = 8 // 4x4 board
	defaultMatchReward     = 10
	defaultMismatchPenalty = 2
	defaultMismatchDelay   = time.Second
)

// DefaultConfig returns the standard 4x4 game with one-second ticking.
func DefaultConfig() Config {
	return Config{
		Pairs:           defaultPairs,
		MatchReward:     defaultMatchReward,
		MismatchPenalty: defaultMismatchPenalty,
		MismatchDelay:   defaultMismatchDelay,
		TickInterval:    time.Second,
	}
}

// withDefaults fills unset fields. TickInterval is left alone on purpose.
func (c Config) withDefaults() Config {
	if c.Pairs <= 0 {
		c.Pairs = defaultPairs
	}
	if c.MatchReward <= 0 {
		c.MatchReward = defaultMatchReward
	}
	if c.MismatchPenalty <= 0 {
		c.MismatchPenalty = defaultMismatchPenalty
	}
	if c.MismatchDelay <= 0 {
		c.MismatchDelay = defaultMismatchDelay
	}
	return c
}
