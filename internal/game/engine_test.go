package game

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

// testConfig keeps the mismatch delay short and disables the internal
// ticker so tests drive the clock by hand.
func testConfig() Config {
	return Config{
		Pairs:           8,
		MatchReward:     10,
		MismatchPenalty: 2,
		MismatchDelay:   25 * time.Millisecond,
		Seed:            1,
	}
}

// pairsByValue groups card IDs by value from the current snapshot.
func pairsByValue(e *Engine) map[int][]int {
	out := map[int][]int{}
	for _, c := range e.Snapshot().Cards {
		out[c.Value] = append(out[c.Value], c.ID)
	}
	return out
}

// twoDifferent returns the IDs of two hidden, unmatched cards with
// different values.
func twoDifferent(e *Engine) (int, int) {
	var hidden []Card
	for _, c := range e.Snapshot().Cards {
		if !c.FaceUp && !c.Matched {
			hidden = append(hidden, c)
		}
	}
	for i := 1; i < len(hidden); i++ {
		if hidden[i].Value != hidden[0].Value {
			return hidden[0].ID, hidden[i].ID
		}
	}
	panic("no mismatching hidden pair available")
}

// waitResolve sleeps long enough for the mismatch delay to fire.
func waitResolve() { time.Sleep(100 * time.Millisecond) }

func TestDeckInvariant(t *testing.T) {
	e := New(testConfig())
	defer e.Stop()
	snap := e.Snapshot()

	if have, want := len(snap.Cards), 16; have != want {
		t.Fatalf("deck size: have %v, want %v", have, want)
	}
	counts := map[int]int{}
	for i, c := range snap.Cards {
		if c.ID != i {
			t.Errorf("card %d: id %d not sequential", i, c.ID)
		}
		if c.FaceUp || c.Matched {
			t.Errorf("card %d: starts faceUp=%v matched=%v", i, c.FaceUp, c.Matched)
		}
		counts[c.Value]++
	}
	for v := 0; v < 8; v++ {
		if counts[v] != 2 {
			t.Errorf("value %d: appears %d times, want 2", v, counts[v])
		}
	}
	if snap.Score != 0 || snap.Elapsed != 0 || snap.Busy || snap.Won {
		t.Errorf("fresh state: %+v", snap)
	}
}

func TestMatchPath(t *testing.T) {
	e := New(testConfig())
	defer e.Stop()
	ids := pairsByValue(e)[0]

	if err := e.Flip(ids[0]); err != nil {
		t.Fatal(err)
	}
	if err := e.Flip(ids[1]); err != nil {
		t.Fatal(err)
	}

	snap := e.Snapshot()
	for _, id := range ids {
		c := snap.Cards[id]
		if !c.Matched || !c.FaceUp {
			t.Errorf("card %d: matched=%v faceUp=%v, want both true", id, c.Matched, c.FaceUp)
		}
	}
	if have, want := snap.Score, 10; have != want {
		t.Errorf("score: have %v, want %v", have, want)
	}
	if snap.Busy {
		t.Error("match must resolve synchronously, engine is busy")
	}
}

func TestMismatchPath(t *testing.T) {
	e := New(testConfig())
	defer e.Stop()

	// Bank some score first so the penalty is visible.
	ids := pairsByValue(e)[0]
	_ = e.Flip(ids[0])
	_ = e.Flip(ids[1])

	a, b := twoDifferent(e)
	_ = e.Flip(a)
	_ = e.Flip(b)

	snap := e.Snapshot()
	if !snap.Busy {
		t.Fatal("mismatch must set busy")
	}
	if !snap.Cards[a].FaceUp || !snap.Cards[b].FaceUp {
		t.Error("both mismatched cards must stay face up during the delay")
	}
	if have, want := snap.Score, 8; have != want {
		t.Errorf("score after penalty: have %v, want %v", have, want)
	}

	waitResolve()
	snap = e.Snapshot()
	if snap.Busy {
		t.Error("busy must clear after the delay")
	}
	if snap.Cards[a].FaceUp || snap.Cards[b].FaceUp {
		t.Error("mismatched cards must flip back down")
	}
}

func TestScoreFloor(t *testing.T) {
	e := New(testConfig())
	defer e.Stop()

	a, b := twoDifferent(e)
	_ = e.Flip(a)
	_ = e.Flip(b)
	if have := e.Score(); have != 0 {
		t.Errorf("score went negative-ish: have %v, want 0", have)
	}
}

func TestNoopGuards(t *testing.T) {
	e := New(testConfig())
	defer e.Stop()

	// Already face up.
	ids := pairsByValue(e)[3]
	_ = e.Flip(ids[0])
	before := e.Snapshot()
	if err := e.Flip(ids[0]); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(before, e.Snapshot()) {
		t.Error("re-flipping a face-up card changed state")
	}

	// Matched.
	_ = e.Flip(ids[1])
	before = e.Snapshot()
	if err := e.Flip(ids[0]); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(before, e.Snapshot()) {
		t.Error("flipping a matched card changed state")
	}

	// Busy.
	a, b := twoDifferent(e)
	_ = e.Flip(a)
	_ = e.Flip(b)
	before = e.Snapshot()
	if !before.Busy {
		t.Fatal("expected busy state")
	}
	for _, c := range before.Cards {
		if err := e.Flip(c.ID); err != nil {
			t.Fatal(err)
		}
	}
	if !reflect.DeepEqual(before, e.Snapshot()) {
		t.Error("flips during busy changed state")
	}
	waitResolve()
}

func TestWinDetection(t *testing.T) {
	e := New(testConfig())
	defer e.Stop()

	e.Tick()
	e.Tick()
	for _, ids := range pairsByValue(e) {
		_ = e.Flip(ids[0])
		_ = e.Flip(ids[1])
	}

	snap := e.Snapshot()
	if !snap.Won {
		t.Fatal("all pairs matched but not won")
	}
	if have, want := snap.Score, 80; have != want {
		t.Errorf("score: have %v, want %v", have, want)
	}

	// Ticks after the win must not advance the clock.
	before := e.Elapsed()
	e.Tick()
	e.Tick()
	if have := e.Elapsed(); have != before {
		t.Errorf("elapsed advanced after win: have %v, want %v", have, before)
	}
}

func TestTickMonotonic(t *testing.T) {
	e := New(testConfig())
	defer e.Stop()
	for i := 1; i <= 5; i++ {
		e.Tick()
		if have := e.Elapsed(); have != i {
			t.Fatalf("after %d ticks: have %v", i, have)
		}
	}
}

func TestRestartMidDelay(t *testing.T) {
	e := New(testConfig())
	defer e.Stop()

	a, b := twoDifferent(e)
	_ = e.Flip(a)
	_ = e.Flip(b)
	if !e.Snapshot().Busy {
		t.Fatal("expected busy state")
	}
	e.Tick()
	e.Restart()

	// The stale resolution fires against the old generation and must not
	// touch the new deck.
	waitResolve()

	snap := e.Snapshot()
	if snap.Busy || snap.Won {
		t.Errorf("after restart: busy=%v won=%v", snap.Busy, snap.Won)
	}
	if snap.Score != 0 || snap.Elapsed != 0 {
		t.Errorf("after restart: score=%d elapsed=%d", snap.Score, snap.Elapsed)
	}
	counts := map[int]int{}
	for _, c := range snap.Cards {
		if c.FaceUp || c.Matched {
			t.Errorf("card %d not reset: %+v", c.ID, c)
		}
		counts[c.Value]++
	}
	for v := 0; v < 8; v++ {
		if counts[v] != 2 {
			t.Errorf("value %d: appears %d times, want 2", v, counts[v])
		}
	}
}

func TestRestartAfterWin(t *testing.T) {
	e := New(testConfig())
	defer e.Stop()
	for _, ids := range pairsByValue(e) {
		_ = e.Flip(ids[0])
		_ = e.Flip(ids[1])
	}
	if !e.Won() {
		t.Fatal("expected won")
	}
	e.Restart()
	if e.Won() {
		t.Error("won must reset on restart")
	}
	e.Tick()
	if have, want := e.Elapsed(), 1; have != want {
		t.Errorf("clock after restart: have %v, want %v", have, want)
	}
}

func TestUnknownCard(t *testing.T) {
	e := New(testConfig())
	defer e.Stop()
	for _, id := range []int{-1, 16, 999} {
		if err := e.Flip(id); !errors.Is(err, ErrUnknownCard) {
			t.Errorf("Flip(%d): err = %v, want ErrUnknownCard", id, err)
		}
	}
}

func TestOnChange(t *testing.T) {
	e := New(testConfig())
	defer e.Stop()

	var got []Snapshot
	unsub := e.OnChange(func(s Snapshot) { got = append(got, s) })

	ids := pairsByValue(e)[0]
	_ = e.Flip(ids[0])
	_ = e.Flip(ids[1])
	e.Tick()
	if have, want := len(got), 3; have != want {
		t.Fatalf("notifications: have %v, want %v", have, want)
	}
	if !got[1].Cards[ids[1]].Matched {
		t.Error("second notification should carry the matched pair")
	}

	unsub()
	e.Tick()
	if have, want := len(got), 3; have != want {
		t.Errorf("notifications after unsubscribe: have %v, want %v", have, want)
	}
}

func TestSeedDeterminism(t *testing.T) {
	a := New(testConfig())
	defer a.Stop()
	b := New(testConfig())
	defer b.Stop()
	if !reflect.DeepEqual(valuesOf(a), valuesOf(b)) {
		t.Error("same seed produced different decks")
	}

	cfg := testConfig()
	cfg.Seed = 2
	c := New(cfg)
	defer c.Stop()
	if reflect.DeepEqual(valuesOf(a), valuesOf(c)) {
		t.Error("different seeds produced identical decks (unlikely; check shuffling)")
	}
}

func valuesOf(e *Engine) []int {
	snap := e.Snapshot()
	out := make([]int, len(snap.Cards))
	for i, c := range snap.Cards {
		out[i] = c.Value
	}
	return out
}

func TestSnapshotSequence(t *testing.T) {
	e := New(testConfig())
	defer e.Stop()

	prev := e.Snapshot().Seq
	if prev != 0 {
		t.Fatalf("fresh seq: have %d, want 0", prev)
	}

	var pair []int
	for _, ids := range pairsByValue(e) {
		pair = ids
		break
	}
	_ = e.Flip(pair[0])
	_ = e.Flip(pair[1])
	if seq := e.Snapshot().Seq; seq != prev+2 {
		t.Errorf("after two flips: have %d, want %d", seq, prev+2)
	}

	// Reads do not advance the counter.
	if a, b := e.Snapshot().Seq, e.Snapshot().Seq; a != b {
		t.Errorf("read bumped seq: %d then %d", a, b)
	}

	e.Tick()
	e.Restart()
	if seq := e.Snapshot().Seq; seq != prev+4 {
		t.Errorf("after tick and restart: have %d, want %d", seq, prev+4)
	}

	// Deferred mismatch resolution counts as a mutation too.
	a, b := twoDifferent(e)
	_ = e.Flip(a)
	_ = e.Flip(b)
	before := e.Snapshot().Seq
	waitResolve()
	if seq := e.Snapshot().Seq; seq != before+1 {
		t.Errorf("after mismatch resolve: have %d, want %d", seq, before+1)
	}
}
