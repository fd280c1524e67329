// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode.
// Exposes three endpoints under /daily:
//   - POST /daily/new         → start today's board (creates or reuses session)
//   - POST /daily/flip        → flip a card on today's board
//   - GET  /daily/leaderboard → fetch top 20 results for today (or a given date)
//
// Each user can play once per day (enforced by DB + in-memory session).
// Sessions are held in memory for active play and persisted to DB on win.
// Everyone gets the same board: the deck shuffle seed is derived
// deterministically from date + salt.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/pairs-game/go-server/internal/daily"
	"github.com/pairs-game/go-server/internal/game"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	store    *daily.Store
	salt     string
	sessions map[string]*dailySession // active sessions keyed by userID|date
	mu       sync.Mutex               // guards sessions
}

// dailySession holds transient in-memory state for an in-progress daily board.
type dailySession struct {
	GameID   string
	UserID   string
	Date     string
	Seed     int64
	Finished bool
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	dd := &dailyServer{
		srv:      s,
		store:    daily.NewStore(s.db),
		salt:     getEnv("DAILY_SALT", "local_dev_salt"),
		sessions: make(map[string]*dailySession),
	}
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", dd.handleNew)
		r.Post("/flip", dd.handleFlip)
		r.Get("/leaderboard", dd.handleLeaderboard)
	})
}

// todayKey returns the current date key and its deterministic deck seed.
func (d *dailyServer) todayKey() (date string, seed int64) {
	now := time.Now().UTC()
	return daily.DateKey(now), daily.Seed(now, d.salt)
}

// evict removes a daily engine from the session store (stopping its timers)
// and forgets its id in the daily registry.
func (d *dailyServer) evict(ctx context.Context, gameID string) {
	_ = d.srv.store.Delete(ctx, gameID)
	d.srv.unmarkDaily(gameID)
}

// pruneStale drops sessions from dates other than the current one and evicts
// their engines. Called on /daily/new so the map tracks at most one date.
func (d *dailyServer) pruneStale(ctx context.Context, date string) {
	var stale []string
	d.mu.Lock()
	for k, sess := range d.sessions {
		if sess.Date != date {
			stale = append(stale, sess.GameID)
			delete(d.sessions, k)
		}
	}
	d.mu.Unlock()
	for _, id := range stale {
		d.evict(ctx, id)
	}
}

// userIDWithAnon returns the authenticated user ID if logged in,
// otherwise ensures an anonymous ID via Server.ensureAnonID.
func (d *dailyServer) userIDWithAnon(w http.ResponseWriter, r *http.Request) string {
	if me, _ := r.Context().Value(ctxUserKey{}).(*authUser); me != nil {
		return me.ID
	}
	return d.srv.ensureAnonID(w, r)
}

// -----------------------------------------------------------------------------
// /daily/new

// dailyNewRes is returned by /daily/new.
type dailyNewRes struct {
	GameID string    `json:"gameId"`
	Date   string    `json:"date"`
	Played bool      `json:"played"`
	State  *stateRes `json:"state,omitempty"`
}

// handleNew creates or reuses a daily session for the current date.
// - If user already has a DB row for today → return Played=true.
// - Otherwise create/reuse an in-memory session and return the board.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	uid := d.userIDWithAnon(w, r)
	date, seed := d.todayKey()
	d.pruneStale(r.Context(), date)

	// Check if already played (persisted in DB).
	if played, err := d.store.AlreadyPlayed(r.Context(), uid, date); err == nil && played {
		_ = json.NewEncoder(w).Encode(dailyNewRes{Date: date, Played: true})
		return
	}

	// Reuse or create session in memory.
	key := uid + "|" + date
	d.mu.Lock()
	if sess, ok := d.sessions[key]; ok {
		d.mu.Unlock()
		res := dailyNewRes{GameID: sess.GameID, Date: date}
		if eng, err := d.srv.store.Get(r.Context(), sess.GameID); err == nil {
			st := toStateRes(eng.Snapshot())
			res.State = &st
		}
		_ = json.NewEncoder(w).Encode(res)
		return
	}

	cfg := game.DefaultConfig()
	cfg.Seed = seed
	eng := game.New(cfg)
	if err := d.srv.store.Save(r.Context(), eng); err != nil {
		d.mu.Unlock()
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	sess := &dailySession{
		GameID: eng.ID(),
		UserID: uid,
		Date:   date,
		Seed:   seed,
	}
	d.sessions[key] = sess
	d.mu.Unlock()
	d.srv.markDaily(eng.ID())

	st := toStateRes(eng.Snapshot())
	_ = json.NewEncoder(w).Encode(dailyNewRes{GameID: sess.GameID, Date: date, State: &st})
}

// -----------------------------------------------------------------------------
// /daily/flip

// dailyFlipReq is the request payload for /daily/flip.
type dailyFlipReq struct {
	GameID string `json:"gameId"`
	CardID int    `json:"cardId"`
}

// dailyFlipRes is the response payload for /daily/flip.
// Game is absent once the session is locked; the engine is gone by then.
type dailyFlipRes struct {
	State string    `json:"state"` // in_progress | won | locked
	Game  *stateRes `json:"game,omitempty"`
}

// handleFlip applies a flip to today's daily board.
// Rejects if no session or mismatched GameID. On win the result is
// persisted; only a successful insert locks the session and evicts the
// engine, so a DB failure leaves it retryable.
func (d *dailyServer) handleFlip(w http.ResponseWriter, r *http.Request) {
	uid := d.userIDWithAnon(w, r)

	var p dailyFlipReq
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	date, _ := d.todayKey()

	key := uid + "|" + date
	d.mu.Lock()
	sess, ok := d.sessions[key]
	finished := ok && sess.Finished
	d.mu.Unlock()
	if !ok || sess.GameID != p.GameID {
		http.Error(w, `{"error":"no_session"}`, http.StatusConflict)
		return
	}
	if finished {
		_ = json.NewEncoder(w).Encode(dailyFlipRes{State: "locked"})
		return
	}

	eng, err := d.srv.store.Get(r.Context(), p.GameID)
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}

	if err := eng.Flip(p.CardID); err != nil {
		http.Error(w, `{"error":"unknown_card"}`, http.StatusBadRequest)
		return
	}

	snap := eng.Snapshot()
	st := toStateRes(snap)
	if snap.Won {
		err := d.store.InsertResult(r.Context(), daily.Result{
			UserID: uid, Date: date, Seed: sess.Seed,
			Score: snap.Score, ElapsedSeconds: snap.Elapsed,
		})
		if err != nil {
			// Leave the session open; the next flip on the solved board
			// retries the insert. INSERT OR IGNORE keeps it once-per-day.
			log.Warn().Err(err).Str("user", uid).Str("date", date).Msg("insert daily result")
		} else {
			d.mu.Lock()
			sess.Finished = true
			d.mu.Unlock()
			d.evict(r.Context(), sess.GameID)
		}
		_ = json.NewEncoder(w).Encode(dailyFlipRes{State: "won", Game: &st})
		return
	}
	_ = json.NewEncoder(w).Encode(dailyFlipRes{State: "in_progress", Game: &st})
}

// -----------------------------------------------------------------------------
// /daily/leaderboard

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date, _ = d.todayKey()
	}
	rows, err := d.store.Leaderboard(r.Context(), date, 20)
	if err != nil {
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(lbRes{Date: date, Top: rows})
}
