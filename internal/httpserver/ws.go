// internal/httpserver/ws.go
//
// Spectator surface for a single game:
//   - GET /game/watch?gameId= → WebSocket. Subscribes to the engine's change
//     notifications and pushes the masked snapshot after every mutation
//     (flips, mismatch resolutions, clock ticks, restarts).
//   - GET /game/share?gameId= → PNG QR code pointing at the watch URL, for
//     handing a spectator link to another device.

package httpserver

import (
	"net/http"

	"github.com/gorilla/websocket"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/pairs-game/go-server/internal/game"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS for the REST routes is handled by middleware; the browser's own
	// origin header is not a useful gate for spectator links.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWatch streams state snapshots to a spectator until either side
// closes the connection.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.engineFromQuery(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return // Upgrade already wrote the error response
	}
	defer conn.Close()

	// Buffered fan-in from the engine. A slow watcher drops intermediate
	// frames rather than blocking the engine's listener callback.
	updates := make(chan game.Snapshot, 16)
	unsub := eng.OnChange(func(snap game.Snapshot) {
		select {
		case updates <- snap:
		default:
		}
	})
	defer unsub()

	first := eng.Snapshot()
	if err := conn.WriteJSON(toStateRes(first)); err != nil {
		return
	}
	lastSeq := first.Seq

	// Reader goroutine: we ignore client messages but need reads to notice
	// the connection going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snap := <-updates:
			// Listener callbacks run outside the engine lock, so two frames
			// can arrive swapped. The sequence counter restores order.
			if snap.Seq <= lastSeq {
				continue
			}
			lastSeq = snap.Seq
			if err := conn.WriteJSON(toStateRes(snap)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// handleShare renders a QR code for the game's watch URL.
// PUBLIC_BASE_URL sets the externally reachable address.
func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	eng, ok := s.engineFromQuery(w, r)
	if !ok {
		return
	}
	base := getEnv("PUBLIC_BASE_URL", "http://localhost:5175")
	link := base + "/game/watch?gameId=" + eng.ID()
	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		http.Error(w, `{"error":"qr_failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}
