// internal/faces/faces.go
//
// Card face symbols for the presentation layer.
//
// Every pair value in a deck maps to one face symbol; the server only sends
// a card's face once the card is revealed, so the client cannot peek at
// unflipped pairs.
//
// Initialization behavior (Init):
//   1. If FACES_FILE is set, load one symbol per line from that file.
//   2. Otherwise fall back to the embedded defaults in assets/faces.txt.
//
// Constraints:
//   • Symbols are normalized to lowercase; blanks and #-comments skipped.
//   • The list bounds the largest playable board: a game may use at most
//     Count() pairs.
//   • Initialization runs once (sync.Once).

package faces

import (
	"bufio"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/pairs-game/go-server/assets"
)

var (
	initOnce   sync.Once
	list       []string
	initialErr error
)

// Init loads the face list exactly once.
// Returns an error if the list ends up empty.
func Init() error {
	initOnce.Do(func() {
		if path := os.Getenv("FACES_FILE"); path != "" {
			var err error
			list, err = readFacesFile(path)
			if err != nil {
				initialErr = err
				return
			}
		} else {
			var err error
			list, err = assets.FacesList()
			if err != nil {
				initialErr = err
				return
			}
		}
		if len(list) == 0 {
			initialErr = errors.New("faces: face list is empty")
		}
	})
	return initialErr
}

// readFacesFile loads one symbol per line, lowercased and trimmed.
func readFacesFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(strings.ToLower(sc.Text()))
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

// Face returns the symbol for a pair value, or "" when out of range.
func Face(value int) string {
	if value < 0 || value >= len(list) {
		return ""
	}
	return list[value]
}

// Count returns the number of loaded faces (the maximum pair count).
func Count() int { return len(list) }
