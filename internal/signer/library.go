package signer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/UnendingLoop/PhotoSigner/internal/imageproc"
	"github.com/wb-go/wbf/zlog"
)

// Sign is one candidate watermark of the library.
type Sign struct {
	Name    string
	Picture imageproc.Picture
}

// Library is an ordered set of signs. It must be fully loaded before it is shared
// between goroutines, after that it is read-only.
type Library struct {
	signs []Sign
}

func NewLibrary() *Library {
	return &Library{signs: make([]Sign, 0, 4)}
}

// Load appends every decodable file of dir, in file name order, and returns how many
// signs were added. Entries that are not images are skipped; only an unreadable
// directory is an error.
func (l *Library) Load(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read sign library %q: %w", dir, err)
	}

	added := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		pic, err := imageproc.Load(path)
		if err != nil {
			zlog.Logger.Debug().Err(err).Str("path", path).Msg("skipping non-image sign library entry")
			continue
		}
		l.Add(e.Name(), pic)
		added++
	}

	return added, nil
}

func (l *Library) Add(name string, pic imageproc.Picture) {
	l.signs = append(l.signs, Sign{Name: name, Picture: pic})
}

func (l *Library) Len() int {
	return len(l.signs)
}

// Signs returns the signs in load order. The slice must not be modified.
func (l *Library) Signs() []Sign {
	return l.signs
}

// Clear drops every sign so the images can be collected.
func (l *Library) Clear() {
	clear(l.signs)
	l.signs = l.signs[:0]
}
