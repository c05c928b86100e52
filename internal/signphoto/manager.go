// Package signphoto signs every photo of a directory with the best sign of a library and
// writes the results next to the originals under a name prefix.
package signphoto

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/UnendingLoop/PhotoSigner/internal/imageproc"
	"github.com/UnendingLoop/PhotoSigner/internal/signer"
	"github.com/disintegration/imaging"
	"github.com/sourcegraph/conc/pool"
	"github.com/wb-go/wbf/zlog"
)

const (
	DefaultPrefix  = "SIGN_"
	DefaultQuality = 100
)

var ErrNoSigns = errors.New("sign library is empty")

// Manager drives a batch run over PhotoDir.
type Manager struct {
	PhotoDir string
	Prefix   string
	Quality  int
	// Workers above 1 signs photos concurrently.
	Workers int
}

// Report counts the outcome of a batch run.
type Report struct {
	Signed      int
	NoCandidate int
	Failed      int
	Skipped     int
}

func (r Report) Total() int {
	return r.Signed + r.NoCandidate + r.Failed
}

type counters struct {
	signed, noCandidate, failed, skipped atomic.Int64
}

func (c *counters) report() Report {
	return Report{
		Signed:      int(c.signed.Load()),
		NoCandidate: int(c.noCandidate.Load()),
		Failed:      int(c.failed.Load()),
		Skipped:     int(c.skipped.Load()),
	}
}

func (m *Manager) prefix() string {
	if m.Prefix == "" {
		return DefaultPrefix
	}
	return m.Prefix
}

func (m *Manager) quality() int {
	if m.Quality <= 0 || m.Quality > 100 {
		return DefaultQuality
	}
	return m.Quality
}

// SignAll signs the photos found in PhotoDir. The directory listing is taken once, so
// outputs written during the run are never picked up. Failures on single photos are
// counted and logged; only an unreadable directory, an empty library or a cancelled
// context abort the run.
func (m *Manager) SignAll(ctx context.Context, drawer *signer.Drawer, cfg signer.Config) (Report, error) {
	var cnt counters

	if drawer.Library().Len() == 0 {
		return Report{}, ErrNoSigns
	}
	if err := cfg.Placement.Validate(); err != nil {
		return Report{}, err
	}

	entries, err := os.ReadDir(m.PhotoDir)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read photo dir %q: %w", m.PhotoDir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), m.prefix()) {
			cnt.skipped.Add(1)
			continue
		}
		names = append(names, e.Name())
	}

	workers := max(m.Workers, 1)
	p := pool.New().WithMaxGoroutines(workers)

	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		name := name
		p.Go(func() {
			if ctx.Err() != nil {
				return
			}
			m.signOne(drawer, cfg, name, &cnt)
		})
	}
	p.Wait()

	if err := ctx.Err(); err != nil {
		return cnt.report(), err
	}
	return cnt.report(), nil
}

func (m *Manager) signOne(drawer *signer.Drawer, cfg signer.Config, name string, cnt *counters) {
	log := zlog.Logger.With().Str("photo", name).Logger()
	path := filepath.Join(m.PhotoDir, name)

	pic, err := imageproc.Load(path)
	if err != nil {
		// не картинка, просто пропускаем
		log.Debug().Err(err).Msg("skipping non-image entry")
		cnt.skipped.Add(1)
		return
	}

	res, err := drawer.Sign(pic, cfg)
	if err != nil {
		if errors.Is(err, signer.ErrNoCandidate) {
			log.Info().Msg("no suitable sign, photo left as is")
			cnt.noCandidate.Add(1)
			return
		}
		log.Error().Err(err).Msg("failed to sign photo")
		cnt.failed.Add(1)
		return
	}

	out := filepath.Join(m.PhotoDir, OutputName(m.prefix(), name))
	if err := imageproc.Save(out, res.Image, m.quality()); err != nil {
		log.Error().Err(err).Msg("failed to save signed photo")
		cnt.failed.Add(1)
		return
	}

	log.Info().Str("sign", res.Sign).Float64("distance", res.Distance).Str("output", out).Msg("photo signed")
	cnt.signed.Add(1)
}

// OutputName is prefix+name, with the extension switched to .png when the source format
// cannot be written back.
func OutputName(prefix, name string) string {
	if _, err := imaging.FormatFromFilename(name); err != nil {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".png"
	}
	return prefix + name
}
