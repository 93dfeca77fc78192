package profile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	prefs "github.com/goliatone/go-prefs"
	"github.com/goliatone/go-prefs/internal/hydrate"
	"go.uber.org/zap"
)

// DefaultSettleDelay is how long a removed or renamed profile file may stay
// missing before the watcher keys the user out.
const DefaultSettleDelay = 250 * time.Millisecond

// FileWatcher delivers the profile stored at Path whenever the file is
// written. A file that stays missing for SettleDelay keys the user out, so
// editors that save by renaming the old file aside and writing a new one
// only trigger a reload. Documents that fail to decode are logged and
// skipped.
type FileWatcher struct {
	Path        string
	Target      Deliverer
	Logger      *zap.Logger
	SettleDelay time.Duration

	decoder *hydrate.Decoder[prefs.Profile]
}

// NewFileWatcher constructs a watcher for path.
func NewFileWatcher(path string, target Deliverer, logger *zap.Logger) *FileWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileWatcher{Path: path, Target: target, Logger: logger, SettleDelay: DefaultSettleDelay}
}

// Run watches the file until ctx is cancelled. The parent directory is
// watched so editors that replace the file by rename are handled. If the
// file already exists it is delivered once before waiting for changes.
func (w *FileWatcher) Run(ctx context.Context) error {
	if w.Target == nil {
		return fmt.Errorf("profile: deliverer is required")
	}
	if w.Logger == nil {
		w.Logger = zap.NewNop()
	}
	abs, err := filepath.Abs(w.Path)
	if err != nil {
		return fmt.Errorf("profile: resolve %q: %w", w.Path, err)
	}
	w.decoder = hydrate.NewDecoder[prefs.Profile]()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("profile: watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("profile: watch %q: %w", filepath.Dir(abs), err)
	}

	if _, err := os.Stat(abs); err == nil {
		w.load(abs)
	}

	settle := w.SettleDelay
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	missing := time.NewTimer(settle)
	missing.Stop()
	defer missing.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-missing.C:
			if _, err := os.Stat(abs); err == nil {
				w.load(abs)
				continue
			}
			w.Logger.Info("profile file removed", zap.String("path", abs))
			w.Target.DeliverProfile(nil)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
				stopTimer(missing)
				w.load(abs)
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				w.Logger.Debug("profile file moved, waiting for it to return", zap.String("path", abs))
				stopTimer(missing)
				missing.Reset(settle)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.Logger.Warn("profile watcher error", zap.Error(err))
		}
	}
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func (w *FileWatcher) load(path string) {
	profile, err := w.read(path)
	if err != nil {
		w.Logger.Warn("profile file skipped", zap.String("path", path), zap.Error(err))
		return
	}
	report := w.Target.DeliverProfile(&profile)
	w.Logger.Debug("profile file delivered",
		zap.String("path", path),
		zap.Bool("identity_changed", report.IdentityChanged),
		zap.Int("applied", report.Applied),
	)
}

func (w *FileWatcher) read(path string) (prefs.Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs.Profile{}, err
		}
		return prefs.Profile{}, fmt.Errorf("profile: read %q: %w", path, err)
	}
	return w.decoder.DecodeBytes(hydrate.Context{Source: path, Format: hydrate.FormatFromPath(path)}, raw)
}

// ReadFile decodes a profile document from disk.
func ReadFile(path string) (prefs.Profile, error) {
	w := &FileWatcher{decoder: hydrate.NewDecoder[prefs.Profile]()}
	return w.read(path)
}
