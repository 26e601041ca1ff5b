package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/Versifine/mouselook/internal/pointer"
)

// SensitivityProvider hands the tick loop a read-only sensitivity snapshot.
// Store may run on any goroutine.
type SensitivityProvider struct {
	current atomic.Pointer[pointer.Sensitivity]
}

func NewSensitivityProvider(initial pointer.Sensitivity) *SensitivityProvider {
	p := &SensitivityProvider{}
	p.Store(initial)
	return p
}

func (p *SensitivityProvider) Sensitivity() pointer.Sensitivity {
	if s := p.current.Load(); s != nil {
		return *s
	}
	return pointer.DefaultSensitivity()
}

func (p *SensitivityProvider) Store(s pointer.Sensitivity) {
	p.current.Store(&s)
}

// Watch reloads the sensitivity section whenever path changes, until ctx is
// done. Invalid files are logged and the previous values kept. The parent
// directory is watched so editors that replace the file are handled.
func (p *SensitivityProvider) Watch(ctx context.Context, path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			p.reload(abs)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Config watcher error", "error", err)
		}
	}
}

func (p *SensitivityProvider) reload(path string) {
	cfg, err := Load(path)
	if err != nil {
		slog.Warn("Config reload rejected, keeping previous sensitivity", "path", path, "error", err)
		return
	}
	s := cfg.Sensitivity.Pointer()
	p.Store(s)
	slog.Info("Sensitivity reloaded",
		"horizontal", s.Horizontal,
		"vertical", s.Vertical,
		"invert_vertical", s.InvertVertical,
		"acceleration", s.Acceleration,
	)
}
