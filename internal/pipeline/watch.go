package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/appINPP/root2data/pkg/errors"
)

// WatchOptions tunes a Watcher.
type WatchOptions struct {
	// Debounce is how long the source directory must stay quiet after a
	// change before a scan starts.
	Debounce time.Duration
	// Schedule is an optional cron spec ("@every 10m", "0 * * * *") for
	// periodic rescans on top of file events.
	Schedule string
	// OnRun, when set, receives the outcome of every pass.
	OnRun func(*Summary, error)
}

// Watcher rescans the source directory whenever a source file appears or
// changes and converts whatever is new.
type Watcher struct {
	conv   *Converter
	opts   WatchOptions
	logger *zap.Logger
}

// NewWatcher returns a Watcher driving conv.
func NewWatcher(conv *Converter, opts WatchOptions) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	return &Watcher{conv: conv, opts: opts, logger: conv.logger.Named("watch")}
}

// Run performs one pass immediately and then one per debounced change or
// schedule tick, until ctx is done. Passes never overlap.
func (w *Watcher) Run(ctx context.Context) error {
	cfg := w.conv.cfg

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "create watcher")
	}
	defer fsw.Close()
	if err := fsw.Add(cfg.SourceDir); err != nil {
		return errors.Wrapf(err, errors.ErrorTypeFile, "watch %s", cfg.SourceDir)
	}

	trigger := make(chan string, 1)
	notify := func(reason string) {
		select {
		case trigger <- reason:
		default:
		}
	}

	if w.opts.Schedule != "" {
		sched := cron.New()
		if _, err := sched.AddFunc(w.opts.Schedule, func() { notify("schedule") }); err != nil {
			return errors.Wrapf(err, errors.ErrorTypeConfig, "invalid schedule %q", w.opts.Schedule)
		}
		sched.Start()
		defer sched.Stop()
	}

	w.logger.Info("watching for source files", zap.String("dir", cfg.SourceDir), zap.String("schedule", w.opts.Schedule))
	notify("startup")

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !strings.HasSuffix(event.Name, cfg.SourceExt) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(w.opts.Debounce, func() { notify("change") })
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		case reason := <-trigger:
			w.pass(ctx, reason)
		}
	}
}

func (w *Watcher) pass(ctx context.Context, reason string) {
	cfg := w.conv.cfg
	plan, err := Scan(cfg.SourceDir, cfg.SourceExt, cfg.Dirs, cfg.Formats)
	if err != nil {
		w.logger.Error("scan failed", zap.Error(err))
		w.report(nil, err)
		return
	}
	if plan.Empty() {
		w.logger.Debug("nothing to convert", zap.String("reason", reason))
		return
	}
	w.logger.Info("converting new files", zap.String("reason", reason), zap.Int("files", len(plan.Jobs())))
	summary, err := w.conv.Run(ctx, plan)
	w.report(summary, err)
}

func (w *Watcher) report(s *Summary, err error) {
	if w.opts.OnRun != nil {
		w.opts.OnRun(s, err)
	}
}
