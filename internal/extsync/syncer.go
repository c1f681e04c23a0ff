// Package extsync pushes upload results to external systems on a best-effort basis.
package extsync

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/templui/contentops/internal/model"
)

// Update describes one successful upload.
type Update struct {
	Article *model.Article
	Kind    model.UploadKind
	// Value is the hosted URL for image kinds or the markup for html-zip
	Value string
}

type Target interface {
	Name() string
	Push(ctx context.Context, upd Update) error
}

// Syncer fans an update out to every target. Failures are logged as
// warnings with enough context for manual reconciliation and never returned.
type Syncer struct {
	targets []Target
	timeout time.Duration
	log     *slog.Logger
}

func NewSyncer(timeout time.Duration, targets ...Target) *Syncer {
	return &Syncer{
		targets: targets,
		timeout: timeout,
		log:     slog.Default(),
	}
}

// WithLogger replaces the logger used for sync warnings.
func (s *Syncer) WithLogger(l *slog.Logger) *Syncer {
	s.log = l
	return s
}

func (s *Syncer) Targets() []string {
	names := make([]string, len(s.targets))
	for i, t := range s.targets {
		names[i] = t.Name()
	}
	return names
}

// Push blocks until every target finished or the sync timeout elapsed.
// It returns the number of targets that failed.
func (s *Syncer) Push(ctx context.Context, upd Update) int {
	if s == nil || len(s.targets) == 0 || upd.Article == nil {
		return 0
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	// A plain group: one failing target must not cancel the others
	var g errgroup.Group
	failed := make([]bool, len(s.targets))
	for i, target := range s.targets {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					failed[i] = true
					s.log.Warn("external sync panicked", "target", target.Name(), "article_id", upd.Article.ID, "panic", r)
				}
			}()

			err = target.Push(ctx, upd)
			if err != nil {
				failed[i] = true
				s.log.Warn("external sync failed",
					"target", target.Name(),
					"article_id", upd.Article.ID,
					"upload_type", string(upd.Kind),
					"value", preview(upd),
					"error", err,
				)
			}
			return err
		})
	}
	_ = g.Wait()

	n := 0
	for _, f := range failed {
		if f {
			n++
		}
	}
	return n
}

// preview keeps markup out of log lines while still logging image URLs in full.
func preview(upd Update) string {
	if upd.Kind.IsImage() || len(upd.Value) <= 120 {
		return upd.Value
	}
	return upd.Value[:120] + "..."
}
