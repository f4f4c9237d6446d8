// Package report builds localized subject reports from stored history. It
// caches finished reports and coalesces concurrent builds for one subject.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kagehq/kage/internal/i18n"
	"github.com/kagehq/kage/internal/metrics"
	"github.com/kagehq/kage/internal/model"
	"github.com/kagehq/kage/internal/scoring"
)

const (
	defaultCacheSize = 512
	exportWorkers    = 4
)

// Store is the persistence the service reads from.
type Store interface {
	GetSubject(id string) (model.Subject, error)
	ListResults(subjectID string) ([]model.Record, error)
}

// Narrator writes a free-text summary of a localized report.
type Narrator interface {
	Narrate(ctx context.Context, r model.Report, subjectName, lang string) (string, error)
}

// Options configures a Service. Zero values select defaults.
type Options struct {
	CacheSize int
	Narrator  Narrator
	Observer  metrics.Observer
	Now       func() time.Time
}

// cacheKey identifies a built report. generation changes on every
// Invalidate, so a report built from an older history is never looked up.
type cacheKey struct {
	subjectID  string
	lang       string
	narrative  bool
	generation uint64
}

func (k cacheKey) String() string {
	return fmt.Sprintf("%s|%s|%t|%d", k.subjectID, k.lang, k.narrative, k.generation)
}

// Service produces reports for subjects.
type Service struct {
	store    Store
	catalog  scoring.Catalog
	cache    *lru.Cache[cacheKey, model.Report]
	group    singleflight.Group
	narrator Narrator
	observer metrics.Observer
	now      func() time.Time

	mu          sync.Mutex
	generations map[string]uint64
}

// New creates a report service.
func New(store Store, cat scoring.Catalog, opts Options) (*Service, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[cacheKey, model.Report](size)
	if err != nil {
		return nil, fmt.Errorf("create report cache: %w", err)
	}
	s := &Service{
		store:    store,
		catalog:  cat,
		cache:    cache,
		narrator: opts.Narrator,
		observer: opts.Observer,
		now:      opts.Now,

		generations: make(map[string]uint64),
	}
	if s.observer == nil {
		s.observer = metrics.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// NarrativeEnabled reports whether a narrator is configured.
func (s *Service) NarrativeEnabled() bool {
	return s.narrator != nil
}

// Report returns the report of a subject localized for lang, which may be a
// language tag or an Accept-Language value. A narrative is added only when
// requested and a narrator is configured; a failed narrative is logged and
// the report is returned without it.
func (s *Service) Report(ctx context.Context, subjectID, lang string, narrative bool) (model.Report, error) {
	start := time.Now()
	key := cacheKey{
		subjectID:  subjectID,
		lang:       lang,
		narrative:  narrative && s.narrator != nil,
		generation: s.generation(subjectID),
	}

	if r, ok := s.cache.Get(key); ok {
		s.observer.RecordReport(time.Since(start), true, nil)
		return r, nil
	}

	v, err, _ := s.group.Do(key.String(), func() (any, error) {
		return s.build(ctx, key)
	})
	s.observer.RecordReport(time.Since(start), false, err)
	if err != nil {
		return model.Report{}, err
	}
	return v.(model.Report), nil
}

func (s *Service) build(ctx context.Context, key cacheKey) (model.Report, error) {
	sub, err := s.store.GetSubject(key.subjectID)
	if err != nil {
		return model.Report{}, fmt.Errorf("get subject %s: %w", key.subjectID, err)
	}
	recs, err := s.store.ListResults(key.subjectID)
	if err != nil {
		return model.Report{}, fmt.Errorf("list results for %s: %w", key.subjectID, err)
	}

	r := scoring.BuildReport(s.catalog, sub.ID, recs, s.now())
	s.observer.RecordRisk(r.RiskLevel)

	lctx := ctx
	if key.lang != "" {
		lctx = i18n.WithLanguage(ctx, key.lang)
	}
	Localize(lctx, &r)
	name := sub.DisplayName
	if name == "" {
		name = sub.ID
	}
	r.Title = i18n.Td(lctx, "SubjectReport", map[string]any{"Name": name})

	if key.narrative {
		text, err := s.narrator.Narrate(ctx, r, sub.DisplayName, key.lang)
		if err != nil {
			slog.Warn("narrative generation failed", "subject_id", sub.ID, "error", err)
		} else {
			r.Narrative = text
		}
	}

	s.mu.Lock()
	if s.generations[key.subjectID] == key.generation {
		s.cache.Add(key, r)
	}
	s.mu.Unlock()
	slog.Debug("built report", "subject_id", sub.ID, "records", len(recs), "archetype", r.Archetype.Key)
	return r, nil
}

// Invalidate drops every cached report of a subject. Call it after storing
// new results for that subject.
func (s *Service) Invalidate(subjectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[subjectID]++
	for _, k := range s.cache.Keys() {
		if k.subjectID == subjectID {
			s.cache.Remove(k)
		}
	}
}

func (s *Service) generation(subjectID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[subjectID]
}

// Export fills in the report of every entry, building several at once.
func (s *Service) Export(ctx context.Context, entries []model.SubjectExport, lang string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(exportWorkers)
	for i := range entries {
		g.Go(func() error {
			r, err := s.Report(gctx, entries[i].Subject.ID, lang, false)
			if err != nil {
				return err
			}
			entries[i].Report = r
			return nil
		})
	}
	return g.Wait()
}
