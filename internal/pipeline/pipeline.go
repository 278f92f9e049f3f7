// Package pipeline wires the harvest stages into the catalog, listing and
// normalize paths, reading and writing artifacts through a blob store.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"

	"go.uber.org/zap"

	"github.com/JakeFAU/movie-harvester/internal/changedetect"
	"github.com/JakeFAU/movie-harvester/internal/discovery"
	"github.com/JakeFAU/movie-harvester/internal/enrich"
	"github.com/JakeFAU/movie-harvester/internal/export"
	"github.com/JakeFAU/movie-harvester/internal/listing"
	"github.com/JakeFAU/movie-harvester/internal/movie"
	"github.com/JakeFAU/movie-harvester/internal/normalize"
	"github.com/JakeFAU/movie-harvester/internal/reconcile"
	"github.com/JakeFAU/movie-harvester/internal/runs"
	"github.com/JakeFAU/movie-harvester/internal/storage"
	"github.com/JakeFAU/movie-harvester/internal/storage/postgres"
)

const csvContentType = "text/csv"

// ErrNoUpstream is returned by the catalog and listing paths when the
// pipeline was built without a metadata API client.
var ErrNoUpstream = errors.New("metadata API is not configured")

// Upstream is the metadata API surface the paths use. *tmdb.Client
// satisfies it.
type Upstream interface {
	discovery.PageSource
	enrich.DetailSource
	reconcile.Searcher
}

// Loader bulk loads a normalized result. *postgres.Sink satisfies it.
type Loader interface {
	Load(ctx context.Context, result normalize.Result) (postgres.LoadStats, error)
}

// Settings are the configured defaults a run's parameters override.
type Settings struct {
	Languages        []string
	Year             int
	MaxPages         int
	EnrichWorkers    int
	ReconcileWorkers int
	// ListingURL overrides the page derived from the year.
	ListingURL    string
	Prefix        string
	SkipUnchanged bool
	Actors        normalize.ActorNameSplitter
}

// Pipeline executes runs. Loader may be nil when no database is configured;
// upstream may be nil for normalize-only use.
type Pipeline struct {
	upstream Upstream
	pages    listing.Fetcher
	blobs    storage.BlobStore
	loader   Loader
	settings Settings
	logger   *zap.Logger
}

var _ runs.Executor = (*Pipeline)(nil)

// New wires a Pipeline.
func New(
	upstream Upstream,
	pages listing.Fetcher,
	blobs storage.BlobStore,
	loader Loader,
	settings Settings,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		upstream: upstream,
		pages:    pages,
		blobs:    blobs,
		loader:   loader,
		settings: settings,
		logger:   logger,
	}
}

// Execute dispatches a queued run by kind. Catalog and listing runs with
// Load set are followed by a normalize pass.
func (p *Pipeline) Execute(ctx context.Context, item runs.QueueItem) (runs.Outcome, error) {
	var (
		out runs.Outcome
		err error
	)
	switch item.Kind {
	case runs.KindCatalog:
		out, err = p.Catalog(ctx, item.Params)
	case runs.KindListing:
		out, err = p.Listing(ctx, item.Params)
	case runs.KindNormalize:
		return p.Normalize(ctx, item.Params)
	default:
		return runs.Outcome{}, fmt.Errorf("unknown run kind %q", item.Kind)
	}
	if err != nil || !item.Params.Load {
		return out, err
	}
	norm, err := p.Normalize(ctx, item.Params)
	out.Counters.Facts = norm.Counters.Facts
	out.Counters.Skipped = norm.Counters.Skipped
	out.Artifacts = append(out.Artifacts, norm.Artifacts...)
	return out, err
}

func (p *Pipeline) resolve(params runs.Parameters) runs.Parameters {
	if len(params.Languages) == 0 {
		params.Languages = p.settings.Languages
	}
	if params.Year == 0 {
		params.Year = p.settings.Year
	}
	if params.MaxPages == 0 {
		params.MaxPages = p.settings.MaxPages
	}
	return params
}

// CatalogPath is where the catalog CSV of one language lands.
func (p *Pipeline) CatalogPath(year int, language string) string {
	return path.Join(p.settings.Prefix, "catalog", strconv.Itoa(year), language+".csv")
}

// ListingPath is where the listing CSV lands; it is also the prior snapshot
// the next listing run compares against.
func (p *Pipeline) ListingPath(year int) string {
	return path.Join(p.settings.Prefix, "listing", strconv.Itoa(year)+".csv")
}

// ModelDir is where the JSON exports of the dimensional model land.
func (p *Pipeline) ModelDir(year int) string {
	return path.Join(p.settings.Prefix, "model", strconv.Itoa(year))
}

// Catalog discovers and enriches movies per language and writes one CSV per
// language. A language whose discovery fails outright is skipped; the run
// fails only when every language does.
func (p *Pipeline) Catalog(ctx context.Context, params runs.Parameters) (runs.Outcome, error) {
	if p.upstream == nil {
		return runs.Outcome{}, ErrNoUpstream
	}
	params = p.resolve(params)
	var (
		out      runs.Outcome
		failures []error
	)
	disc := discovery.New(p.upstream, params.MaxPages, p.logger)
	enricher := enrich.New(p.upstream, p.settings.EnrichWorkers, p.logger)
	from := fmt.Sprintf("%d-01-01", params.Year)
	to := fmt.Sprintf("%d-12-31", params.Year)

	for _, lang := range params.Languages {
		log := p.logger.With(zap.String("language", lang), zap.Int("year", params.Year))
		res := disc.Discover(ctx, discovery.Filter{Language: lang, ReleaseFrom: from, ReleaseTo: to})
		if res.Err != nil && res.Empty() {
			log.Error("discovery failed", zap.Error(res.Err))
			failures = append(failures, fmt.Errorf("discover %s: %w", lang, res.Err))
			continue
		}
		if res.Truncated {
			log.Warn("discovery truncated", zap.Int("pages", res.PagesFetched), zap.Error(res.Err))
		}
		records := enricher.Enrich(ctx, res.Candidates)
		rows := make([]movie.Row, 0, len(records))
		for _, rec := range records {
			if rec.Partial {
				out.Counters.Partial++
			}
			rows = append(rows, rec.ToRow())
		}
		uri, err := p.putRows(ctx, p.CatalogPath(params.Year, lang), rows, false)
		if err != nil {
			return out, err
		}
		out.Counters.Candidates += len(res.Candidates)
		out.Counters.Records += len(rows)
		out.Artifacts = append(out.Artifacts, uri)
		log.Info("catalog written", zap.Int("records", len(rows)), zap.String("uri", uri))
	}
	if len(failures) > 0 && len(failures) == len(params.Languages) {
		return out, errors.Join(failures...)
	}
	return out, nil
}

// Listing reconciles the listing page against the upstream catalog,
// annotates rows against the prior snapshot, and replaces the snapshot.
func (p *Pipeline) Listing(ctx context.Context, params runs.Parameters) (runs.Outcome, error) {
	if p.upstream == nil {
		return runs.Outcome{}, ErrNoUpstream
	}
	params = p.resolve(params)
	var out runs.Outcome

	url := p.settings.ListingURL
	if url == "" {
		url = listing.URLForYear(params.Year)
	}
	entries, err := listing.NewSource(p.pages, url, params.Year, p.logger).Entries(ctx)
	if err != nil {
		return out, err
	}

	enricher := enrich.New(p.upstream, p.settings.EnrichWorkers, p.logger)
	rec := reconcile.New(p.upstream, enricher, p.settings.ReconcileWorkers, params.Year, p.logger)
	matches := rec.ReconcileAll(ctx, entries)

	rows := make([]movie.Row, 0, len(matches))
	for _, m := range matches {
		if !m.Found {
			out.Counters.Unmatched++
			continue
		}
		if m.Record.Partial {
			out.Counters.Partial++
		}
		rows = append(rows, m.Record.ToRow())
	}

	snapshot := p.ListingPath(params.Year)
	prior, err := p.readRows(ctx, snapshot)
	if err != nil {
		return out, err
	}
	rows = changedetect.Annotate(rows, changedetect.IndexRows(prior), changedetect.DefaultFields)

	uri, err := p.putRows(ctx, snapshot, rows, true)
	if err != nil {
		return out, err
	}
	out.Counters.Candidates = len(entries)
	out.Counters.Records = len(rows)
	out.Artifacts = append(out.Artifacts, uri)
	p.logger.Info("listing written",
		zap.Int("entries", len(entries)),
		zap.Int("records", len(rows)),
		zap.Int("prior", len(prior)),
		zap.String("uri", uri),
	)
	return out, nil
}

// ErrSkipWithLoad rejects loading a partial model: the sink replaces every
// table, so rows skipped as unchanged would be deleted.
var ErrSkipWithLoad = errors.New("normalize.skip_unchanged cannot be combined with load")

// Normalize reads the stored catalog and listing CSVs of a year, builds the
// dimensional model, exports it as JSON and loads it when asked to.
func (p *Pipeline) Normalize(ctx context.Context, params runs.Parameters) (runs.Outcome, error) {
	params = p.resolve(params)
	var out runs.Outcome
	if params.Load && p.settings.SkipUnchanged {
		return out, ErrSkipWithLoad
	}

	n := normalize.New(normalize.Options{
		Actors:        p.settings.Actors,
		SkipUnchanged: p.settings.SkipUnchanged,
	}, p.logger)

	sources := make([][2]string, 0, len(params.Languages)+1)
	for _, lang := range params.Languages {
		sources = append(sources, [2]string{p.CatalogPath(params.Year, lang), "catalog:" + lang})
	}
	sources = append(sources, [2]string{p.ListingPath(params.Year), "listing"})

	read := 0
	for _, src := range sources {
		rows, err := p.readRows(ctx, src[0])
		if err != nil {
			return out, err
		}
		if rows == nil {
			p.logger.Info("no export to normalize", zap.String("path", src[0]))
			continue
		}
		read++
		kept := n.AddAll(rows, src[1])
		out.Counters.Records += len(rows)
		p.logger.Debug("normalized export", zap.String("path", src[0]), zap.Int("kept", kept))
	}
	if read == 0 {
		return out, fmt.Errorf("no exports found for %d", params.Year)
	}

	result := n.Result()
	out.Counters.Facts = len(result.Facts)
	out.Counters.Skipped = result.Skipped

	uris, err := export.PutResult(ctx, p.blobs, p.ModelDir(params.Year), result)
	out.Artifacts = append(out.Artifacts, uris...)
	if err != nil {
		return out, fmt.Errorf("export model: %w", err)
	}

	if params.Load {
		if p.loader == nil {
			return out, fmt.Errorf("load requested but no database is configured")
		}
		stats, err := p.loader.Load(ctx, result)
		if err != nil {
			return out, fmt.Errorf("load model: %w", err)
		}
		p.logger.Info("model loaded", zap.Int("tables", len(stats)))
	}
	return out, nil
}

func (p *Pipeline) putRows(ctx context.Context, target string, rows []movie.Row, withUpdated bool) (string, error) {
	var buf bytes.Buffer
	if err := export.WriteRows(&buf, rows, withUpdated); err != nil {
		return "", fmt.Errorf("encode %s: %w", target, err)
	}
	uri, err := p.blobs.PutObject(ctx, target, csvContentType, &buf)
	if err != nil {
		return "", fmt.Errorf("store %s: %w", target, err)
	}
	return uri, nil
}

// readRows returns nil rows and no error when target does not exist.
func (p *Pipeline) readRows(ctx context.Context, target string) ([]movie.Row, error) {
	rc, err := p.blobs.GetObject(ctx, target)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", target, err)
	}
	defer rc.Close()
	rows, err := export.ReadRows(rc)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", target, err)
	}
	if rows == nil {
		rows = []movie.Row{}
	}
	return rows, nil
}
