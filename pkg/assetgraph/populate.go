package assetgraph

import (
	"context"
	"time"

	agerrors "github.com/matzehuels/assetgraph/pkg/errors"
	"github.com/matzehuels/assetgraph/pkg/loader"
	"github.com/matzehuels/assetgraph/pkg/observability"
	"github.com/matzehuels/assetgraph/pkg/urltools"
)

// DefaultConcurrency is the number of loads in flight during population.
const DefaultConcurrency = 8

// PopulateOptions configures [Graph.Populate].
type PopulateOptions struct {
	// Seeds are the assets to start from. Defaults to every loaded,
	// non-inline asset that has not been populated yet.
	Seeds []*Asset

	// Include decides whether the target of a relation is followed. The
	// target URL is already resolved when it is called. Nil follows
	// relations to http, https and file URLs. Inline targets are always
	// followed.
	Include func(*Relation) bool

	// Concurrency bounds the number of loads in flight.
	Concurrency int
}

// FollowSchemes returns an Include predicate accepting targets whose URL
// uses one of the schemes.
func FollowSchemes(schemes ...string) func(*Relation) bool {
	set := make(map[string]bool, len(schemes))
	for _, s := range schemes {
		set[s] = true
	}
	return func(r *Relation) bool {
		return r.to != nil && set[urltools.Scheme(r.to.url)]
	}
}

// Populate discovers relations breadth-first from the seeds, loading
// unloaded targets on the way.
//
// Loads run concurrently, bounded by Concurrency, and each URL is fetched
// at most once. Every graph mutation happens on the calling goroutine as
// load results arrive. A failed load is recorded as a warning and leaves
// the asset unloaded; traversal continues. Cycles terminate because every
// asset is visited once.
//
// Populate returns ctx.Err() if the context is canceled; all other
// failures are diagnostics.
func (g *Graph) Populate(ctx context.Context, opts PopulateOptions) error {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Include == nil {
		opts.Include = FollowSchemes("http", "https", "file")
	}
	seeds := opts.Seeds
	if seeds == nil {
		seeds = g.FindAssets(AssetQuery{Inline: Bool(false), Match: func(a *Asset) bool {
			return a.IsLoaded() && !a.populated
		}})
	}
	for _, s := range seeds {
		if s.graph != g {
			return agerrors.New(agerrors.ErrCodeUsage, "seed is not in this graph").WithAsset(s.String())
		}
	}

	start := time.Now()
	warnings := len(g.Warnings())
	observability.Populate().OnPopulateStart(ctx, len(seeds))

	p := &populator{
		g:       g,
		ctx:     ctx,
		include: opts.Include,
		visited: make(map[*Asset]bool),
		sem:     make(chan struct{}, opts.Concurrency),
		results: make(chan loadResult),
	}
	err := p.run(seeds)

	dur := time.Since(start)
	observability.Populate().OnPopulateComplete(ctx, len(g.assets), len(g.relations), len(g.Warnings())-warnings, dur)
	g.logger.Debug("populated", "assets", len(g.assets), "relations", len(g.relations), "duration", dur)
	return err
}

// populator is the state of one population run. Only run and the
// methods it calls touch the graph; load goroutines report back through
// the results channel.
type populator struct {
	g       *Graph
	ctx     context.Context
	include func(*Relation) bool

	queue    []*Asset
	visited  map[*Asset]bool
	inflight int
	sem      chan struct{}
	results  chan loadResult
}

type loadResult struct {
	asset *Asset
	res   *loader.Resource
	err   error
}

func (p *populator) run(seeds []*Asset) error {
	for _, s := range seeds {
		p.visit(s)
	}
	for {
		for len(p.queue) > 0 {
			a := p.queue[0]
			p.queue = p.queue[1:]
			p.process(a)
		}
		if p.inflight == 0 {
			return nil
		}
		select {
		case r := <-p.results:
			p.inflight--
			p.apply(r)
		case <-p.ctx.Done():
			for ; p.inflight > 0; p.inflight-- {
				<-p.results
			}
			return p.ctx.Err()
		}
	}
}

func (p *populator) visit(a *Asset) {
	if p.visited[a] {
		return
	}
	p.visited[a] = true
	p.queue = append(p.queue, a)
}

// process follows the relations of a loaded asset or starts loading an
// unloaded one.
func (p *populator) process(a *Asset) {
	if a.graph != p.g {
		return
	}
	if !a.IsLoaded() {
		if a.url != "" && a.loadErr == nil {
			p.load(a)
		}
		return
	}
	if err := p.g.discoverFrom(a); err != nil {
		p.g.Warn(err)
	}
	for _, r := range a.outgoing {
		if r.state != Attached || r.to == nil {
			continue
		}
		if r.to.inline {
			p.visit(r.to)
			continue
		}
		if !p.include(r) {
			r.excluded = true
			continue
		}
		r.excluded = false
		p.visit(r.to)
	}
	a.populated = true
}

func (p *populator) load(a *Asset) {
	p.inflight++
	url := a.url
	go func() {
		select {
		case p.sem <- struct{}{}:
		case <-p.ctx.Done():
			p.results <- loadResult{asset: a, err: p.ctx.Err()}
			return
		}
		res, err := p.g.fetch(p.ctx, url)
		<-p.sem
		p.results <- loadResult{asset: a, res: res, err: err}
	}()
}

func (p *populator) apply(r loadResult) {
	a := r.asset
	if a.graph != p.g {
		return
	}
	if r.err != nil {
		a.loadErr = r.err
		p.g.Warn(asContentError(r.err, agerrors.ErrCodeLoad, a))
		return
	}
	if r.res.URL != "" && r.res.URL != a.url {
		p.g.logger.Debug("redirected", "from", a.url, "to", r.res.URL)
	}
	a.applyResource(r.res)
	p.queue = append(p.queue, a)
}
