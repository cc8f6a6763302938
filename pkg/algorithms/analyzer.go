package algorithms

import (
	"context"
	"runtime"
	"time"

	"github.com/dd0wney/cluso-airnet/pkg/logging"
	"github.com/dd0wney/cluso-airnet/pkg/metrics"
	"github.com/dd0wney/cluso-airnet/pkg/network"
)

// AnalyzerConfig configures an Analyzer. All fields are optional.
type AnalyzerConfig struct {
	// Workers bounds per-source parallelism. 0 means GOMAXPROCS.
	Workers int
	Louvain LouvainOptions
	Logger  logging.Logger
	Metrics *metrics.Registry
}

// Analyzer runs graph algorithms over snapshots of a network. Each call
// projects the graph once and never holds the graph lock while computing.
type Analyzer struct {
	graph   *network.Graph
	workers int
	louvain LouvainOptions
	logger  logging.Logger
	metrics *metrics.Registry
}

// NewAnalyzer creates an analyzer over g
func NewAnalyzer(g *network.Graph, cfg AnalyzerConfig) *Analyzer {
	if cfg.Louvain.Resolution <= 0 {
		cfg.Louvain.Resolution = DefaultLouvainOptions().Resolution
	}
	if cfg.Metrics != nil {
		workers := cfg.Workers
		if workers <= 0 {
			workers = defaultWorkers()
		}
		cfg.Metrics.SetAnalyticsWorkers(workers)
	}
	return &Analyzer{
		graph:   g,
		workers: cfg.Workers,
		louvain: cfg.Louvain,
		logger:  logging.OrNop(cfg.Logger).With(logging.Component("analytics")),
		metrics: cfg.Metrics,
	}
}

func defaultWorkers() int {
	return runtime.GOMAXPROCS(0)
}

// run projects the graph and times fn against it
func (a *Analyzer) run(ctx context.Context, algorithm string, fn func(p *network.Projection) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	p := a.graph.Project()
	err := fn(p)
	elapsed := time.Since(start)

	if a.metrics != nil {
		a.metrics.RecordAnalytics(algorithm, metrics.Status(err), elapsed, p.Len())
	}

	fields := []logging.Field{
		logging.Algorithm(algorithm),
		logging.Count(p.Len()),
		logging.Latency(elapsed),
	}
	if err != nil {
		a.logger.Warn("analytics run failed", append(fields, logging.Error(err))...)
		return err
	}
	a.logger.Debug("analytics run completed", fields...)
	return nil
}

// TopHubs ranks airports by route count
func (a *Analyzer) TopHubs(ctx context.Context, limit int) ([]RankedAirport, error) {
	var out []RankedAirport
	err := a.run(ctx, "degree", func(p *network.Projection) error {
		out = TopDegree(p, limit)
		return nil
	})
	return out, err
}

// Closeness ranks airports by closeness centrality
func (a *Analyzer) Closeness(ctx context.Context, limit int) ([]RankedAirport, error) {
	var out []RankedAirport
	err := a.run(ctx, "closeness", func(p *network.Projection) error {
		scores, err := ClosenessScores(ctx, p, a.workers)
		if err != nil {
			return err
		}
		out = topAirports(p, scores, limit)
		return nil
	})
	return out, err
}

// Betweenness ranks airports by normalised betweenness centrality
func (a *Analyzer) Betweenness(ctx context.Context, limit int) ([]RankedAirport, error) {
	var out []RankedAirport
	err := a.run(ctx, "betweenness", func(p *network.Projection) error {
		scores, err := BetweennessScores(ctx, p, a.workers)
		if err != nil {
			return err
		}
		out = topAirports(p, scores, limit)
		return nil
	})
	return out, err
}

// Communities partitions the network with Louvain
func (a *Analyzer) Communities(ctx context.Context) (*CommunityDetectionResult, error) {
	var out *CommunityDetectionResult
	err := a.run(ctx, "louvain", func(p *network.Projection) error {
		res, err := Louvain(ctx, p, a.louvain)
		out = res
		return err
	})
	return out, err
}

// FindPath answers a bounded path query
func (a *Analyzer) FindPath(ctx context.Context, q PathQuery) (*Path, error) {
	var out *Path
	err := a.run(ctx, "path_"+q.Objective.String()+"_"+q.Metric.String(), func(p *network.Projection) error {
		path, err := FindPath(ctx, p, q)
		out = path
		return err
	})
	return out, err
}
