package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-airnet/pkg/logging"
	"github.com/dd0wney/cluso-airnet/pkg/network"
)

// Store is a primary backend: it restores the graph, receives every
// committed mutation and accepts checkpoints.
type Store interface {
	network.Loader
	network.Writer
	network.Snapshotter
	Ping(ctx context.Context) error
	Close() error
}

// Source is a named place a network can be restored from
type Source struct {
	Name   string
	Loader network.Loader
}

// Bootstrap fills g from the first source holding at least one airport and
// returns its name, or "" when every source is empty. A network restored
// from any source but the first is checkpointed to primary, so the next
// start finds it there. primary may be nil.
func Bootstrap(ctx context.Context, g *network.Graph, primary network.Snapshotter, sources []Source, logger logging.Logger) (string, error) {
	logger = logging.OrNop(logger).With(logging.Component("persistence"))

	for i, src := range sources {
		ds, err := src.Loader.LoadGraph(ctx)
		if err != nil {
			return "", fmt.Errorf("load from %s: %w", src.Name, err)
		}
		if len(ds.Airports) == 0 {
			logger.Debug("source is empty", logging.String("source", src.Name))
			continue
		}
		if err := g.Load(ds); err != nil {
			return "", fmt.Errorf("load from %s: %w", src.Name, err)
		}

		st := g.Stats()
		logger.Info("network restored",
			logging.String("source", src.Name),
			logging.Int("airports", st.Airports),
			logging.Int("routes", st.Routes),
			logging.Int("airlines", st.Airlines))

		if i > 0 && primary != nil {
			if err := g.Checkpoint(ctx, primary); err != nil {
				return "", err
			}
		}
		return src.Name, nil
	}
	return "", nil
}

// RunCheckpoints checkpoints g to s every interval until ctx is done.
// Failures are logged and retried on the next tick.
func RunCheckpoints(ctx context.Context, g *network.Graph, s network.Snapshotter, interval time.Duration, name string, logger logging.Logger) {
	if interval <= 0 {
		return
	}
	logger = logging.OrNop(logger).With(logging.Component("persistence"), logging.Backend(name))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := g.Checkpoint(ctx, s); err != nil && ctx.Err() == nil {
				logger.Error("periodic checkpoint failed", logging.Error(err))
			}
		}
	}
}
