// Package persistence implements the storage backends behind a
// network.Graph: a local snapshot plus mutation log, PostgreSQL, an S3
// snapshot backup, and the OpenFlights CSV importer used to seed a new
// network.
package persistence

import (
	"time"

	"github.com/dd0wney/cluso-airnet/pkg/logging"
	"github.com/dd0wney/cluso-airnet/pkg/metrics"
)

// Options holds the collaborators shared by every backend. Both fields are
// optional.
type Options struct {
	Logger  logging.Logger
	Metrics *metrics.Registry
}

// instrument logs and counts calls against one backend
type instrument struct {
	backend string
	logger  logging.Logger
	metrics *metrics.Registry
}

func newInstrument(backend string, opts Options) instrument {
	return instrument{
		backend: backend,
		logger:  logging.OrNop(opts.Logger).With(logging.Component("persistence"), logging.Backend(backend)),
		metrics: opts.Metrics,
	}
}

// observe records the outcome of operation, started at start
func (in instrument) observe(operation string, start time.Time, err error) {
	d := time.Since(start)
	if in.metrics != nil {
		in.metrics.RecordPersistence(in.backend, operation, metrics.Status(err), d)
	}
	if err != nil {
		in.logger.Error("persistence operation failed",
			logging.Operation(operation),
			logging.Latency(d),
			logging.Error(err))
		return
	}
	in.logger.Debug("persistence operation done",
		logging.Operation(operation),
		logging.Latency(d))
}
