package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/exp/mmap"

	"github.com/dd0wney/cluso-airnet/pkg/logging"
	"github.com/dd0wney/cluso-airnet/pkg/network"
	"github.com/dd0wney/cluso-airnet/pkg/wal"
)

// SnapshotFileName is the snapshot file inside the data directory
const SnapshotFileName = "snapshot.json"

// FileStore keeps the network in a data directory: a JSON snapshot plus a
// log of every mutation committed since that snapshot. The snapshot records
// the last log LSN it covers, so a log left behind by a checkpoint that died
// before truncating is skipped on load instead of replayed twice.
type FileStore struct {
	dir  string
	log  wal.WriteAheadLog
	inst instrument
}

var _ Store = (*FileStore)(nil)

// snapshotFile is the on-disk snapshot: the dataset fields plus last_lsn
type snapshotFile struct {
	LastLSN uint64 `json:"last_lsn"`
	*network.Dataset
}

// OpenFileStore opens or creates a store in dir
func OpenFileStore(dir string, opts Options) (*FileStore, error) {
	log, err := wal.Open(dir, opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open mutation log: %w", err)
	}
	s := &FileStore{
		dir:  dir,
		log:  log,
		inst: newInstrument("file", opts),
	}
	// A log emptied by the last checkpoint restarts at 0; new entries must
	// still sort after what the snapshot holds. A damaged snapshot is
	// reported by LoadGraph.
	if snap, err := s.readSnapshot(); err == nil {
		log.AdvanceLSN(snap.LastLSN)
	}
	return s, nil
}

// LoadGraph reads the snapshot and replays the mutation log on top of it
func (s *FileStore) LoadGraph(ctx context.Context) (ds *network.Dataset, err error) {
	start := time.Now()
	defer func() { s.inst.observe("load", start, err) }()

	snap, err := s.readSnapshot()
	if err != nil {
		return nil, err
	}
	base := snap.Dataset
	s.log.AdvanceLSN(snap.LastLSN)

	// Replay through a scratch graph so the log is validated exactly as the
	// live graph validated it.
	g := network.NewGraph(network.Config{Logger: s.inst.logger})
	if err := g.Load(base); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}

	batches, skipped := 0, 0
	err = s.log.Replay(func(e *wal.Entry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.LSN <= snap.LastLSN {
			skipped++
			return nil
		}
		if e.Kind != wal.KindMutations {
			return fmt.Errorf("unexpected entry kind %d", e.Kind)
		}
		var mutations []network.Mutation
		if err := json.Unmarshal(e.Data, &mutations); err != nil {
			return fmt.Errorf("failed to decode mutations: %w", err)
		}
		batches++
		return g.Replay(mutations)
	})
	if err != nil {
		return nil, err
	}

	s.inst.logger.Info("store loaded",
		logging.Int("airports", len(base.Airports)),
		logging.Int("replayed_batches", batches),
		logging.Int("skipped_batches", skipped))
	return g.Export(), nil
}

func (s *FileStore) readSnapshot() (*snapshotFile, error) {
	snap := &snapshotFile{Dataset: &network.Dataset{}}
	path := filepath.Join(s.dir, SnapshotFileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return snap, nil
	}

	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to map snapshot: %w", err)
	}
	defer r.Close()

	if r.Len() == 0 {
		return snap, nil
	}
	data := make([]byte, r.Len())
	if _, err := r.ReadAt(data, 0); err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return snap, nil
}

// Persist appends one committed batch to the mutation log
func (s *FileStore) Persist(ctx context.Context, mutations []network.Mutation) (err error) {
	start := time.Now()
	defer func() { s.inst.observe("persist", start, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(mutations)
	if err != nil {
		return fmt.Errorf("failed to marshal mutations: %w", err)
	}
	if _, err := s.log.Append(wal.KindMutations, data); err != nil {
		return err
	}
	return nil
}

// Snapshot atomically replaces the snapshot with ds and empties the
// mutation log. The caller must keep mutations out until it returns; see
// network.Graph.Checkpoint. If truncation fails the snapshot still stands:
// its last_lsn tells LoadGraph which log entries it already holds.
func (s *FileStore) Snapshot(ctx context.Context, ds *network.Dataset) (err error) {
	start := time.Now()
	defer func() { s.inst.observe("snapshot", start, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(snapshotFile{LastLSN: s.log.LSN(), Dataset: ds})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	path := filepath.Join(s.dir, SnapshotFileName)
	tmpPath := path + ".tmp"
	if err := writeFileSync(tmpPath, data); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename snapshot: %w", err)
	}

	if err := s.log.Truncate(); err != nil {
		return fmt.Errorf("failed to truncate mutation log: %w", err)
	}
	return nil
}

func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Ping reports whether the data directory is still usable
func (s *FileStore) Ping(ctx context.Context) error {
	if _, err := os.Stat(s.dir); err != nil {
		return fmt.Errorf("data directory unavailable: %w", err)
	}
	return nil
}

// Close closes the mutation log
func (s *FileStore) Close() error {
	return s.log.Close()
}
