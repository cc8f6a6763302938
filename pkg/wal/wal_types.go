package wal

// Kind tags what an entry's payload holds
type Kind uint8

const (
	// KindMutations is a JSON array of committed graph mutations
	KindMutations Kind = iota + 1
)

// Entry is one record of the log. Data is the uncompressed payload.
type Entry struct {
	LSN       uint64 // Log Sequence Number
	Kind      Kind
	Data      []byte
	Checksum  uint32 // CRC32 of the compressed payload
	Timestamp int64  // unix seconds
}

// Stats holds compression statistics since the log was opened
type Stats struct {
	Appends           uint64
	BytesUncompressed uint64
	BytesCompressed   uint64
	CompressionRatio  float64 // e.g., 0.75 = 75% smaller
}

// WriteAheadLog is implemented by Log. Consumers depend on it so tests can
// substitute an in-memory log.
type WriteAheadLog interface {
	// Append writes one entry durably and returns its LSN
	Append(kind Kind, data []byte) (uint64, error)
	// Replay calls handler for every intact entry in order
	Replay(handler func(*Entry) error) error
	// Truncate discards every entry, typically after a snapshot. LSNs keep
	// counting from where they were.
	Truncate() error
	Close() error
	LSN() uint64
	// AdvanceLSN raises the LSN counter to at least lsn
	AdvanceLSN(lsn uint64)
}

var _ WriteAheadLog = (*Log)(nil)
