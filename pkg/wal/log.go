package wal

import (
	"bufio"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-airnet/pkg/logging"
	"github.com/dd0wney/cluso-airnet/pkg/pools"
)

// FileName is the log file inside the data directory
const FileName = "mutations.wal"

// frameOverhead is the header plus trailer size around a payload
const frameOverhead = 13 + 12

// Log is a snappy-compressed, CRC-checked append-only log. Every Append is
// flushed and synced before it returns. LSNs only move forward, across
// Truncate as well, so a snapshot can record the last LSN it covers.
type Log struct {
	file       *os.File
	writer     *bufio.Writer
	path       string
	size       int64 // end of the last intact entry
	currentLSN uint64
	logger     logging.Logger
	mu         sync.Mutex

	// Statistics
	appends           uint64
	bytesUncompressed uint64
	bytesCompressed   uint64
}

// Open opens or creates the log in dataDir. A torn or corrupt tail left by a
// crash is cut off so new entries follow the last intact one.
func Open(dataDir string, logger logging.Logger) (*Log, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create WAL directory: %w", err)
	}

	path := filepath.Join(dataDir, FileName)
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL file: %w", err)
	}

	l := &Log{
		file:   file,
		path:   path,
		logger: logging.OrNop(logger).With(logging.Component("wal")),
	}

	entries, good, err := l.scan()
	if err != nil {
		file.Close()
		return nil, err
	}
	if len(entries) > 0 {
		l.currentLSN = entries[len(entries)-1].LSN
	}

	if err := file.Truncate(good); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to cut WAL tail: %w", err)
	}
	if _, err := file.Seek(good, io.SeekStart); err != nil {
		file.Close()
		return nil, err
	}
	l.size = good
	l.writer = bufio.NewWriter(file)
	return l, nil
}

// countingReader tracks how many bytes the frame reader consumed
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// scan reads every intact entry from the start of the file and returns the
// offset just past the last one.
func (l *Log) scan() ([]*Entry, int64, error) {
	if _, err := l.file.Seek(0, io.SeekStart); err != nil {
		return nil, 0, err
	}

	// Counting above the buffer gives the exact end of the last good frame.
	counter := &countingReader{r: bufio.NewReader(l.file)}
	entries := make([]*Entry, 0)
	var good int64
	for {
		entry, err := readFrame(counter)
		if err == io.EOF {
			break
		}
		if err != nil {
			l.logger.Warn("WAL recovery stopped at corrupt entry",
				logging.Count(len(entries)),
				logging.Int64("offset", good),
				logging.Error(err))
			break
		}
		entries = append(entries, entry)
		good = counter.n
	}
	return entries, good, nil
}

// Append compresses data and appends it as a new entry
func (l *Log) Append(kind Kind, data []byte) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentLSN == ^uint64(0) {
		return 0, fmt.Errorf("WAL LSN space exhausted")
	}
	lsn := l.currentLSN + 1

	maxLen := snappy.MaxEncodedLen(len(data))
	if maxLen < 0 {
		return 0, fmt.Errorf("WAL entry of %d bytes is too large", len(data))
	}
	buf := pools.GetBytes(maxLen)
	defer pools.PutBytes(buf)
	compressed := snappy.Encode(buf[:maxLen], data)
	checksum := crc32.ChecksumIEEE(compressed)

	if err := writeFrame(l.writer, lsn, kind, compressed, checksum, time.Now().Unix()); err != nil {
		l.rewind()
		return 0, fmt.Errorf("failed to write WAL entry: %w", err)
	}
	if err := l.writer.Flush(); err != nil {
		l.rewind()
		return 0, fmt.Errorf("failed to flush WAL: %w", err)
	}
	// An entry that is not synced must not survive either: the caller rolls
	// the mutation back.
	if err := l.file.Sync(); err != nil {
		l.rewind()
		return 0, fmt.Errorf("failed to sync WAL: %w", err)
	}

	l.size += int64(frameOverhead + len(compressed))
	l.currentLSN = lsn
	l.appends++
	l.bytesUncompressed += uint64(len(data))
	l.bytesCompressed += uint64(len(compressed))
	return lsn, nil
}

// rewind cuts off whatever part of a failed append reached the file and
// clears the writer's sticky error, so the next Append can succeed once the
// disk recovers.
func (l *Log) rewind() {
	l.writer.Reset(l.file)
	if err := l.file.Truncate(l.size); err != nil {
		l.logger.Warn("failed to cut failed WAL append", logging.Int64("offset", l.size), logging.Error(err))
		return
	}
	if _, err := l.file.Seek(l.size, io.SeekStart); err != nil {
		l.logger.Warn("failed to seek WAL after failed append", logging.Error(err))
	}
}

// ReadAll returns every intact entry. Reading stops quietly at the first
// corrupt entry so a torn tail never blocks recovery.
func (l *Log) ReadAll() ([]*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.writer.Flush(); err != nil {
		return nil, err
	}
	entries, _, err := l.scan()
	if err != nil {
		return nil, err
	}
	if _, err := l.file.Seek(l.size, io.SeekStart); err != nil {
		return nil, err
	}
	return entries, nil
}

// Replay calls handler for every intact entry in LSN order
func (l *Log) Replay(handler func(*Entry) error) error {
	entries, err := l.ReadAll()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := handler(entry); err != nil {
			return fmt.Errorf("failed to replay entry LSN=%d: %w", entry.LSN, err)
		}
	}
	return nil
}

// Truncate atomically replaces the log with an empty one. The LSN counter
// keeps its value.
func (l *Log) Truncate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush WAL before truncate: %w", err)
	}

	newFile, err := os.OpenFile(l.path+".new", os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create new WAL file: %w", err)
	}

	closeErr := l.file.Close()

	if err := os.Rename(l.path+".new", l.path); err != nil {
		newFile.Close()
		if oldFile, reopenErr := os.OpenFile(l.path, os.O_RDWR|os.O_APPEND, 0644); reopenErr == nil {
			l.file = oldFile
			l.writer = bufio.NewWriter(oldFile)
		}
		return fmt.Errorf("failed to rename WAL file: %w (close error: %v)", err, closeErr)
	}

	l.file = newFile
	l.writer = bufio.NewWriter(newFile)
	l.size = 0

	if closeErr != nil {
		l.logger.Warn("failed to close old WAL file during truncate", logging.Error(closeErr))
	}
	return nil
}

// LSN returns the LSN of the last appended entry
func (l *Log) LSN() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentLSN
}

// AdvanceLSN moves the counter up to lsn so the next entry gets lsn+1. A
// reopened empty log starts from 0 and must be advanced past the LSN its
// snapshot already covers. Lower values are ignored.
func (l *Log) AdvanceLSN(lsn uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lsn > l.currentLSN {
		l.currentLSN = lsn
	}
}

// Stats returns compression statistics
func (l *Log) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	ratio := 0.0
	if l.bytesUncompressed > 0 {
		ratio = 1.0 - float64(l.bytesCompressed)/float64(l.bytesUncompressed)
	}
	return Stats{
		Appends:           l.appends,
		BytesUncompressed: l.bytesUncompressed,
		BytesCompressed:   l.bytesCompressed,
		CompressionRatio:  ratio,
	}
}

// Close flushes, syncs and closes the log
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.writer.Flush(); err != nil {
		return err
	}
	if err := l.file.Sync(); err != nil {
		return err
	}
	return l.file.Close()
}
