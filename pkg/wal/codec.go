package wal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-airnet/pkg/pools"
)

// maxFrameData bounds a single compressed payload so a corrupt length field
// cannot trigger a huge allocation
const maxFrameData = 256 << 20

var errCorruptFrame = errors.New("corrupt frame")

// writeFrame writes one entry whose Data is already compressed.
// Format: [LSN:8][Kind:1][DataLen:4][Data:N][Checksum:4][Timestamp:8]
func writeFrame(w *bufio.Writer, lsn uint64, kind Kind, compressed []byte, checksum uint32, ts int64) error {
	var header [13]byte
	binary.BigEndian.PutUint64(header[0:8], lsn)
	header[8] = byte(kind)
	binary.BigEndian.PutUint32(header[9:13], uint32(len(compressed)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}

	if _, err := w.Write(compressed); err != nil {
		return err
	}

	var trailer [12]byte
	binary.BigEndian.PutUint32(trailer[0:4], checksum)
	binary.BigEndian.PutUint64(trailer[4:12], uint64(ts))
	_, err := w.Write(trailer[:])
	return err
}

// readFrame reads and verifies one entry, returning it with Data
// decompressed. io.EOF means a clean end of log; any other error means the
// frame at this position is torn or corrupt.
func readFrame(r io.Reader) (*Entry, error) {
	var header [13]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: header: %v", errCorruptFrame, err)
	}

	entry := &Entry{
		LSN:  binary.BigEndian.Uint64(header[0:8]),
		Kind: Kind(header[8]),
	}
	dataLen := binary.BigEndian.Uint32(header[9:13])
	if dataLen > maxFrameData {
		return nil, fmt.Errorf("%w: payload length %d", errCorruptFrame, dataLen)
	}

	compressed := pools.GetBytes(int(dataLen))[:dataLen]
	defer pools.PutBytes(compressed)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return nil, fmt.Errorf("%w: payload: %v", errCorruptFrame, err)
	}

	var trailer [12]byte
	if _, err := io.ReadFull(r, trailer[:]); err != nil {
		return nil, fmt.Errorf("%w: trailer: %v", errCorruptFrame, err)
	}
	entry.Checksum = binary.BigEndian.Uint32(trailer[0:4])
	entry.Timestamp = int64(binary.BigEndian.Uint64(trailer[4:12]))

	if crc32.ChecksumIEEE(compressed) != entry.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch at LSN %d", errCorruptFrame, entry.LSN)
	}

	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress LSN %d: %v", errCorruptFrame, entry.LSN, err)
	}
	entry.Data = data
	return entry, nil
}
