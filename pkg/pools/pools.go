// Package pools recycles the byte buffers the mutation log uses to frame
// and compress entries.
//
// Buffers are grouped in power-of-four size classes from MinClass to
// MaxClass. Requests above MaxClass are allocated directly and never pooled,
// so one huge checkpoint batch cannot pin memory for the life of the process.
package pools

import (
	"math/bits"
	"sync"
)

const (
	MinClass = 256     // smallest pooled capacity
	MaxClass = 1 << 20 // largest pooled capacity
)

// classes is the number of size classes between MinClass and MaxClass
var classes = classIndex(MaxClass) + 1

// BytePool hands out byte slices by size class
type BytePool struct {
	pools []sync.Pool
}

// NewBytePool creates an empty pool
func NewBytePool() *BytePool {
	p := &BytePool{pools: make([]sync.Pool, classes)}
	for i := range p.pools {
		size := classSize(i)
		p.pools[i].New = func() any {
			b := make([]byte, 0, size)
			return &b
		}
	}
	return p
}

// classIndex returns the smallest class whose capacity holds size
func classIndex(size int) int {
	if size <= MinClass {
		return 0
	}
	// log4 of size/MinClass, rounded up
	n := (size - 1) / MinClass
	return (bits.Len(uint(n)) + 1) / 2
}

func classSize(i int) int {
	return MinClass << (2 * i)
}

// Get returns a zero-length slice with capacity for at least size bytes
func (p *BytePool) Get(size int) []byte {
	if size > MaxClass {
		return make([]byte, 0, size)
	}
	bp := p.pools[classIndex(size)].Get().(*[]byte)
	return (*bp)[:0]
}

// Put returns b to the pool. Slices whose capacity is not exactly a class
// size came from elsewhere and are dropped.
func (p *BytePool) Put(b []byte) {
	c := cap(b)
	if c < MinClass || c > MaxClass {
		return
	}
	i := classIndex(c)
	if classSize(i) != c {
		return
	}
	b = b[:0]
	p.pools[i].Put(&b)
}

var defaultBytePool = NewBytePool()

// GetBytes returns a slice from the shared pool
func GetBytes(size int) []byte {
	return defaultBytePool.Get(size)
}

// PutBytes returns a slice to the shared pool
func PutBytes(b []byte) {
	defaultBytePool.Put(b)
}
