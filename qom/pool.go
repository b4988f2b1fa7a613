package qom

import (
	"sync"
	"sync/atomic"
)

// payloadSizes are the size classes for pooled frame payload buffers,
// spanning small QOI frames up to uncompressed HD frames.
var payloadSizes = []int{
	4 << 10,   // 4 KB
	16 << 10,  // 16 KB
	64 << 10,  // 64 KB
	256 << 10, // 256 KB
	1 << 20,   // 1 MB
	4 << 20,   // 4 MB
	16 << 20,  // 16 MB
}

// payloadPool recycles the buffers GetFrame reads encoded frames into.
// Decoders never retain their input, so a buffer can go back to the pool
// as soon as the frame is decoded.
type payloadPool struct {
	pools  []*sync.Pool
	hits   atomic.Int64
	misses atomic.Int64
}

var framePayloads = newPayloadPool()

func newPayloadPool() *payloadPool {
	p := &payloadPool{pools: make([]*sync.Pool, len(payloadSizes))}
	for i, size := range payloadSizes {
		size := size
		p.pools[i] = &sync.Pool{
			New: func() any {
				return make([]byte, size)
			},
		}
	}
	return p
}

// sizeClass returns the pool index for a given size, or -1 if the size is
// too large to pool.
func sizeClass(size int) int {
	for i, s := range payloadSizes {
		if size <= s {
			return i
		}
	}
	return -1
}

// get returns a buffer of exactly size bytes.
func (p *payloadPool) get(size int) []byte {
	idx := sizeClass(size)
	if idx < 0 {
		p.misses.Add(1)
		return make([]byte, size)
	}
	p.hits.Add(1)
	buf := p.pools[idx].Get().([]byte)
	return buf[:size]
}

// put returns a buffer obtained from get.
func (p *payloadPool) put(buf []byte) {
	if buf == nil {
		return
	}
	idx := sizeClass(cap(buf))
	if idx < 0 || cap(buf) != payloadSizes[idx] {
		return
	}
	p.pools[idx].Put(buf[:cap(buf)])
}

// stats returns the number of pooled and unpooled allocations.
func (p *payloadPool) stats() (hits, misses int64) {
	return p.hits.Load(), p.misses.Load()
}
