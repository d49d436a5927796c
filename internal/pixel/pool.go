package pixel

import "sync"

// Pool is a thread-safe pool for reusing Buffers.
//
// Buffers are grouped by dimensions, so a stack that is encoded repeatedly
// at the same bounding region reuses one snapshot buffer instead of
// allocating a new one per encode.
//
// Thread safety: All methods are safe for concurrent use.
type Pool struct {
	mu      sync.Mutex
	buckets map[poolKey][]*Buffer
	maxSize int // max buffers per bucket
}

// poolKey identifies a bucket of identically sized buffers.
type poolKey struct {
	width  int
	height int
}

// NewPool creates a buffer pool retaining at most maxPerBucket buffers of
// each size. A maxPerBucket of 0 means unlimited.
func NewPool(maxPerBucket int) *Pool {
	return &Pool{
		buckets: make(map[poolKey][]*Buffer),
		maxSize: maxPerBucket,
	}
}

// Get returns a width x height buffer, reused when one is available.
// Reused buffers are not cleared; callers overwrite every pixel.
func (p *Pool) Get(width, height int) (*Buffer, error) {
	key := poolKey{width: width, height: height}

	p.mu.Lock()
	if bucket := p.buckets[key]; len(bucket) > 0 {
		buf := bucket[len(bucket)-1]
		p.buckets[key] = bucket[:len(bucket)-1]
		p.mu.Unlock()
		buf.HadAlpha = false
		return buf, nil
	}
	p.mu.Unlock()

	return NewBuffer(width, height)
}

// Put returns buf to the pool. The caller must not use buf afterwards.
// Nil buffers, malformed buffers and buffers beyond the bucket limit are
// discarded.
func (p *Pool) Put(buf *Buffer) {
	if buf == nil || buf.Width <= 0 || buf.Height <= 0 || len(buf.Pix) != buf.Len()*3 {
		return
	}
	key := poolKey{width: buf.Width, height: buf.Height}

	p.mu.Lock()
	defer p.mu.Unlock()

	bucket := p.buckets[key]
	if p.maxSize > 0 && len(bucket) >= p.maxSize {
		return
	}
	p.buckets[key] = append(bucket, buf)
}

// defaultPool backs canvas snapshots.
var defaultPool = NewPool(4)

// PutToDefault returns a snapshot buffer to the pool Snapshot draws from.
func PutToDefault(buf *Buffer) {
	defaultPool.Put(buf)
}
