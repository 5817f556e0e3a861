package reactor

import (
	"github.com/wuyongjia/pool"
)

// defaultReadBufferSize is the size of the pooled buffer ConnectionHandler
// reads into (§4.5), matching the teacher's default.
const defaultReadBufferSize = 4096

// bufferPool recycles the []byte scratch buffers ConnectionHandler.OnReadable
// reads into, exactly like the teacher's own bufferPool field in epoll.go
// (`pool.New(20*threads, func() interface{} { buf := make([]byte, readBuffer); return &buf })`).
type bufferPool struct {
	p    *pool.Pool
	size int
}

func newBufferPool(capacity, size int) *bufferPool {
	return &bufferPool{
		size: size,
		p: pool.New(capacity, func() interface{} {
			buf := make([]byte, size)
			return &buf
		}),
	}
}

// BufferPool is the exported handle callers (cmd/reactord) use to size and
// share a read-buffer pool across an AcceptorHandler's accepted connections.
type BufferPool = bufferPool

// NewSharedBufferPool builds a buffer pool sized for workers concurrent
// connections doing I/O at once, using the default read buffer size (§4.5).
// A minimum of 20 buffers matches the teacher's own `20*threads` sizing rule
// in epoll.go so a handful of workers still gets reasonable headroom.
func NewSharedBufferPool(workers int) *BufferPool {
	capacity := workers * 20
	if capacity < 20 {
		capacity = 20
	}
	return newBufferPool(capacity, defaultReadBufferSize)
}

func (b *bufferPool) get() (*[]byte, error) {
	v, err := b.p.Get()
	if err != nil {
		return nil, err
	}
	buf, ok := v.(*[]byte)
	if !ok {
		return nil, ErrIOFailure
	}
	return buf, nil
}

func (b *bufferPool) put(buf *[]byte) {
	b.p.Put(buf)
}
