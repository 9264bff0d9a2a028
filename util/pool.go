package util

import "sync"

// MaxDatagramSize is the largest UDP payload a socket can deliver.
const MaxDatagramSize = 64 * 1024

// DatagramPool provides reusable receive buffers for the socket read
// loops, one per in-flight read.
var DatagramPool = sync.Pool{
	New: func() any {
		buf := make([]byte, MaxDatagramSize)
		return &buf
	},
}

// GetBuf retrieves a buffer from the pool.  Callers must return it
// with [PutBuf] when finished.
func GetBuf() *[]byte {
	return DatagramPool.Get().(*[]byte)
}

// PutBuf returns a buffer to the pool for reuse.
func PutBuf(buf *[]byte) {
	if buf == nil {
		return
	}
	DatagramPool.Put(buf)
}
