package util

import "sync"

// ReadChunkSize is the fixed size of a single socket read.  Frames are
// short text lines, so one chunk usually carries several of them.
const ReadChunkSize = 4096

var readBufs = sync.Pool{
	New: func() any {
		b := make([]byte, ReadChunkSize)
		return &b
	},
}

// GetBuf hands out a ReadChunkSize buffer.  Return it with [PutBuf].
func GetBuf() *[]byte {
	return readBufs.Get().(*[]byte)
}

// PutBuf recycles buf.  Buffers that were resliced below
// ReadChunkSize are dropped.
func PutBuf(buf *[]byte) {
	if buf == nil || cap(*buf) < ReadChunkSize {
		return
	}
	*buf = (*buf)[:ReadChunkSize]
	readBufs.Put(buf)
}
