package pool

import "sync"

// BufferSize 流式传输缓冲区大小（64KB，上传上限为 5MB 量级）
const BufferSize = 64 * 1024

// SharedBufferPool 共享缓冲区池
// 存储 *([]byte) 以避免 SA6002 警告
var SharedBufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, BufferSize)
		return &buf
	},
}

// Get 取出一个缓冲区
func Get() *[]byte {
	return SharedBufferPool.Get().(*[]byte)
}

// Put 归还缓冲区
func Put(buf *[]byte) {
	if buf == nil || len(*buf) != BufferSize {
		return
	}
	SharedBufferPool.Put(buf)
}
