package roles

import (
	"runtime"
	"sync"
)

var stackBufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 64)
		return &b
	},
}

// goroutineID parses the calling goroutine's id from the first line of its
// stack trace ("goroutine 42 [running]:"). Returns 0 if parsing fails.
func goroutineID() int64 {
	bp := stackBufPool.Get().(*[]byte)
	defer stackBufPool.Put(bp)
	buf := *bp
	n := runtime.Stack(buf, false)
	return parseGoroutineID(buf[:n])
}

// parseGoroutineID works on the raw bytes so the hot path does not allocate.
func parseGoroutineID(stack []byte) int64 {
	const prefix = "goroutine "
	if len(stack) <= len(prefix) || string(stack[:len(prefix)]) != prefix {
		return 0
	}
	var id int64
	for _, c := range stack[len(prefix):] {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + int64(c-'0')
	}
	return id
}
