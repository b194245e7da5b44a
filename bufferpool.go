// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pdf

import "sync"

// pdfBufferPool recycles *buffer values across lex/parse calls so that
// opening and resolving many objects in a file does not allocate a
// fresh 64KB read buffer each time.
var pdfBufferPool = sync.Pool{
	New: func() interface{} {
		return &buffer{
			buf:         make([]byte, 0, 65536), // 64KB capacity
			tmp:         make([]byte, 0, 256),   // 256B for tokens
			unread:      make([]token, 0, 2),    // pushback slot + readObject's internal lookahead
			key:         make([]byte, 0, 64),    // capacity for keys
			allowObjptr: true,
			allowStream: true,
		}
	},
}

// GetPDFBuffer retrieves a PDF buffer from the pool.
func GetPDFBuffer() *buffer {
	return pdfBufferPool.Get().(*buffer)
}

// PutPDFBuffer returns a PDF buffer to the pool after resetting it.
func PutPDFBuffer(b *buffer) {
	b.r = nil
	b.buf = b.buf[:0]
	b.pos = 0
	b.offset = 0
	b.tmp = b.tmp[:0]
	b.unread = b.unread[:0]
	b.allowEOF = false
	b.allowObjptr = true
	b.allowStream = true
	b.eof = false
	b.readErr = nil
	b.key = b.key[:0]
	b.cryptMethod = 0
	b.objptr = objptr{}
	b.ctxChecker = nil
	b.limits = nil
	b.moveHistory = b.moveHistory[:0]
	pdfBufferPool.Put(b)
}
