// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pdf

import (
	"errors"
	"fmt"
)

// PDFError represents an error that occurred during PDF processing.
// It includes contextual information about where the error occurred.
type PDFError struct {
	Op   string // Operation that failed (e.g., "read xref", "decrypt stream")
	Page int    // reserved for callers that track a page context (0 if not applicable)
	Path string // File path if applicable
	Err  error  // Underlying error
}

func (e *PDFError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("pdf: %s on page %d: %v", e.Op, e.Page, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("pdf: %s (%s): %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("pdf: %s: %v", e.Op, e.Err)
}

func (e *PDFError) Unwrap() error {
	return e.Err
}

// wrapError wraps an error with operation context.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PDFError{Op: op, Err: err}
}

// wrapPageError wraps an error with page-specific context.
func wrapPageError(op string, page int, err error) error {
	if err == nil {
		return nil
	}
	return &PDFError{Op: op, Page: page, Err: err}
}

// LexicalError reports a failure to tokenize the byte stream: an
// unterminated string or name, a malformed number, an unrecognized
// delimiter. Pos is the byte offset where the error was detected; Context
// is the surrounding window of bytes from contextAroundCurrent.
type LexicalError struct {
	Pos     int64
	Context []byte
	Msg     string
}

func (e *LexicalError) Error() string {
	return fmt.Sprintf("pdf: lexical error at offset %d: %s (near %q)", e.Pos, e.Msg, e.Context)
}

// SyntaxError reports a failure to assemble tokens into an object: an
// array or dictionary that never closes, a stream missing endstream, an
// indirect reference with a malformed "obj"/"endobj" pair.
type SyntaxError struct {
	Pos     int64
	Context []byte
	Msg     string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("pdf: syntax error at offset %d: %s (near %q)", e.Pos, e.Msg, e.Context)
}

// UnsupportedError reports a well-formed construct this reader
// deliberately does not implement (a public-key security handler, a
// crypt filter this reader does not recognize, and the like).
type UnsupportedError struct {
	Feature string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("pdf: unsupported: %s", e.Feature)
}

// GenericError wraps a condition that does not fit the more specific
// taxonomy above — a malformed trailer during recovery, an
// internally-inconsistent object stream, and similar catch-all cases.
type GenericError struct {
	Msg string
}

func (e *GenericError) Error() string {
	return fmt.Sprintf("pdf: %s", e.Msg)
}

var (
	// ErrInvalidPassword is returned when neither the user nor the owner
	// password validates against the document's security handler.
	ErrInvalidPassword = errors.New("encrypted PDF: invalid password")

	// ErrNotFound reports an object missing from the xref table or stream.
	// The reader's own lookups do not return it: Resolve and the Value
	// accessors yield a null Value for a reference with no usable entry.
	ErrNotFound = errors.New("pdf: object not found in xref")

	// ErrEncrypted indicates the PDF is encrypted and cannot be read without a password.
	ErrEncrypted = errors.New("PDF is encrypted")

	// ErrCorrupted indicates the PDF file structure is corrupted beyond recovery.
	ErrCorrupted = errors.New("PDF file is corrupted")

	// ErrUnsupportedVersion indicates the PDF header version is not recognized.
	ErrUnsupportedVersion = errors.New("unsupported PDF version")
)
