// Copyright 2014 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pdf implements lazy, random-access reading of PDF files.
//
// A PDF document is opened once against an io.ReaderAt; bytes are only
// read and parsed as individual objects are resolved, so opening even a
// large file is cheap. The document's structure is exposed as a graph of
// Values, each of which has one of the following Kinds:
//
//	Null, for the null object.
//	Integer, for an integer.
//	Real, for a floating-point number.
//	Bool, for a boolean value.
//	Name, for a name constant (as in /Helvetica).
//	String, for a string constant.
//	Dict, for a dictionary of name-value pairs.
//	Array, for an array of values.
//	Stream, for an opaque data stream and associated header dictionary.
//
// The accessors on Value — Int64, Float64, Bool, Name, and so on — return
// a view of the data as the given type. When there is no appropriate
// view, the accessor returns a zero result, which makes it possible to
// traverse a PDF without writing error-checking after every step, at the
// cost of mistakes going unreported.
//
// Higher-level structures such as the page tree, font metrics, and
// content-stream rendering are deliberately out of scope: they are
// layered on top of the Value graph by other packages as needed.
package pdf

// BUG(rsc): The package is incomplete, although it has been used successfully on some
// large real-world PDF files.

// BUG(rsc): The support for reading encrypted files is limited to RC4 and AES
// encryption under the standard security handler; public-key handlers are unsupported.

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// DebugOn enables diagnostic logging to stdout for conditions that are
// tolerated (unknown filters, corrupt predictor rows) rather than
// surfaced as errors.
var DebugOn = false

// A Reader is a single PDF file open for reading.
type Reader struct {
	f          io.ReaderAt
	closer     io.Closer
	end        int64
	xref       []xref
	trailer    dict
	trailerptr objptr
	key        []byte
	method     EncryptionMethod

	cache *refCache
}

// Close clears the object cache. For a Reader made by NewReader or Open,
// it also closes the underlying io.ReaderAt if that implements io.Closer;
// a Reader made directly by NewReaderEncrypted never closes its source.
func (r *Reader) Close() error {
	if r.cache != nil {
		r.cache.Clear()
	}
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// Open opens the named file for reading.
func Open(file string) (*os.File, *Reader, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	reader, err := NewReader(f, fi.Size())
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, reader, err
}

// NewReader opens a file for reading, using the data in f with the given total size.
func NewReader(f io.ReaderAt, size int64) (*Reader, error) {
	r, err := NewReaderEncrypted(f, size, nil)
	if err != nil {
		return nil, err
	}
	if closer, ok := f.(io.Closer); ok {
		r.closer = closer
	}
	return r, nil
}

// defaultCacheCapacity bounds the resolved-object cache so repeatedly
// walking a large file's object graph does not grow memory without
// limit; 2000 objects comfortably covers a typical single-pass scan
// while staying small relative to file size.
const defaultCacheCapacity = 2000

// headerVersion reports the major/minor version following a "%PDF-"
// header marker, or ok=false if buf does not begin with a well-formed
// "%PDF-M.m" header (ISO 32000-1 §7.5.2). Versions above 1.7 (including
// the ISO 32000-2 "2.0" line) are accepted: this reader does not depend
// on version-gated behavior beyond what each object's own dictionaries
// declare.
func headerVersion(buf []byte) (major, minor int, ok bool) {
	const prefix = "%PDF-"
	if len(buf) < len(prefix)+3 || string(buf[:len(prefix)]) != prefix {
		return 0, 0, false
	}
	buf = buf[len(prefix):]
	if buf[0] < '0' || buf[0] > '9' || buf[1] != '.' || buf[2] < '0' || buf[2] > '9' {
		return 0, 0, false
	}
	return int(buf[0] - '0'), int(buf[2] - '0'), true
}

// Version reports the PDF version declared in the file header, e.g.
// "1.7". Some writers also declare a later version via the /Version
// entry of the document catalog (ISO 32000-1 §7.7.2); callers that need
// that override can read Trailer().Key("Root").Key("Version") directly.
// Version reads only the start of the file and returns "" when the file
// does not begin with a "%PDF-M.m" header.
func (r *Reader) Version() string {
	buf := make([]byte, 10)
	n, _ := r.f.ReadAt(buf, 0)
	major, minor, ok := headerVersion(buf[:n])
	if !ok {
		return ""
	}
	return fmt.Sprintf("%d.%d", major, minor)
}

// NewReaderEncrypted opens a file for reading, using the data in f with the given total size.
// If the PDF is encrypted, NewReaderEncrypted calls pw repeatedly to obtain passwords
// to try. If pw returns the empty string, NewReaderEncrypted stops trying to decrypt
// the file and returns an error.
func NewReaderEncrypted(f io.ReaderAt, size int64, pw func() string) (*Reader, error) {
	// The header may be preceded by other bytes (a byte-order mark,
	// whitespace); it is looked for in the first 4096 bytes.
	buf := make([]byte, 4096)
	n, _ := f.ReadAt(buf, 0)
	hdr := bytes.Index(buf[:n], []byte("%PDF-"))
	if hdr < 0 || n-hdr < 9 {
		return nil, fmt.Errorf("not a PDF file: invalid header")
	}
	if _, _, ok := headerVersion(buf[hdr:n]); !ok {
		return nil, fmt.Errorf("not a PDF file: invalid header")
	}

	end := size
	const endChunk = 1024
	tailLen := int64(endChunk)
	if tailLen > end {
		tailLen = end
	}
	buf = make([]byte, tailLen)
	f.ReadAt(buf, end-tailLen)
	tail := bytes.TrimRight(buf, "\r\n\t ")
	if !bytes.HasSuffix(tail, []byte("%%EOF")) {
		return nil, fmt.Errorf("not a PDF file: missing %%%%EOF")
	}
	i := findLastLine(tail, "startxref")
	if i < 0 {
		return nil, fmt.Errorf("malformed PDF file: missing final startxref")
	}

	r := &Reader{
		f:     f,
		end:   end,
		cache: newRefCache(defaultCacheCapacity),
	}
	pos := end - tailLen + int64(i)
	b := newBuffer(io.NewSectionReader(f, pos, end-pos), pos)
	if b.readToken() != keyword("startxref") {
		PutPDFBuffer(b)
		return nil, fmt.Errorf("malformed PDF file: missing startxref")
	}
	startxref, ok := b.readToken().(int64)
	PutPDFBuffer(b)
	if !ok {
		return nil, fmt.Errorf("malformed PDF file: startxref not followed by integer")
	}
	b = newBuffer(io.NewSectionReader(r.f, startxref, r.end-startxref), startxref)
	xr, trailerptr, trailer, err := readXref(r, b)
	if err != nil {
		if rebuildErr := r.rebuildXrefTable(); rebuildErr != nil {
			return nil, err
		}
	} else {
		r.xref = xr
		r.trailer = trailer
		r.trailerptr = trailerptr
	}
	if trailer == nil || trailer["Encrypt"] == nil {
		return r, nil
	}
	err = r.initEncrypt("")
	if err == nil {
		return r, nil
	}
	if pw == nil || err != ErrInvalidPassword {
		return nil, err
	}
	for {
		next := pw()
		if next == "" {
			break
		}
		if r.initEncrypt(next) == nil {
			return r, nil
		}
	}
	return nil, err
}

// initEncrypt authenticates password against the document's encryption
// dictionary (trying it as both user and owner password) and, on
// success, records the resulting file key and default string/stream
// crypt-filter method on r.
func (r *Reader) initEncrypt(password string) error {
	encrypt, _ := r.resolve(objptr{}, r.trailer["Encrypt"]).data.(dict)
	if encrypt["Filter"] != name("Standard") {
		return fmt.Errorf("unsupported PDF: encryption filter %v", objfmt(encrypt["Filter"]))
	}

	info, err := parseEncryptDict(r.trailer, encrypt)
	if err != nil {
		return err
	}

	auth := NewPasswordAuth(info)
	key, err := auth.Authenticate(password)
	if err != nil {
		return err
	}
	if info.Revision >= Revision5 {
		if err := auth.ValidatePermissions(key); err != nil {
			return err
		}
	}

	method := MethodRC4
	switch info.Version {
	case EncryptionV1, EncryptionV2:
		method = MethodRC4
	case EncryptionV4, EncryptionV5:
		stmf, _ := encrypt["StmF"].(name)
		if stmf == "" {
			stmf = "Identity"
		}
		m, ok := cryptFilterMethod(encrypt, stmf)
		if !ok {
			return fmt.Errorf("unsupported PDF: unrecognized crypt filter %v", stmf)
		}
		method = m
	}

	r.key = key
	r.method = method
	return nil
}

// parseEncryptDict extracts the fields PasswordAuth needs from the
// document's /Encrypt dictionary and trailer /ID (ISO 32000-1 §7.6.1,
// Table 20; ISO 32000-2 for the R5/R6 additions).
func parseEncryptDict(trailer dict, encrypt dict) (*PDFEncryptionInfo, error) {
	n, _ := encrypt["Length"].(int64)
	if n == 0 {
		n = 40
	}

	V, _ := encrypt["V"].(int64)
	R, _ := encrypt["R"].(int64)
	if R < 2 || R > 6 {
		return nil, fmt.Errorf("unsupported PDF: encryption revision R=%d", R)
	}

	var id []byte
	if ids, ok := trailer["ID"].(array); ok && len(ids) >= 1 {
		if idstr, ok := ids[0].(string); ok {
			id = []byte(idstr)
		}
	}
	if R < 5 && id == nil {
		return nil, fmt.Errorf("malformed PDF: missing ID in trailer")
	}

	O, _ := encrypt["O"].(string)
	U, _ := encrypt["U"].(string)
	if R < 5 && (len(O) < 32 || len(U) < 32) {
		return nil, fmt.Errorf("malformed PDF: missing O or U encryption parameters")
	}
	if R >= 5 && (len(O) < 48 || len(U) < 48) {
		return nil, fmt.Errorf("malformed PDF: missing O or U encryption parameters")
	}

	p, _ := encrypt["P"].(int64)

	encMeta := true
	if b, ok := encrypt["EncryptMetadata"].(bool); ok {
		encMeta = b
	}

	info := &PDFEncryptionInfo{
		Version:         EncryptionVersion(V),
		Revision:        EncryptionRevision(R),
		KeyLength:       int(n),
		O:               []byte(O),
		U:               []byte(U),
		P:               uint32(p),
		ID:              id,
		EncryptMetadata: encMeta,
	}
	if oe, ok := encrypt["OE"].(string); ok {
		info.OE = []byte(oe)
	}
	if ue, ok := encrypt["UE"].(string); ok {
		info.UE = []byte(ue)
	}
	if perms, ok := encrypt["Perms"].(string); ok {
		info.Perms = []byte(perms)
	}
	return info, nil
}

// Trailer returns the file's Trailer value.
func (r *Reader) Trailer() Value {
	return Value{r, r.trailerptr, r.trailer}
}

// Resolve returns the Value of the indirect object numbered id with
// generation gen, or a null Value if the cross-reference table has no
// such entry.
func (r *Reader) Resolve(id uint32, gen uint16) Value {
	return r.resolve(objptr{}, objptr{id: id, gen: gen})
}

// XrefEntry summarizes one cross-reference table entry: the object it
// identifies and where it was found, either as a byte offset in the file
// or as a position within a compressed object stream (ISO 32000-1 §7.5.7).
type XrefEntry struct {
	ID       uint32
	Gen      uint16
	InStream bool
	Stream   uint32 // valid when InStream
	Offset   int64  // byte offset, or position within the stream
}

// XrefTable returns a summary of every entry in the file's
// cross-reference table, in object-number order.
func (r *Reader) XrefTable() []XrefEntry {
	entries := make([]XrefEntry, 0, len(r.xref))
	for _, x := range r.xref {
		if x.ptr == (objptr{}) {
			continue
		}
		entries = append(entries, XrefEntry{
			ID:       x.ptr.id,
			Gen:      x.ptr.gen,
			InStream: x.inStream,
			Stream:   x.stream.id,
			Offset:   x.offset,
		})
	}
	return entries
}

// resolve dereferences x (an objptr, or any directly-held value) in the
// context of parent, the enclosing object's pointer, returning the
// Value it denotes. Indirect references are satisfied from the object
// cache when possible and otherwise read from the xref-indicated
// location — either a byte offset into the file, or an entry within a
// compressed object stream (ISO 32000-1 §7.5.7).
func (r *Reader) resolve(parent objptr, x interface{}) Value {
	if ptr, ok := x.(objptr); ok {
		if obj, ok := r.cache.Get(ptr); ok {
			return Value{r, parent, obj}
		}
		if ptr.id >= uint32(len(r.xref)) {
			return Value{}
		}
		entry := r.xref[ptr.id]
		if entry.ptr != ptr || !entry.inStream && entry.offset == 0 {
			return Value{}
		}
		var obj object
		if entry.inStream {
			v, ok := r.resolveInStream(parent, ptr, entry)
			if !ok {
				return Value{}
			}
			x = v
		} else {
			b := newBuffer(io.NewSectionReader(r.f, entry.offset, r.end-entry.offset), entry.offset)
			b.key = r.key
			b.cryptMethod = r.method
			obj = b.readObject()
			def, ok := obj.(objdef)
			PutPDFBuffer(b)
			if !ok {
				return Value{}
			}
			x = def.obj
			r.cache.Put(ptr, x)
		}
		parent = ptr
	}

	switch x := x.(type) {
	case nil, bool, int64, float64, name, dict, array, stream, string:
		return Value{r, parent, x}
	default:
		return Value{}
	}
}

// resolveInStream looks up ptr inside the object stream chain rooted at
// entry.stream (ISO 32000-1 §7.5.7): object streams may /Extends a
// predecessor, so the search walks that chain until it finds ptr's
// entry or runs out of streams.
func (r *Reader) resolveInStream(parent, ptr objptr, entry xref) (object, bool) {
	strm := r.resolve(parent, entry.stream)
	for {
		if strm.Kind() != Stream || strm.Key("Type").Name() != "ObjStm" {
			return nil, false
		}
		n := int(strm.Key("N").Int64())
		first := strm.Key("First").Int64()
		if first == 0 {
			return nil, false
		}
		rc := strm.Reader()
		b := newBuffer(rc, 0)
		b.allowEOF = true
		for i := 0; i < n; i++ {
			id, _ := b.readToken().(int64)
			off, _ := b.readToken().(int64)
			if uint32(id) == ptr.id {
				b.seekForward(first + off)
				obj := b.readObject()
				r.cache.Put(ptr, obj)
				PutPDFBuffer(b)
				rc.Close()
				return obj, true
			}
		}
		PutPDFBuffer(b)
		rc.Close()
		ext := strm.Key("Extends")
		if ext.Kind() != Stream {
			return nil, false
		}
		strm = ext
	}
}

// errorReadCloser is an io.ReadCloser that responds to every Read (and
// Close) with a fixed error.
type errorReadCloser struct {
	err error
}

func (e *errorReadCloser) Read([]byte) (int, error) {
	return 0, e.err
}

func (e *errorReadCloser) Close() error {
	return e.err
}

// Reader returns the decoded data contained in the stream v: the raw
// bytes are decrypted (if the document is encrypted) and then run
// through each filter named by /Filter in turn, applying the matching
// /DecodeParms entry (ISO 32000-1 §7.4).
// If v.Kind() != Stream, Reader returns a ReadCloser that responds to
// all reads with a "stream not present" error.
func (v Value) Reader() io.ReadCloser {
	x, ok := v.data.(stream)
	if !ok {
		return &errorReadCloser{fmt.Errorf("stream not present")}
	}
	var rd io.Reader = io.NewSectionReader(v.r.f, x.offset, v.Key("Length").Int64())
	if v.r.key != nil {
		rd = decryptStream(v.r.key, v.r.method, x.ptr, rd)
	}
	filter := v.Key("Filter")
	param := v.Key("DecodeParms")
	switch filter.Kind() {
	default:
		return &errorReadCloser{fmt.Errorf("unsupported filter %v", filter)}
	case Null:
		// no filters
	case Name:
		rd = applyFilter(rd, filter.Name(), param)
		if rd == nil {
			return &errorReadCloser{fmt.Errorf("failed to apply filter %s", filter.Name())}
		}
	case Array:
		for i := 0; i < filter.Len(); i++ {
			rd = applyFilter(rd, filter.Index(i).Name(), param.Index(i))
			if rd == nil {
				return &errorReadCloser{fmt.Errorf("failed to apply filter at index %d", i)}
			}
		}
	}
	return io.NopCloser(rd)
}

// findLastLine returns the offset of the last line in buf that is
// exactly s, bounded by newlines on both sides (or the start/end of
// buf), or -1 if there is no such line. NewReaderEncrypted uses it to
// find the final "startxref" keyword near the end of the file even when
// trailing incremental updates or garbage bytes follow it.
func findLastLine(buf []byte, s string) int {
	bs := []byte(s)
	max := len(buf)
	for {
		i := bytes.LastIndex(buf[:max], bs)
		if i <= 0 || i+len(bs) >= len(buf) {
			return -1
		}
		if (buf[i-1] == '\n' || buf[i-1] == '\r') && (buf[i+len(bs)] == '\n' || buf[i+len(bs)] == '\r') {
			return i
		}
		max = i
	}
}
