// Copyright 2014 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// xref is one entry of the cross-reference table: the object it
// identifies, and where to find it — either a byte offset in the file
// (ISO 32000-1 §7.5.4) or a position within a compressed object stream
// (§7.5.7, xref stream type-2 entries).
type xref struct {
	ptr      objptr
	inStream bool
	stream   objptr
	offset   int64
}

// readXref reads the cross-reference section (table or stream) that b
// is positioned at, following /Prev (and, for hybrid files, /XRefStm)
// chains to assemble the complete table.
func readXref(r *Reader, b *buffer) (xr []xref, trailerptr objptr, trailer dict, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed PDF: %v", rec)
		}
	}()
	defer PutPDFBuffer(b)
	startOffset := b.offset
	visited := map[int64]bool{startOffset: true}

	tok := b.readToken()
	if tok == keyword("xref") {
		xr, trailerptr, trailer, err = readXrefTable(r, b, visited)
		return
	}
	if _, ok := tok.(int64); ok {
		b.unreadToken(tok)
		xr, trailerptr, trailer, err = readXrefStream(r, b, visited)
		return
	}
	err = fmt.Errorf("malformed PDF: cross-reference table not found: %v", tok)
	return
}

// readXrefStream reads a cross-reference stream (ISO 32000-1 §7.5.8),
// following its /Prev chain of predecessor streams. visited records
// offsets already processed in this chain so a /Prev cycle is reported
// as an error instead of looping forever.
func readXrefStream(r *Reader, b *buffer, visited map[int64]bool) ([]xref, objptr, dict, error) {
	obj1 := b.readObject()
	obj, ok := obj1.(objdef)
	if !ok {
		return nil, objptr{}, nil, fmt.Errorf("malformed PDF: cross-reference table not found: %v", objfmt(obj1))
	}
	strmptr := obj.ptr
	strm, ok := obj.obj.(stream)
	if !ok {
		return nil, objptr{}, nil, fmt.Errorf("malformed PDF: cross-reference table not found: %v", objfmt(obj))
	}
	if strm.hdr["Type"] != name("XRef") {
		return nil, objptr{}, nil, fmt.Errorf("malformed PDF: xref stream does not have type XRef")
	}
	size, ok := strm.hdr["Size"].(int64)
	if !ok {
		return nil, objptr{}, nil, fmt.Errorf("malformed PDF: xref stream missing Size")
	}
	table := make([]xref, size)

	table, err := readXrefStreamData(r, strm, table, size)
	if err != nil {
		return nil, objptr{}, nil, fmt.Errorf("malformed PDF: %v", err)
	}

	for prevoff := strm.hdr["Prev"]; prevoff != nil; {
		off, ok := prevoff.(int64)
		if !ok {
			return nil, objptr{}, nil, fmt.Errorf("malformed PDF: xref Prev is not integer: %v", prevoff)
		}
		if visited[off] {
			return nil, objptr{}, nil, fmt.Errorf("malformed PDF: xref Prev chain contains a cycle at offset %d", off)
		}
		visited[off] = true

		b := newBuffer(io.NewSectionReader(r.f, off, r.end-off), off)
		obj1 := b.readObject()
		obj, ok := obj1.(objdef)
		PutPDFBuffer(b)
		if !ok {
			return nil, objptr{}, nil, fmt.Errorf("malformed PDF: xref prev stream not found: %v", objfmt(obj1))
		}
		prevstrm, ok := obj.obj.(stream)
		if !ok {
			return nil, objptr{}, nil, fmt.Errorf("malformed PDF: xref prev stream not found: %v", objfmt(obj))
		}
		prevoff = prevstrm.hdr["Prev"]
		prev := Value{r, objptr{}, prevstrm}
		if prev.Kind() != Stream {
			return nil, objptr{}, nil, fmt.Errorf("malformed PDF: xref prev stream is not stream: %v", prev)
		}
		if prev.Key("Type").Name() != "XRef" {
			return nil, objptr{}, nil, fmt.Errorf("malformed PDF: xref prev stream does not have type XRef")
		}
		psize := prev.Key("Size").Int64()
		if psize > size {
			return nil, objptr{}, nil, fmt.Errorf("malformed PDF: xref prev stream larger than last stream")
		}
		if table, err = readXrefStreamData(r, prev.data.(stream), table, psize); err != nil {
			return nil, objptr{}, nil, fmt.Errorf("malformed PDF: reading xref prev stream: %v", err)
		}
	}

	return table, strmptr, strm.hdr, nil
}

func readXrefStreamData(r *Reader, strm stream, table []xref, size int64) ([]xref, error) {
	index, _ := strm.hdr["Index"].(array)
	if index == nil {
		index = array{int64(0), size}
	}
	if len(index)%2 != 0 {
		return nil, fmt.Errorf("invalid Index array %v", objfmt(index))
	}
	ww, ok := strm.hdr["W"].(array)
	if !ok {
		return nil, fmt.Errorf("xref stream missing W array")
	}

	var w []int
	for _, x := range ww {
		i, ok := x.(int64)
		if !ok || int64(int(i)) != i {
			return nil, fmt.Errorf("invalid W array %v", objfmt(ww))
		}
		w = append(w, int(i))
	}
	if len(w) < 3 {
		return nil, fmt.Errorf("invalid W array %v", objfmt(ww))
	}

	v := Value{r, objptr{}, strm}
	wtotal := 0
	for _, wid := range w {
		wtotal += wid
	}
	buf := make([]byte, wtotal)
	data := v.Reader()
	defer data.Close()
	for len(index) > 0 {
		start, ok1 := index[0].(int64)
		n, ok2 := index[1].(int64)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("malformed Index pair %v %v %T %T", objfmt(index[0]), objfmt(index[1]), index[0], index[1])
		}
		index = index[2:]
		for i := 0; i < int(n); i++ {
			_, err := io.ReadFull(data, buf)
			if err != nil {
				return nil, fmt.Errorf("error reading xref stream: %v", err)
			}
			v1 := decodeInt(buf[0:w[0]])
			if w[0] == 0 {
				v1 = 1
			}
			v2 := decodeInt(buf[w[0] : w[0]+w[1]])
			v3 := decodeInt(buf[w[0]+w[1] : w[0]+w[1]+w[2]])
			x := int(start) + i
			for cap(table) <= x {
				table = append(table[:cap(table)], xref{})
			}
			if len(table) <= x {
				table = table[:x+1]
			}
			if table[x].ptr != (objptr{}) {
				continue
			}
			switch v1 {
			case 0:
				table[x] = xref{ptr: objptr{0, 65535}}
			case 1:
				table[x] = xref{ptr: objptr{uint32(x), uint16(v3)}, offset: int64(v2)}
			case 2:
				table[x] = xref{ptr: objptr{uint32(x), 0}, inStream: true, stream: objptr{uint32(v2), 0}, offset: int64(v3)}
			default:
				if DebugOn {
					fmt.Printf("invalid xref stream type %d: %x\n", v1, buf)
				}
			}
		}
	}
	return table, nil
}

func decodeInt(b []byte) int {
	x := 0
	for _, c := range b {
		x = x<<8 | int(c)
	}
	return x
}

// readXrefTable reads a classical cross-reference table (ISO 32000-1
// §7.5.4), following its /Prev chain of predecessor sections and, for
// each trailer in the chain, merging any /XRefStm hybrid cross-reference
// stream (§7.5.8.4) so objects a conforming reader stores only in that
// stream — typically ones numbered by a reader that otherwise writes
// classical tables — still resolve. visited guards against /Prev cycles.
func readXrefTable(r *Reader, b *buffer, visited map[int64]bool) ([]xref, objptr, dict, error) {
	var table []xref

	table, err := readXrefTableData(b, table)
	if err != nil {
		return nil, objptr{}, nil, fmt.Errorf("malformed PDF: %v", err)
	}

	trailer, ok := b.readObject().(dict)
	if !ok {
		return nil, objptr{}, nil, fmt.Errorf("malformed PDF: xref table not followed by trailer dictionary")
	}
	table, err = mergeXRefStm(r, trailer, table)
	if err != nil {
		return nil, objptr{}, nil, err
	}

	for prevoff := trailer["Prev"]; prevoff != nil; {
		off, ok := prevoff.(int64)
		if !ok {
			return nil, objptr{}, nil, fmt.Errorf("malformed PDF: xref Prev is not integer: %v", prevoff)
		}
		if visited[off] {
			return nil, objptr{}, nil, fmt.Errorf("malformed PDF: xref Prev chain contains a cycle at offset %d", off)
		}
		visited[off] = true

		b := newBuffer(io.NewSectionReader(r.f, off, r.end-off), off)
		tok := b.readToken()
		if tok != keyword("xref") {
			PutPDFBuffer(b)
			return nil, objptr{}, nil, fmt.Errorf("malformed PDF: xref Prev does not point to xref")
		}
		table, err = readXrefTableData(b, table)
		if err != nil {
			PutPDFBuffer(b)
			return nil, objptr{}, nil, fmt.Errorf("malformed PDF: %v", err)
		}

		prevTrailer, ok := b.readObject().(dict)
		PutPDFBuffer(b)
		if !ok {
			return nil, objptr{}, nil, fmt.Errorf("malformed PDF: xref Prev table not followed by trailer dictionary")
		}
		table, err = mergeXRefStm(r, prevTrailer, table)
		if err != nil {
			return nil, objptr{}, nil, err
		}
		prevoff = prevTrailer["Prev"]
	}

	size, ok := trailer[name("Size")].(int64)
	if !ok {
		return nil, objptr{}, nil, fmt.Errorf("malformed PDF: trailer missing /Size entry")
	}

	if size < int64(len(table)) {
		table = table[:size]
	}

	return table, objptr{}, trailer, nil
}

// mergeXRefStm folds the cross-reference stream named by trailer's
// /XRefStm entry, if any, into table. Entries table already holds (from
// the classical section that carries the /XRefStm pointer) take
// priority: readXrefStreamData skips any slot already populated.
func mergeXRefStm(r *Reader, trailer dict, table []xref) ([]xref, error) {
	off, ok := trailer["XRefStm"].(int64)
	if !ok {
		return table, nil
	}
	b := newBuffer(io.NewSectionReader(r.f, off, r.end-off), off)
	defer PutPDFBuffer(b)
	obj1 := b.readObject()
	obj, ok := obj1.(objdef)
	if !ok {
		return nil, fmt.Errorf("malformed PDF: XRefStm not found: %v", objfmt(obj1))
	}
	strm, ok := obj.obj.(stream)
	if !ok {
		return nil, fmt.Errorf("malformed PDF: XRefStm is not a stream")
	}
	if strm.hdr["Type"] != name("XRef") {
		return nil, fmt.Errorf("malformed PDF: XRefStm does not have type XRef")
	}
	size, ok := strm.hdr["Size"].(int64)
	if !ok {
		size = int64(len(table))
	}
	return readXrefStreamData(r, strm, table, size)
}

func readXrefTableData(b *buffer, table []xref) ([]xref, error) {
	for {
		tok := b.readToken()
		if tok == keyword("trailer") {
			break
		}
		start, ok1 := tok.(int64)
		n, ok2 := b.readToken().(int64)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("malformed xref table")
		}
		for i := 0; i < int(n); i++ {
			off, ok1 := b.readToken().(int64)
			gen, ok2 := b.readToken().(int64)
			alloc, ok3 := b.readToken().(keyword)
			if !ok1 || !ok2 || !ok3 || alloc != keyword("f") && alloc != keyword("n") {
				return nil, fmt.Errorf("malformed xref table")
			}
			x := int(start) + i
			for cap(table) <= x {
				table = append(table[:cap(table)], xref{})
			}
			if len(table) <= x {
				table = table[:x+1]
			}
			if alloc == "n" && table[x].offset == 0 {
				table[x] = xref{ptr: objptr{uint32(x), uint16(gen)}, offset: int64(off)}
			}
		}
	}
	return table, nil
}

// rebuildXrefTable reconstructs a cross-reference table by scanning the
// entire file for "N G obj" markers, used as a last resort when the
// cross-reference section named by startxref cannot be parsed (ISO
// 32000-1 is silent on recovery, but every production reader implements
// some form of this scan).
func (r *Reader) rebuildXrefTable() error {
	if r.end <= 0 {
		return errors.New("cannot rebuild xref: empty file")
	}
	if r.end > 200<<20 {
		return errors.New("pdf: file too large to rebuild xref")
	}
	data := make([]byte, int(r.end))
	sr := io.NewSectionReader(r.f, 0, r.end)
	if _, err := io.ReadFull(sr, data); err != nil {
		return err
	}
	entries := make(map[uint32]xref)
	search := 0
	for {
		idx := bytes.Index(data[search:], []byte(" obj"))
		if idx < 0 {
			break
		}
		pos := search + idx
		lineStart := pos
		for lineStart > 0 && data[lineStart-1] != '\n' && data[lineStart-1] != '\r' {
			lineStart--
		}
		line := strings.Fields(string(data[lineStart:pos]))
		if len(line) >= 2 {
			if id64, err1 := strconv.ParseUint(line[0], 10, 32); err1 == nil {
				if gen64, err2 := strconv.ParseUint(line[1], 10, 16); err2 == nil {
					ptr := objptr{uint32(id64), uint16(gen64)}
					if _, ok := entries[ptr.id]; !ok {
						entries[ptr.id] = xref{ptr: ptr, offset: int64(lineStart)}
					}
				}
			}
		}
		search = pos + len(" obj")
	}
	if len(entries) == 0 {
		return errors.New("pdf: unable to rebuild xref")
	}
	var maxID uint32
	for id := range entries {
		if id > maxID {
			maxID = id
		}
	}
	table := make([]xref, maxID+1)
	for id, entry := range entries {
		table[id] = entry
	}
	r.xref = table
	if err := r.recoverTrailer(data); err != nil {
		return fmt.Errorf("failed to recover trailer: %w", err)
	}
	return nil
}

func (r *Reader) recoverTrailer(data []byte) error {
	idx := bytes.LastIndex(data, []byte("trailer"))
	if idx < 0 {
		return errors.New("trailer not found")
	}
	buf := newBuffer(bytes.NewReader(data[idx:]), int64(idx))
	defer PutPDFBuffer(buf)
	buf.allowEOF = true
	if tok := buf.readToken(); tok != keyword("trailer") {
		return errors.New("malformed recovered trailer")
	}
	obj := buf.readObject()
	d, ok := obj.(dict)
	if !ok {
		return errors.New("recovered trailer is not dict")
	}
	r.trailer = d
	r.trailerptr = objptr{}
	return nil
}

// xrefStreamTypePattern matches the "/Type ... /XRef" marker that
// identifies a cross-reference stream's dictionary, tolerating the
// whitespace (spaces, tabs, CRLF) different PDF writers put between the
// two names.
var xrefStreamTypePattern = regexp.MustCompile(`/Type\s*/XRef`)

// findXRefStreamPositions returns the start offset of every "/Type
// .../XRef" marker found in data, used by recovery to locate candidate
// cross-reference stream objects when the declared startxref offset is
// unusable.
func findXRefStreamPositions(data []byte) []int {
	locs := xrefStreamTypePattern.FindAllIndex(data, -1)
	positions := make([]int, 0, len(locs))
	for _, loc := range locs {
		positions = append(positions, loc[0])
	}
	return positions
}
