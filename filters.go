// Copyright 2014 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pdf

import (
	"bufio"
	"bytes"
	"compress/lzw"
	"compress/zlib"
	"encoding/ascii85"
	"fmt"
	"io"
)

// applyFilter returns a reader that applies the named stream filter to rd,
// consulting param (the corresponding entry of /DecodeParms) for filters
// that take parameters. It returns nil if name is not a known filter or if
// the filter's own setup fails (e.g. a corrupt zlib header), matching the
// teacher's signal-error-via-nil convention for Value.Reader to turn into
// an errorReadCloser.
func applyFilter(rd io.Reader, name string, param Value) io.Reader {
	switch name {
	default:
		return nil
	case "FlateDecode":
		zr, err := zlib.NewReader(rd)
		if err != nil {
			return nil
		}
		return applyPredictor(zr, param)
	case "LZWDecode":
		early := param.Key("EarlyChange")
		if early.Kind() != Null && early.Int64() != 1 {
			return nil
		}
		lr := lzw.NewReader(rd, lzw.MSB, 8)
		return applyPredictor(lr, param)
	case "ASCIIHexDecode":
		return newASCIIHexDecoder(rd)
	case "ASCII85Decode":
		clean := newAlphaReader(rd)
		decoder := ascii85.NewDecoder(clean)
		return decoder
	case "RunLengthDecode":
		return newRunLengthReader(rd)
	case "DCTDecode":
		// JPEG-compressed image data; decoding pixels is out of scope, leave as-is.
		return rd
	case "JPXDecode":
		// JPEG2000-compressed image data; passthrough.
		return rd
	case "CCITTFaxDecode":
		// CCITT Group 3/4 fax-encoded image data; passthrough.
		return rd
	case "JBIG2Decode":
		// JBIG2-encoded image data; passthrough.
		return rd
	}
}

// applyPredictor wraps rd with a predictor reader if param names one
// (ISO 32000-1 Table 8, /Predictor 2 or 10-15). Predictor 1 (none) and a
// missing or non-dict param are no-ops.
func applyPredictor(rd io.Reader, param Value) io.Reader {
	if param.Kind() != Dict {
		return rd
	}
	pred := param.Key("Predictor")
	if pred.Kind() == Null || pred.Int64() == 1 {
		return rd
	}

	colors := 1
	if c := param.Key("Colors"); c.Kind() == Integer {
		colors = int(c.Int64())
	}
	bpc := 8
	if b := param.Key("BitsPerComponent"); b.Kind() == Integer {
		bpc = int(b.Int64())
	}
	columns := 1
	if c := param.Key("Columns"); c.Kind() == Integer {
		columns = int(c.Int64())
	}

	switch pred.Int64() {
	case 2:
		return newPredictorReader(rd, 2, colors, bpc, columns)
	default:
		if pred.Int64() >= 10 && pred.Int64() <= 15 {
			return newPredictorReader(rd, 10, colors, bpc, columns)
		}
		if DebugOn {
			fmt.Println("unknown predictor", pred)
		}
		return rd
	}
}

// predictorReader undoes TIFF-style (predictor 2) or PNG-style (predictor
// 10-15, ISO 32000-1 Table 9) row prediction applied before FlateDecode or
// LZWDecode compression. kind is 2 for TIFF or 10 for "some PNG filter per
// row" (the actual per-row filter byte for PNG is read from the stream
// itself, as the format requires).
type predictorReader struct {
	r             io.Reader
	kind          int
	bytesPerPixel int
	rowBytes      int
	prevRow       []byte
	curRow        []byte
	pend          []byte
}

func newPredictorReader(r io.Reader, kind, colors, bpc, columns int) *predictorReader {
	if colors < 1 {
		colors = 1
	}
	if bpc < 1 {
		bpc = 8
	}
	if columns < 1 {
		columns = 1
	}
	bytesPerPixel := (colors*bpc + 7) / 8
	rowBytes := (columns*colors*bpc + 7) / 8
	return &predictorReader{
		r:             r,
		kind:          kind,
		bytesPerPixel: bytesPerPixel,
		rowBytes:      rowBytes,
		prevRow:       make([]byte, rowBytes),
		curRow:        make([]byte, rowBytes),
	}
}

func (p *predictorReader) Read(b []byte) (int, error) {
	n := 0
	for len(b) > 0 {
		if len(p.pend) > 0 {
			m := copy(b, p.pend)
			n += m
			b = b[m:]
			p.pend = p.pend[m:]
			continue
		}
		if err := p.decodeRow(); err != nil {
			if n > 0 && err == io.EOF {
				return n, nil
			}
			return n, err
		}
		p.pend = p.curRow
	}
	return n, nil
}

func (p *predictorReader) decodeRow() error {
	if p.kind == 2 {
		return p.decodeTIFFRow()
	}
	return p.decodePNGRow()
}

func (p *predictorReader) decodeTIFFRow() error {
	if _, err := io.ReadFull(p.r, p.curRow); err != nil {
		return err
	}
	for i := p.bytesPerPixel; i < len(p.curRow); i++ {
		p.curRow[i] += p.curRow[i-p.bytesPerPixel]
	}
	return nil
}

func (p *predictorReader) decodePNGRow() error {
	var filterType [1]byte
	if _, err := io.ReadFull(p.r, filterType[:]); err != nil {
		return err
	}
	if _, err := io.ReadFull(p.r, p.curRow); err != nil {
		return err
	}

	switch filterType[0] {
	case 0: // None

	case 1: // Sub
		for i := p.bytesPerPixel; i < len(p.curRow); i++ {
			p.curRow[i] += p.curRow[i-p.bytesPerPixel]
		}

	case 2: // Up
		for i := 0; i < len(p.curRow); i++ {
			p.curRow[i] += p.prevRow[i]
		}

	case 3: // Average
		for i := 0; i < p.bytesPerPixel; i++ {
			p.curRow[i] += p.prevRow[i] / 2
		}
		for i := p.bytesPerPixel; i < len(p.curRow); i++ {
			p.curRow[i] += byte((int(p.curRow[i-p.bytesPerPixel]) + int(p.prevRow[i])) / 2)
		}

	case 4: // Paeth
		for i := 0; i < p.bytesPerPixel; i++ {
			p.curRow[i] += paethPredictor(0, p.prevRow[i], 0)
		}
		for i := p.bytesPerPixel; i < len(p.curRow); i++ {
			a := p.curRow[i-p.bytesPerPixel]
			b := p.prevRow[i]
			c := p.prevRow[i-p.bytesPerPixel]
			p.curRow[i] += paethPredictor(a, b, c)
		}

	default:
		return fmt.Errorf("pdf: unknown PNG predictor filter type %d", filterType[0])
	}

	copy(p.prevRow, p.curRow)
	return nil
}

func paethPredictor(a, b, c byte) byte {
	pa := absInt(int(b) - int(c))
	pb := absInt(int(a) - int(c))
	pc := absInt(int(a) + int(b) - 2*int(c))
	if pa <= pb && pa <= pc {
		return a
	} else if pb <= pc {
		return b
	}
	return c
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// runLengthReader implements RunLengthDecode (ISO 32000-1 §7.4.5).
type runLengthReader struct {
	r   *bufio.Reader
	buf []byte
	eod bool
}

func newRunLengthReader(rd io.Reader) io.Reader {
	return &runLengthReader{r: bufio.NewReader(rd)}
}

func (r *runLengthReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n := 0
	for len(p) > 0 {
		if len(r.buf) == 0 {
			if r.eod {
				if n == 0 {
					return 0, io.EOF
				}
				break
			}
			if err := r.fill(); err != nil {
				if err == io.EOF {
					if n == 0 {
						return 0, io.EOF
					}
					break
				}
				return n, err
			}
		}
		m := copy(p, r.buf)
		n += m
		p = p[m:]
		r.buf = r.buf[m:]
	}
	return n, nil
}

func (r *runLengthReader) fill() error {
	b, err := r.r.ReadByte()
	if err != nil {
		return err
	}
	if b == 128 {
		r.eod = true
		return io.EOF
	}
	if b <= 127 {
		count := int(b) + 1
		r.buf = make([]byte, count)
		if _, err := io.ReadFull(r.r, r.buf); err != nil {
			return err
		}
		return nil
	}
	count := 257 - int(b)
	val, err := r.r.ReadByte()
	if err != nil {
		return err
	}
	r.buf = bytes.Repeat([]byte{val}, count)
	return nil
}

// asciiHexDecoder implements ASCIIHexDecode (ISO 32000-1 §7.4.2): pairs of
// hex digits, whitespace ignored, terminated by '>'. An odd final digit is
// padded with an implicit trailing zero nibble.
type asciiHexDecoder struct {
	r    *bufio.Reader
	high byte
	have bool
	done bool
}

func newASCIIHexDecoder(r io.Reader) io.Reader {
	return &asciiHexDecoder{r: bufio.NewReader(r)}
}

func hexVal(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	}
	return 0, false
}

func (d *asciiHexDecoder) Read(p []byte) (int, error) {
	if d.done {
		return 0, io.EOF
	}
	n := 0
	for n < len(p) {
		b, err := d.r.ReadByte()
		if err != nil {
			d.done = true
			if d.have {
				p[n] = d.high << 4
				n++
			}
			if n == 0 {
				return 0, io.EOF
			}
			return n, nil
		}
		if b == '>' {
			d.done = true
			if d.have {
				p[n] = d.high << 4
				n++
			}
			if n == 0 {
				return 0, io.EOF
			}
			return n, nil
		}
		v, ok := hexVal(b)
		if !ok {
			continue
		}
		if !d.have {
			d.high = v
			d.have = true
		} else {
			p[n] = d.high<<4 | v
			n++
			d.have = false
		}
	}
	return n, nil
}

// checkASCII85 classifies b for ASCII85Decode framing: valid base85 digits
// and '>' pass through unchanged, '~' (the start of the "~>" end-of-data
// marker) reports as 1, and everything else (whitespace, stray bytes) is
// reported as invalid (0) and dropped.
func checkASCII85(b byte) byte {
	switch {
	case b == '~':
		return 1
	case b == '>':
		return '>'
	case b >= '!' && b <= 'u':
		return b
	default:
		return 0
	}
}

// alphaReader strips everything but valid ASCII85 alphabet bytes from the
// underlying stream, stopping at the "~>" end-of-data marker (ISO 32000-1
// §7.4.3), so the result can be handed directly to encoding/ascii85's
// decoder, which expects no surrounding PDF framing or embedded whitespace.
type alphaReader struct {
	r    io.Reader
	b    [1]byte
	done bool
}

func newAlphaReader(r io.Reader) io.Reader {
	return &alphaReader{r: r}
}

func (a *alphaReader) Read(p []byte) (int, error) {
	if a.done {
		return 0, io.EOF
	}
	n := 0
	for n < len(p) {
		_, err := a.r.Read(a.b[:])
		if err != nil {
			a.done = true
			if n == 0 {
				return 0, io.EOF
			}
			return n, nil
		}
		c := checkASCII85(a.b[0])
		if c == 0 {
			continue
		}
		if c == 1 {
			// Consume the '>' that should follow '~'; ignore its absence.
			a.r.Read(a.b[:])
			a.done = true
			if n == 0 {
				return 0, io.EOF
			}
			return n, nil
		}
		p[n] = c
		n++
	}
	return n, nil
}
