package pdf

import (
	"bytes"
	"io"
	"testing"
)

func TestPaethPredictor(t *testing.T) {
	if got := paethPredictor(0, 0, 0); got != 0 {
		t.Fatalf("paethPredictor(0,0,0) = %d, want 0", got)
	}
	if got := paethPredictor(5, 100, 5); got != 100 {
		// c == a, so pb = |a-c| = 0 is smallest -> predicts b
		t.Fatalf("paethPredictor(5,100,5) = %d, want 100", got)
	}
	if got := paethPredictor(100, 5, 5); got != 100 {
		// c == b, so pa = |b-c| = 0 is smallest -> predicts a
		t.Fatalf("paethPredictor(100,5,5) = %d, want 100", got)
	}
}

func TestPredictorReaderTIFF(t *testing.T) {
	// 2 rows of 4 single-byte samples, delta-encoded across each row.
	row1 := []byte{10, 5, 5, 5} // decodes to 10,15,20,25
	row2 := []byte{1, 1, 1, 1}  // decodes to 1,2,3,4
	src := append(append([]byte{}, row1...), row2...)

	r := newPredictorReader(bytes.NewReader(src), 2, 1, 8, 4)
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	want := []byte{10, 15, 20, 25, 1, 2, 3, 4}
	if !bytes.Equal(out, want) {
		t.Fatalf("TIFF predictor = %v, want %v", out, want)
	}
}

func TestPredictorReaderPNGNone(t *testing.T) {
	src := []byte{0, 1, 2, 3, 4} // filter type 0, row of 4 bytes
	r := newPredictorReader(bytes.NewReader(src), 10, 1, 8, 4)
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(out, []byte{1, 2, 3, 4}) {
		t.Fatalf("None filter = %v, want [1 2 3 4]", out)
	}
}

func TestPredictorReaderPNGSub(t *testing.T) {
	// filter type 1 (Sub), raw deltas 10,5,5,5 -> reconstructed 10,15,20,25
	src := []byte{1, 10, 5, 5, 5}
	r := newPredictorReader(bytes.NewReader(src), 10, 1, 8, 4)
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(out, []byte{10, 15, 20, 25}) {
		t.Fatalf("Sub filter = %v, want [10 15 20 25]", out)
	}
}

func TestPredictorReaderPNGUp(t *testing.T) {
	// row0 decodes to 1,2,3,4 (None); row1 (Up) adds row0 to each raw byte.
	row0 := []byte{0, 1, 2, 3, 4}
	row1 := []byte{2, 1, 1, 1, 1}
	src := append(append([]byte{}, row0...), row1...)

	r := newPredictorReader(bytes.NewReader(src), 10, 1, 8, 4)
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	want := []byte{1, 2, 3, 4, 2, 3, 4, 5}
	if !bytes.Equal(out, want) {
		t.Fatalf("Up filter = %v, want %v", out, want)
	}
}

func TestPredictorReaderPNGAverage(t *testing.T) {
	// Single row, Average filter (type 3), no previous row (all zero).
	// raw[i] += floor((left + up) / 2); up is 0 for the first row.
	src := []byte{3, 10, 5, 5, 5}
	r := newPredictorReader(bytes.NewReader(src), 10, 1, 8, 4)
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	// byte0: 10 + (0+0)/2 = 10
	// byte1: 5 + (10+0)/2 = 10
	// byte2: 5 + (10+0)/2 = 10
	// byte3: 5 + (10+0)/2 = 10
	want := []byte{10, 10, 10, 10}
	if !bytes.Equal(out, want) {
		t.Fatalf("Average filter = %v, want %v", out, want)
	}
}

func TestPredictorReaderPNGPaeth(t *testing.T) {
	// Single row, Paeth filter (type 4), no previous row or left pixel
	// (all predictors resolve to 0 on the first row's first byte).
	src := []byte{4, 10, 0, 0, 0}
	r := newPredictorReader(bytes.NewReader(src), 10, 1, 8, 4)
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	want := []byte{10, 10, 10, 10}
	if !bytes.Equal(out, want) {
		t.Fatalf("Paeth filter = %v, want %v", out, want)
	}
}

func TestApplyPredictorNoop(t *testing.T) {
	src := []byte{1, 2, 3}
	// No /Predictor key: identity.
	rd := applyPredictor(bytes.NewReader(src), Value{})
	out, err := io.ReadAll(rd)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(out, src) {
		t.Fatalf("applyPredictor with no param altered data: %v", out)
	}
}
