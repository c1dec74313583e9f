package main

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
)

func makeRandomPlane(rows, cols int, seed int64) *Plane {
	rng := rand.New(rand.NewSource(seed))
	p := NewPlane(rows, cols)
	for i := range p.Pix {
		p.Pix[i] = uint8(rng.Intn(256))
	}
	return p
}

// makeGradientPlane builds a smooth plane, closer to natural content than noise.
func makeGradientPlane(rows, cols int) *Plane {
	p := NewPlane(rows, cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			p.Set(y, x, uint8((x*3+y*5)^(x*y)>>3))
		}
	}
	return p
}

func encodePlaneBytes(t testing.TB, p *Plane, m int) ([]byte, uint64) {
	t.Helper()
	var buf bytes.Buffer
	bw := NewBitWriter(&buf)
	if err := EncodePlane(bw, p, m); err != nil {
		t.Fatalf("EncodePlane: %v", err)
	}
	n := bw.BitsWritten()
	bw.Flush()
	return buf.Bytes(), n
}

func TestPlane_RoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name  string
		plane *Plane
		m     int
	}{
		{name: "random_8x8_m4", plane: makeRandomPlane(8, 8, 1), m: 4},
		{name: "random_13x7_m1", plane: makeRandomPlane(13, 7, 2), m: 1},
		{name: "random_5x9_m5", plane: makeRandomPlane(5, 9, 3), m: 5},
		{name: "gradient_32x24_m3", plane: makeGradientPlane(32, 24), m: 3},
		{name: "single_row", plane: makeRandomPlane(1, 17, 4), m: 8},
		{name: "single_column", plane: makeRandomPlane(17, 1, 5), m: 64},
	} {
		t.Run(tc.name, func(t *testing.T) {
			data, _ := encodePlaneBytes(t, tc.plane, tc.m)
			got, n, err := DecodePlane(NewBitReader(data), tc.plane.Rows, tc.plane.Cols, tc.m)
			if err != nil {
				t.Fatalf("DecodePlane: %v", err)
			}
			if n != len(tc.plane.Pix) {
				t.Fatalf("decoded %d samples, want %d", n, len(tc.plane.Pix))
			}
			if !bytes.Equal(got.Pix, tc.plane.Pix) {
				t.Fatalf("plane mismatch")
			}
		})
	}
}

func TestPlane_IncompleteStream(t *testing.T) {
	src := makeRandomPlane(8, 8, 7)
	data, bits := encodePlaneBytes(t, src, 4)

	half := data[:int(bits/2)/8]
	got, n, err := DecodePlane(NewBitReader(half), 8, 8, 4)
	if !errors.Is(err, ErrIncompleteStream) {
		t.Fatalf("err = %v, want ErrIncompleteStream", err)
	}
	if got == nil {
		t.Fatalf("partial plane must be returned")
	}
	if n <= 0 || n >= 64 {
		t.Fatalf("decoded %d samples, want a strict prefix", n)
	}
	if !bytes.Equal(got.Pix[:n], src.Pix[:n]) {
		t.Fatalf("decoded prefix differs from the source")
	}
	for i, v := range got.Pix[n:] {
		if v != 0 {
			t.Fatalf("sample %d past the valid prefix is %d, want 0", n+i, v)
		}
	}
}

func TestPlane_EmptyStream(t *testing.T) {
	_, n, err := DecodePlane(NewBitReader(nil), 2, 2, 4)
	if !errors.Is(err, ErrIncompleteStream) || n != 0 {
		t.Fatalf("got n=%d err=%v, want 0 and ErrIncompleteStream", n, err)
	}
}

func TestPlane_Wraparound(t *testing.T) {
	p := NewPlane(1, 1)
	p.Set(0, 0, 255)

	data, bits := encodePlaneBytes(t, p, 16)
	// residual 255 with m=16: sign + 15 ones + terminator + 4 remainder bits.
	if bits != 21 {
		t.Fatalf("emitted %d bits, want 21", bits)
	}
	res, err := DecodeRice(NewBitReader(data), 16)
	if err != nil || res != 255 {
		t.Fatalf("residual = %d, %v; want 255", res, err)
	}

	got, _, err := DecodePlane(NewBitReader(data), 1, 1, 16)
	if err != nil {
		t.Fatalf("DecodePlane: %v", err)
	}
	if got.Pix[0] != 255 {
		t.Fatalf("reconstructed %d, want 255", got.Pix[0])
	}
}

func TestPlane_NegativeResidualsWrap(t *testing.T) {
	// 0 after a run of 255s gives residual -255; 255 after 0s gives +255.
	p := &Plane{Rows: 2, Cols: 4, Pix: []uint8{255, 255, 0, 255, 0, 255, 255, 0}}
	data, _ := encodePlaneBytes(t, p, 2)
	got, _, err := DecodePlane(NewBitReader(data), 2, 4, 2)
	if err != nil {
		t.Fatalf("DecodePlane: %v", err)
	}
	if !bytes.Equal(got.Pix, p.Pix) {
		t.Fatalf("got %v want %v", got.Pix, p.Pix)
	}
}

func TestPlane_InvalidArguments(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodePlane(NewBitWriter(&buf), NewPlane(1, 1), 0); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("EncodePlane m=0: err = %v", err)
	}
	if _, _, err := DecodePlane(NewBitReader(nil), 1, 1, 0); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("DecodePlane m=0: err = %v", err)
	}
	if _, _, err := DecodePlane(NewBitReader(nil), -1, 1, 1); !errors.Is(err, ErrGeometryMismatch) {
		t.Fatalf("DecodePlane rows=-1: err = %v", err)
	}
}
