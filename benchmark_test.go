package main

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"testing"
	"time"

	"github.com/xfmoulet/qoi"
)

// -----------------------------
// Benchmark helpers
// -----------------------------

// loadTestImage reads benchmark.png when present and falls back to a
// synthetic 640x480 image.
func loadTestImage(t testing.TB) image.Image {
	t.Helper()
	f, err := os.Open("benchmark.png")
	if err != nil {
		return makeTestImage(640, 480)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("failed to decode benchmark image: %v", err)
	}
	return img
}

type glsCodec struct {
	hdr   Header
	frame Frame
}

func newGLSCodec(t testing.TB, img image.Image, m int) glsCodec {
	g, f, err := PlanesFromImage(img)
	if err != nil {
		t.Fatalf("PlanesFromImage: %v", err)
	}
	return glsCodec{hdr: Header{Geometry: g, Frames: 1, M: m}, frame: f}
}

func (c glsCodec) encode() ([]byte, error) {
	return EncodeStream(c.hdr, []Frame{c.frame})
}

func (c glsCodec) decode(data []byte) error {
	_, _, err := DecodeStream(data)
	return err
}

func benchmarkEncodeDecode(b *testing.B, encode func() ([]byte, error), decode func([]byte) error) {
	// Warm-up outside timed section.
	enc, err := encode()
	if err != nil {
		b.Fatalf("encode failed: %v", err)
	}
	if err := decode(enc); err != nil {
		b.Fatalf("decode failed: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		enc, err := encode()
		if err != nil {
			b.Fatalf("encode failed: %v", err)
		}
		if err := decode(enc); err != nil {
			b.Fatalf("decode failed: %v", err)
		}
	}
}

// BenchmarkCodecs compares the lossless codecs on the same image with the
// same loop shape: encode(); decode().
func BenchmarkCodecs(b *testing.B) {
	img := loadTestImage(b)

	b.Run("PNG", func(b *testing.B) {
		var buf bytes.Buffer
		var r bytes.Reader
		benchmarkEncodeDecode(b,
			func() ([]byte, error) {
				buf.Reset()
				if err := png.Encode(&buf, img); err != nil {
					return nil, err
				}
				return buf.Bytes(), nil
			},
			func(enc []byte) error {
				r.Reset(enc)
				_, err := png.Decode(&r)
				return err
			},
		)
	})

	for _, m := range []int{2, 4, 8} {
		b.Run(fmt.Sprintf("GLS_m%d", m), func(b *testing.B) {
			c := newGLSCodec(b, img, m)
			benchmarkEncodeDecode(b, c.encode, c.decode)
		})
	}

	b.Run("QOI", func(b *testing.B) {
		var buf bytes.Buffer
		var r bytes.Reader
		benchmarkEncodeDecode(b,
			func() ([]byte, error) {
				buf.Reset()
				if err := qoi.Encode(&buf, img); err != nil {
					return nil, err
				}
				return buf.Bytes(), nil
			},
			func(enc []byte) error {
				r.Reset(enc)
				_, err := qoi.Decode(&r)
				return err
			},
		)
	})
}

func BenchmarkRice(b *testing.B) {
	var buf bytes.Buffer
	bw := NewBitWriter(&buf)
	rp := mustNewRiceParams(5)
	for v := -255; v <= 255; v++ {
		rp.Encode(bw, v)
	}
	bw.Flush()
	data := buf.Bytes()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		br := NewBitReader(data)
		for v := -255; v <= 255; v++ {
			if _, err := rp.Decode(br); err != nil {
				b.Fatalf("decode: %v", err)
			}
		}
	}
}

// -----------------------------
// Summary table (single output)
// -----------------------------

// Run with:
//
//	go test -run TestBenchmarkSummary -v
func TestBenchmarkSummary(t *testing.T) {
	if _, err := os.Stat("benchmark.png"); err != nil {
		t.Skip("benchmark image missing: expected benchmark.png")
	}
	img := loadTestImage(t)
	probe := newGLSCodec(t, img, 1)
	c := newGLSCodec(t, img, SuggestM(probe.frame.Planes[:]...))

	type row struct {
		name  string
		enc   func() ([]byte, error)
		sizeB int
		encNS int64
	}
	rows := []row{
		{name: "PNG", enc: func() ([]byte, error) {
			var buf bytes.Buffer
			err := png.Encode(&buf, img)
			return buf.Bytes(), err
		}},
		{name: fmt.Sprintf("GLS m=%d", c.hdr.M), enc: c.encode},
		{name: "QOI", enc: func() ([]byte, error) {
			var buf bytes.Buffer
			err := qoi.Encode(&buf, img)
			return buf.Bytes(), err
		}},
	}

	fmt.Println()
	fmt.Printf("%-10s  %10s  %10s\n", "codec", "enc_ms", "size(B)")
	for _, r := range rows {
		start := time.Now()
		out, err := r.enc()
		if err != nil {
			t.Fatalf("%s: %v", r.name, err)
		}
		r.encNS = time.Since(start).Nanoseconds()
		r.sizeB = len(out)
		fmt.Printf("%-10s  %10.3f  %10d\n", r.name, float64(r.encNS)/1e6, r.sizeB)
	}
}
