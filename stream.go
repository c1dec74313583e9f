package main

import (
	"bytes"
	"io"
	"math"

	"github.com/pkg/errors"
)

// Subsampling is the chroma layout, stored in the header as 0, 1 or 2.
type Subsampling uint8

const (
	Subsampling444 Subsampling = iota
	Subsampling422
	Subsampling420
)

func (s Subsampling) String() string {
	switch s {
	case Subsampling444:
		return "4:4:4"
	case Subsampling422:
		return "4:2:2"
	case Subsampling420:
		return "4:2:0"
	}
	return "unknown"
}

// maxPlaneSamples caps width*height so a corrupt header cannot force huge allocations.
const maxPlaneSamples = 1 << 28

// plane indices within a frame.
const (
	planeY = 0
	planeU = 1
	planeV = 2
)

// Geometry describes the luma size and chroma layout of every frame in a stream.
type Geometry struct {
	Width       int
	Height      int
	Subsampling Subsampling
}

// Validate rejects sizes that cannot be subsampled exactly. Odd dimensions
// are never rounded, since encoder and decoder would have to agree on how.
func (g Geometry) Validate() error {
	if g.Width <= 0 || g.Height <= 0 || g.Width > maxPlaneSamples || g.Height > maxPlaneSamples ||
		g.Width*g.Height > maxPlaneSamples {
		return errors.Wrapf(ErrGeometryMismatch, "frame size %dx%d", g.Width, g.Height)
	}
	switch g.Subsampling {
	case Subsampling444:
	case Subsampling422:
		if g.Width%2 != 0 {
			return errors.Wrapf(ErrGeometryMismatch, "4:2:2 needs an even width, got %d", g.Width)
		}
	case Subsampling420:
		if g.Width%2 != 0 || g.Height%2 != 0 {
			return errors.Wrapf(ErrGeometryMismatch, "4:2:0 needs even dimensions, got %dx%d", g.Width, g.Height)
		}
	default:
		return errors.Wrapf(ErrUnsupportedFormat, "subsampling mode %d", g.Subsampling)
	}
	return nil
}

// PlaneSize returns rows and cols of plane i (0 = Y, 1 = U, 2 = V).
func (g Geometry) PlaneSize(i int) (rows, cols int) {
	if i == planeY {
		return g.Height, g.Width
	}
	switch g.Subsampling {
	case Subsampling422:
		return g.Height, g.Width / 2
	case Subsampling420:
		return g.Height / 2, g.Width / 2
	}
	return g.Height, g.Width
}

// FrameSize is the number of samples in one frame across all three planes.
func (g Geometry) FrameSize() int {
	n := 0
	for i := 0; i < 3; i++ {
		rows, cols := g.PlaneSize(i)
		n += rows * cols
	}
	return n
}

// Frame holds the Y, U and V planes of one picture.
type Frame struct {
	Index  int
	Planes [3]*Plane
	// Samples is the number of valid samples, counted in coding order
	// (all of Y, then U, then V). It is below the frame size only for a
	// frame cut short by the end of the stream.
	Samples int
}

// NewFrame allocates zeroed planes for geometry g.
func NewFrame(g Geometry, index int) Frame {
	f := Frame{Index: index}
	for i := range f.Planes {
		f.Planes[i] = NewPlane(g.PlaneSize(i))
	}
	return f
}

func (g Geometry) checkFrame(f Frame) error {
	for i, p := range f.Planes {
		rows, cols := g.PlaneSize(i)
		if p == nil || p.Rows != rows || p.Cols != cols || len(p.Pix) != rows*cols {
			got := "nil"
			if p != nil {
				got = sizeString(p.Rows, p.Cols)
			}
			return errors.Wrapf(ErrGeometryMismatch, "frame %d plane %d: want %s, got %s",
				f.Index, i, sizeString(rows, cols), got)
		}
	}
	return nil
}

// Header is everything written ahead of the first coded symbol.
type Header struct {
	Geometry
	Frames int
	// Blob is an opaque container header copied verbatim into the stream.
	Blob []byte
	M    int
}

func (h Header) validate() error {
	if err := h.Geometry.Validate(); err != nil {
		return err
	}
	if h.Frames < 0 || uint64(h.Frames) > math.MaxUint32 {
		return errors.Wrapf(ErrGeometryMismatch, "frame count %d does not fit the header", h.Frames)
	}
	if uint64(len(h.Blob)) > math.MaxUint32 {
		return errors.Wrapf(ErrGeometryMismatch, "pass-through header of %d bytes does not fit the header", len(h.Blob))
	}
	return ValidateM(h.M)
}

func writeHeader(bw *BitWriter, h Header) {
	bw.WriteUint32(uint32(h.Width))
	bw.WriteUint32(uint32(h.Height))
	bw.WriteUint32(uint32(h.Subsampling))
	bw.WriteUint32(uint32(h.Frames))
	bw.WriteUint32(uint32(len(h.Blob)))
	bw.WriteBytes(h.Blob)
	bw.WriteUint32(uint32(h.M))
}

func readHeader(br *BitReader) (Header, error) {
	var fields [5]uint32
	for i := range fields {
		v, err := br.ReadUint32()
		if err != nil {
			return Header{}, errors.Wrap(ErrIncompleteStream, "truncated header")
		}
		fields[i] = v
	}
	if fields[2] > uint32(Subsampling420) {
		return Header{}, errors.Wrapf(ErrUnsupportedFormat, "subsampling mode %d", fields[2])
	}
	if uint64(fields[4])*8 > br.Remaining() {
		return Header{}, errors.Wrap(ErrIncompleteStream, "truncated pass-through header")
	}
	blob, err := br.ReadBytes(int(fields[4]))
	if err != nil {
		return Header{}, errors.Wrap(ErrIncompleteStream, "truncated pass-through header")
	}
	m, err := br.ReadUint32()
	if err != nil {
		return Header{}, errors.Wrap(ErrIncompleteStream, "truncated header")
	}

	h := Header{
		Geometry: Geometry{
			Width:       int(fields[0]),
			Height:      int(fields[1]),
			Subsampling: Subsampling(fields[2]),
		},
		Frames: int(fields[3]),
		Blob:   blob,
		M:      int(m),
	}
	if err := h.validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}

// StreamWriter codes frames in Y, U, V order after writing the header.
// It is not safe for concurrent use.
type StreamWriter struct {
	// OnFrame, if set, is called after each frame is coded.
	OnFrame func(index, total int)

	w      io.Writer
	hdr    Header
	raw    bytes.Buffer
	bw     *BitWriter
	rp     RiceParams
	frames int
	closed bool
}

func NewStreamWriter(w io.Writer, h Header) (*StreamWriter, error) {
	if err := h.validate(); err != nil {
		return nil, err
	}
	rp, err := NewRiceParams(h.M)
	if err != nil {
		return nil, err
	}
	sw := &StreamWriter{w: w, hdr: h, rp: rp}
	sw.bw = NewBitWriter(&sw.raw)
	writeHeader(sw.bw, h)
	if err := sw.drain(); err != nil {
		return nil, err
	}
	return sw, nil
}

// drain hands completed bytes to the underlying writer.
func (sw *StreamWriter) drain() error {
	if sw.raw.Len() == 0 {
		return nil
	}
	_, err := sw.w.Write(sw.raw.Bytes())
	sw.raw.Reset()
	return errors.WithStack(err)
}

// WriteFrame codes the three planes of f. Frames beyond the count declared
// in the header are rejected.
func (sw *StreamWriter) WriteFrame(f Frame) error {
	if sw.closed {
		return errors.New("write to closed stream")
	}
	if sw.frames >= sw.hdr.Frames {
		return errors.Wrapf(ErrGeometryMismatch, "header declares %d frames", sw.hdr.Frames)
	}
	if err := sw.hdr.checkFrame(f); err != nil {
		return err
	}
	for _, p := range f.Planes {
		encodePlane(sw.bw, p, sw.rp)
	}
	sw.frames++
	if sw.OnFrame != nil {
		sw.OnFrame(sw.frames-1, sw.hdr.Frames)
	}
	return sw.drain()
}

// BitsWritten returns the number of bits produced so far, header included.
func (sw *StreamWriter) BitsWritten() uint64 { return sw.bw.BitsWritten() }

// Close pads the last byte and flushes it. A stream closed before all
// declared frames were written is still flushed, but reported.
func (sw *StreamWriter) Close() error {
	if sw.closed {
		return nil
	}
	sw.closed = true
	sw.bw.Flush()
	if err := sw.drain(); err != nil {
		return err
	}
	if sw.frames != sw.hdr.Frames {
		return errors.Wrapf(ErrGeometryMismatch, "wrote %d of %d declared frames", sw.frames, sw.hdr.Frames)
	}
	return nil
}

// StreamReader decodes frames sequentially from an in-memory stream.
// It is not safe for concurrent use.
type StreamReader struct {
	hdr  Header
	br   *BitReader
	rp   RiceParams
	next int
	done bool
}

func NewStreamReader(data []byte) (*StreamReader, error) {
	br := NewBitReader(data)
	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	rp, err := NewRiceParams(h.M)
	if err != nil {
		return nil, err
	}
	return &StreamReader{hdr: h, br: br, rp: rp}, nil
}

func (sr *StreamReader) Header() Header { return sr.hdr }

// FramesRead returns how many frames ReadFrame has returned.
func (sr *StreamReader) FramesRead() int { return sr.next }

// ReadFrame decodes the next frame. It returns io.EOF once the declared
// frames have been read. If the bitstream runs out first, the partially
// decoded frame is returned with an error wrapping ErrIncompleteStream, and
// every later call returns io.EOF.
func (sr *StreamReader) ReadFrame() (Frame, error) {
	if sr.done || sr.next >= sr.hdr.Frames {
		return Frame{}, io.EOF
	}
	f := NewFrame(sr.hdr.Geometry, sr.next)
	sr.next++
	for i, p := range f.Planes {
		n, err := decodePlaneInto(sr.br, p, sr.rp)
		f.Samples += n
		if err != nil {
			sr.done = true
			return f, errors.Wrapf(err, "frame %d of %d, plane %d", f.Index, sr.hdr.Frames, i)
		}
	}
	return f, nil
}

// EncodeStream codes frames under header h into a single buffer.
func EncodeStream(h Header, frames []Frame) ([]byte, error) {
	var out bytes.Buffer
	sw, err := NewStreamWriter(&out, h)
	if err != nil {
		return nil, err
	}
	for _, f := range frames {
		if err := sw.WriteFrame(f); err != nil {
			return nil, err
		}
	}
	if err := sw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// DecodeStream decodes a whole stream. On a short stream it returns the
// frames decoded so far, the last one possibly partial, together with an
// error wrapping ErrIncompleteStream.
func DecodeStream(data []byte) (Header, []Frame, error) {
	sr, err := NewStreamReader(data)
	if err != nil {
		return Header{}, nil, err
	}
	var frames []Frame
	for {
		f, err := sr.ReadFrame()
		if err == io.EOF {
			return sr.hdr, frames, nil
		}
		frames = append(frames, f)
		if err != nil {
			return sr.hdr, frames, err
		}
	}
}
