package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	y4mMagic       = "YUV4MPEG2"
	y4mFrameMarker = "FRAME"
)

// Y4MFile is a parsed YUV4MPEG2 sequence held in memory.
type Y4MFile struct {
	// Header is the raw stream header line, terminating newline included.
	Header []byte
	Geometry
	FrameRate string
	Aspect    string
	Interlace string

	frames [][]byte
}

// ParseY4M parses a YUV4MPEG2 file. The chroma layout comes from the C tag
// when present and is otherwise detected from the frame size.
//
// A trailing frame shorter than the frame size is reported with an error
// wrapping ErrGeometryMismatch; the complete frames before it are still
// returned alongside the error.
func ParseY4M(data []byte) (*Y4MFile, error) {
	if !bytes.HasPrefix(data, []byte(y4mMagic+" ")) {
		return nil, errors.Wrap(ErrUnsupportedFormat, "missing YUV4MPEG2 signature")
	}
	nl := bytes.IndexByte(data, '\n')
	if nl < 0 {
		return nil, errors.Wrap(ErrUnsupportedFormat, "unterminated YUV4MPEG2 header")
	}

	y := &Y4MFile{Header: data[: nl+1 : nl+1]}
	haveC := false
	for _, tok := range strings.Fields(string(data[len(y4mMagic):nl])) {
		val := tok[1:]
		switch tok[0] {
		case 'W':
			w, err := strconv.Atoi(val)
			if err != nil {
				return nil, errors.Wrapf(ErrUnsupportedFormat, "bad width %q", val)
			}
			y.Width = w
		case 'H':
			h, err := strconv.Atoi(val)
			if err != nil {
				return nil, errors.Wrapf(ErrUnsupportedFormat, "bad height %q", val)
			}
			y.Height = h
		case 'F':
			y.FrameRate = val
		case 'A':
			y.Aspect = val
		case 'I':
			y.Interlace = val
		case 'C':
			s, err := parseY4MColorspace(val)
			if err != nil {
				return nil, err
			}
			y.Subsampling = s
			haveC = true
		}
	}
	if y.Width <= 0 || y.Height <= 0 {
		return nil, errors.Wrapf(ErrGeometryMismatch, "frame size %dx%d", y.Width, y.Height)
	}

	body := data[nl+1:]
	if !haveC {
		s, err := DetectSubsampling(body, y.Width, y.Height)
		if err != nil {
			return nil, err
		}
		y.Subsampling = s
	}
	if err := y.Geometry.Validate(); err != nil {
		return nil, err
	}

	size := y.FrameSize()
	for pos := 0; pos < len(body); {
		if !bytes.HasPrefix(body[pos:], []byte(y4mFrameMarker)) {
			return nil, errors.Wrapf(ErrUnsupportedFormat, "frame %d: missing FRAME marker", len(y.frames))
		}
		eol := bytes.IndexByte(body[pos:], '\n')
		if eol < 0 {
			return y, errors.Wrapf(ErrGeometryMismatch, "frame %d: unterminated FRAME marker", len(y.frames))
		}
		start := pos + eol + 1
		if start+size > len(body) {
			return y, errors.Wrapf(ErrGeometryMismatch, "frame %d: %d of %d bytes, %d short",
				len(y.frames), len(body)-start, size, start+size-len(body))
		}
		y.frames = append(y.frames, body[start:start+size:start+size])
		pos = start + size
	}
	return y, nil
}

func parseY4MColorspace(tag string) (Subsampling, error) {
	switch tag {
	case "444":
		return Subsampling444, nil
	case "422":
		return Subsampling422, nil
	case "420", "420jpeg", "420paldv", "420mpeg2":
		return Subsampling420, nil
	}
	return 0, errors.Wrapf(ErrUnsupportedFormat, "colorspace C%s", tag)
}

func y4mColorspace(s Subsampling) string {
	switch s {
	case Subsampling422:
		return "422"
	case Subsampling420:
		return "420jpeg"
	}
	return "444"
}

// DetectSubsampling guesses the chroma layout of a headerless-colorspace
// sequence: it tries 4:2:0, 4:2:2 and 4:4:4 in turn and keeps the first one
// whose frame size lands exactly on the next FRAME marker or on the end of
// the data. body starts at the first FRAME marker.
func DetectSubsampling(body []byte, width, height int) (Subsampling, error) {
	if !bytes.HasPrefix(body, []byte(y4mFrameMarker)) {
		return 0, errors.Wrap(ErrUnsupportedFormat, "missing first FRAME marker")
	}
	eol := bytes.IndexByte(body, '\n')
	if eol < 0 {
		return 0, errors.Wrap(ErrUnsupportedFormat, "unterminated FRAME marker")
	}
	start := eol + 1

	for _, s := range []Subsampling{Subsampling420, Subsampling422, Subsampling444} {
		end := start + Geometry{Width: width, Height: height, Subsampling: s}.FrameSize()
		if end == len(body) || (end < len(body) && bytes.HasPrefix(body[end:], []byte(y4mFrameMarker))) {
			return s, nil
		}
	}
	return 0, errors.Wrapf(ErrUnsupportedFormat, "cannot infer chroma subsampling for %dx%d", width, height)
}

// Frames returns the number of complete frames.
func (y *Y4MFile) Frames() int { return len(y.frames) }

// Frame returns frame i. Its planes alias the parsed data.
func (y *Y4MFile) Frame(i int) Frame {
	raw := y.frames[i]
	f := Frame{Index: i, Samples: len(raw)}
	off := 0
	for p := range f.Planes {
		rows, cols := y.PlaneSize(p)
		n := rows * cols
		f.Planes[p] = &Plane{Rows: rows, Cols: cols, Pix: raw[off : off+n : off+n]}
		off += n
	}
	return f
}

// WriteY4M writes frames as a YUV4MPEG2 sequence. header is written verbatim;
// when empty a header is synthesised from g. Every frame gets a bare FRAME
// marker.
func WriteY4M(w io.Writer, header []byte, g Geometry, frames []Frame) error {
	bw := bufio.NewWriter(w)
	if len(header) == 0 {
		header = []byte(fmt.Sprintf("%s W%d H%d F25:1 Ip A1:1 C%s\n",
			y4mMagic, g.Width, g.Height, y4mColorspace(g.Subsampling)))
	}
	if _, err := bw.Write(header); err != nil {
		return errors.WithStack(err)
	}
	for _, f := range frames {
		if err := g.checkFrame(f); err != nil {
			return err
		}
		if _, err := bw.WriteString(y4mFrameMarker + "\n"); err != nil {
			return errors.WithStack(err)
		}
		for _, p := range f.Planes {
			if _, err := bw.Write(p.Pix); err != nil {
				return errors.WithStack(err)
			}
		}
	}
	return errors.WithStack(bw.Flush())
}
