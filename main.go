package main

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"
)

const (
	streamExt = ".gls"
	zstdExt   = ".zst"
	defaultM  = 4
)

func main() {
	if len(os.Args) < 2 || len(os.Args) > 4 {
		fmt.Fprint(os.Stderr, "Encode: gls <input.y4m|png|jpg|gif|qoi> [m|auto|best] [output.gls[.zst]]\n"+
			"Decode: gls <input.gls[.zst]> [output.y4m|png|qoi]\n")
		os.Exit(1)
	}

	inputPath := os.Args[1]

	// If input is a stream → decode
	if isStreamPath(inputPath) {
		if len(os.Args) > 3 {
			fmt.Fprintln(os.Stderr, "decode takes at most one output path")
			os.Exit(1)
		}
		outPath := ""
		if len(os.Args) == 3 {
			outPath = os.Args[2]
		}
		outPath, err := decodeFile(inputPath, outPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "decode error:", err)
			os.Exit(1)
		}
		fmt.Printf("Decoded %s → %s\n", inputPath, outPath)
		return
	}

	// Otherwise: encode with default or provided m
	mArg := strconv.Itoa(defaultM)
	if len(os.Args) >= 3 {
		mArg = os.Args[2]
	}
	outPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + streamExt
	if len(os.Args) == 4 {
		outPath = os.Args[3]
	}

	st, err := encodeFile(inputPath, outPath, mArg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "encode error:", err)
		os.Exit(1)
	}
	fmt.Printf("Encoded %s (%dx%d %s, %d frames, m=%d) → %s\n",
		inputPath, st.hdr.Width, st.hdr.Height, st.hdr.Subsampling, st.hdr.Frames, st.hdr.M, outPath)
	if st.inSize > 0 {
		fmt.Printf("Compression ratio: %.2f%%\n", float64(st.outSize)/float64(st.inSize)*100)
	}
}

func isStreamPath(p string) bool {
	p = strings.ToLower(p)
	return strings.HasSuffix(p, streamExt) || strings.HasSuffix(p, streamExt+zstdExt)
}

func trimStreamExt(p string) string {
	lower := strings.ToLower(p)
	if strings.HasSuffix(lower, zstdExt) {
		p, lower = p[:len(p)-len(zstdExt)], lower[:len(lower)-len(zstdExt)]
	}
	if strings.HasSuffix(lower, streamExt) {
		p = p[:len(p)-len(streamExt)]
	}
	return p
}

type encodeStats struct {
	hdr     Header
	inSize  int
	outSize int
}

// source is the input side of an encode: a header template plus random
// access to its frames.
type source struct {
	hdr   Header
	frame func(i int) Frame
}

func openSource(path string, data []byte) (source, error) {
	if strings.ToLower(filepath.Ext(path)) == ".y4m" {
		y, err := ParseY4M(data)
		if err != nil {
			return source{}, err
		}
		return source{
			hdr:   Header{Geometry: y.Geometry, Frames: y.Frames(), Blob: y.Header},
			frame: y.Frame,
		}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return source{}, errors.Wrapf(ErrUnsupportedFormat, "%s: %v", path, err)
	}
	g, f, err := PlanesFromImage(img)
	if err != nil {
		return source{}, err
	}
	return source{
		hdr:   Header{Geometry: g, Frames: 1},
		frame: func(int) Frame { return f },
	}, nil
}

// resolveM turns the m argument into the stream's single coding parameter.
// "auto" applies the mean-intensity rule to the first luma plane, "best"
// searches for the m that codes the first frame smallest.
func resolveM(arg string, src source) (int, error) {
	switch arg {
	case "auto", "best":
		if src.hdr.Frames == 0 {
			return defaultM, nil
		}
		f := src.frame(0)
		if arg == "auto" {
			return AverageIntensityM(f.Planes[planeY]), nil
		}
		return SuggestM(f.Planes[:]...), nil
	}
	m, err := strconv.Atoi(arg)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidParameter, "m must be an integer, auto or best, got %q", arg)
	}
	return m, ValidateM(m)
}

func encodeFile(inPath, outPath, mArg string) (encodeStats, error) {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return encodeStats{}, err
	}
	src, err := openSource(inPath, data)
	if err != nil {
		return encodeStats{}, err
	}
	if src.hdr.M, err = resolveM(mArg, src); err != nil {
		return encodeStats{}, err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return encodeStats{}, err
	}
	defer out.Close()

	bw := bufio.NewWriter(out)
	var dst io.Writer = bw
	var zw io.WriteCloser
	if strings.HasSuffix(strings.ToLower(outPath), zstdExt) {
		if zw, err = compressStream(bw); err != nil {
			return encodeStats{}, err
		}
		dst = zw
	}

	sw, err := NewStreamWriter(dst, src.hdr)
	if err != nil {
		return encodeStats{}, err
	}
	sw.OnFrame = func(i, total int) {
		fmt.Fprintf(os.Stderr, "\rProgress: %.2f%%", float64(i+1)/float64(total)*100)
	}
	for i := 0; i < src.hdr.Frames; i++ {
		if err := sw.WriteFrame(src.frame(i)); err != nil {
			return encodeStats{}, err
		}
	}
	if src.hdr.Frames > 0 {
		fmt.Fprintln(os.Stderr)
	}
	if err := sw.Close(); err != nil {
		return encodeStats{}, err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return encodeStats{}, errors.Wrap(err, "zstd")
		}
	}
	if err := bw.Flush(); err != nil {
		return encodeStats{}, err
	}

	info, err := out.Stat()
	if err != nil {
		return encodeStats{}, err
	}
	return encodeStats{hdr: src.hdr, inSize: len(data), outSize: int(info.Size())}, nil
}

// decodeFile decodes a stream file and returns the path written. A stream
// cut short is still written out, with the missing samples left at zero.
func decodeFile(inPath, outPath string) (string, error) {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return "", err
	}
	if strings.HasSuffix(strings.ToLower(inPath), zstdExt) {
		if data, err = decompressStream(data); err != nil {
			return "", err
		}
	}

	hdr, frames, err := DecodeStream(data)
	if err != nil {
		if !errors.Is(err, ErrIncompleteStream) || len(frames) == 0 {
			return "", err
		}
		fmt.Fprintln(os.Stderr, "warning:", err)
	}

	isY4M := bytes.HasPrefix(hdr.Blob, []byte(y4mMagic))
	if outPath == "" {
		outPath = trimStreamExt(inPath) + ".png"
		if isY4M || len(frames) != 1 {
			outPath = trimStreamExt(inPath) + ".y4m"
		}
	}

	var buf bytes.Buffer
	switch ext := strings.ToLower(filepath.Ext(outPath)); ext {
	case ".y4m":
		blob := hdr.Blob
		if !isY4M {
			blob = nil
		}
		err = WriteY4M(&buf, blob, hdr.Geometry, frames)
	case ".png", ".qoi":
		var f Frame
		if f, err = singleFrame(frames); err != nil {
			return "", err
		}
		var img *image.YCbCr
		if img, err = ImageFromFrame(hdr.Geometry, f); err != nil {
			return "", err
		}
		if ext == ".png" {
			err = png.Encode(&buf, img)
		} else {
			err = qoi.Encode(&buf, img)
		}
	default:
		return "", errors.Wrapf(ErrUnsupportedFormat, "output extension %q", ext)
	}
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}
