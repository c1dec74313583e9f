package main

import (
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// compressStream returns a writer that zstd-compresses everything written to
// it into w. Close must be called to emit the final block; it does not close w.
func compressStream(w io.Writer) (io.WriteCloser, error) {
	enc, err := zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, errors.Wrap(err, "zstd encoder")
	}
	return enc, nil
}

// decompressStream inflates a complete .zst envelope.
func decompressStream(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(true),
	)
	if err != nil {
		return nil, errors.Wrap(err, "zstd decoder")
	}
	defer dec.Close()

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, errors.Wrap(err, "zstd decode")
	}
	return out, nil
}
