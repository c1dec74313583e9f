package main

import "github.com/pkg/errors"

// EncodePlane writes one Rice symbol per sample in raster order, each holding
// the difference between the sample and its MED prediction.
func EncodePlane(bw *BitWriter, p *Plane, m int) error {
	rp, err := NewRiceParams(m)
	if err != nil {
		return err
	}
	encodePlane(bw, p, rp)
	return nil
}

func encodePlane(bw *BitWriter, p *Plane, rp RiceParams) {
	for row := 0; row < p.Rows; row++ {
		base := row * p.Cols
		for col := 0; col < p.Cols; col++ {
			rp.Encode(bw, int(p.Pix[base+col])-Predict(p, row, col))
		}
	}
}

// DecodePlane rebuilds a rows x cols plane from the bitstream.
//
// It always returns the plane and the number of samples reconstructed in
// raster order. When the stream ends early the plane is filled only up to
// that count, the remainder stays zero, and the error wraps
// ErrIncompleteStream.
func DecodePlane(br *BitReader, rows, cols, m int) (*Plane, int, error) {
	if rows < 0 || cols < 0 {
		return nil, 0, errors.Wrapf(ErrGeometryMismatch, "plane %dx%d", rows, cols)
	}
	rp, err := NewRiceParams(m)
	if err != nil {
		return nil, 0, err
	}
	p := NewPlane(rows, cols)
	n, err := decodePlaneInto(br, p, rp)
	return p, n, err
}

func decodePlaneInto(br *BitReader, p *Plane, rp RiceParams) (int, error) {
	n := 0
	for row := 0; row < p.Rows; row++ {
		base := row * p.Cols
		for col := 0; col < p.Cols; col++ {
			res, err := rp.Decode(br)
			if err != nil {
				return n, errors.Wrapf(ErrIncompleteStream, "plane %dx%d: decoded %d of %d samples",
					p.Rows, p.Cols, n, p.Rows*p.Cols)
			}
			p.Pix[base+col] = wrap8(Predict(p, row, col) + res)
			n++
		}
	}
	return n, nil
}
