package main

// Plane is a row-major grid of 8-bit samples.
type Plane struct {
	Rows int
	Cols int
	Pix  []uint8
}

// NewPlane allocates a zeroed rows x cols plane.
func NewPlane(rows, cols int) *Plane {
	return &Plane{Rows: rows, Cols: cols, Pix: make([]uint8, rows*cols)}
}

// At returns the sample at (row, col) widened to int, or 0 outside the plane.
func (p *Plane) At(row, col int) int {
	if row < 0 || col < 0 || row >= p.Rows || col >= p.Cols {
		return 0
	}
	return int(p.Pix[row*p.Cols+col])
}

func (p *Plane) Set(row, col int, v uint8) {
	p.Pix[row*p.Cols+col] = v
}

// PredictMED is the median edge detector over the left (a), top (b) and
// top-left (c) neighbours.
func PredictMED(a, b, c int) int {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	switch {
	case c >= hi:
		return lo
	case c <= lo:
		return hi
	default:
		return a + b - c
	}
}

// Predict returns the MED prediction for (row, col) from its causal
// neighbours. Neighbours outside the plane read as 0.
func Predict(p *Plane, row, col int) int {
	return PredictMED(p.At(row, col-1), p.At(row-1, col), p.At(row-1, col-1))
}

// wrap8 reduces v modulo 256 onto the 0..255 ring.
func wrap8(v int) uint8 {
	return uint8(((v % 256) + 256) % 256)
}
