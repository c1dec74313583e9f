package main

import (
	"io"
	"math/bits"

	"github.com/pkg/errors"
)

// maxM bounds the Golomb parameter so that q*m and the truncated-binary
// remainder stay well inside the integer range.
const maxM = 1 << 24

// maxRiceMagnitude bounds |v| for a single symbol. Plane residuals lie in
// [-255, 255]; the bound keeps negation and q*m+r away from overflow.
const maxRiceMagnitude = maxM << 32

// RiceParams holds a Golomb parameter m with its truncated-binary split:
// b = ceil(log2(m)) and u = 2^b - m. Remainders below u take b-1 bits,
// the others are coded as r+u in b bits.
type RiceParams struct {
	M int
	B uint8
	U int
}

func NewRiceParams(m int) (RiceParams, error) {
	if err := ValidateM(m); err != nil {
		return RiceParams{}, err
	}
	b := uint8(bits.Len(uint(m - 1)))
	return RiceParams{M: m, B: b, U: 1<<b - m}, nil
}

func mustNewRiceParams(m int) RiceParams {
	rp, err := NewRiceParams(m)
	if err != nil {
		panic(err)
	}
	return rp
}

func checkMagnitude(v int) error {
	if v > maxRiceMagnitude || v < -maxRiceMagnitude {
		return errors.Wrapf(ErrInvalidParameter, "value %d outside [-%d, %d]", v, maxRiceMagnitude, maxRiceMagnitude)
	}
	return nil
}

// Encode writes v as {sign bit, unary quotient, truncated-binary remainder}.
// The unary run is not capped; m should be sized to the expected residuals.
// |v| must not exceed maxRiceMagnitude; EncodeRice checks it.
func (p RiceParams) Encode(bw *BitWriter, v int) {
	mag := v
	if v < 0 {
		mag = -v
	}
	bw.WriteBit(v < 0)

	q := mag / p.M
	r := mag - q*p.M

	bw.WriteOnes(q)
	bw.WriteBit(false)

	// m == 1: the remainder is always zero and takes no bits.
	if p.B == 0 {
		return
	}
	if r < p.U {
		bw.WriteBits(uint64(r), p.B-1)
	} else {
		bw.WriteBits(uint64(r+p.U), p.B)
	}
}

// Decode reads one symbol written by Encode.
//
// It returns io.EOF when the stream holds no further sign bit, and
// ErrIncompleteStream when the stream ends inside a symbol; in that case the
// partial symbol is discarded. Both are end-of-stream signals, not failures.
// A sign bit of 1 on a zero magnitude decodes to 0.
func (p RiceParams) Decode(br *BitReader) (int, error) {
	neg, err := br.ReadBit()
	if err != nil {
		return 0, io.EOF
	}

	q := 0
	for {
		bit, err := br.ReadBit()
		if err != nil {
			return 0, ErrIncompleteStream
		}
		if !bit {
			break
		}
		q++
	}

	r := 0
	if p.B > 0 {
		x, err := br.ReadBits(p.B - 1)
		if err != nil {
			return 0, ErrIncompleteStream
		}
		r = int(x)
		if r >= p.U {
			last, err := br.ReadBit()
			if err != nil {
				return 0, ErrIncompleteStream
			}
			r <<= 1
			if last {
				r |= 1
			}
			r -= p.U
		}
	}

	mag := q*p.M + r
	if neg {
		return -mag, nil
	}
	return mag, nil
}

// Length returns the exact number of bits Encode emits for v.
func (p RiceParams) Length(v int) int {
	if v < 0 {
		v = -v
	}
	q := v / p.M
	n := 1 + q + 1
	if p.B == 0 {
		return n
	}
	if v-q*p.M < p.U {
		return n + int(p.B) - 1
	}
	return n + int(p.B)
}

// EncodeRice writes a single Golomb-Rice symbol for v with divisor m.
func EncodeRice(bw *BitWriter, v, m int) error {
	p, err := NewRiceParams(m)
	if err != nil {
		return err
	}
	if err := checkMagnitude(v); err != nil {
		return err
	}
	p.Encode(bw, v)
	return nil
}

// DecodeRice reads a single Golomb-Rice symbol with divisor m.
// See RiceParams.Decode for the end-of-stream contract.
func DecodeRice(br *BitReader, m int) (int, error) {
	p, err := NewRiceParams(m)
	if err != nil {
		return 0, err
	}
	return p.Decode(br)
}

// RiceLength returns the coded length of v in bits, without writing it.
func RiceLength(v, m int) (int, error) {
	p, err := NewRiceParams(m)
	if err != nil {
		return 0, err
	}
	if err := checkMagnitude(v); err != nil {
		return 0, err
	}
	return p.Length(v), nil
}
