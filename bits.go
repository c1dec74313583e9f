package main

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// BitWriter writes bits to a bytes.Buffer, msb-first in each byte.
// Only completed bytes reach the buffer; the partial byte stays in the
// writer until Flush.
type BitWriter struct {
	buf   *bytes.Buffer
	byte  byte
	n     uint8 // bits held in byte (0..7)
	count uint64
}

func NewBitWriter(buf *bytes.Buffer) *BitWriter {
	return &BitWriter{buf: buf}
}

// WriteBit writes a single bit.
func (bw *BitWriter) WriteBit(bit bool) {
	bw.byte <<= 1
	if bit {
		bw.byte |= 1
	}
	bw.n++
	bw.count++
	if bw.n == 8 {
		_ = bw.buf.WriteByte(bw.byte)
		bw.byte = 0
		bw.n = 0
	}
}

// WriteBits writes the low n bits of bits, msb-first.
// For example, n=4 and bits=0b1011 writes 1,0,1,1.
func (bw *BitWriter) WriteBits(bits uint64, n uint8) {
	if n > 64 {
		n = 64
	}
	bw.count += uint64(n)
	for n > 0 {
		k := 8 - bw.n
		if k > n {
			k = n
		}

		shift := n - k
		chunk := byte((bits >> shift) & (uint64(1)<<k - 1))

		bw.byte = bw.byte<<k | chunk
		bw.n += k
		n -= k

		if bw.n == 8 {
			_ = bw.buf.WriteByte(bw.byte)
			bw.byte = 0
			bw.n = 0
		}
	}
}

// WriteOnes writes n one-bits.
func (bw *BitWriter) WriteOnes(n int) {
	for n >= 64 {
		bw.WriteBits(^uint64(0), 64)
		n -= 64
	}
	if n > 0 {
		bw.WriteBits(uint64(1)<<uint(n)-1, uint8(n))
	}
}

// WriteUint32 writes v as a 32-bit group.
func (bw *BitWriter) WriteUint32(v uint32) {
	bw.WriteBits(uint64(v), 32)
}

// WriteBytes writes p verbatim when the writer is byte aligned, bit by bit otherwise.
func (bw *BitWriter) WriteBytes(p []byte) {
	if bw.n == 0 {
		_, _ = bw.buf.Write(p)
		bw.count += uint64(len(p)) * 8
		return
	}
	for _, b := range p {
		bw.WriteBits(uint64(b), 8)
	}
}

// Aligned reports whether the next bit starts a new byte.
func (bw *BitWriter) Aligned() bool { return bw.n == 0 }

// BitsWritten returns the number of bits written so far, padding excluded.
func (bw *BitWriter) BitsWritten() uint64 { return bw.count }

// Flush writes any remaining bits, padded with zeros up to the byte boundary.
func (bw *BitWriter) Flush() {
	if bw.n > 0 {
		bw.byte <<= 8 - bw.n
		_ = bw.buf.WriteByte(bw.byte)
		bw.byte = 0
		bw.n = 0
	}
}

// BitReader reads bits from a byte slice, msb-first in each byte.
type BitReader struct {
	data []byte
	idx  int
	bit  uint8 // bit position in current byte (0..7), msb-first
}

func NewBitReader(data []byte) *BitReader {
	return &BitReader{data: data}
}

// ReadBit returns the next bit, or io.EOF if the data is exhausted.
func (br *BitReader) ReadBit() (bool, error) {
	if br.idx >= len(br.data) {
		return false, io.EOF
	}
	isSet := br.data[br.idx]&(1<<(7-br.bit)) != 0
	br.bit++
	if br.bit == 8 {
		br.bit = 0
		br.idx++
	}
	return isSet, nil
}

// ReadBits reads n bits (0..64) and returns them in the low n bits of the
// result. Nothing is consumed when fewer than n bits remain.
func (br *BitReader) ReadBits(n uint8) (uint64, error) {
	if n > 64 {
		return 0, errors.Errorf("ReadBits: invalid bit count %d", n)
	}
	if uint64(n) > br.Remaining() {
		return 0, io.EOF
	}

	var out uint64
	for n > 0 {
		rem := 8 - br.bit
		k := rem
		if k > n {
			k = n
		}
		shift := rem - k
		out = out<<k | uint64(br.data[br.idx]>>shift)&(uint64(1)<<k-1)
		br.bit += k
		n -= k
		if br.bit == 8 {
			br.bit = 0
			br.idx++
		}
	}
	return out, nil
}

// ReadUint32 reads a 32-bit group.
func (br *BitReader) ReadUint32() (uint32, error) {
	v, err := br.ReadBits(32)
	return uint32(v), err
}

// ReadBytes reads n whole bytes. When the reader is byte aligned the
// returned slice aliases the input.
func (br *BitReader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || uint64(n)*8 > br.Remaining() {
		return nil, io.EOF
	}
	if br.bit == 0 {
		out := br.data[br.idx : br.idx+n : br.idx+n]
		br.idx += n
		return out, nil
	}
	out := make([]byte, n)
	for i := range out {
		v, err := br.ReadBits(8)
		if err != nil {
			return nil, err
		}
		out[i] = byte(v)
	}
	return out, nil
}

// Remaining returns the number of unread bits.
func (br *BitReader) Remaining() uint64 {
	if br.idx >= len(br.data) {
		return 0
	}
	return uint64(len(br.data)-br.idx)*8 - uint64(br.bit)
}

// BitsRead returns the number of bits consumed so far.
func (br *BitReader) BitsRead() uint64 {
	return uint64(br.idx)*8 + uint64(br.bit)
}
