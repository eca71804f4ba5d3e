package bitmap

import "fmt"

// Reason classifies why a backbone code failed validation.
type Reason string

const (
	ReasonInvalidType   Reason = "INVALID_TYPE"
	ReasonInvalidRange  Reason = "INVALID_RANGE"
	ReasonInvalidChunkA Reason = "INVALID_CHUNK_A"
	ReasonInvalidChunkB Reason = "INVALID_CHUNK_B"
	ReasonInvalidChunkC Reason = "INVALID_CHUNK_C"
	ReasonInvalidChunkD Reason = "INVALID_CHUNK_D"
)

// InvalidCodeError is returned by Validate when a backbone code is
// malformed. Reason names the failure; Chunk is set for the
// INVALID_CHUNK_* reasons and empty otherwise.
type InvalidCodeError struct {
	Bits   int
	Reason Reason
	Chunk  Chunk
}

func (e *InvalidCodeError) Error() string {
	switch e.Reason {
	case ReasonInvalidType:
		return "backbone code must be an integer"
	case ReasonInvalidRange:
		return fmt.Sprintf("backbone code %d out of range 0..0xFFFF", e.Bits)
	default:
		return fmt.Sprintf("invalid chunk %s value 0x%X in code 0x%04X", e.Chunk, e.chunkValue(), e.Bits)
	}
}

func (e *InvalidCodeError) chunkValue() uint8 {
	switch e.Chunk {
	case ChunkA:
		return uint8(e.Bits >> 12 & 0xF)
	case ChunkB:
		return uint8(e.Bits >> 8 & 0xF)
	case ChunkC:
		return uint8(e.Bits >> 4 & 0xF)
	case ChunkD:
		return uint8(e.Bits & 0xF)
	}
	return 0
}

// Code is a validated backbone code, decomposed into its four chunks.
type Code struct {
	Bits uint16
	A    uint8
	B    uint8
	C    uint8
	D    uint8
}

// Compose packs four chunk values into a 16-bit code. It does not
// validate the values; pair with Validate when the inputs are untrusted.
func Compose(a, b, c, d uint8) uint16 {
	return uint16(a&0xF)<<12 | uint16(b&0xF)<<8 | uint16(c&0xF)<<4 | uint16(d&0xF)
}

// Validate decomposes a backbone code into its four chunks and checks
// every chunk against its allow-list. It is pure and must run before any
// backbone or candidate code is persisted.
//
// Failures carry a typed *InvalidCodeError: INVALID_RANGE when bits is
// outside 0..0xFFFF, or INVALID_CHUNK_{A,B,C,D} naming the first chunk
// holding a reserved value.
func Validate(bits int) (Code, error) {
	if bits < 0 || bits > 0xFFFF {
		return Code{}, &InvalidCodeError{Bits: bits, Reason: ReasonInvalidRange}
	}

	code := Code{
		Bits: uint16(bits),
		A:    uint8(bits >> 12 & 0xF),
		B:    uint8(bits >> 8 & 0xF),
		C:    uint8(bits >> 4 & 0xF),
		D:    uint8(bits & 0xF),
	}

	if !allowedA[code.A] {
		return Code{}, &InvalidCodeError{Bits: bits, Reason: ReasonInvalidChunkA, Chunk: ChunkA}
	}
	if !allowedB[code.B] {
		return Code{}, &InvalidCodeError{Bits: bits, Reason: ReasonInvalidChunkB, Chunk: ChunkB}
	}
	if !allowedC[code.C] {
		return Code{}, &InvalidCodeError{Bits: bits, Reason: ReasonInvalidChunkC, Chunk: ChunkC}
	}
	if !allowedD[code.D] {
		return Code{}, &InvalidCodeError{Bits: bits, Reason: ReasonInvalidChunkD, Chunk: ChunkD}
	}

	return code, nil
}
