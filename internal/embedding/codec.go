// Package embedding holds face embedding vectors, their byte encoding and
// the distance rules used to decide whether two faces belong to one person.
package embedding

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
)

// floatSize is the encoded width of one component.
const floatSize = 8

// ErrCorruptEncoding is returned when stored bytes cannot be an embedding.
var ErrCorruptEncoding = errors.New("corrupt embedding encoding")

// Embedding is a face descriptor produced by the detector.
type Embedding []float64

// Finite reports whether every component is a finite number.
func (e Embedding) Finite() bool {
	for _, v := range e {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Encode packs e as consecutive little-endian IEEE-754 doubles.
func Encode(e Embedding) []byte {
	buf := make([]byte, len(e)*floatSize)
	for i, v := range e {
		binary.LittleEndian.PutUint64(buf[i*floatSize:], math.Float64bits(v))
	}
	return buf
}

// Decode is the inverse of Encode. An empty input yields an empty embedding.
func Decode(data []byte) (Embedding, error) {
	if len(data)%floatSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrCorruptEncoding, len(data), floatSize)
	}
	e := make(Embedding, len(data)/floatSize)
	for i := range e {
		e[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*floatSize:]))
	}
	return e, nil
}

// EncodeHex renders the encoding as lowercase hex for TEXT columns.
func EncodeHex(e Embedding) string {
	return hex.EncodeToString(Encode(e))
}

// DecodeHex parses a value produced by EncodeHex.
func DecodeHex(s string) (Embedding, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptEncoding, err)
	}
	return Decode(data)
}
