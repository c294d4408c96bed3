// Package encoding implements the binary codec used to persist embedding
// vectors as BLOB columns: a little-endian int32 length prefix followed by
// the raw little-endian float32 values.
package encoding

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidVector is returned when vector data cannot be encoded or decoded.
var ErrInvalidVector = errors.New("invalid vector")

// EncodeVector encodes a float32 vector to bytes.
func EncodeVector(vector []float32) ([]byte, error) {
	if vector == nil {
		return nil, ErrInvalidVector
	}

	buf := new(bytes.Buffer)
	if len(vector) > math.MaxInt32 {
		return nil, fmt.Errorf("vector too large: %d elements", len(vector))
	}
	if err := binary.Write(buf, binary.LittleEndian, int32(len(vector))); err != nil {
		return nil, fmt.Errorf("encode vector length: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, vector); err != nil {
		return nil, fmt.Errorf("encode vector values: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeVector decodes bytes back to a float32 vector.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data) < 4 {
		return nil, ErrInvalidVector
	}

	buf := bytes.NewReader(data)
	var length int32
	if err := binary.Read(buf, binary.LittleEndian, &length); err != nil {
		return nil, fmt.Errorf("decode vector length: %w", err)
	}
	if length < 0 {
		return nil, ErrInvalidVector
	}
	if length == 0 {
		return []float32{}, nil
	}
	if buf.Len() < int(length)*4 {
		return nil, ErrInvalidVector
	}

	vector := make([]float32, length)
	if err := binary.Read(buf, binary.LittleEndian, vector); err != nil {
		return nil, fmt.Errorf("decode vector values: %w", err)
	}
	return vector, nil
}

// ValidateVector rejects nil, empty, NaN and infinite vectors.
func ValidateVector(vector []float32) error {
	if len(vector) == 0 {
		return ErrInvalidVector
	}
	for _, val := range vector {
		if val != val || math.IsInf(float64(val), 0) {
			return ErrInvalidVector
		}
	}
	return nil
}
