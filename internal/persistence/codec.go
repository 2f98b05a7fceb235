package persistence

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/nnorbert/codedam/pkg/api"
)

// EncodeValue serializes v using encoding/gob. A nil v encodes to nil.
// Values stored behind interfaces must be gob-registered; the basic types
// produced by widgets (float64, string, bool) already are.
func EncodeValue[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeValue restores a value written by EncodeValue. Empty input
// decodes to nil.
func DecodeValue[T any](data []byte) (*T, error) {
	if len(data) == 0 {
		return nil, nil
	}
	v := new(T)
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return nil, err
	}
	return v, nil
}

// encodeSnapshot stores a snapshot as a gob blob. Variable values are
// widened to their display form when gob cannot carry their dynamic type.
func encodeSnapshot(s *api.Snapshot) ([]byte, error) {
	data, err := EncodeValue(s)
	if err == nil || s == nil {
		return data, err
	}

	flat := cloneSnapshot(*s)
	for i := range flat.Frames {
		for j, v := range flat.Frames[i].Variables {
			switch v.Value.(type) {
			case nil, float64, string, bool:
			default:
				flat.Frames[i].Variables[j].Value = api.FormatValue(v.Value)
			}
		}
	}
	data, ferr := EncodeValue(&flat)
	if ferr != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (*api.Snapshot, error) {
	s, err := DecodeValue[api.Snapshot](data)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}
