package kv

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/dbspgo/dbsp/algebra"
)

// encodeOrdered writes a single algebra.Ordered value in a fixed binary
// layout: strings as a u32 length prefix followed by UTF-8 bytes, every
// other permitted kind as a fixed-width big-endian scalar. Segment files
// use this directly (rather than the codec package's self-describing
// format) since every record in a segment shares the same K/V type.
func encodeOrdered[T algebra.Ordered](w io.Writer, v T) error {
	switch x := any(v).(type) {
	case string:
		if err := binary.Write(w, binary.BigEndian, uint32(len(x))); err != nil {
			return err
		}
		_, err := io.WriteString(w, x)
		return err
	case int:
		return binary.Write(w, binary.BigEndian, int64(x))
	case int8:
		return binary.Write(w, binary.BigEndian, x)
	case int16:
		return binary.Write(w, binary.BigEndian, x)
	case int32:
		return binary.Write(w, binary.BigEndian, x)
	case int64:
		return binary.Write(w, binary.BigEndian, x)
	case uint:
		return binary.Write(w, binary.BigEndian, uint64(x))
	case uint8:
		return binary.Write(w, binary.BigEndian, x)
	case uint16:
		return binary.Write(w, binary.BigEndian, x)
	case uint32:
		return binary.Write(w, binary.BigEndian, x)
	case uint64:
		return binary.Write(w, binary.BigEndian, x)
	case float32:
		return binary.Write(w, binary.BigEndian, math.Float32bits(x))
	case float64:
		return binary.Write(w, binary.BigEndian, math.Float64bits(x))
	default:
		return fmt.Errorf("kv: unsupported ordered type %T", v)
	}
}

func decodeOrdered[T algebra.Ordered](r io.Reader) (T, error) {
	var zero T
	switch any(zero).(type) {
	case string:
		var n uint32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return zero, err
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return zero, err
		}
		return any(string(buf)).(T), nil
	case int:
		var x int64
		if err := binary.Read(r, binary.BigEndian, &x); err != nil {
			return zero, err
		}
		return any(int(x)).(T), nil
	case int8:
		var x int8
		err := binary.Read(r, binary.BigEndian, &x)
		return any(x).(T), err
	case int16:
		var x int16
		err := binary.Read(r, binary.BigEndian, &x)
		return any(x).(T), err
	case int32:
		var x int32
		err := binary.Read(r, binary.BigEndian, &x)
		return any(x).(T), err
	case int64:
		var x int64
		err := binary.Read(r, binary.BigEndian, &x)
		return any(x).(T), err
	case uint:
		var x uint64
		if err := binary.Read(r, binary.BigEndian, &x); err != nil {
			return zero, err
		}
		return any(uint(x)).(T), nil
	case uint8:
		var x uint8
		err := binary.Read(r, binary.BigEndian, &x)
		return any(x).(T), err
	case uint16:
		var x uint16
		err := binary.Read(r, binary.BigEndian, &x)
		return any(x).(T), err
	case uint32:
		var x uint32
		err := binary.Read(r, binary.BigEndian, &x)
		return any(x).(T), err
	case uint64:
		var x uint64
		err := binary.Read(r, binary.BigEndian, &x)
		return any(x).(T), err
	case float32:
		var x uint32
		if err := binary.Read(r, binary.BigEndian, &x); err != nil {
			return zero, err
		}
		return any(math.Float32frombits(x)).(T), nil
	case float64:
		var x uint64
		if err := binary.Read(r, binary.BigEndian, &x); err != nil {
			return zero, err
		}
		return any(math.Float64frombits(x)).(T), nil
	default:
		return zero, fmt.Errorf("kv: unsupported ordered type %T", zero)
	}
}
