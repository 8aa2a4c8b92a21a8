package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// FromJSON decodes text into a Value following the encoding rules of
// spec.md section 4.1: JSON null maps to Null; integers that fit an
// int32 decode to Int32, wider integers to Int64; any number with a
// fractional part decodes to Float64. A malformed stream is reported as
// Null, matching the original implementation's fromJson failure mode.
//
// The decoder walks the stream with json.Decoder.Token, recognizing the
// same StartObject/Key/Value/EndObject and StartArray/Value/EndArray
// states the C++ original's hand-rolled parser does, which also lets Map
// preserve source key order for round-tripping.
func FromJSON(text string) Value {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return Null
	}
	// Reject trailing garbage after the top-level value.
	if _, err := dec.Token(); err != io.EOF {
		return Null
	}
	return v
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Null, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null, nil
	case bool:
		return NewBool(t), nil
	case json.Number:
		return numberToValue(t), nil
	case string:
		return NewString(t), nil
	case json.Delim:
		switch t {
		case '{':
			m := NewOrderedMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Null, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Null, fmt.Errorf("value: expected object key, got %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return Null, err
				}
				m.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Null, err
			}
			return NewMap(m), nil
		case '[':
			var arr Array
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return Null, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Null, err
			}
			return NewArray(arr), nil
		default:
			return Null, fmt.Errorf("value: unexpected delimiter %v", t)
		}
	default:
		return Null, fmt.Errorf("value: unexpected token %v (%T)", tok, tok)
	}
}

func numberToValue(n json.Number) Value {
	s := n.String()
	if strings.ContainsAny(s, ".eE") {
		f, err := n.Float64()
		if err != nil {
			return Null
		}
		return NewFloat64(f)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		if i >= -(1<<31) && i <= (1<<31-1) {
			return NewInt32(int32(i))
		}
		return NewInt64(i)
	}
	// Overflows int64 (e.g. huge literal) - fall back to float64, matching
	// the spirit of "fractional decodes to float" for anything that
	// can't be represented exactly as an integer.
	f, err := n.Float64()
	if err != nil {
		return Null
	}
	return NewFloat64(f)
}

// ToJSON encodes v to its JSON text form. ObjectHandle values never reach
// the wire directly per spec.md section 4.1 -- attempting to encode one
// is treated as Null.
func ToJSON(v Value) (string, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func encodeValue(buf *bytes.Buffer, v Value) error {
	switch v.kind {
	case KindNull, KindObjectHandle:
		buf.WriteString("null")
		return nil
	case KindBool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case KindInt32:
		buf.WriteString(strconv.FormatInt(int64(v.i32), 10))
		return nil
	case KindInt64:
		buf.WriteString(strconv.FormatInt(v.i64, 10))
		return nil
	case KindFloat32:
		return encodeFloat(buf, float64(v.f32))
	case KindFloat64:
		return encodeFloat(buf, v.f64)
	case KindString:
		enc, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(enc)
		return nil
	case KindArray:
		buf.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case KindMap:
		buf.WriteByte('{')
		for i, k := range v.m.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			kenc, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kenc)
			buf.WriteByte(':')
			mv, _ := v.m.Get(k)
			if err := encodeValue(buf, mv); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	default:
		return fmt.Errorf("value: cannot encode kind %s", v.kind)
	}
}

func encodeFloat(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		// NaN/Inf have no JSON representation; fall back to null rather
		// than emitting invalid JSON.
		buf.WriteString("null")
		return nil
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	return nil
}
