package eventloop

import (
	"unicode/utf8"

	"github.com/grafana/sobek"
)

type valueKind uint8

const (
	kindUndefined valueKind = iota
	kindString
	kindNumber
)

// Value is the closed set of scalars a task may carry back into the
// engine. Anything richer (objects, handles) stays on the Go side and is
// attached by a promise continuation instead.
type Value struct {
	kind valueKind
	str  []byte
	num  int32
}

// StringValue carries raw bytes that become a JS string on delivery.
func StringValue(b []byte) Value {
	return Value{kind: kindString, str: b}
}

// NumberValue carries a 32-bit integer that becomes a JS number on delivery.
func NumberValue(n int32) Value {
	return Value{kind: kindNumber, num: n}
}

// Undefined carries the undefined singleton.
func Undefined() Value {
	return Value{kind: kindUndefined}
}

// toJS converts the carried scalar to an engine value. String bytes must be
// valid UTF-8; anything else collapses to the empty string rather than
// producing a mangled JS string.
func (v Value) toJS(rt *sobek.Runtime) sobek.Value {
	switch v.kind {
	case kindString:
		if !utf8.Valid(v.str) {
			return rt.ToValue("")
		}
		return rt.ToValue(string(v.str))
	case kindNumber:
		return rt.ToValue(float64(v.num))
	default:
		return sobek.Undefined()
	}
}

// Outcome is how a finished task settles its promise: one Value, delivered
// through either the resolve or the reject arm.
type Outcome struct {
	value    Value
	rejected bool
}

// Resolve fulfills the task's promise with v.
func Resolve(v Value) Outcome {
	return Outcome{value: v}
}

// Reject rejects the task's promise with v.
func Reject(v Value) Outcome {
	return Outcome{value: v, rejected: true}
}
