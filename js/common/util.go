// Package common contains helpers for interacting with the JS engine.
package common

import (
	"github.com/grafana/sobek"
)

// Throw a JS error, preserving the original exception when err already is
// one so that stack traces survive the round trip through Go.
func Throw(rt *sobek.Runtime, err error) {
	if e, ok := err.(*sobek.Exception); ok { //nolint:errorlint // we don't want to unwrap
		panic(e.Value())
	}
	panic(rt.NewGoError(err))
}

// ThrowTypeError throws a JS TypeError with the given message.
func ThrowTypeError(rt *sobek.Runtime, msg string) {
	panic(rt.NewTypeError(msg))
}

// IsNullish checks if the given value is nullish, e.g. null or undefined.
func IsNullish(v sobek.Value) bool {
	return v == nil || sobek.IsUndefined(v) || sobek.IsNull(v)
}
