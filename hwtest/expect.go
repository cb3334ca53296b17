// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hwtest provides utility functions for testing circuits.
//
package hwtest

import (
	"testing"
)

// ExpectSuccess tests v for a success condition suitable for its type:
//
//	bool -> v == true
//	error -> v == nil
//
// A nil v always succeeds.
//
func ExpectSuccess(t testing.TB, v interface{}) bool {
	t.Helper()
	switch v := v.(type) {
	case nil:
		return true
	case bool:
		if !v {
			t.Errorf("expected success (bool)")
			return false
		}
	case error:
		if v != nil {
			t.Errorf("expected success (error: %v)", v)
			return false
		}
	default:
		t.Fatalf("unsupported type (%T) for expectation testing", v)
		return false
	}
	return true
}

// ExpectFailure tests v for a failure condition suitable for its type:
//
//	bool -> v == false
//	error -> v != nil
//
// A nil v always fails.
//
func ExpectFailure(t testing.TB, v interface{}) bool {
	t.Helper()
	switch v := v.(type) {
	case nil:
		t.Errorf("expected failure (nil)")
		return false
	case bool:
		if v {
			t.Errorf("expected failure (bool)")
			return false
		}
	case error:
		if v == nil {
			t.Errorf("expected failure (error)")
			return false
		}
	default:
		t.Fatalf("unsupported type (%T) for expectation testing", v)
		return false
	}
	return true
}

// ExpectEquality tests value against expected. Integer values of different
// types are compared as uint64 so that untyped constants can be used as
// expected values.
//
func ExpectEquality(t testing.TB, value, expected interface{}) bool {
	t.Helper()
	if a, ok := asUint(value); ok {
		if b, ok := asUint(expected); ok {
			if a != b {
				t.Errorf("equality test of type %T failed: %d (wanted %d)", value, a, b)
				return false
			}
			return true
		}
		t.Fatalf("values for equality test are not of compatible types (%T and %T)", value, expected)
		return false
	}
	switch v := value.(type) {
	case bool, string:
		if v != expected {
			t.Errorf("equality test of type %T failed: %v (wanted %v)", v, v, expected)
			return false
		}
	default:
		t.Fatalf("unsupported type (%T) for equality testing", v)
		return false
	}
	return true
}

func asUint(v interface{}) (uint64, bool) {
	switch v := v.(type) {
	case int:
		return uint64(v), true
	case int64:
		return uint64(v), true
	case int32:
		return uint64(v), true
	case uint64:
		return v, true
	case uint32:
		return uint64(v), true
	case uint16:
		return uint64(v), true
	case uint8:
		return uint64(v), true
	case uint:
		return uint64(v), true
	}
	return 0, false
}
