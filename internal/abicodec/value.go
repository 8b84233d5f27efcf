// Package abicodec turns user-entered string values into typed contract-call
// arguments and packs them into calldata and constructor encodings.
package abicodec

import (
	"strings"
)

// Kind tags a coerced value with its parameter category. The set is closed:
// every ABI type name maps onto exactly one kind at ingestion, so downstream
// code never re-inspects raw type strings.
type Kind int

const (
	// KindEmpty marks a value the user has not supplied yet. It is distinct
	// from a valid falsy value such as "false" or "0".
	KindEmpty Kind = iota
	KindBool
	KindInt
	KindAddress
	KindBytes
	KindText
	KindCompound
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindAddress:
		return "address"
	case KindBytes:
		return "bytes"
	case KindText:
		return "text"
	case KindCompound:
		return "compound"
	default:
		return "unknown"
	}
}

// Value is a coerced parameter value. Raw always preserves the original user
// input; Bool carries the parsed boolean for KindBool. Integer, address and
// bytes payloads stay in Raw untouched and are converted only at encode time,
// where a precise type-aware error can be produced.
type Value struct {
	Kind Kind
	Raw  string
	Bool bool
}

// Empty reports whether the value is the not-yet-supplied sentinel.
func (v Value) Empty() bool {
	return v.Kind == KindEmpty
}

// Coerce converts a raw string and an ABI type name into a tagged Value.
// It never fails: values that cannot be interpreted keep their raw text and
// surface errors later at the encoding boundary.
//
// Booleans are lenient on purpose: any value other than a case-insensitive
// "true" coerces to false, so half-typed form input never errors mid-entry.
// Integers keep their decimal text as-is, since EVM integers exceed 64-bit
// range. Addresses and bytes keep their hex text verbatim; length and
// checksum problems are rejected downstream by the encoder or signer.
func Coerce(raw, typeName string) Value {
	if raw == "" {
		return Value{Kind: KindEmpty}
	}

	switch {
	case typeName == "bool" || typeName == "boolean":
		return Value{Kind: KindBool, Raw: raw, Bool: strings.EqualFold(raw, "true")}
	case isIntegerType(typeName):
		return Value{Kind: KindInt, Raw: strings.TrimSpace(raw)}
	case typeName == "address":
		return Value{Kind: KindAddress, Raw: strings.TrimSpace(raw)}
	case isBytesType(typeName):
		return Value{Kind: KindBytes, Raw: strings.TrimSpace(raw)}
	case isCompoundType(typeName):
		return Value{Kind: KindCompound, Raw: raw}
	default:
		return Value{Kind: KindText, Raw: raw}
	}
}

// CoerceAll coerces one raw value per parameter, by position.
func CoerceAll(raws []string, params []Param) []Value {
	values := make([]Value, len(raws))
	for i, raw := range raws {
		typeName := ""
		if i < len(params) {
			typeName = params[i].Type
		}
		values[i] = Coerce(raw, typeName)
	}
	return values
}

func isIntegerType(typeName string) bool {
	if !strings.HasPrefix(typeName, "uint") && !strings.HasPrefix(typeName, "int") {
		return false
	}
	rest := strings.TrimPrefix(strings.TrimPrefix(typeName, "u"), "int")
	if rest == "" {
		return true
	}
	for _, c := range rest {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isBytesType(typeName string) bool {
	if typeName == "bytes" {
		return true
	}
	rest, ok := strings.CutPrefix(typeName, "bytes")
	if !ok || rest == "" {
		return false
	}
	for _, c := range rest {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isCompoundType(typeName string) bool {
	return strings.HasSuffix(typeName, "]") || strings.HasPrefix(typeName, "tuple") || strings.HasPrefix(typeName, "(")
}
