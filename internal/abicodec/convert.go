package abicodec

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var (
	errValueMissing = errors.New("value not supplied")
	errNotDecimal   = errors.New("not a decimal integer")
	errBadAddress   = errors.New("not a valid address")
	errBadHex       = errors.New("not a valid hex string")
)

// goValue converts a coerced Value into the Go value the ABI packer expects
// for the given type. The packer is strict about Go types per bit size, so
// integers are narrowed here, with range checks, and fixed bytes become the
// right array type via reflection.
func goValue(t abi.Type, v Value) (any, error) {
	if v.Empty() {
		return nil, errValueMissing
	}

	switch t.T {
	case abi.AddressTy:
		if !common.IsHexAddress(v.Raw) {
			return nil, fmt.Errorf("%w: %q", errBadAddress, v.Raw)
		}
		return common.HexToAddress(v.Raw), nil

	case abi.UintTy:
		n, ok := new(big.Int).SetString(v.Raw, 10)
		if !ok || n.Sign() < 0 {
			return nil, fmt.Errorf("%w: %q", errNotDecimal, v.Raw)
		}
		return sizedUint(n, t.Size)

	case abi.IntTy:
		n, ok := new(big.Int).SetString(v.Raw, 10)
		if !ok {
			return nil, fmt.Errorf("%w: %q", errNotDecimal, v.Raw)
		}
		return sizedInt(n, t.Size)

	case abi.BoolTy:
		if v.Kind == KindBool {
			return v.Bool, nil
		}
		return strings.EqualFold(v.Raw, "true"), nil

	case abi.StringTy:
		return v.Raw, nil

	case abi.BytesTy:
		return decodeHex(v.Raw)

	case abi.FixedBytesTy:
		b, err := decodeHex(v.Raw)
		if err != nil {
			return nil, err
		}
		if len(b) != t.Size {
			return nil, fmt.Errorf("%w: want %d bytes, got %d", errBadHex, t.Size, len(b))
		}
		arr := reflect.Indirect(reflect.New(t.GetType()))
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil

	case abi.SliceTy, abi.ArrayTy, abi.TupleTy:
		var doc any
		dec := json.NewDecoder(strings.NewReader(v.Raw))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("compound value is not valid JSON: %v", err)
		}
		return jsonValue(t, doc)

	default:
		return nil, fmt.Errorf("unsupported ABI type %s", t.String())
	}
}

// jsonValue converts a decoded JSON element into the Go value for an ABI
// type. Compound values arrive as JSON arrays; leaf elements are re-coerced
// from their text form so nested handling matches top-level handling.
func jsonValue(t abi.Type, doc any) (any, error) {
	switch t.T {
	case abi.SliceTy:
		elems, ok := doc.([]any)
		if !ok {
			return nil, fmt.Errorf("expected JSON array for %s", t.String())
		}
		slice := reflect.MakeSlice(t.GetType(), len(elems), len(elems))
		for i, elem := range elems {
			ev, err := jsonValue(*t.Elem, elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			slice.Index(i).Set(reflect.ValueOf(ev))
		}
		return slice.Interface(), nil

	case abi.ArrayTy:
		elems, ok := doc.([]any)
		if !ok {
			return nil, fmt.Errorf("expected JSON array for %s", t.String())
		}
		if len(elems) != t.Size {
			return nil, fmt.Errorf("expected %d elements for %s, got %d", t.Size, t.String(), len(elems))
		}
		arr := reflect.Indirect(reflect.New(t.GetType()))
		for i, elem := range elems {
			ev, err := jsonValue(*t.Elem, elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			arr.Index(i).Set(reflect.ValueOf(ev))
		}
		return arr.Interface(), nil

	case abi.TupleTy:
		elems, ok := doc.([]any)
		if !ok {
			return nil, fmt.Errorf("expected JSON array for tuple %s", t.String())
		}
		if len(elems) != len(t.TupleElems) {
			return nil, fmt.Errorf("expected %d tuple components, got %d", len(t.TupleElems), len(elems))
		}
		st := reflect.Indirect(reflect.New(t.GetType()))
		for i, elem := range elems {
			ev, err := jsonValue(*t.TupleElems[i], elem)
			if err != nil {
				return nil, fmt.Errorf("component %s: %w", t.TupleRawNames[i], err)
			}
			st.Field(i).Set(reflect.ValueOf(ev))
		}
		return st.Interface(), nil

	default:
		return goValue(t, Coerce(jsonText(doc), t.String()))
	}
}

// jsonText renders a JSON leaf back to the text form Coerce expects.
func jsonText(doc any) string {
	switch v := doc.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

func sizedUint(n *big.Int, size int) (any, error) {
	if n.BitLen() > size {
		return nil, fmt.Errorf("value %s overflows uint%d", n.String(), size)
	}
	switch size {
	case 8:
		return uint8(n.Uint64()), nil
	case 16:
		return uint16(n.Uint64()), nil
	case 32:
		return uint32(n.Uint64()), nil
	case 64:
		return n.Uint64(), nil
	default:
		return n, nil
	}
}

func sizedInt(n *big.Int, size int) (any, error) {
	// Signed range: [-2^(size-1), 2^(size-1)-1].
	limit := new(big.Int).Lsh(big.NewInt(1), uint(size-1))
	upper := new(big.Int).Sub(limit, big.NewInt(1))
	lower := new(big.Int).Neg(limit)
	if n.Cmp(upper) > 0 || n.Cmp(lower) < 0 {
		return nil, fmt.Errorf("value %s overflows int%d", n.String(), size)
	}
	switch size {
	case 8:
		return int8(n.Int64()), nil
	case 16:
		return int16(n.Int64()), nil
	case 32:
		return int32(n.Int64()), nil
	case 64:
		return n.Int64(), nil
	default:
		return n, nil
	}
}

func decodeHex(s string) ([]byte, error) {
	h := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(h)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length", errBadHex)
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadHex, err)
	}
	return b, nil
}
