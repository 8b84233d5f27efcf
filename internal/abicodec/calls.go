package abicodec

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CallDescriptor is one unit of a batch handed to transaction submission:
// a target address, fully encoded calldata, and an attached value in wei.
// Descriptors are produced fresh per build and never mutated afterwards.
type CallDescriptor struct {
	Target common.Address
	Data   []byte
	Value  *big.Int
}

// BuildCalls encodes one CallDescriptor per fragment from positional raw
// string values. The whole batch fails on the first fragment whose value
// count does not match its declared parameter count, and on the first value
// that cannot be encoded as its declared type; the batch executes atomically
// downstream, so partial call lists are never returned.
//
// Output order is fragment order. Later calls may depend on state mutated by
// earlier ones, so this ordering is the execution order end-to-end.
//
// BuildCalls performs no I/O. Broadcasting is the signing collaborator's job.
func BuildCalls(fragments []Fragment, valuesByFragment [][]string) ([]CallDescriptor, error) {
	calls := make([]CallDescriptor, 0, len(fragments))

	for i, frag := range fragments {
		var raws []string
		if i < len(valuesByFragment) {
			raws = valuesByFragment[i]
		}
		if len(raws) != len(frag.Inputs) {
			return nil, &ValidationError{
				FragmentIndex: i,
				Fragment:      frag.Name,
				Expected:      len(frag.Inputs),
				Actual:        len(raws),
			}
		}

		data, err := encodeFragment(frag, CoerceAll(raws, frag.Inputs))
		if err != nil {
			return nil, err
		}

		calls = append(calls, CallDescriptor{
			Target: frag.Target,
			Data:   data,
			Value:  new(big.Int),
		})
	}

	return calls, nil
}

// encodeFragment packs coerced values for one fragment: selector plus packed
// arguments for a function, bare packed arguments for a constructor.
func encodeFragment(frag Fragment, values []Value) ([]byte, error) {
	args := frag.Arguments()
	goValues := make([]any, len(values))
	for i, v := range values {
		gv, err := goValue(args[i].Type, v)
		if err != nil {
			return nil, &EncodingError{Param: args[i].Name, Type: args[i].Type.String(), Cause: err}
		}
		goValues[i] = gv
	}

	packed, err := args.Pack(goValues...)
	if err != nil {
		return nil, &EncodingError{Param: frag.Name, Type: "arguments", Cause: err}
	}

	if frag.Constructor {
		return packed, nil
	}
	return append(append([]byte{}, frag.selector...), packed...), nil
}
