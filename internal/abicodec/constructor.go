package abicodec

import (
	"encoding/hex"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// EncodeConstructorArgs packs typed constructor arguments into the flat hex
// encoding the verification service expects: same scheme as calldata argument
// packing, no selector, no 0x prefix.
//
// An empty parameter list returns "", as does any not-yet-supplied value: the
// service requires an empty argument field for no-argument constructors, and
// a partial encoding would verify against the wrong deployment.
func EncodeConstructorArgs(args abi.Arguments, values []Value) (string, error) {
	if len(args) == 0 {
		return "", nil
	}
	for _, v := range values {
		if v.Empty() {
			return "", nil
		}
	}
	if len(values) != len(args) {
		return "", &ValidationError{Fragment: "constructor", Expected: len(args), Actual: len(values)}
	}

	goValues := make([]any, len(values))
	for i, v := range values {
		gv, err := goValue(args[i].Type, v)
		if err != nil {
			return "", &EncodingError{Param: args[i].Name, Type: args[i].Type.String(), Cause: err}
		}
		goValues[i] = gv
	}

	packed, err := args.Pack(goValues...)
	if err != nil {
		return "", &EncodingError{Param: "constructor", Type: "arguments", Cause: err}
	}
	return hex.EncodeToString(packed), nil
}

// EncodeConstructorRaw coerces raw strings against the constructor's declared
// parameters and encodes them. Convenience for callers holding user input.
func EncodeConstructorRaw(contractABI abi.ABI, raws []string) (string, error) {
	frag := ConstructorFragment(contractABI)
	return EncodeConstructorArgs(frag.Arguments(), CoerceAll(raws, frag.Inputs))
}

// EncodeDeployArgs packs constructor values for a creation transaction.
// Unlike EncodeConstructorArgs it is strict: a parameterized constructor
// requires every value present, because creation data with missing arguments
// deploys a different contract than the caller thinks it does.
func EncodeDeployArgs(contractABI abi.ABI, raws []string) ([]byte, error) {
	frag := ConstructorFragment(contractABI)
	if len(raws) != len(frag.Inputs) {
		return nil, &ValidationError{
			Fragment: frag.Name,
			Expected: len(frag.Inputs),
			Actual:   len(raws),
		}
	}
	if len(frag.Inputs) == 0 {
		return nil, nil
	}
	return encodeFragment(frag, CoerceAll(raws, frag.Inputs))
}
