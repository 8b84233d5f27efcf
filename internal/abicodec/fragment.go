package abicodec

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Param is one declared parameter of a function or constructor.
type Param struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Fragment describes one callable unit: a contract function bound to a target
// address, or a constructor. Fragments are immutable once built from a parsed
// ABI; BuildCalls consumes them in declared batch order.
type Fragment struct {
	Name        string
	Inputs      []Param
	Target      common.Address
	Constructor bool

	selector []byte
	args     abi.Arguments
}

// ParseABI parses a stored ABI document.
func ParseABI(raw []byte) (abi.ABI, error) {
	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("%w: %v", ErrInvalidABI, err)
	}
	return parsed, nil
}

// NewFragment resolves a named function in a parsed ABI and binds it to a
// target address.
func NewFragment(contractABI abi.ABI, name string, target common.Address) (Fragment, error) {
	method, ok := contractABI.Methods[name]
	if !ok {
		return Fragment{}, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	return Fragment{
		Name:     name,
		Inputs:   paramsOf(method.Inputs),
		Target:   target,
		selector: method.ID,
		args:     method.Inputs,
	}, nil
}

// ConstructorFragment builds the constructor fragment of a parsed ABI. An ABI
// without an explicit constructor yields a zero-parameter fragment.
func ConstructorFragment(contractABI abi.ABI) Fragment {
	return Fragment{
		Name:        "constructor",
		Inputs:      paramsOf(contractABI.Constructor.Inputs),
		Constructor: true,
		args:        contractABI.Constructor.Inputs,
	}
}

// Arguments exposes the resolved ABI argument list, for encoding.
func (f Fragment) Arguments() abi.Arguments {
	return f.args
}

func paramsOf(args abi.Arguments) []Param {
	params := make([]Param, len(args))
	for i, arg := range args {
		params[i] = Param{Name: arg.Name, Type: arg.Type.String()}
	}
	return params
}
