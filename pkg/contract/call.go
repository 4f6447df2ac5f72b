// Package contract models dynamically-typed contract calls and bridges them
// onto go-ethereum's ABI encoder. Argument shapes are validated here, at the
// boundary, so the execution paths can assume well-formed calls.
package contract

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Call describes one contract invocation with a dynamically-typed argument
// list, as received from the tool boundary.
type Call struct {
	Address  common.Address
	ABI      string
	Function string
	Args     []interface{}
	Value    *big.Int
}

// Pack encodes the call into calldata: 4-byte selector plus ABI-encoded
// arguments. Arguments are coerced from their JSON shapes (strings, float64
// numbers, hex strings) into the Go types the encoder expects.
func (c *Call) Pack() ([]byte, error) {
	parsed, err := abi.JSON(strings.NewReader(c.ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	// An empty function name targets the constructor
	inputs := parsed.Constructor.Inputs
	if c.Function != "" {
		method, ok := parsed.Methods[c.Function]
		if !ok {
			return nil, fmt.Errorf("function %q not found in ABI", c.Function)
		}
		inputs = method.Inputs
	}
	if len(inputs) != len(c.Args) {
		return nil, fmt.Errorf("function %q wants %d args, got %d",
			c.Function, len(inputs), len(c.Args))
	}

	args := make([]interface{}, len(c.Args))
	for i, input := range inputs {
		coerced, err := coerceArg(input.Type, c.Args[i])
		if err != nil {
			return nil, fmt.Errorf("arg %d (%s): %w", i, input.Type.String(), err)
		}
		args[i] = coerced
	}

	data, err := parsed.Pack(c.Function, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %q: %w", c.Function, err)
	}
	return data, nil
}

// Unpack decodes a call's return data into a flat value list
func (c *Call) Unpack(data []byte) ([]interface{}, error) {
	parsed, err := abi.JSON(strings.NewReader(c.ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}

	values, err := parsed.Unpack(c.Function, data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %q result: %w", c.Function, err)
	}
	return values, nil
}

// coerceArg converts a dynamically-typed argument into the Go value the ABI
// encoder expects for the given type
func coerceArg(t abi.Type, v interface{}) (interface{}, error) {
	switch t.T {
	case abi.AddressTy:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("address must be a hex string")
		}
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid address %q", s)
		}
		return common.HexToAddress(s), nil

	case abi.UintTy, abi.IntTy:
		n, err := toBigInt(v)
		if err != nil {
			return nil, err
		}
		return sizeInteger(t, n)

	case abi.BoolTy:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool")
		}
		return b, nil

	case abi.StringTy:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string")
		}
		return s, nil

	case abi.BytesTy:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("bytes must be a hex string")
		}
		return hexutil.Decode(s)

	case abi.FixedBytesTy:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("bytes%d must be a hex string", t.Size)
		}
		raw, err := hexutil.Decode(s)
		if err != nil {
			return nil, err
		}
		if len(raw) != t.Size {
			return nil, fmt.Errorf("bytes%d value has %d bytes", t.Size, len(raw))
		}
		if t.Size == 32 {
			var out [32]byte
			copy(out[:], raw)
			return out, nil
		}
		return nil, fmt.Errorf("unsupported fixed bytes size %d", t.Size)

	case abi.SliceTy, abi.ArrayTy:
		items, ok := v.([]interface{})
		if !ok {
			return nil, fmt.Errorf("expected array")
		}
		// Address arrays are the common case at this boundary
		if t.Elem.T == abi.AddressTy {
			out := make([]common.Address, len(items))
			for i, item := range items {
				coerced, err := coerceArg(*t.Elem, item)
				if err != nil {
					return nil, fmt.Errorf("element %d: %w", i, err)
				}
				out[i] = coerced.(common.Address)
			}
			return out, nil
		}
		if t.Elem.T == abi.UintTy && t.Elem.Size == 256 {
			out := make([]*big.Int, len(items))
			for i, item := range items {
				n, err := toBigInt(item)
				if err != nil {
					return nil, fmt.Errorf("element %d: %w", i, err)
				}
				out[i] = n
			}
			return out, nil
		}
		return nil, fmt.Errorf("unsupported array element type %s", t.Elem.String())

	default:
		return nil, fmt.Errorf("unsupported argument type %s", t.String())
	}
}

// toBigInt accepts the numeric shapes JSON can carry: float64 for small
// numbers, decimal or 0x-hex strings for anything larger.
func toBigInt(v interface{}) (*big.Int, error) {
	switch n := v.(type) {
	case float64:
		if n != float64(int64(n)) {
			return nil, fmt.Errorf("number %v is not an integer", n)
		}
		return big.NewInt(int64(n)), nil
	case string:
		s := strings.TrimSpace(n)
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			out, ok := new(big.Int).SetString(s[2:], 16)
			if !ok {
				return nil, fmt.Errorf("invalid hex number %q", n)
			}
			return out, nil
		}
		out, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("invalid number %q", n)
		}
		return out, nil
	case *big.Int:
		return n, nil
	default:
		return nil, fmt.Errorf("expected number, got %T", v)
	}
}

// sizeInteger maps a big integer onto the exact Go type the encoder expects
// for the declared bit width. Values outside the width are rejected, never
// truncated.
func sizeInteger(t abi.Type, n *big.Int) (interface{}, error) {
	if err := checkIntegerRange(t, n); err != nil {
		return nil, err
	}

	switch t.Size {
	case 8:
		if t.T == abi.UintTy {
			return uint8(n.Uint64()), nil
		}
		return int8(n.Int64()), nil
	case 16:
		if t.T == abi.UintTy {
			return uint16(n.Uint64()), nil
		}
		return int16(n.Int64()), nil
	case 32:
		if t.T == abi.UintTy {
			return uint32(n.Uint64()), nil
		}
		return int32(n.Int64()), nil
	case 64:
		if t.T == abi.UintTy {
			return n.Uint64(), nil
		}
		return n.Int64(), nil
	default:
		return n, nil
	}
}

// checkIntegerRange verifies that a value fits the declared bit width
func checkIntegerRange(t abi.Type, n *big.Int) error {
	if t.T == abi.UintTy {
		if n.Sign() < 0 {
			return fmt.Errorf("negative value for unsigned type")
		}
		if n.BitLen() > t.Size {
			return fmt.Errorf("value %s overflows uint%d", n, t.Size)
		}
		return nil
	}

	limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
	max := new(big.Int).Sub(limit, big.NewInt(1))
	min := new(big.Int).Neg(limit)
	if n.Cmp(min) < 0 || n.Cmp(max) > 0 {
		return fmt.Errorf("value %s overflows int%d", n, t.Size)
	}
	return nil
}
