// Package scval bridges Go values and Soroban ScVals: typed constructors for
// building contract-call arguments and a best-effort decoder for reading
// return values and event payloads back into native Go types.
package scval

import (
	"fmt"
	"math"

	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"
)

// Address builds an ScVal for an account ("G...") or contract ("C...")
// address.
func Address(addr string) (xdr.ScVal, error) {
	scAddr, err := toScAddress(addr)
	if err != nil {
		return xdr.ScVal{}, err
	}
	return xdr.ScVal{Type: xdr.ScValTypeScvAddress, Address: &scAddr}, nil
}

// ContractAddress builds the ScAddress for a contract id strkey ("C...").
func ContractAddress(contractID string) (xdr.ScAddress, error) {
	raw, err := strkey.Decode(strkey.VersionByteContract, contractID)
	if err != nil {
		return xdr.ScAddress{}, fmt.Errorf("decode contract id %q: %w", contractID, err)
	}
	var id xdr.ContractId
	copy(id[:], raw)
	return xdr.ScAddress{Type: xdr.ScAddressTypeScAddressTypeContract, ContractId: &id}, nil
}

func toScAddress(addr string) (xdr.ScAddress, error) {
	if strkey.IsValidEd25519PublicKey(addr) {
		aid := xdr.MustAddress(addr)
		return xdr.ScAddress{Type: xdr.ScAddressTypeScAddressTypeAccount, AccountId: &aid}, nil
	}
	return ContractAddress(addr)
}

// String builds a string ScVal.
func String(s string) xdr.ScVal {
	v := xdr.ScString(s)
	return xdr.ScVal{Type: xdr.ScValTypeScvString, Str: &v}
}

// Symbol builds a symbol ScVal.
func Symbol(s string) xdr.ScVal {
	v := xdr.ScSymbol(s)
	return xdr.ScVal{Type: xdr.ScValTypeScvSymbol, Sym: &v}
}

// U32 builds a u32 ScVal.
func U32(n uint32) xdr.ScVal {
	v := xdr.Uint32(n)
	return xdr.ScVal{Type: xdr.ScValTypeScvU32, U32: &v}
}

// U64 builds a u64 ScVal.
func U64(n uint64) xdr.ScVal {
	v := xdr.Uint64(n)
	return xdr.ScVal{Type: xdr.ScValTypeScvU64, U64: &v}
}

// Bool builds a bool ScVal.
func Bool(b bool) xdr.ScVal {
	return xdr.ScVal{Type: xdr.ScValTypeScvBool, B: &b}
}

// I128 builds an i128 ScVal from an int64, sign-extending into the high
// limb.
func I128(n int64) xdr.ScVal {
	parts := xdr.Int128Parts{Hi: xdr.Int64(n >> 63), Lo: xdr.Uint64(n)}
	return xdr.ScVal{Type: xdr.ScValTypeScvI128, I128: &parts}
}

// Vec builds a vector ScVal.
func Vec(vals ...xdr.ScVal) xdr.ScVal {
	vec := xdr.ScVec(vals)
	return xdr.ScVal{Type: xdr.ScValTypeScvVec, Vec: &vec}
}

// Map builds a symbol-keyed map ScVal, preserving the given entry order.
func Map(keys []string, vals []xdr.ScVal) (xdr.ScVal, error) {
	if len(keys) != len(vals) {
		return xdr.ScVal{}, fmt.Errorf("map: %d keys but %d values", len(keys), len(vals))
	}
	m := make(xdr.ScMap, len(keys))
	for i, k := range keys {
		m[i] = xdr.ScMapEntry{Key: Symbol(k), Val: vals[i]}
	}
	return xdr.ScVal{Type: xdr.ScValTypeScvMap, Map: &m}, nil
}

// DecodeBase64 unmarshals a base64 ScVal.
func DecodeBase64(s string) (xdr.ScVal, error) {
	var v xdr.ScVal
	if err := xdr.SafeUnmarshalBase64(s, &v); err != nil {
		return xdr.ScVal{}, fmt.Errorf("decode scval: %w", err)
	}
	return v, nil
}

// EncodeBase64 marshals an ScVal to base64.
func EncodeBase64(v xdr.ScVal) (string, error) {
	return xdr.MarshalBase64(v)
}

// Int64FromI128 narrows i128 parts into an int64, erroring on overflow.
// Native-asset amounts always fit: the total XLM supply is well inside 63
// bits of stroops.
func Int64FromI128(p xdr.Int128Parts) (int64, error) {
	switch {
	case p.Hi == 0 && p.Lo <= math.MaxInt64:
		return int64(p.Lo), nil
	case p.Hi == -1 && p.Lo > math.MaxInt64:
		return int64(p.Lo), nil
	default:
		return 0, fmt.Errorf("i128 value (hi=%d, lo=%d) overflows int64", p.Hi, p.Lo)
	}
}

// AddressString renders an ScAddress as its strkey form.
func AddressString(a xdr.ScAddress) (string, error) {
	switch a.Type {
	case xdr.ScAddressTypeScAddressTypeAccount:
		if a.AccountId == nil {
			return "", fmt.Errorf("account address with no account id")
		}
		return a.AccountId.Address(), nil
	case xdr.ScAddressTypeScAddressTypeContract:
		if a.ContractId == nil {
			return "", fmt.Errorf("contract address with no contract id")
		}
		return strkey.Encode(strkey.VersionByteContract, a.ContractId[:])
	default:
		return "", fmt.Errorf("unsupported address type %v", a.Type)
	}
}

// ToNative converts an ScVal into plain Go values: bools, integers, strings,
// []any for vectors, map[string]any for maps, strkey strings for addresses.
// Unrepresentable values decode to nil rather than erroring; event payloads
// are display data and a partial decode beats none.
func ToNative(v xdr.ScVal) any {
	switch v.Type {
	case xdr.ScValTypeScvBool:
		if v.B != nil {
			return *v.B
		}
	case xdr.ScValTypeScvU32:
		if v.U32 != nil {
			return uint32(*v.U32)
		}
	case xdr.ScValTypeScvI32:
		if v.I32 != nil {
			return int32(*v.I32)
		}
	case xdr.ScValTypeScvU64:
		if v.U64 != nil {
			return uint64(*v.U64)
		}
	case xdr.ScValTypeScvI64:
		if v.I64 != nil {
			return int64(*v.I64)
		}
	case xdr.ScValTypeScvI128:
		if v.I128 != nil {
			if n, err := Int64FromI128(*v.I128); err == nil {
				return n
			}
		}
	case xdr.ScValTypeScvString:
		if v.Str != nil {
			return string(*v.Str)
		}
	case xdr.ScValTypeScvSymbol:
		if v.Sym != nil {
			return string(*v.Sym)
		}
	case xdr.ScValTypeScvAddress:
		if v.Address != nil {
			if s, err := AddressString(*v.Address); err == nil {
				return s
			}
		}
	case xdr.ScValTypeScvVec:
		if v.Vec != nil {
			out := make([]any, 0, len(*v.Vec))
			for _, item := range *v.Vec {
				out = append(out, ToNative(item))
			}
			return out
		}
	case xdr.ScValTypeScvMap:
		if v.Map != nil {
			out := make(map[string]any, len(*v.Map))
			for _, entry := range *v.Map {
				key, ok := ToNative(entry.Key).(string)
				if !ok {
					key = fmt.Sprint(ToNative(entry.Key))
				}
				out[key] = ToNative(entry.Val)
			}
			return out
		}
	}
	return nil
}
