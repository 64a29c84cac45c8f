package marshal

import "math/big"

// BigInt is Python's arbitrary-precision integer as marshal encodes it:
// sign-magnitude, with the magnitude stored as a little-endian sequence of
// 15-bit digits (spec.md §3, §4.2). This differs from the 2's-complement
// little-endian encoding pickle's LONG1/LONG4 opcodes use (ogorek.go's
// decodeLong), so it is not reused directly, but the approach — accumulate
// digits into a math/big.Int, then apply sign — is the same idea adapted
// to marshal's digit layout.
type BigInt struct {
	neg   bool
	value *big.Int // magnitude only; sign tracked separately to mirror Python's own representation
}

// digitBits is the width of one marshal long digit.
const digitBits = 15
const digitBase = 1 << digitBits

// FromDigits reconstructs a BigInt from marshal's signed digit count (n
// in TYPE_LONG: 0 for zero, positive for a positive magnitude with n
// digits, negative for a negative magnitude with -n digits) and the
// little-endian 15-bit digits that follow.
func FromDigits(n int32, digits []uint16) BigInt {
	neg := n < 0
	magnitude := new(big.Int)
	for i, d := range digits {
		term := new(big.Int).Lsh(big.NewInt(int64(d)), uint(i*digitBits))
		magnitude.Add(magnitude, term)
	}
	return BigInt{neg: neg && magnitude.Sign() != 0, value: magnitude}
}

// FromInt64 builds a BigInt from a native integer, for constant folding
// and tests.
func FromInt64(v int64) BigInt {
	b := BigInt{value: new(big.Int)}
	if v < 0 {
		b.neg = true
		b.value.SetUint64(uint64(-v))
	} else {
		b.value.SetInt64(v)
	}
	return b
}

// Int64 returns the value as an int64 and whether it fit without
// truncation.
func (b BigInt) Int64() (int64, bool) {
	if b.value == nil {
		return 0, true
	}
	signed := new(big.Int).Set(b.value)
	if b.neg {
		signed.Neg(signed)
	}
	if !signed.IsInt64() {
		return 0, false
	}
	return signed.Int64(), true
}

// Big returns the value as a *math/big.Int (sign applied).
func (b BigInt) Big() *big.Int {
	v := new(big.Int)
	if b.value != nil {
		v.Set(b.value)
	}
	if b.neg {
		v.Neg(v)
	}
	return v
}

// String renders the decimal literal, as it would appear in Python source.
func (b BigInt) String() string {
	return b.Big().String()
}

// Sign mirrors math/big.Int.Sign: -1, 0, or 1.
func (b BigInt) Sign() int {
	return b.Big().Sign()
}

// Digits re-derives the little-endian 15-bit digit sequence and count
// sign, the inverse of FromDigits, for round-trip tests and TYPE_LONG
// generation in the disasm/decompiler test fixtures.
func (b BigInt) Digits() (n int32, digits []uint16) {
	mag := new(big.Int).Abs(b.Big())
	if mag.Sign() == 0 {
		return 0, nil
	}
	mask := big.NewInt(digitBase - 1)
	tmp := new(big.Int).Set(mag)
	for tmp.Sign() != 0 {
		d := new(big.Int).And(tmp, mask)
		digits = append(digits, uint16(d.Uint64()))
		tmp.Rsh(tmp, digitBits)
	}
	n = int32(len(digits))
	if b.neg {
		n = -n
	}
	return n, digits
}
