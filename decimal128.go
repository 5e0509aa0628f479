package bson

import (
	"fmt"
	"math/bits"
	"regexp"
	"strconv"
	"strings"
)

// Decimal128 is the IEEE 754-2008 128-bit decimal floating-point value
// described in §3/§4.C: binary integer significand encoding, stored as
// two 64-bit halves (low half written first on the wire, both LE).
type Decimal128 struct {
	hi uint64
	lo uint64
}

const (
	decimal128ExponentBias = 6176
	decimal128ExponentMax  = 6111
	decimal128ExponentMin  = -6176
	decimal128MaxDigits    = 34
)

var (
	decimal128PosInf = Decimal128{hi: 0x7800000000000000}
	decimal128NegInf = Decimal128{hi: 0xF800000000000000}
	decimal128NaN    = Decimal128{hi: 0x7C00000000000000}
)

var (
	decimal128NumberRe = regexp.MustCompile(`^([+-]?)(?:(\d+)(\.\d*)?|(\.\d+))(?:[eE]([+-]?\d+))?$`)
	decimal128InfRe    = regexp.MustCompile(`(?i)^([+-]?)(infinity|inf)$`)
	decimal128NaNRe    = regexp.MustCompile(`(?i)^(?:[+-]?)nan$`)
)

// NewDecimal128 constructs a Decimal128 directly from its two 64-bit
// halves (high half first; the wire carries the low half first), with
// no validation — callers
// reconstructing a value read off the wire use this.
func NewDecimal128(hi, lo uint64) Decimal128 {
	return Decimal128{hi: hi, lo: lo}
}

// Bits returns the two 64-bit halves, high half first.
func (d Decimal128) Bits() (hi, lo uint64) { return d.hi, d.lo }

func (d Decimal128) Equal(o Decimal128) bool {
	return d.hi == o.hi && d.lo == o.lo
}

func (d Decimal128) IsNaN() bool {
	return (d.hi>>58)&0x1F == 0x1F
}

func (d Decimal128) IsInf() bool {
	return (d.hi>>58)&0x1F == 0x1E
}

func (d Decimal128) sign() int {
	if d.hi>>63 == 1 {
		return -1
	}
	return 1
}

// ParseDecimal128 parses a decimal string into a Decimal128 following
// the grammar and clamping rules of §4.C.
func ParseDecimal128(s string) (Decimal128, error) {
	if decimal128NaNRe.MatchString(s) {
		return decimal128NaN, nil
	}
	if m := decimal128InfRe.FindStringSubmatch(s); m != nil {
		if m[1] == "-" {
			return decimal128NegInf, nil
		}
		return decimal128PosInf, nil
	}

	m := decimal128NumberRe.FindStringSubmatch(s)
	if m == nil {
		return Decimal128{}, newInvalidArgument("invalid decimal128 string %q", s)
	}
	neg := m[1] == "-"

	var intPart, fracPart string
	if m[2] != "" || m[3] != "" {
		intPart = m[2]
		fracPart = strings.TrimPrefix(m[3], ".")
	} else {
		fracPart = strings.TrimPrefix(m[4], ".")
	}

	exponent := 0
	if m[5] != "" {
		e, err := strconv.Atoi(m[5])
		if err != nil {
			return Decimal128{}, newInvalidArgument("invalid decimal128 exponent in %q", s)
		}
		exponent = e
	}
	exponent -= len(fracPart)

	digits := intPart + fracPart
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		digits = "0"
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return Decimal128{}, newInvalidArgument("invalid decimal128 digit in %q", s)
		}
	}

	digits, exponent, err := decimal128Clamp(digits, exponent)
	if err != nil {
		return Decimal128{}, err
	}

	sigHi, sigLo := packSignificandDigits(digits)
	biased := uint64(exponent+decimal128ExponentBias) & 0x3FFF

	hi := biased<<49 | (sigHi & ((1 << 49) - 1))
	lo := sigLo
	if neg {
		hi |= 0x8000000000000000
	}
	return Decimal128{hi: hi, lo: lo}, nil
}

// decimal128Clamp applies §4.C steps 5-7: clamp upward while the
// exponent exceeds the max and there is digit room, clamp downward
// while the exponent is below the min and a trailing zero can be
// stripped, then report overflow/underflow if still out of range.
func decimal128Clamp(digits string, exponent int) (string, int, error) {
	if digits == "0" {
		for exponent < decimal128ExponentMin {
			exponent++
		}
		for exponent > decimal128ExponentMax {
			exponent--
		}
		return digits, exponent, nil
	}

	for exponent > decimal128ExponentMax && len(digits) < decimal128MaxDigits {
		digits += "0"
		exponent--
	}
	for exponent < decimal128ExponentMin && len(digits) > 1 && digits[len(digits)-1] == '0' {
		digits = digits[:len(digits)-1]
		exponent++
	}

	if exponent < decimal128ExponentMin {
		return "", 0, newInvalidArgument("decimal128 underflow: exponent %d below %d", exponent, decimal128ExponentMin)
	}
	if exponent > decimal128ExponentMax || len(digits) > decimal128MaxDigits {
		return "", 0, newInvalidArgument("decimal128 overflow: %s digits, exponent %d", digitCountDesc(len(digits)), exponent)
	}
	return digits, exponent, nil
}

func digitCountDesc(n int) string {
	return strconv.Itoa(n)
}

// packSignificandDigits implements §4.C step 8's pack: split into
// high-17/low-17 decimal groups, multiply the high group by 1e17 (full
// 128-bit product via a 64x64 multiply), and add the low group with
// carry into the upper half.
func packSignificandDigits(digits string) (hi, lo uint64) {
	if len(digits) <= 17 {
		v, _ := strconv.ParseUint(digits, 10, 64)
		return 0, v
	}
	highDigits := digits[:len(digits)-17]
	lowDigits := digits[len(digits)-17:]
	highVal, _ := strconv.ParseUint(highDigits, 10, 64)
	lowVal, _ := strconv.ParseUint(lowDigits, 10, 64)

	hi, loProd := bits.Mul64(highVal, 100000000000000000) // 1e17
	lo, carry := bits.Add64(loProd, lowVal, 0)
	hi += carry
	return hi, lo
}

// String formats the value per §4.C step 5 of the binary-to-string
// direction.
func (d Decimal128) String() string {
	sign := ""
	if d.sign() < 0 {
		sign = "-"
	}
	if d.IsNaN() {
		return "NaN"
	}
	if d.IsInf() {
		return sign + "Infinity"
	}

	top2 := (d.hi >> 61) & 0x3
	if top2 == 0x3 {
		// top4==1111 (NaN/Inf) was already handled above, so here
		// G2G3 != 11: large-form encoding. Per invariant I5 this
		// library treats it as zero rather than decoding the
		// implicit-100 significand.
		g2g3 := (d.hi >> 59) & 0x3
		expCont := (d.hi >> 47) & 0xFFF
		exponent := int(g2g3<<12|expCont) - decimal128ExponentBias
		return formatDecimal128(sign, "0", exponent)
	}

	expCont := (d.hi >> 49) & 0xFFF
	exponent := int(top2<<12|expCont) - decimal128ExponentBias
	sigHi49 := d.hi & ((1 << 49) - 1)
	sigLo := d.lo

	digits := unpackSignificandDigits(sigHi49, sigLo)
	return formatDecimal128(sign, digits, exponent)
}

func formatDecimal128(sign, digits string, exponent int) string {
	digitCount := len(digits)
	adjusted := exponent + digitCount - 1

	if exponent > 0 || adjusted < -6 {
		var sb strings.Builder
		sb.WriteString(sign)
		sb.WriteByte(digits[0])
		if digitCount > 1 {
			sb.WriteByte('.')
			sb.WriteString(digits[1:])
		}
		sb.WriteByte('E')
		if adjusted >= 0 {
			sb.WriteByte('+')
		}
		sb.WriteString(strconv.Itoa(adjusted))
		return sb.String()
	}

	pointPos := digitCount + exponent
	var sb strings.Builder
	sb.WriteString(sign)
	switch {
	case pointPos <= 0:
		sb.WriteString("0.")
		sb.WriteString(strings.Repeat("0", -pointPos))
		sb.WriteString(digits)
	case pointPos >= digitCount:
		sb.WriteString(digits)
		sb.WriteString(strings.Repeat("0", pointPos-digitCount))
	default:
		sb.WriteString(digits[:pointPos])
		sb.WriteByte('.')
		sb.WriteString(digits[pointPos:])
	}
	return sb.String()
}

// unpackSignificandDigits converts a 113-bit significand (top 49 bits
// in sigHi49, low 64 bits in sigLo) to its decimal digit string by
// repeated division by 1e9 (§4.C binary-to-string step 4), peeling off
// 9 decimal digits per round via grade-school long division over four
// big-endian 32-bit limbs.
func unpackSignificandDigits(sigHi49, sigLo uint64) string {
	limbs := [4]uint32{
		uint32(sigHi49 >> 32),
		uint32(sigHi49),
		uint32(sigLo >> 32),
		uint32(sigLo),
	}

	var groups []uint32
	for {
		var rem uint64
		allZero := true
		for i := range limbs {
			cur := rem<<32 | uint64(limbs[i])
			limbs[i] = uint32(cur / 1e9)
			rem = cur % 1e9
			if limbs[i] != 0 {
				allZero = false
			}
		}
		groups = append(groups, uint32(rem))
		if allZero {
			break
		}
	}

	var sb strings.Builder
	for i := len(groups) - 1; i >= 0; i-- {
		if i == len(groups)-1 {
			sb.WriteString(strconv.FormatUint(uint64(groups[i]), 10))
		} else {
			fmt.Fprintf(&sb, "%09d", groups[i])
		}
	}
	s := strings.TrimLeft(sb.String(), "0")
	if s == "" {
		s = "0"
	}
	return s
}
