package money

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultFeeBPS is the platform fee in basis points (3%).
const DefaultFeeBPS = 300

const bpsDenominator = 10000

var (
	ErrInvalidAmount = errors.New("invalid minor-unit amount")
	ErrInvalidFeeBPS = errors.New("fee basis points must be between 0 and 10000")

	minorPattern = regexp.MustCompile(`^[0-9]+$`)
	usdPattern   = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
)

// Split is the fee/net breakdown of a gross amount. Gross == Fee + Net always holds.
type Split struct {
	Gross *big.Int
	Fee   *big.Int
	Net   *big.Int
}

// ParseMinor parses a non-negative integer string in the smallest currency unit.
func ParseMinor(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if !minorPattern.MatchString(s) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return v, nil
}

// SplitFee computes fee = floor(gross*bps/10000) and net = gross - fee.
func SplitFee(gross *big.Int, bps int64) (Split, error) {
	if gross == nil || gross.Sign() < 0 {
		return Split{}, ErrInvalidAmount
	}
	if bps < 0 || bps > bpsDenominator {
		return Split{}, ErrInvalidFeeBPS
	}

	fee := new(big.Int).Mul(gross, big.NewInt(bps))
	fee.Quo(fee, big.NewInt(bpsDenominator))
	net := new(big.Int).Sub(gross, fee)

	return Split{
		Gross: new(big.Int).Set(gross),
		Fee:   fee,
		Net:   net,
	}, nil
}

// Strings returns gross, fee and net as decimal integer strings.
func (s Split) Strings() (gross, fee, net string) {
	return s.Gross.String(), s.Fee.String(), s.Net.String()
}

// FormatMinor renders a minor-unit amount with the given number of decimals,
// e.g. FormatMinor(1299, 2) == "12.99".
func FormatMinor(minor *big.Int, decimals int32) string {
	return decimal.NewFromBigInt(minor, -decimals).StringFixed(decimals)
}

// CentsToUSD renders integer cents as a two-decimal USD string.
func CentsToUSD(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// DollarsToCents parses "12.99", "$5" or "7.5" into integer cents.
func DollarsToCents(input string) (int64, error) {
	s := strings.TrimPrefix(strings.TrimSpace(input), "$")
	if !usdPattern.MatchString(s) {
		return 0, fmt.Errorf("invalid USD amount: %q", input)
	}
	whole, frac, _ := strings.Cut(s, ".")
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid USD amount: %q", input)
	}
	f, _ := strconv.ParseInt((frac + "00")[:2], 10, 64)
	return w*100 + f, nil
}
