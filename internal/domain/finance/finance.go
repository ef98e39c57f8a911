// Package finance derives fee and prize figures from game prices.
//
// All amounts are integer e8s (10^-8 of the base currency). Intermediate
// products are carried as arbitrary-precision decimals and every division
// truncates, so no floating point ever touches a currency amount. The only
// conversion away from integers is ToDisplay/FormatICP.
package finance

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// BasisPointScale is 100.0% in tenths of a percent.
	BasisPointScale = 1000
	// ServiceFeeBasisPoints is the platform cut taken from every registration.
	ServiceFeeBasisPoints = 25
	// LedgerTransferFeeE8s is the network fee of one ledger transfer.
	LedgerTransferFeeE8s uint64 = 10_000
	// RegistrationSurchargeE8s covers the two transfers made when registering.
	RegistrationSurchargeE8s = 2 * LedgerTransferFeeE8s
	// E8sPerUnit is the number of e8s in one whole currency unit.
	E8sPerUnit = 100_000_000
	// DisplayPlaces is the number of decimals shown to users.
	DisplayPlaces = 4
)

var (
	scale      = decimal.NewFromInt(BasisPointScale)
	serviceBP  = decimal.NewFromInt(ServiceFeeBasisPoints)
	netBP      = decimal.NewFromInt(BasisPointScale - ServiceFeeBasisPoints)
	maxUint64D = decimal.NewFromBigInt(new(big.Int).SetUint64(^uint64(0)), 0)
)

// Financials are the figures derived from one snapshot.
type Financials struct {
	ServiceFeeE8s         uint64
	NetAfterServiceFeeE8s uint64
	PrizePoolE8s          uint64
}

// Compute derives service fee, net pool and prize pool for cardCount
// registrations at priceE8s each, after the host takes hostBP tenths of a percent.
func Compute(priceE8s, cardCount uint64, hostBP int) (Financials, error) {
	if hostBP < 0 || hostBP > BasisPointScale {
		return Financials{}, fmt.Errorf("%w: host basis points %d outside [0,%d]", ErrInvalidArgument, hostBP, BasisPointScale)
	}
	if cardCount == 0 || priceE8s == 0 {
		return Financials{}, nil
	}

	total := fromUint64(priceE8s).Mul(fromUint64(cardCount))
	fee := truncDiv(total.Mul(serviceBP), scale)
	net := truncDiv(total.Mul(netBP), scale)
	prize := truncDiv(net.Mul(decimal.NewFromInt(int64(BasisPointScale-hostBP))), scale)

	var out Financials
	var err error
	if out.ServiceFeeE8s, err = toUint64(fee); err != nil {
		return Financials{}, err
	}
	if out.NetAfterServiceFeeE8s, err = toUint64(net); err != nil {
		return Financials{}, err
	}
	if out.PrizePoolE8s, err = toUint64(prize); err != nil {
		return Financials{}, err
	}
	return out, nil
}

// HostCutE8s is what the host keeps out of the net pool.
func (f Financials) HostCutE8s() uint64 {
	return f.NetAfterServiceFeeE8s - f.PrizePoolE8s
}

// TotalDue is what a player pays to register for a game priced at priceE8s.
// Free games cost nothing; priced games add the two transfer fees.
func TotalDue(priceE8s uint64) uint64 {
	if priceE8s == 0 {
		return 0
	}
	return priceE8s + RegistrationSurchargeE8s
}

// RegistrationSplit returns the service-fee and net transfer amounts a player
// sends when paying for one card.
func RegistrationSplit(priceE8s uint64) (serviceFeeE8s, netE8s uint64) {
	f, err := Compute(priceE8s, 1, 0)
	if err != nil {
		return 0, 0
	}
	return f.ServiceFeeE8s, f.NetAfterServiceFeeE8s
}

// ClampHostPercentage bounds bp to the accepted range.
func ClampHostPercentage(bp int) int {
	switch {
	case bp < 0:
		return 0
	case bp > BasisPointScale:
		return BasisPointScale
	default:
		return bp
	}
}

// PercentToBasisPoints converts a percentage such as "2.5" to tenths of a
// percent (25), rounding to the nearest tenth.
func PercentToBasisPoints(pct string) (int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(pct))
	if err != nil {
		return 0, fmt.Errorf("%w: percentage %q", ErrInvalidArgument, pct)
	}
	bp := d.Shift(1).Round(0)
	if bp.IsNegative() || bp.GreaterThan(scale) {
		return 0, fmt.Errorf("%w: percentage %q outside [0,100]", ErrInvalidArgument, pct)
	}
	return int(bp.IntPart()), nil
}

// ParseAmount converts a user-entered amount in whole units ("1.25") to e8s.
func ParseAmount(units string) (uint64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(units))
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q", ErrInvalidArgument, units)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: negative amount %q", ErrInvalidArgument, units)
	}
	return toUint64(d.Shift(8).Round(0))
}

// ToDisplay converts e8s to whole units.
func ToDisplay(e8s uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(e8s), -8)
}

// FormatICP renders e8s with four decimals, e.g. "0.8775".
func FormatICP(e8s uint64) string {
	return ToDisplay(e8s).StringFixed(DisplayPlaces)
}

func fromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

func truncDiv(a, b decimal.Decimal) decimal.Decimal {
	q, _ := a.QuoRem(b, 0)
	return q
}

func toUint64(d decimal.Decimal) (uint64, error) {
	if d.IsNegative() || d.GreaterThan(maxUint64D) {
		return 0, fmt.Errorf("%w: %s", ErrOverflow, d.String())
	}
	return d.BigInt().Uint64(), nil
}
