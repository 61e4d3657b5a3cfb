package trader

import (
	"github.com/shopspring/decimal"
)

// SizingResult is the outcome of converting a balance into an order
// quantity. When valid, Quantity is a multiple of the step size and at
// least the minimum quantity; otherwise Reason carries the rejection kind.
type SizingResult struct {
	Quantity decimal.Decimal
	Valid    bool
	Reason   error
}

// RoundDownToStep floors a quantity to the nearest multiple of stepSize at
// or below it. Never rounds up: rounding up could request more than the
// balance affords.
func RoundDownToStep(quantity, stepSize decimal.Decimal) decimal.Decimal {
	return quantity.Sub(quantity.Mod(stepSize))
}

// SizeForBuy sizes a buy order from the free quote balance: allocate
// riskPercentage percent of it, divide by price, floor to the step size.
// Invalid when the result is below the symbol's minimum quantity.
func SizeForBuy(availableBalance, price decimal.Decimal, riskPercentage float64, rules SymbolRules) SizingResult {
	if price.IsZero() || price.IsNegative() {
		return SizingResult{Reason: ErrExchangeUnavailable}
	}

	allocated := availableBalance.Mul(decimal.NewFromFloat(riskPercentage).Div(decimal.NewFromInt(100)))
	raw := allocated.DivRound(price, 16)
	quantity := RoundDownToStep(raw, rules.StepSize)

	if quantity.LessThan(rules.MinQty) {
		return SizingResult{Reason: ErrBelowMinimumOrderSize}
	}
	return SizingResult{Quantity: quantity, Valid: true}
}

// SizeForSell sizes a sell order off the actual held base balance, floored
// to the step size. The entire free balance is the candidate quantity; no
// risk allocation applies on the way out.
func SizeForSell(heldBalance decimal.Decimal, rules SymbolRules) SizingResult {
	quantity := RoundDownToStep(heldBalance, rules.StepSize)
	if quantity.LessThan(rules.MinQty) {
		return SizingResult{Reason: ErrBelowMinimumOrderSize}
	}
	return SizingResult{Quantity: quantity, Valid: true}
}

// MeetsMinNotional reports whether quantity times price reaches the
// symbol's minimum order value. The exchange enforces this independently
// of the minimum quantity; either can reject an order the other accepts.
func MeetsMinNotional(quantity, price decimal.Decimal, rules SymbolRules) bool {
	return quantity.Mul(price).GreaterThanOrEqual(rules.MinNotional)
}

// CanAffordMinimumOrder is a cheap pre-check before a full buy sizing
// pass: the balance must cover at least the minimum quantity at the
// current price.
func CanAffordMinimumOrder(balance, price decimal.Decimal, rules SymbolRules) bool {
	return balance.GreaterThanOrEqual(price.Mul(rules.MinQty))
}
