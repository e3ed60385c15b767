package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultRiskRatio is the on-hand/par ratio below which a level that is not yet
// below par counts as at risk.
var DefaultRiskRatio = decimal.RequireFromString("1.2")

// ParRules holds the configurable thresholds for par classification.
type ParRules struct {
	RiskRatio decimal.Decimal
}

// DefaultParRules returns ParRules with DefaultRiskRatio.
func DefaultParRules() ParRules {
	return ParRules{RiskRatio: DefaultRiskRatio}
}

// AvailableQty returns on-hand minus reserved. It is not clamped: a negative
// result means the level is over-reserved.
func AvailableQty(level StockLevel) decimal.Decimal {
	return level.OnHandQty.Sub(level.ReservedQty)
}

// IsBelowPar reports whether on-hand is under par. A level with no par is never below it.
func IsBelowPar(level StockLevel) bool {
	if !level.ParMin.IsPositive() {
		return false
	}
	return level.OnHandQty.LessThan(level.ParMin)
}

// IsAtRisk reports whether on-hand is at or above par but within the risk ratio of it.
func (r ParRules) IsAtRisk(level StockLevel) bool {
	if !level.ParMin.IsPositive() || IsBelowPar(level) {
		return false
	}
	return level.OnHandQty.Div(level.ParMin).LessThan(r.RiskRatio)
}

// Classify buckets a level into a single ParStatus.
func (r ParRules) Classify(level StockLevel) ParStatus {
	switch {
	case !level.ParMin.IsPositive():
		return ParStatusNoPar
	case IsBelowPar(level):
		return ParStatusBelowPar
	case r.IsAtRisk(level):
		return ParStatusAtRisk
	case level.ParMax.IsPositive() && level.OnHandQty.GreaterThan(level.ParMax):
		return ParStatusAboveMax
	default:
		return ParStatusOK
	}
}

// View attaches the derived quantities to level.
func (r ParRules) View(level StockLevel) StockLevelView {
	return StockLevelView{
		StockLevel:   level,
		AvailableQty: AvailableQty(level),
		IsBelowPar:   IsBelowPar(level),
		IsAtRisk:     r.IsAtRisk(level),
		Status:       r.Classify(level),
	}
}

// Storage limits of NUMERIC(14,4) quantities and NUMERIC(12,2) costs.
const (
	QuantityScale = 4
	CostScale     = 2
)

var (
	maxQuantity = decimal.New(1, 10)
	maxCost     = decimal.New(1, 10)
)

// checkStorable rejects a value that its column would round or overflow.
func checkStorable(name string, v decimal.Decimal, scale int32, limit decimal.Decimal) error {
	if !v.Equal(v.Truncate(scale)) {
		return fmt.Errorf("%w: %s allows at most %d decimal places, got %s", ErrInvalidQuantity, name, scale, v)
	}
	if v.Abs().GreaterThanOrEqual(limit) {
		return fmt.Errorf("%w: %s must be below %s, got %s", ErrInvalidQuantity, name, limit, v)
	}
	return nil
}

// ValidateQuantity rejects a negative quantity or one that cannot be stored exactly.
func ValidateQuantity(name string, qty decimal.Decimal) error {
	if qty.IsNegative() {
		return fmt.Errorf("%w: %s cannot be negative, got %s", ErrInvalidQuantity, name, qty)
	}
	return checkStorable(name, qty, QuantityScale, maxQuantity)
}

// ValidatePositive rejects a zero or negative quantity or one that cannot be stored exactly.
func ValidatePositive(name string, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidQuantity, name, qty)
	}
	return checkStorable(name, qty, QuantityScale, maxQuantity)
}

// ValidateCost rejects a negative cost or one with more than two decimal places.
func ValidateCost(name string, cost decimal.Decimal) error {
	if cost.IsNegative() {
		return fmt.Errorf("%w: %s cannot be negative, got %s", ErrInvalidQuantity, name, cost)
	}
	return checkStorable(name, cost, CostScale, maxCost)
}

// ParseQuantity parses a decimal string, rejecting non-numeric input such as NaN or Inf.
func ParseQuantity(name, raw string) (decimal.Decimal, error) {
	qty, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s is not a finite number: %q", ErrInvalidQuantity, name, raw)
	}
	return qty, nil
}

// Validate checks that every quantity on the level is non-negative and that
// par max, when set, is not below par min.
func (l StockLevel) Validate() error {
	for _, q := range []struct {
		name string
		qty  decimal.Decimal
	}{
		{"on_hand_qty", l.OnHandQty},
		{"reserved_qty", l.ReservedQty},
		{"par_min", l.ParMin},
		{"par_max", l.ParMax},
	} {
		if err := ValidateQuantity(q.name, q.qty); err != nil {
			return err
		}
	}
	if l.ParMax.IsPositive() && l.ParMax.LessThan(l.ParMin) {
		return fmt.Errorf("%w: par_max %s is below par_min %s", ErrInvalidQuantity, l.ParMax, l.ParMin)
	}
	return nil
}
