package core_test

import (
	"testing"

	"parstock/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func level(onHand, reserved, parMin, parMax string) core.StockLevel {
	return core.StockLevel{
		ItemID: 1, LocationID: 1,
		OnHandQty: d(onHand), ReservedQty: d(reserved),
		ParMin: d(parMin), ParMax: d(parMax),
	}
}

func TestAvailableQty_PreservesPrecision(t *testing.T) {
	got := core.AvailableQty(level("10.5", "2.25", "0", "0"))
	assert.True(t, got.Equal(d("8.25")), "got %s", got)
}

func TestAvailableQty_NotClamped(t *testing.T) {
	got := core.AvailableQty(level("3", "5", "0", "0"))
	assert.True(t, got.Equal(d("-2")), "got %s", got)
}

func TestParRules_NoParIsNeverBelowOrAtRisk(t *testing.T) {
	rules := core.DefaultParRules()
	for _, onHand := range []string{"0", "0.5", "1", "100"} {
		l := level(onHand, "0", "0", "0")
		assert.False(t, core.IsBelowPar(l), "on_hand=%s", onHand)
		assert.False(t, rules.IsAtRisk(l), "on_hand=%s", onHand)
		assert.Equal(t, core.ParStatusNoPar, rules.Classify(l))
	}
}

func TestParRules_Classify(t *testing.T) {
	rules := core.ParRules{RiskRatio: d("1.2")}
	tests := []struct {
		name     string
		level    core.StockLevel
		below    bool
		atRisk   bool
		expected core.ParStatus
	}{
		{"empty shelf", level("0", "0", "10", "20"), true, false, core.ParStatusBelowPar},
		{"just under par", level("9.99", "0", "10", "20"), true, false, core.ParStatusBelowPar},
		{"exactly at par", level("10", "0", "10", "20"), false, true, core.ParStatusAtRisk},
		{"inside risk band", level("11.9", "0", "10", "20"), false, true, core.ParStatusAtRisk},
		{"at risk ratio", level("12", "0", "10", "20"), false, false, core.ParStatusOK},
		{"comfortable", level("18", "0", "10", "20"), false, false, core.ParStatusOK},
		{"over max", level("25", "0", "10", "20"), false, false, core.ParStatusAboveMax},
		{"no max set", level("500", "0", "10", "0"), false, false, core.ParStatusOK},
		{"reservations ignored", level("11", "11", "10", "20"), false, true, core.ParStatusAtRisk},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.below, core.IsBelowPar(tt.level))
			assert.Equal(t, tt.atRisk, rules.IsAtRisk(tt.level))
			assert.Equal(t, tt.expected, rules.Classify(tt.level))
		})
	}
}

func TestParRules_ConfigurableRatio(t *testing.T) {
	l := level("10.5", "0", "10", "0")
	assert.True(t, core.ParRules{RiskRatio: d("1.1")}.IsAtRisk(l))
	assert.False(t, core.ParRules{RiskRatio: d("1.05")}.IsAtRisk(l))
}

func TestParRules_View(t *testing.T) {
	v := core.DefaultParRules().View(level("8", "3", "10", "20"))
	assert.True(t, v.AvailableQty.Equal(d("5")))
	assert.True(t, v.IsBelowPar)
	assert.False(t, v.IsAtRisk)
	assert.Equal(t, core.ParStatusBelowPar, v.Status)
}

func TestStockLevel_Validate(t *testing.T) {
	require.NoError(t, level("1", "0", "5", "10").Validate())

	err := level("-1", "0", "0", "0").Validate()
	assert.ErrorIs(t, err, core.ErrInvalidQuantity)

	err = level("1", "0", "-5", "0").Validate()
	assert.ErrorIs(t, err, core.ErrInvalidQuantity)

	err = level("1", "0", "10", "5").Validate()
	assert.ErrorIs(t, err, core.ErrInvalidQuantity)
}

func TestParseQuantity_RejectsNonFinite(t *testing.T) {
	for _, raw := range []string{"NaN", "Inf", "-Inf", "", "ten"} {
		_, err := core.ParseQuantity("counted_qty", raw)
		assert.ErrorIs(t, err, core.ErrInvalidQuantity, "raw=%q", raw)
	}
	q, err := core.ParseQuantity("counted_qty", "17")
	require.NoError(t, err)
	assert.True(t, q.Equal(d("17")))
}

func TestValidateQuantity_RejectsUnstorableValues(t *testing.T) {
	tests := []struct {
		qty string
		ok  bool
	}{
		{"0.0001", true},
		{"12.5000", true},
		{"9999999999.9999", true},
		{"0.00001", false},
		{"1.23456", false},
		{"10000000000", false},
		{"123456789012", false},
	}
	for _, tt := range tests {
		t.Run(tt.qty, func(t *testing.T) {
			for name, validate := range map[string]func(string, decimal.Decimal) error{
				"non-negative": core.ValidateQuantity,
				"positive":     core.ValidatePositive,
			} {
				err := validate("qty", d(tt.qty))
				if tt.ok {
					assert.NoError(t, err, name)
				} else {
					assert.ErrorIs(t, err, core.ErrInvalidQuantity, name)
				}
			}
		})
	}
}

func TestValidateCost_AllowsCentsOnly(t *testing.T) {
	require.NoError(t, core.ValidateCost("cost", d("12.50")))
	assert.ErrorIs(t, core.ValidateCost("cost", d("12.505")), core.ErrInvalidQuantity)
	assert.ErrorIs(t, core.ValidateCost("cost", d("-1")), core.ErrInvalidQuantity)
	assert.ErrorIs(t, core.ValidateCost("cost", d("10000000000")), core.ErrInvalidQuantity)
}
