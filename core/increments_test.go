package core

import (
	"strings"
	"testing"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func TestMinimumBid(t *testing.T) {
	tests := []struct {
		name       string
		highestBid string
		expected   string
	}{
		{"no bids - any positive amount", "0", "1"},
		{"small bid - increment truncates to zero", "19", "19"},
		{"increment exactly one unit", "20", "21"},
		{"increment truncated", "119", "124"},
		{"round hundred", "100", "105"},
		{"wei scale", "500000000000000000", "525000000000000000"},
		{"wei scale truncation", "525000000000000001", "551250000000000001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MinimumBid(decimal.RequireFromString(tt.highestBid))
			check.Equal(t, tt.expected, result.String())
		})
	}
}

func TestBidMeetsMinimum(t *testing.T) {
	tests := []struct {
		name       string
		amount     string
		highestBid string
		expected   bool
	}{
		{"first bid of one", "1", "0", true},
		{"first bid of zero", "0", "0", false},
		{"exactly the minimum", "105", "100", true},
		{"one below the minimum", "104", "100", false},
		{"equal to the leader", "100", "100", false},
		{"well above", "1000", "100", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := BidMeetsMinimum(decimal.RequireFromString(tt.amount), decimal.RequireFromString(tt.highestBid))
			check.Equal(t, tt.expected, result)
		})
	}
}

func TestCommissionAndPayout(t *testing.T) {
	tests := []struct {
		name       string
		winningBid string
		commission string
		payout     string
	}{
		{"no winner", "0", "0", "0"},
		{"commission truncates to zero", "49", "0", "49"},
		{"one unit commission", "50", "1", "49"},
		{"round thousand", "1000", "20", "980"},
		{"0.6 ether", "600000000000000000", "12000000000000000", "588000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bid := decimal.RequireFromString(tt.winningBid)
			check.Equal(t, tt.commission, Commission(bid).String())
			check.Equal(t, tt.payout, Payout(bid).String())
			check.True(t, Commission(bid).Add(Payout(bid)).Equal(bid))
		})
	}
}

func TestValidAmount(t *testing.T) {
	check.True(t, ValidAmount(decimal.Zero))
	check.True(t, ValidAmount(decimal.NewFromInt(42)))
	check.True(t, ValidAmount(decimal.RequireFromString("0.5").Shift(18)))
	check.False(t, ValidAmount(decimal.NewFromInt(-1)))
	check.False(t, ValidAmount(decimal.RequireFromString("1.5")))
}

func TestValidAmount_Bounds(t *testing.T) {
	maxAmount := strings.Repeat("9", MaxAmountDigits)

	tests := []struct {
		name     string
		amount   string
		expected bool
	}{
		{"largest uint256-sized amount", maxAmount, true},
		{"one digit too many", maxAmount + "9", false},
		{"exponent at the bound", "1e77", true},
		{"exponent past the bound", "1e78", false},
		{"huge exponent", "1e20000000", false},
		{"huge negative exponent", "1e-20000000", false},
		{"trailing zero fraction", "1000e-3", true},
		{"fraction", "1001e-3", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check.Equal(t, tt.expected, ValidAmount(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestPercentOf_Truncates(t *testing.T) {
	check.Equal(t, "5", PercentOf(decimal.NewFromInt(119), 5).String())
	check.Equal(t, "2", PercentOf(decimal.NewFromInt(149), 2).String())
	check.Equal(t, "0", PercentOf(decimal.NewFromInt(1), 5).String())
}
