package types

import (
	"encoding/json"
	"testing"
)

func TestMoneyConstructors(t *testing.T) {
	tests := []struct {
		name     string
		money    Money
		amount   int64
		currency string
		display  string
	}{
		{"USD", USD(4999), 4999, "usd", "$49.99"},
		{"EUR", EUR(19900), 19900, "eur", "€199.00"},
		{"GBP", GBP(9900), 9900, "gbp", "£99.00"},
		{"INR", INR(129900), 129900, "inr", "₹1299.00"},
		{"Zero USD", Zero("USD"), 0, "usd", "$0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.money.Amount != tt.amount {
				t.Errorf("Amount: got %d, want %d", tt.money.Amount, tt.amount)
			}
			if tt.money.Currency != tt.currency {
				t.Errorf("Currency: got %s, want %s", tt.money.Currency, tt.currency)
			}
			if tt.money.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.money.String(), tt.display)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Money
		expected Money
	}{
		{"Add", func() Money { return USD(100).Add(USD(200)) }, USD(300)},
		{"Subtract", func() Money { return USD(500).Subtract(USD(200)) }, USD(300)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.op()
			if !got.Equal(tt.expected) {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMoneyArithmeticPanicsOnCurrencyMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic on currency mismatch")
		}
	}()
	USD(100).Add(EUR(100))
}

func TestApplyDiscountPercent(t *testing.T) {
	tests := []struct {
		name    string
		list    Money
		percent int
		want    Money
	}{
		// The §8 worked example: 100.00 at 20% off = 80.00.
		{"20 percent off 100", USD(10000), 20, USD(8000)},
		{"no discount", USD(4999), 0, USD(4999)},
		{"full discount", USD(4999), 100, USD(0)},
		// 49.99 × 0.85 = 42.4915 → 42.49 (rounds down, remainder 15 < 50)
		{"15 percent off 49.99", USD(4999), 15, USD(4249)},
		// 49.99 × 0.67 = 33.4933 → 33.49 (remainder 33)
		{"33 percent off 49.99", USD(4999), 33, USD(3349)},
		// 0.99 × 0.50 = 0.495 → 0.50 (half rounds up)
		{"half rounds up", USD(99), 50, USD(50)},
		// 0.01 × 0.25 → 0.0075 → 0.01 (remainder 75 rounds up)
		{"tiny amount rounds up", USD(1), 25, USD(1)},
		{"zero amount", Zero("usd"), 50, USD(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.list.ApplyDiscountPercent(tt.percent)
			if !got.Equal(tt.want) {
				t.Errorf("ApplyDiscountPercent(%d): got %v, want %v", tt.percent, got, tt.want)
			}
		})
	}
}

func TestApplyDiscountPercentPanicsOutOfRange(t *testing.T) {
	for _, percent := range []int{-1, 101} {
		func() {
			defer func() {
				if r := recover(); r == nil {
					t.Errorf("expected panic for percent %d", percent)
				}
			}()
			USD(100).ApplyDiscountPercent(percent)
		}()
	}
}

func TestMoneyFormatting(t *testing.T) {
	tests := []struct {
		name  string
		money Money
		major string
	}{
		{"two decimals", USD(4900), "49.00"},
		{"cents only", USD(5), "0.05"},
		{"zero decimals", Money{Amount: 100, Currency: "jpy"}, "100"},
		{"negative", USD(-4950), "-49.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.money.FormatMajor(); got != tt.major {
				t.Errorf("FormatMajor: got %s, want %s", got, tt.major)
			}
		})
	}
}

func TestMoneyMarshalJSON(t *testing.T) {
	data, err := json.Marshal(USD(8000))
	if err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Amount != 8000 || decoded.Currency != "usd" || decoded.Display != "$80.00" {
		t.Errorf("unexpected JSON: %s", data)
	}
}
