package money

import "testing"

func TestTransferFee(t *testing.T) {
	cases := []struct {
		name   string
		amount int64
		want   int64
	}{
		{"below threshold is free", 50_00, 0},
		{"at threshold is free", 100_00, 0},
		{"above threshold pays flat fee", 100_01, 5_00},
		{"large transfer pays same flat fee", 10_000_00, 5_00},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TransferFee(tc.amount); got != tc.want {
				t.Fatalf("TransferFee(%d) = %d, want %d", tc.amount, got, tc.want)
			}
		})
	}
}

func TestCashOutFee(t *testing.T) {
	cases := []struct {
		amount int64
		want   int64
	}{
		{0, 0},
		{100_00, 1_50},
		{1_000_00, 15_00},
		{333_33, 4_99},
	}
	for _, tc := range cases {
		if got := CashOutFee(tc.amount); got != tc.want {
			t.Fatalf("CashOutFee(%d) = %d, want %d", tc.amount, got, tc.want)
		}
	}
}

func TestAgentCommission(t *testing.T) {
	if got := AgentCommission(1_000_00); got != 10_00 {
		t.Fatalf("AgentCommission(100000) = %d, want 1000", got)
	}
	if got := AgentCommission(0); got != 0 {
		t.Fatalf("AgentCommission(0) = %d, want 0", got)
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		amount int64
		want   string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{15_00, "15.00"},
		{100_50, "100.50"},
		{-7_25, "-7.25"},
	}
	for _, tc := range cases {
		if got := Format(tc.amount); got != tc.want {
			t.Fatalf("Format(%d) = %q, want %q", tc.amount, got, tc.want)
		}
	}
}

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"100", 100_00},
		{"100.5", 100_50},
		{"100.50", 100_50},
		{"0.05", 5},
		{" 15.00 ", 15_00},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Parse(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "abc", "1.2.3", "10.555", "-"} {
		if _, err := Parse(bad); err == nil {
			t.Fatalf("Parse(%q) accepted invalid input", bad)
		}
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, amount := range []int64{0, 5, 100_00, 123_45} {
		got, err := Parse(Format(amount))
		if err != nil {
			t.Fatalf("round trip %d: %v", amount, err)
		}
		if got != amount {
			t.Fatalf("round trip %d = %d", amount, got)
		}
	}
}
