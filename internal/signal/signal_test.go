package signal

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		raw  string
		want Category
	}{
		{"LONG", CategoryLong},
		{"short", CategoryShort},
		{"  Take_Profit_Long  ", CategoryTakeProfitLong},
		{"take_profit_short_repeat", CategoryTPShortRepeat},
		{"RSI_OVERSOLD_STRONG", CategoryRSIOversoldStrong},
		{"rsi_overbought_weak", CategoryRSIOverboughtWeak},
		// near misses must not be guessed at
		{"LNOG", CategoryInvalid},
		{"TAKE PROFIT LONG", CategoryInvalid},
		{"BUY", CategoryInvalid},
		{"", CategoryInvalid},
	}

	for _, tt := range tests {
		if got := Classify(tt.raw); got != tt.want {
			t.Errorf("Classify(%q)=%s, expected %s", tt.raw, got, tt.want)
		}
	}
}

func TestDirection(t *testing.T) {
	tests := []struct {
		cat  Category
		want int64
	}{
		{CategoryLong, 1},
		{CategoryShort, -1},
		{CategoryRSIOversoldWeak, 1},
		{CategoryRSIOverboughtStr, -1},
		// take-profit targets the opposite of the named side
		{CategoryTakeProfitLong, -1},
		{CategoryTakeProfitShort, 1},
		{CategoryTPLongRepeat, -1},
		{CategoryTPShortRepeat, 1},
		{CategoryInvalid, 0},
	}

	for _, tt := range tests {
		if got := tt.cat.Direction(); got != tt.want {
			t.Errorf("%s.Direction()=%d, expected %d", tt.cat, got, tt.want)
		}
	}
}

func TestCooldownKeySharing(t *testing.T) {
	if CategoryLong.CooldownKey() != CategoryShort.CooldownKey() {
		t.Error("LONG and SHORT should share a cooldown key")
	}
	if CategoryTakeProfitLong.CooldownKey() != CategoryTPShortRepeat.CooldownKey() {
		t.Error("take-profit variants should share a cooldown key")
	}
	if CategoryRSIOversoldStrong.CooldownKey() == CategoryRSIOversoldWeak.CooldownKey() {
		t.Error("strong and weak RSI must not share suppression state")
	}
}
