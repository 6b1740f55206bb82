package signal

import "strings"

// Category is the canonical classification of an incoming alert token.
type Category string

const (
	CategoryLong              Category = "LONG"
	CategoryShort             Category = "SHORT"
	CategoryTakeProfitLong    Category = "TAKE_PROFIT_LONG"
	CategoryTakeProfitShort   Category = "TAKE_PROFIT_SHORT"
	CategoryTPLongRepeat      Category = "TAKE_PROFIT_LONG_REPEAT"
	CategoryTPShortRepeat     Category = "TAKE_PROFIT_SHORT_REPEAT"
	CategoryRSIOversoldStrong Category = "RSI_OVERSOLD_STRONG"
	CategoryRSIOverboughtStr  Category = "RSI_OVERBOUGHT_STRONG"
	CategoryRSIOversoldWeak   Category = "RSI_OVERSOLD_WEAK"
	CategoryRSIOverboughtWeak Category = "RSI_OVERBOUGHT_WEAK"
	CategoryInvalid           Category = "INVALID"
)

// vocabulary is the closed set of accepted tokens. The alert source is free
// text, so anything outside this set (including near-miss spellings) is
// rejected rather than guessed at.
var vocabulary = map[string]Category{
	"LONG":                     CategoryLong,
	"SHORT":                    CategoryShort,
	"TAKE_PROFIT_LONG":         CategoryTakeProfitLong,
	"TAKE_PROFIT_SHORT":        CategoryTakeProfitShort,
	"TAKE_PROFIT_LONG_REPEAT":  CategoryTPLongRepeat,
	"TAKE_PROFIT_SHORT_REPEAT": CategoryTPShortRepeat,
	"RSI_OVERSOLD_STRONG":      CategoryRSIOversoldStrong,
	"RSI_OVERBOUGHT_STRONG":    CategoryRSIOverboughtStr,
	"RSI_OVERSOLD_WEAK":        CategoryRSIOversoldWeak,
	"RSI_OVERBOUGHT_WEAK":      CategoryRSIOverboughtWeak,
}

// Classify normalizes a raw token (trim + upper-case) and matches it against
// the fixed vocabulary. No fuzzy matching: unrecognized input is INVALID.
func Classify(raw string) Category {
	token := strings.ToUpper(strings.TrimSpace(raw))
	if cat, ok := vocabulary[token]; ok {
		return cat
	}
	return CategoryInvalid
}

// Direction returns the side the category wants the position on:
// +1 long, -1 short. Take-profit categories target the opposite of the side
// they are named after, since they unwind that side.
func (c Category) Direction() int64 {
	switch c {
	case CategoryLong, CategoryRSIOversoldStrong, CategoryRSIOversoldWeak:
		return 1
	case CategoryShort, CategoryRSIOverboughtStr, CategoryRSIOverboughtWeak:
		return -1
	case CategoryTakeProfitLong, CategoryTPLongRepeat:
		return -1
	case CategoryTakeProfitShort, CategoryTPShortRepeat:
		return 1
	default:
		return 0
	}
}

// IsTakeProfit reports whether the category is one of the take-profit kinds.
func (c Category) IsTakeProfit() bool {
	switch c {
	case CategoryTakeProfitLong, CategoryTakeProfitShort, CategoryTPLongRepeat, CategoryTPShortRepeat:
		return true
	}
	return false
}

// CooldownKey returns the suppression key the category belongs to.
// LONG/SHORT share one window, all take-profit variants share a shorter one,
// and each RSI category keeps its own key so strong and weak triggers on the
// same instrument never suppress each other.
func (c Category) CooldownKey() string {
	switch c {
	case CategoryLong, CategoryShort:
		return "directional"
	case CategoryTakeProfitLong, CategoryTakeProfitShort, CategoryTPLongRepeat, CategoryTPShortRepeat:
		return "take_profit"
	default:
		return strings.ToLower(string(c))
	}
}
