package signal

// Vocabulary holds the configured term sets driving scoring and entity
// extraction. Values are treated as immutable after construction; tests
// substitute minimal vocabularies instead of mutating globals.
type Vocabulary struct {
	// Assets are tradable symbols (uppercase tickers).
	Assets []string
	// MacroTerms are macro-economic keywords (lowercase).
	MacroTerms []string
	// Actions are trade action keywords (lowercase).
	Actions []string
	// LevelWords frame price/percentage thresholds (lowercase).
	LevelWords []string
	// Positive and Negative drive the keyword sentiment heuristic.
	Positive []string
	Negative []string
}

// DefaultVocabulary returns the stock crypto/macro term sets.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Assets: []string{
			"BTC", "ETH", "SOL", "ADA", "XRP", "DOT", "LINK",
			"AVAX", "MATIC", "DOGE", "ARB", "OP", "ATOM", "BNB",
		},
		MacroTerms: []string{
			"cpi", "inflation", "jobs", "nonfarm", "payrolls", "pce", "core",
			"fomc", "fed", "rate", "hike", "cut", "ecb", "boe", "gdp",
			"recession", "etf", "halving", "halvening", "treasury", "yields", "bond",
		},
		Actions: []string{
			"buy", "sell", "accumulate", "take profit", "tp", "stop",
			"stop loss", "short", "long", "hedge", "entry", "target",
		},
		LevelWords: []string{
			"support", "resistance", "target", "entry", "stop", "stoploss", "stop-loss",
		},
		Positive: []string{
			"breakout", "bullish", "rally", "accumulate", "buy", "upside",
			"surge", "support holds",
		},
		Negative: []string{
			"sell", "bearish", "breakdown", "dump", "downside", "reject",
			"resistance fails", "risk-off",
		},
	}
}
