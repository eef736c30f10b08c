// Package intent maps free-text or structured queries to one of the fixed
// set of operations this agent can run, extracting any referenced asset
// symbols along the way.
package intent

import (
	"strings"

	"github.com/Noopy420/hedera-intel-agent/internal/models"
)

// keywordRule pairs a keyword set with the operation it selects. Rules are
// evaluated in order; the first rule with any matching keyword wins.
type keywordRule struct {
	operation models.Operation
	keywords  []string
}

// Priority order is fixed: price beats narrative beats network health beats
// capabilities; anything unmatched falls through to a full report.
var rules = []keywordRule{
	{models.OpPriceCheck, []string{
		"price", "cost", "worth", "value", "quote", "how much", "trading at",
	}},
	{models.OpNarrativeDetection, []string{
		"narrative", "trend", "momentum", "sentiment", "signal", "story", "hype",
	}},
	{models.OpNetworkHealth, []string{
		"network", "ledger", "consensus", "node", "health", "uptime", "tps",
	}},
	{models.OpCapabilities, []string{
		"capabilities", "help", "what can you", "commands", "usage",
	}},
}

// assetAlias maps every accepted spelling to its canonical symbol. Aliases
// are matched on word boundaries so "restored" never reads as a mention of
// "store" tokens, and "eth" inside "whether" never matches.
var assetAliases = []struct {
	alias  string
	symbol string
}{
	{"bitcoin", "BTC"}, {"btc", "BTC"}, {"xbt", "BTC"},
	{"ethereum", "ETH"}, {"ether", "ETH"}, {"eth", "ETH"},
	{"hedera", "HBAR"}, {"hbar", "HBAR"},
	{"solana", "SOL"}, {"sol", "SOL"},
	{"ripple", "XRP"}, {"xrp", "XRP"},
	{"dogecoin", "DOGE"}, {"doge", "DOGE"},
	{"cardano", "ADA"}, {"ada", "ADA"},
	{"polkadot", "DOT"}, {"dot", "DOT"},
	{"chainlink", "LINK"}, {"link", "LINK"},
	{"avalanche", "AVAX"}, {"avax", "AVAX"},
}

// Resolve maps text to a QueryIntent. Pure and deterministic: identical
// input always yields the identical intent. An empty Assets slice means the
// caller should substitute its default basket.
func Resolve(text string) models.QueryIntent {
	lower := strings.ToLower(text)

	operation := models.OpFullReport
	for _, rule := range rules {
		if containsAny(lower, rule.keywords) {
			operation = rule.operation
			break
		}
	}

	return models.QueryIntent{
		Operation: operation,
		Assets:    ExtractAssets(lower),
	}
}

// ExtractAssets collects every asset alias mentioned in lower-cased text,
// canonicalized and deduplicated, ordered by first occurrence.
func ExtractAssets(lower string) []string {
	// Earliest mention per symbol, across all of its aliases.
	positions := make(map[string]int)
	for _, a := range assetAliases {
		pos := indexWord(lower, a.alias)
		if pos < 0 {
			continue
		}
		if cur, ok := positions[a.symbol]; !ok || pos < cur {
			positions[a.symbol] = pos
		}
	}

	type hit struct {
		pos    int
		symbol string
	}
	hits := make([]hit, 0, len(positions))
	for symbol, pos := range positions {
		hits = append(hits, hit{pos: pos, symbol: symbol})
	}

	// Order by first occurrence in the text, not dictionary order.
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}

	assets := make([]string, 0, len(hits))
	for _, h := range hits {
		assets = append(assets, h.symbol)
	}
	return assets
}

// containsAny reports whether text contains any of the keywords. Multi-word
// keywords match as substrings; single words on word boundaries.
func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(text, kw) {
				return true
			}
			continue
		}
		if indexWord(text, kw) >= 0 {
			return true
		}
	}
	return false
}

// indexWord returns the index of word in text where it appears bounded by
// non-alphanumeric runes, or -1.
func indexWord(text, word string) int {
	for start := 0; ; {
		i := strings.Index(text[start:], word)
		if i < 0 {
			return -1
		}
		i += start
		end := i + len(word)
		leftOK := i == 0 || !isWordRune(text[i-1])
		rightOK := end == len(text) || !isWordRune(text[end])
		if leftOK && rightOK {
			return i
		}
		start = i + 1
	}
}

func isWordRune(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b >= 'A' && b <= 'Z'
}
