package analytics

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
)

// ErrInvalidLimit is returned when a top-holder limit is outside its bounds
var ErrInvalidLimit = errors.New("invalid limit")

// HolderEntry is one ranked holder
type HolderEntry struct {
	Address            string `json:"address"`
	RawBalance         string `json:"rawBalance"`
	FormattedBalance   string `json:"formattedBalance"`
	PercentageOfSupply string `json:"percentageOfSupply,omitempty"`
}

// Ranking is the truncated ranked holder list plus the full filtered-holder
// count (how many positive holders existed before truncation)
type Ranking struct {
	Holders      []HolderEntry `json:"holders"`
	TotalHolders int           `json:"totalHolders"`
}

// ValidateLimit checks a top-holder limit against [min, max]
func ValidateLimit(limit, min, max int) error {
	if limit < min || limit > max {
		return fmt.Errorf("%w: %d (must be %d-%d)", ErrInvalidLimit, limit, min, max)
	}
	return nil
}

// RankHolders filters the ledger to positive balances, sorts descending by
// raw balance with ties kept in first-seen order, truncates to limit, and
// annotates each survivor with its share of totalSupply when known.
func RankHolders(ledger *Ledger, limit int, totalSupply *big.Int, decimals int) *Ranking {
	entries := ledger.PositiveEntries()

	// Stable sort: equal balances keep insertion order
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Balance.Cmp(entries[j].Balance) > 0
	})

	total := len(entries)
	if limit < len(entries) {
		entries = entries[:limit]
	}

	holders := make([]HolderEntry, len(entries))
	for i, e := range entries {
		holders[i] = HolderEntry{
			Address:            e.Address,
			RawBalance:         e.Balance.String(),
			FormattedBalance:   FormatUnits(e.Balance, decimals),
			PercentageOfSupply: FormatPercentage(e.Balance, totalSupply),
		}
	}

	return &Ranking{
		Holders:      holders,
		TotalHolders: total,
	}
}
