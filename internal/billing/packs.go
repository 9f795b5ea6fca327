package billing

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/reelprompt/reelprompt/internal/model"
)

// CreditPack is a purchasable bundle of credits tied to a Stripe price.
type CreditPack struct {
	Name    string        `json:"name"`
	PriceID string        `json:"-"`
	Credits model.Credits `json:"credits"`
}

// ParseCreditPacks parses "name:priceID:credits" entries separated by commas.
func ParseCreditPacks(raw string) (map[string]CreditPack, error) {
	packs := make(map[string]CreditPack)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid credit pack %q: want name:priceID:credits", entry)
		}
		name := strings.TrimSpace(parts[0])
		priceID := strings.TrimSpace(parts[1])
		if name == "" || priceID == "" {
			return nil, fmt.Errorf("invalid credit pack %q: empty name or price", entry)
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil || amount <= 0 {
			return nil, fmt.Errorf("invalid credit pack %q: credits must be a positive number", entry)
		}
		credits, err := model.ParseCredits(amount)
		if err != nil {
			return nil, fmt.Errorf("invalid credit pack %q: %w", entry, err)
		}
		if _, dup := packs[name]; dup {
			return nil, fmt.Errorf("duplicate credit pack %q", name)
		}

		packs[name] = CreditPack{Name: name, PriceID: priceID, Credits: credits}
	}
	return packs, nil
}

// sortedPacks returns packs ordered by credit amount.
func sortedPacks(packs map[string]CreditPack) []CreditPack {
	out := make([]CreditPack, 0, len(packs))
	for _, p := range packs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Credits != out[j].Credits {
			return out[i].Credits < out[j].Credits
		}
		return out[i].Name < out[j].Name
	})
	return out
}
