package masterdata

import (
	"github.com/conveyorworks/conveyor/pkg/fuzzy"
)

// looseIdx marks a normalized form claimed by more than one record.
const collision = -1

// Snapshot is an immutable, indexed view of master data for one run.
type Snapshot struct {
	customers []Customer
	items     []Item

	customerLoose map[string]int
	itemLoose     map[string]int
}

// NewSnapshot builds the lookup indexes over the given records. The slices
// are retained; callers must not mutate them afterwards.
func NewSnapshot(customers []Customer, items []Item) *Snapshot {
	s := &Snapshot{
		customers:     customers,
		items:         items,
		customerLoose: make(map[string]int),
		itemLoose:     make(map[string]int),
	}

	for i, c := range customers {
		claim(s.customerLoose, fuzzy.Normalize(c.Name), i)
		claim(s.customerLoose, fuzzy.Normalize(c.No), i)
		for _, a := range c.Aliases {
			claim(s.customerLoose, fuzzy.Normalize(a), i)
		}
	}
	for i, it := range items {
		claim(s.itemLoose, fuzzy.Normalize(it.No), i)
		claim(s.itemLoose, fuzzy.Normalize(it.Description), i)
		for _, a := range it.Aliases {
			claim(s.itemLoose, fuzzy.Normalize(a), i)
		}
	}

	return s
}

func claim(idx map[string]int, key string, i int) {
	if key == "" {
		return
	}
	if existing, ok := idx[key]; ok && existing != i {
		idx[key] = collision
		return
	}
	idx[key] = i
}

// Customers returns the customer records in load order.
func (s *Snapshot) Customers() []Customer { return s.customers }

// Items returns the item records in load order.
func (s *Snapshot) Items() []Item { return s.items }

// ResolveCustomer resolves a raw customer name: exact canonical match,
// then case-insensitive/alias match, then fuzzy match above threshold.
// Zero or multiple equally good fuzzy matches yield MatchNone or
// MatchAmbiguous respectively.
func (s *Snapshot) ResolveCustomer(name string, threshold float64) (*Customer, MatchTier) {
	for i := range s.customers {
		if s.customers[i].Name == name {
			return &s.customers[i], MatchExact
		}
	}

	if i, ok := s.customerLoose[fuzzy.Normalize(name)]; ok {
		if i == collision {
			return nil, MatchAmbiguous
		}
		return &s.customers[i], MatchAlias
	}

	i, tier := fuzzyBest(name, threshold, len(s.customers), func(i int) []string {
		c := s.customers[i]
		return append([]string{c.Name}, c.Aliases...)
	})
	if tier != MatchFuzzy {
		return nil, tier
	}
	return &s.customers[i], MatchFuzzy
}

// ResolveItem resolves a raw line item by its number hint and description,
// using the same three tiers as customer resolution. Either field may be
// empty.
func (s *Snapshot) ResolveItem(number, description string, threshold float64) (*Item, MatchTier) {
	for i := range s.items {
		if (number != "" && s.items[i].No == number) ||
			(description != "" && s.items[i].Description == description) {
			return &s.items[i], MatchExact
		}
	}

	for _, key := range []string{fuzzy.Normalize(number), fuzzy.Normalize(description)} {
		if key == "" {
			continue
		}
		if i, ok := s.itemLoose[key]; ok {
			if i == collision {
				return nil, MatchAmbiguous
			}
			return &s.items[i], MatchAlias
		}
	}

	query := description
	if query == "" {
		query = number
	}
	i, tier := fuzzyBest(query, threshold, len(s.items), func(i int) []string {
		it := s.items[i]
		return append([]string{it.No, it.Description}, it.Aliases...)
	})
	if tier != MatchFuzzy {
		return nil, tier
	}
	return &s.items[i], MatchFuzzy
}

// fuzzyBest scans all records for the single best similarity score at or
// above threshold. A tie between distinct records is ambiguous.
func fuzzyBest(query string, threshold float64, n int, names func(int) []string) (int, MatchTier) {
	if query == "" {
		return 0, MatchNone
	}

	best := -1
	bestScore := 0.0
	tied := false

	for i := 0; i < n; i++ {
		score := 0.0
		for _, name := range names(i) {
			if s := fuzzy.Similarity(query, name); s > score {
				score = s
			}
		}
		if score < threshold {
			continue
		}
		switch {
		case score > bestScore:
			best, bestScore, tied = i, score, false
		case score == bestScore && best != -1 && best != i:
			tied = true
		}
	}

	switch {
	case best == -1:
		return 0, MatchNone
	case tied:
		return 0, MatchAmbiguous
	default:
		return best, MatchFuzzy
	}
}
