// Package masterdata provides the read-only customer and item reference
// data used to validate and repair order candidates. A Snapshot is loaded
// once per workflow run, indexed for lookup, and discarded at run end; no
// component mutates it.
package masterdata

// Customer is a canonical customer record.
type Customer struct {
	No      string   `json:"no"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
}

// Item is a canonical item record.
type Item struct {
	No          string   `json:"no"`
	Description string   `json:"description"`
	Aliases     []string `json:"aliases"`
}

// MatchTier records how a resolution succeeded. Anything beyond an exact
// match counts as a repair for validation status purposes.
type MatchTier int

const (
	MatchNone MatchTier = iota
	MatchExact
	MatchAlias
	MatchFuzzy
	// MatchAmbiguous means two or more records scored equally best above
	// the fuzzy threshold. Ambiguity is never auto-resolved.
	MatchAmbiguous
)

func (t MatchTier) String() string {
	switch t {
	case MatchExact:
		return "exact"
	case MatchAlias:
		return "alias"
	case MatchFuzzy:
		return "fuzzy"
	case MatchAmbiguous:
		return "ambiguous"
	default:
		return "none"
	}
}
