package masterdata_test

import (
	"testing"

	"github.com/conveyorworks/conveyor/internal/masterdata"
)

const threshold = 0.72

func testSnapshot() *masterdata.Snapshot {
	customers := []masterdata.Customer{
		{No: "10000", Name: "Adatum Corporation", Aliases: []string{"Adatum Corp"}},
		{No: "20000", Name: "Trey Research"},
		{No: "40000", Name: "Alpine Ski House"},
	}
	items := []masterdata.Item{
		{No: "1896-S", Description: "ATHENS-työpöytä", Aliases: []string{"Athens desk"}},
		{No: "1908-S", Description: "LONDON-toimistotuoli, sin."},
		{No: "1928-S", Description: "AMSTERDAM-lamppu"},
	}
	return masterdata.NewSnapshot(customers, items)
}

func TestResolveCustomer(t *testing.T) {
	s := testSnapshot()

	tests := []struct {
		name     string
		query    string
		wantNo   string
		wantTier masterdata.MatchTier
	}{
		{"exact name", "Adatum Corporation", "10000", masterdata.MatchExact},
		{"case insensitive", "ADATUM CORPORATION", "10000", masterdata.MatchAlias},
		{"alias", "Adatum Corp", "10000", masterdata.MatchAlias},
		{"customer number", "20000", "20000", masterdata.MatchAlias},
		{"fuzzy typo", "Alpine Ski Huose", "40000", masterdata.MatchFuzzy},
		{"unknown", "Contoso Ltd", "", masterdata.MatchNone},
		{"empty", "", "", masterdata.MatchNone},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			customer, tier := s.ResolveCustomer(tc.query, threshold)
			if tier != tc.wantTier {
				t.Fatalf("tier: got %v, want %v", tier, tc.wantTier)
			}
			if tc.wantNo == "" {
				if customer != nil {
					t.Fatalf("got customer %v, want nil", customer)
				}
				return
			}
			if customer == nil || customer.No != tc.wantNo {
				t.Errorf("customer: got %v, want no %s", customer, tc.wantNo)
			}
		})
	}
}

func TestResolveCustomerAmbiguous(t *testing.T) {
	s := masterdata.NewSnapshot([]masterdata.Customer{
		{No: "1", Name: "Northwind Traders A"},
		{No: "2", Name: "Northwind Traders B"},
	}, nil)

	customer, tier := s.ResolveCustomer("Northwind Traders C", threshold)
	if tier != masterdata.MatchAmbiguous {
		t.Errorf("tier: got %v, want ambiguous", tier)
	}
	if customer != nil {
		t.Errorf("got customer %v, want nil on ambiguity", customer)
	}
}

func TestResolveItem(t *testing.T) {
	s := testSnapshot()

	tests := []struct {
		name        string
		number      string
		description string
		wantNo      string
		wantTier    masterdata.MatchTier
	}{
		{"exact number", "1896-S", "", "1896-S", masterdata.MatchExact},
		{"exact description", "", "ATHENS-työpöytä", "1896-S", masterdata.MatchExact},
		{"alias description", "", "athens desk", "1896-S", masterdata.MatchAlias},
		{"case insensitive number", "1896-s", "", "1896-S", masterdata.MatchAlias},
		{"fuzzy description", "", "AMSTERDAM-lampu", "1928-S", masterdata.MatchFuzzy},
		{"unknown", "9999-X", "Flying carpet", "", masterdata.MatchNone},
		{"both empty", "", "", "", masterdata.MatchNone},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			item, tier := s.ResolveItem(tc.number, tc.description, threshold)
			if tier != tc.wantTier {
				t.Fatalf("tier: got %v, want %v", tier, tc.wantTier)
			}
			if tc.wantNo == "" {
				if item != nil {
					t.Fatalf("got item %v, want nil", item)
				}
				return
			}
			if item == nil || item.No != tc.wantNo {
				t.Errorf("item: got %v, want no %s", item, tc.wantNo)
			}
		})
	}
}

func TestResolveItemCollidingAlias(t *testing.T) {
	s := masterdata.NewSnapshot(nil, []masterdata.Item{
		{No: "1", Description: "Desk", Aliases: []string{"workstation"}},
		{No: "2", Description: "Standing Desk", Aliases: []string{"workstation"}},
	})

	item, tier := s.ResolveItem("", "workstation", threshold)
	if tier != masterdata.MatchAmbiguous {
		t.Errorf("tier: got %v, want ambiguous", tier)
	}
	if item != nil {
		t.Errorf("got item %v, want nil on collision", item)
	}
}
