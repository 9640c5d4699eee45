package match

import (
	"reflect"
	"testing"

	"github.com/TheOneAtFault/auction-monitor/internal/storage"
)

func TestTerms(t *testing.T) {
	item := storage.AuctionItem{
		Title:       "Vintage Omega Wristwatch",
		Description: "Mechanical movement, leather strap, running condition",
	}

	tests := []struct {
		name  string
		terms []string
		want  []string
	}{
		{"case-insensitive title match", []string{"omega"}, []string{"omega"}},
		{"description match", []string{"leather strap"}, []string{"leather strap"}},
		{"no match", []string{"bicycle"}, nil},
		{"partial word counts as substring", []string{"watch"}, []string{"watch"}},
		{"mixed case term", []string{"WRISTWATCH"}, []string{"WRISTWATCH"}},
		{"multiple terms, subset matches", []string{"omega", "bicycle", "strap"}, []string{"omega", "strap"}},
		{"spans title/description boundary join", []string{"wristwatch mechanical"}, []string{"wristwatch mechanical"}},
		{"empty terms", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Terms(item, tt.terms)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Terms(%v) = %v, want %v", tt.terms, got, tt.want)
			}
		})
	}
}

func TestTerms_ReturnsOriginalCasing(t *testing.T) {
	item := storage.AuctionItem{Title: "Bosch drill press"}
	got := Terms(item, []string{"BoSch"})
	if len(got) != 1 || got[0] != "BoSch" {
		t.Errorf("Terms returned %v, want the term in its original casing", got)
	}
}
