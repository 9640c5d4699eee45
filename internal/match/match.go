// Package match decides which search terms an auction item satisfies.
package match

import (
	"strings"

	"github.com/TheOneAtFault/auction-monitor/internal/storage"
)

// Terms returns the subset of terms contained in the item's title or
// description. Matching is exact case-insensitive substring containment
// with no tokenization or fuzziness.
func Terms(item storage.AuctionItem, terms []string) []string {
	itemText := strings.ToLower(item.Title + " " + item.Description)

	var matched []string
	for _, term := range terms {
		if strings.Contains(itemText, strings.ToLower(term)) {
			matched = append(matched, term)
		}
	}
	return matched
}
