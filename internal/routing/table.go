package routing

import (
	"sync"

	"github.com/terminal-bench/civicfix/internal/models"
)

// Table holds the routing rules in table order: the order rules were loaded,
// which the repository guarantees is insertion order. Reads are safe under
// concurrent use; Replace swaps the whole snapshot.
type Table struct {
	mu    sync.RWMutex
	rules []models.RoutingRule
}

// NewTable creates a table over the given rules. The slice order is the
// tie-break order for matching.
func NewTable(rules []models.RoutingRule) *Table {
	t := &Table{}
	t.Replace(rules)
	return t
}

// Replace swaps the rule snapshot.
func (t *Table) Replace(rules []models.RoutingRule) {
	copied := make([]models.RoutingRule, len(rules))
	copy(copied, rules)

	t.mu.Lock()
	t.rules = copied
	t.mu.Unlock()
}

// Len returns the number of rules in the table.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rules)
}

// matcher is one tier of the fallback algorithm: a predicate over a rule for
// a given query, from most to least specific.
type matcher func(r models.RoutingRule) bool

// FindBestMatch resolves the contact rule for a report using tiered
// fallback:
//
//  1. exact match on city, district and issue type
//  2. match on city and issue type, ignoring district
//  3. match on issue type alone
//
// Each tier scans rules in table order and the first hit wins, so two rules
// satisfying the same tier resolve deterministically to the earlier one.
// Returns false when no tier matches; the caller decides what a miss means.
func (t *Table) FindBestMatch(city, district, issueType string) (models.RoutingRule, bool) {
	tiers := []matcher{
		func(r models.RoutingRule) bool {
			return r.City == city && r.District == district && r.IssueType == issueType
		},
		func(r models.RoutingRule) bool {
			return r.City == city && r.IssueType == issueType
		},
		func(r models.RoutingRule) bool {
			return r.IssueType == issueType
		},
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, match := range tiers {
		for _, rule := range t.rules {
			if match(rule) {
				return rule, true
			}
		}
	}

	return models.RoutingRule{}, false
}
