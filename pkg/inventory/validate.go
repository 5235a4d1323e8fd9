package inventory

import "fmt"

// Validate reports structural problems in a list of items. The returned
// messages name the item index the way the inventory file is numbered.
func Validate(items []Item) []string {
	var problems []string
	for i, it := range items {
		if it.Class == "" {
			problems = append(problems, fmt.Sprintf("item #%d has no class", i))
		}
		if it.Description == "" {
			problems = append(problems, fmt.Sprintf("item #%d has no description", i))
		}
		if it.Odds != nil && (*it.Odds < 0 || *it.Odds > 100) {
			problems = append(problems, fmt.Sprintf("item #%d has odds %d outside 0-100", i, *it.Odds))
		}
	}
	return problems
}
