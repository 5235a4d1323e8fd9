// Package inventory models the item collection scenarios draw from.
package inventory

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/jwebster45206/constraint/pkg/rng"
	"gopkg.in/yaml.v3"
)

// NoneName marks an item that renders nothing when selected.
const NoneName = "none"

// ErrInvalidSelector is returned when a selector field has the wrong shape.
var ErrInvalidSelector = errors.New("invalid selector")

// Item is an inventory entry.
type Item struct {
	Class       string   `yaml:"class"`
	Categories  []string `yaml:"categories,omitempty"`
	Description string   `yaml:"description"`
	Odds        *int     `yaml:"odds,omitempty"`
	Name        string   `yaml:"name,omitempty"`
}

// Weight implements rng.Weighted.
func (i Item) Weight() (int, bool) {
	if i.Odds == nil {
		return 0, false
	}
	return *i.Odds, true
}

// IsNone reports whether the item is the "none" sentinel.
func (i Item) IsNone() bool {
	return i.Name == NoneName
}

func (i Item) HasCategory(category string) bool {
	return slices.Contains(i.Categories, category)
}

// StringList accepts either a single string or a list of strings.
type StringList []string

func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrInvalidSelector, node.Line, err)
		}
		*l = StringList{s}
		return nil
	case yaml.SequenceNode:
		out := make(StringList, 0, len(node.Content))
		for _, child := range node.Content {
			if child.Kind != yaml.ScalarNode {
				return fmt.Errorf("%w: line %d: expected a string", ErrInvalidSelector, child.Line)
			}
			out = append(out, child.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("%w: line %d: expected a string or a list of strings", ErrInvalidSelector, node.Line)
	}
}

// Selector narrows the inventory for choose_item and choose_many_items.
type Selector struct {
	Class       string     `yaml:"class,omitempty"`
	Category    string     `yaml:"category,omitempty"`
	NotCategory StringList `yaml:"not_category,omitempty"`
}

// Collection is an immutable, ordered set of items. Filtering returns a new
// Collection and never modifies the receiver.
type Collection struct {
	items []Item
}

// New copies items into a Collection.
func New(items []Item) Collection {
	return Collection{items: slices.Clone(items)}
}

func (c Collection) Len() int {
	return len(c.items)
}

// Items returns a copy of the items in order.
func (c Collection) Items() []Item {
	return slices.Clone(c.items)
}

func (c Collection) filter(keep func(Item) bool) Collection {
	var out []Item
	for _, it := range c.items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return Collection{items: out}
}

func (c Collection) ByClass(class string) Collection {
	return c.filter(func(it Item) bool { return it.Class == class })
}

func (c Collection) ByCategory(category string) Collection {
	return c.filter(func(it Item) bool { return it.HasCategory(category) })
}

func (c Collection) ByNotCategory(category string) Collection {
	return c.filter(func(it Item) bool { return !it.HasCategory(category) })
}

// Select applies the selector's filters in order: class, category, then
// each excluded category.
func (c Collection) Select(sel Selector) Collection {
	out := c
	if sel.Class != "" {
		out = out.ByClass(sel.Class)
	}
	if sel.Category != "" {
		out = out.ByCategory(sel.Category)
	}
	for _, nc := range sel.NotCategory {
		out = out.ByNotCategory(nc)
	}
	return out
}

func (c Collection) shuffled(src rng.Source) []Item {
	out := slices.Clone(c.items)
	src.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// PickOrRequired returns the first item whose description contains one of
// the required substrings, trying substrings in order against a shuffled
// copy of the collection. When nothing matches it falls back to a gated
// weighted pick over the collection.
func (c Collection) PickOrRequired(src rng.Source, required []string, probability float64) (Item, bool, error) {
	shuffled := c.shuffled(src)
	for _, sub := range required {
		if sub == "" {
			continue
		}
		for _, it := range shuffled {
			if strings.Contains(it.Description, sub) {
				return it, true, nil
			}
		}
	}
	return rng.MaybePick(src, c.items, probability)
}

// PickManyOrRequired includes one match per required substring, followed by
// an independent pick over the whole collection. Items are deduplicated by
// description, so two items sharing a description count as one.
func (c Collection) PickManyOrRequired(src rng.Source, required []string, scale float64) []Item {
	var chosen []Item
	seen := make(map[string]bool)

	shuffled := c.shuffled(src)
	for _, sub := range required {
		if sub == "" {
			continue
		}
		for _, it := range shuffled {
			if strings.Contains(it.Description, sub) {
				if !seen[it.Description] {
					seen[it.Description] = true
					chosen = append(chosen, it)
				}
				break
			}
		}
	}

	for _, it := range rng.PickSome(src, c.items, scale) {
		if seen[it.Description] {
			continue
		}
		seen[it.Description] = true
		chosen = append(chosen, it)
	}
	return chosen
}

// Load reads an inventory file: a YAML list of items.
func Load(path string) (Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Collection{}, fmt.Errorf("failed to read inventory file: %w", err)
	}
	items, err := Parse(data)
	if err != nil {
		return Collection{}, fmt.Errorf("error reading %s: %w", path, err)
	}
	return New(items), nil
}

// Parse decodes a YAML list of items.
func Parse(data []byte) ([]Item, error) {
	var items []Item
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}
