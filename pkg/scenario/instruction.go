package scenario

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jwebster45206/constraint/pkg/inventory"
	"gopkg.in/yaml.v3"
)

// ErrInvalidInstruction is returned when an instruction cannot be decoded
// into one of the known node kinds.
var ErrInvalidInstruction = errors.New("invalid instruction")

// Kind identifies which selector an instruction carries.
type Kind int

// Kinds are listed in the priority order used when legacy input carries more
// than one selector key.
const (
	KindText Kind = iota
	KindChooseItem
	KindChooseManyItems
	KindChooseText
	KindChooseSomeOf
	KindChooseInstruction
	KindChooseSomeInstructions
	KindDo
)

var kindKeys = map[Kind]string{
	KindText:                   "text",
	KindChooseItem:             "choose_item",
	KindChooseManyItems:        "choose_many_items",
	KindChooseText:             "choose_text",
	KindChooseSomeOf:           "choose_some_of",
	KindChooseInstruction:      "choose_instruction",
	KindChooseSomeInstructions: "choose_some_instructions",
	KindDo:                     "do",
}

func (k Kind) String() string {
	if s, ok := kindKeys[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Odds is either a fixed percentage or the name of a variable holding one.
// The zero value means no odds were given.
type Odds struct {
	percent  int
	variable string
	set      bool
}

// Fixed returns odds of percent.
func Fixed(percent int) Odds {
	return Odds{percent: percent, set: true}
}

// FromVariable returns odds read from the named variable at evaluation time.
func FromVariable(name string) Odds {
	return Odds{variable: name, set: true}
}

func (o Odds) IsSet() bool {
	return o.set
}

// Fixed returns the percentage when the odds are a literal number.
func (o Odds) Fixed() (int, bool) {
	if !o.set || o.variable != "" {
		return 0, false
	}
	return o.percent, true
}

// Variable returns the variable name when the odds come from the environment.
func (o Odds) Variable() (string, bool) {
	if !o.set || o.variable == "" {
		return "", false
	}
	return o.variable, true
}

func (o Odds) String() string {
	switch {
	case !o.set:
		return "always"
	case o.variable != "":
		return "$" + o.variable
	default:
		return fmt.Sprintf("%d%%", o.percent)
	}
}

func (o *Odds) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: odds must be a number or a variable name", node.Line)
	}
	switch node.ShortTag() {
	case "!!null":
		*o = Odds{}
	case "!!int":
		var n int
		if err := node.Decode(&n); err != nil {
			return err
		}
		*o = Fixed(n)
	case "!!str":
		if strings.TrimSpace(node.Value) == "" {
			return fmt.Errorf("line %d: odds variable name is empty", node.Line)
		}
		*o = FromVariable(node.Value)
	default:
		return fmt.Errorf("line %d: odds must be a whole number or a variable name, got %q", node.Line, node.Value)
	}
	return nil
}

// SetStatement assigns a variable once an instruction's selection succeeds.
// A bare name in the input sets that variable to true.
type SetStatement struct {
	Name  string
	Value any
}

func (s *SetStatement) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == "" {
			return fmt.Errorf("line %d: set needs a variable name", node.Line)
		}
		*s = SetStatement{Name: node.Value, Value: true}
		return nil
	case yaml.MappingNode:
		var raw struct {
			Name  string `yaml:"name"`
			Value any    `yaml:"value"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		if raw.Name == "" {
			return fmt.Errorf("line %d: set needs a variable name", node.Line)
		}
		*s = SetStatement{Name: raw.Name, Value: raw.Value}
		return nil
	default:
		return fmt.Errorf("line %d: set must be a variable name or a {name, value} pair", node.Line)
	}
}

// TextChoice is an entry of a choose_text or choose_some_of list.
type TextChoice struct {
	Text string        `yaml:"text"`
	Odds *int          `yaml:"odds"`
	Set  *SetStatement `yaml:"set"`
}

// Weight implements rng.Weighted.
func (c TextChoice) Weight() (int, bool) {
	if c.Odds == nil {
		return 0, false
	}
	return *c.Odds, true
}

// Instruction is one node of a scenario's instruction tree. Exactly one of
// Selector, Choices or Children is meaningful, depending on Kind.
type Instruction struct {
	Kind Kind
	Text string
	Odds Odds
	Set  *SetStatement

	// Selector filters the inventory for choose_item and choose_many_items.
	Selector inventory.Selector
	// Choices holds the inline list of choose_text and choose_some_of.
	Choices []TextChoice
	// Children holds nested instructions of choose_instruction,
	// choose_some_instructions and do.
	Children []Instruction

	ignored []Kind
}

// Weight implements rng.Weighted. Only literal odds count as a weight.
func (i Instruction) Weight() (int, bool) {
	return i.Odds.Fixed()
}

// IgnoredSelectors lists selector keys that were present but lost to a
// higher priority selector.
func (i Instruction) IgnoredSelectors() []Kind {
	return i.ignored
}

type rawInstruction struct {
	Text                   string              `yaml:"text"`
	Odds                   Odds                `yaml:"odds"`
	Set                    *SetStatement       `yaml:"set"`
	ChooseItem             *inventory.Selector `yaml:"choose_item"`
	ChooseManyItems        *inventory.Selector `yaml:"choose_many_items"`
	ChooseText             *[]TextChoice       `yaml:"choose_text"`
	ChooseSomeOf           *[]TextChoice       `yaml:"choose_some_of"`
	ChooseInstruction      *[]Instruction      `yaml:"choose_instruction"`
	ChooseSomeInstructions *[]Instruction      `yaml:"choose_some_instructions"`
	Do                     *[]Instruction      `yaml:"do"`
}

var instructionKeys = map[string]bool{
	"text": true, "odds": true, "set": true,
	"choose_item": true, "choose_many_items": true, "choose_text": true, "choose_some_of": true,
	"choose_instruction": true, "choose_some_instructions": true, "do": true,
}

func (i *Instruction) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: line %d: expected a mapping", ErrInvalidInstruction, node.Line)
	}
	for k := 0; k+1 < len(node.Content); k += 2 {
		key := node.Content[k]
		if !instructionKeys[key.Value] {
			return fmt.Errorf("%w: line %d: unknown key %q", ErrInvalidInstruction, key.Line, key.Value)
		}
	}

	var raw rawInstruction
	if err := node.Decode(&raw); err != nil {
		if errors.Is(err, ErrInvalidInstruction) {
			return err
		}
		return fmt.Errorf("%w: line %d: %w", ErrInvalidInstruction, node.Line, err)
	}

	out := Instruction{Text: raw.Text, Odds: raw.Odds, Set: raw.Set}
	var present []Kind
	if raw.ChooseItem != nil {
		present = append(present, KindChooseItem)
	}
	if raw.ChooseManyItems != nil {
		present = append(present, KindChooseManyItems)
	}
	if raw.ChooseText != nil {
		present = append(present, KindChooseText)
	}
	if raw.ChooseSomeOf != nil {
		present = append(present, KindChooseSomeOf)
	}
	if raw.ChooseInstruction != nil {
		present = append(present, KindChooseInstruction)
	}
	if raw.ChooseSomeInstructions != nil {
		present = append(present, KindChooseSomeInstructions)
	}
	if raw.Do != nil {
		present = append(present, KindDo)
	}

	if len(present) > 0 {
		out.Kind = present[0]
		out.ignored = present[1:]
	}
	switch out.Kind {
	case KindChooseItem:
		out.Selector = *raw.ChooseItem
	case KindChooseManyItems:
		out.Selector = *raw.ChooseManyItems
	case KindChooseText:
		out.Choices = *raw.ChooseText
	case KindChooseSomeOf:
		out.Choices = *raw.ChooseSomeOf
	case KindChooseInstruction:
		out.Children = *raw.ChooseInstruction
	case KindChooseSomeInstructions:
		out.Children = *raw.ChooseSomeInstructions
	case KindDo:
		out.Children = *raw.Do
	}

	*i = out
	return nil
}
