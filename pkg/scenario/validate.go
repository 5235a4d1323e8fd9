package scenario

import "fmt"

// Validate reports structural problems in a scenario. Problems are
// described relative to the scenario name and the top-level instruction
// index.
func Validate(s Scenario) []string {
	var problems []string
	if s.Name == "" {
		problems = append(problems, "scenario has no name")
	}
	if s.Odds != nil && *s.Odds < 0 {
		problems = append(problems, fmt.Sprintf("scenario %q has negative odds", s.Name))
	}
	if len(s.Instructions) == 0 {
		problems = append(problems, fmt.Sprintf("scenario %q has no instructions", s.Name))
	}
	for i, ins := range s.Instructions {
		where := fmt.Sprintf("instruction #%d of the %q scenario", i, s.Name)
		problems = append(problems, validateInstruction(ins, where)...)
	}
	return problems
}

func validateInstruction(ins Instruction, where string) []string {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf("%s: %s", where, fmt.Sprintf(format, args...)))
	}

	for _, k := range ins.IgnoredSelectors() {
		add("%s is ignored because %s takes priority", k, ins.Kind)
	}
	if p, ok := ins.Odds.Fixed(); ok && p < 0 {
		add("odds %d must not be negative", p)
	}

	switch ins.Kind {
	case KindText:
		if ins.Text == "" && ins.Set == nil {
			add("instruction has no text, selector or set")
		}
	case KindChooseItem, KindChooseManyItems:
		if ins.Selector.Class == "" && ins.Selector.Category == "" {
			add("%s needs a class or a category", ins.Kind)
		}
	case KindChooseText, KindChooseSomeOf:
		if len(ins.Choices) == 0 {
			add("%s has no entries", ins.Kind)
		}
		for j, c := range ins.Choices {
			if c.Text == "" {
				add("%s entry #%d has no text", ins.Kind, j)
			}
			if ins.Kind == KindChooseSomeOf && c.Odds == nil {
				add("%s entry #%d needs odds", ins.Kind, j)
			}
			if c.Odds != nil && (*c.Odds < 0 || *c.Odds > 100) {
				add("%s entry #%d has odds %d outside 0-100", ins.Kind, j, *c.Odds)
			}
		}
	case KindChooseInstruction, KindChooseSomeInstructions, KindDo:
		if len(ins.Children) == 0 {
			add("%s has no instructions", ins.Kind)
		}
		for j, child := range ins.Children {
			if ins.Kind == KindChooseSomeInstructions {
				if _, ok := child.Odds.Fixed(); !ok {
					add("%s entry #%d needs numeric odds", ins.Kind, j)
				}
			}
			problems = append(problems, validateInstruction(child, fmt.Sprintf("%s > %s #%d", where, ins.Kind, j))...)
		}
	}
	return problems
}
