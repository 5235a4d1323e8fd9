package template

import (
	"github.com/jwebster45206/constraint/pkg/inventory"
	"github.com/jwebster45206/constraint/pkg/scenario"
)

// Expand returns a copy of ins with every string field rendered against
// vars. Nested instruction bodies (do, choose_instruction and
// choose_some_instructions) are copied through unexpanded; each child is
// expanded when it is evaluated. ins itself is never modified.
func Expand(eng Engine, ins scenario.Instruction, vars map[string]any) (scenario.Instruction, error) {
	x := expander{eng: eng, vars: vars}
	out := ins

	out.Text = x.render(ins.Text)
	if name, ok := ins.Odds.Variable(); ok {
		out.Odds = scenario.FromVariable(x.render(name))
	}
	out.Set = x.set(ins.Set)
	out.Selector = x.selector(ins.Selector)

	if ins.Choices != nil {
		out.Choices = make([]scenario.TextChoice, len(ins.Choices))
		for i, c := range ins.Choices {
			out.Choices[i] = scenario.TextChoice{
				Text: x.render(c.Text),
				Odds: c.Odds,
				Set:  x.set(c.Set),
			}
		}
	}

	if x.err != nil {
		return scenario.Instruction{}, x.err
	}
	return out, nil
}

// expander keeps the first render error so Expand reads as a flat list of
// field rewrites.
type expander struct {
	eng  Engine
	vars map[string]any
	err  error
}

func (x *expander) render(s string) string {
	if x.err != nil || s == "" {
		return s
	}
	out, err := x.eng.Render(s, x.vars)
	if err != nil {
		x.err = err
		return s
	}
	return out
}

func (x *expander) set(s *scenario.SetStatement) *scenario.SetStatement {
	if s == nil {
		return nil
	}
	out := &scenario.SetStatement{Name: x.render(s.Name), Value: s.Value}
	if v, ok := s.Value.(string); ok {
		out.Value = x.render(v)
	}
	return out
}

func (x *expander) selector(sel inventory.Selector) inventory.Selector {
	out := inventory.Selector{
		Class:    x.render(sel.Class),
		Category: x.render(sel.Category),
	}
	if sel.NotCategory != nil {
		out.NotCategory = make(inventory.StringList, len(sel.NotCategory))
		for i, nc := range sel.NotCategory {
			out.NotCategory[i] = x.render(nc)
		}
	}
	return out
}
