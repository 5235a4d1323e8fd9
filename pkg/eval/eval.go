// Package eval walks a scenario's instruction tree, making the weighted and
// probabilistic choices each node asks for and emitting the resulting text
// as a stream of events.
//
// Every node is expanded against the variables set so far, then its odds are
// resolved and one gate value is drawn before the node's selector is
// evaluated. Nested instructions share the Environment of the run, so a
// variable set by one node is visible to every node evaluated after it.
package eval

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jwebster45206/constraint/pkg/env"
	"github.com/jwebster45206/constraint/pkg/inventory"
	"github.com/jwebster45206/constraint/pkg/rng"
	"github.com/jwebster45206/constraint/pkg/scenario"
	"github.com/jwebster45206/constraint/pkg/template"
)

// Options configure an Evaluator. Source is required; the rest default to
// the jinja engine, a discarding sink and a discarding logger.
type Options struct {
	Inventory inventory.Collection
	// Desired lists case-sensitive substrings of item descriptions that
	// item selectors should prefer.
	Desired []string
	Source  rng.Source
	Engine  template.Engine
	Sink    Sink
	Logger  *slog.Logger
}

// Evaluator runs one scenario at a time. It is not safe for concurrent use;
// parallel runs each need their own Evaluator and Source.
type Evaluator struct {
	items   inventory.Collection
	desired []string
	src     rng.Source
	eng     template.Engine
	sink    Sink
	log     *slog.Logger
}

func New(opts Options) *Evaluator {
	e := &Evaluator{
		items:   opts.Inventory,
		desired: opts.Desired,
		src:     opts.Source,
		eng:     opts.Engine,
		sink:    opts.Sink,
		log:     opts.Logger,
	}
	if e.eng == nil {
		e.eng = template.NewJinja()
	}
	if e.sink == nil {
		e.sink = SinkFunc(func(Event) {})
	}
	if e.log == nil {
		e.log = slog.New(slog.DiscardHandler)
	}
	return e
}

// Run evaluates every top-level instruction of s against a fresh
// Environment and returns the Environment as it stood at the end. On error
// the evaluation stops and the partial Environment is returned with it.
func (e *Evaluator) Run(s *scenario.Scenario) (*env.Environment, error) {
	vars := env.New()
	e.log.Debug("evaluating scenario", "scenario", s.Name, "instructions", len(s.Instructions))
	for i, ins := range s.Instructions {
		if err := e.Evaluate(ins, vars); err != nil {
			return vars, fmt.Errorf("scenario %q instruction #%d: %w", s.Name, i, err)
		}
	}
	return vars, nil
}

// Evaluate runs a single instruction, recursing into its children.
func (e *Evaluator) Evaluate(node scenario.Instruction, vars *env.Environment) error {
	ins, err := template.Expand(e.eng, node, vars.Map())
	if err != nil {
		return err
	}

	odds, err := resolveOdds(ins.Odds, vars)
	if err != nil {
		return err
	}
	scale := odds / 100.0
	chance := e.src.Float64()
	passed := odds == 100 || chance < scale

	e.log.Debug("evaluating instruction", "kind", ins.Kind, "odds", odds, "chance", chance)

	switch ins.Kind {
	case scenario.KindChooseItem:
		item, ok, err := e.items.Select(ins.Selector).PickOrRequired(e.src, e.desired, scale)
		if err != nil {
			return err
		}
		if !ok || item.IsNone() {
			return nil
		}
		desc, err := e.describe(item, vars)
		if err != nil {
			return err
		}
		e.heading(join(ins.Text, desc))
		apply(vars, ins.Set)

	case scenario.KindChooseManyItems:
		var lines []string
		for _, item := range e.items.Select(ins.Selector).PickManyOrRequired(e.src, e.desired, scale) {
			if item.IsNone() {
				continue
			}
			desc, err := e.describe(item, vars)
			if err != nil {
				return err
			}
			lines = append(lines, desc)
		}
		if len(lines) == 0 {
			return nil
		}
		e.heading(ins.Text)
		for _, l := range lines {
			e.line(l)
		}
		apply(vars, ins.Set)

	case scenario.KindChooseText:
		choice, ok, err := rng.MaybePick(e.src, ins.Choices, scale)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		e.heading(join(ins.Text, choice.Text))
		apply(vars, ins.Set)
		apply(vars, choice.Set)

	case scenario.KindChooseSomeOf:
		chosen := rng.PickSome(e.src, ins.Choices, scale)
		if len(chosen) == 0 {
			return nil
		}
		if ins.Text != "" {
			e.heading(ins.Text)
		}
		for _, c := range chosen {
			e.line(c.Text)
		}
		apply(vars, ins.Set)
		for _, c := range chosen {
			apply(vars, c.Set)
		}

	case scenario.KindChooseInstruction:
		child, ok, err := rng.MaybePick(e.src, ins.Children, scale)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		e.heading(ins.Text)
		apply(vars, ins.Set)
		if err := e.Evaluate(child, vars); err != nil {
			return fmt.Errorf("%s: %w", ins.Kind, err)
		}

	case scenario.KindChooseSomeInstructions:
		if !passed {
			return nil
		}
		chosen := rng.PickSome(e.src, ins.Children, scale)
		if len(chosen) == 0 {
			return nil
		}
		e.heading(ins.Text)
		apply(vars, ins.Set)
		return e.sequence(ins.Kind, chosen, vars)

	case scenario.KindDo:
		if !passed {
			return nil
		}
		e.heading(ins.Text)
		apply(vars, ins.Set)
		return e.sequence(ins.Kind, ins.Children, vars)

	default:
		if !passed {
			return nil
		}
		e.heading(ins.Text)
		apply(vars, ins.Set)
	}
	return nil
}

func (e *Evaluator) sequence(kind scenario.Kind, children []scenario.Instruction, vars *env.Environment) error {
	for i, child := range children {
		if err := e.Evaluate(child, vars); err != nil {
			return fmt.Errorf("%s #%d: %w", kind, i, err)
		}
	}
	return nil
}

// describe renders an item description against the current variables.
func (e *Evaluator) describe(item inventory.Item, vars *env.Environment) (string, error) {
	return e.eng.Render(item.Description, vars.Map())
}

func (e *Evaluator) heading(text string) {
	if text == "" {
		e.sink.Emit(Event{Kind: ParagraphBreak})
		return
	}
	e.sink.Emit(Event{Kind: Heading, Text: text})
}

func (e *Evaluator) line(text string) {
	e.sink.Emit(Event{Kind: Line, Text: text})
}

func join(prefix, body string) string {
	if prefix == "" {
		return body
	}
	return prefix + " " + body
}

func apply(vars *env.Environment, set *scenario.SetStatement) {
	if set == nil {
		return
	}
	vars.Set(set.Name, set.Value)
}

// resolveOdds returns the percentage an instruction fires with. Unset odds,
// and variables holding no value, mean always.
func resolveOdds(o scenario.Odds, vars *env.Environment) (float64, error) {
	if p, ok := o.Fixed(); ok {
		return float64(p), nil
	}
	name, ok := o.Variable()
	if !ok {
		return 100, nil
	}

	v, ok := vars.Lookup(name)
	if !ok {
		return 0, &UnboundVariableError{Name: name}
	}
	switch n := v.(type) {
	case nil:
		return 100, nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: odds variable %q holds %q, not a number", ErrInvalidInstruction, name, n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: odds variable %q holds %v (%T), not a number", ErrInvalidInstruction, name, v, v)
	}
}
