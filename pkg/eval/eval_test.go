package eval

import (
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/jwebster45206/constraint/pkg/env"
	"github.com/jwebster45206/constraint/pkg/inventory"
	"github.com/jwebster45206/constraint/pkg/rng"
	"github.com/jwebster45206/constraint/pkg/rng/rngtest"
	"github.com/jwebster45206/constraint/pkg/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func odds(n int) *int { return &n }

func parseScenario(t *testing.T, src string) *scenario.Scenario {
	t.Helper()
	scenarios, err := scenario.Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	return &scenarios[0]
}

func parseInstruction(t *testing.T, src string) scenario.Instruction {
	t.Helper()
	var ins scenario.Instruction
	require.NoError(t, yaml.Unmarshal([]byte(src), &ins))
	return ins
}

type harness struct {
	rec  *Recorder
	vars *env.Environment
	ev   *Evaluator
}

func newHarness(src rng.Source, items []inventory.Item, desired ...string) *harness {
	rec := &Recorder{}
	return &harness{
		rec:  rec,
		vars: env.New(),
		ev: New(Options{
			Inventory: inventory.New(items),
			Desired:   desired,
			Source:    src,
			Sink:      rec,
		}),
	}
}

func heading(text string) Event { return Event{Kind: Heading, Text: text} }
func line(text string) Event    { return Event{Kind: Line, Text: text} }

var breakEvent = Event{Kind: ParagraphBreak}

var headwear = []inventory.Item{
	{Class: "headwear", Description: "a collar", Odds: odds(2)},
	{Class: "headwear", Description: "a muzzle", Odds: odds(1), Name: inventory.NoneName},
}

func TestEvaluate_ChooseItem(t *testing.T) {
	ins := parseInstruction(t, `{text: Lock on, choose_item: {class: headwear}}`)

	tests := []struct {
		name string
		ints []int
		want []Event
	}{
		// weights 2 and 1: IntN(3) values 0 and 1 land on the collar
		{name: "collar selected", ints: []int{1}, want: []Event{heading("Lock on a collar")}},
		{name: "none sentinel renders nothing", ints: []int{2}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &rngtest.Scripted{Floats: []float64{0.5, 0.5}, Ints: tt.ints}
			h := newHarness(src, headwear)
			require.NoError(t, h.ev.Evaluate(ins, h.vars))
			assert.Equal(t, tt.want, h.rec.Events)
			assert.Equal(t, 2, src.FloatCalls, "one gate draw and one pick draw")
		})
	}

	t.Run("failed pick gate", func(t *testing.T) {
		src := &rngtest.Scripted{Floats: []float64{0.1, 0.5}}
		h := newHarness(src, headwear)
		require.NoError(t, h.ev.Evaluate(parseInstruction(t, `{text: Lock on, odds: 40, set: locked, choose_item: {class: headwear}}`), h.vars))
		assert.Empty(t, h.rec.Events)
		_, ok := h.vars.Lookup("locked")
		assert.False(t, ok)
	})

	t.Run("empty selection", func(t *testing.T) {
		src := &rngtest.Scripted{Floats: []float64{0.5, 0.5}}
		h := newHarness(src, headwear)
		require.NoError(t, h.ev.Evaluate(parseInstruction(t, `{text: Wear, choose_item: {class: shoes}}`), h.vars))
		assert.Empty(t, h.rec.Events)
	})
}

func TestEvaluate_RequiredItemOverridesWeights(t *testing.T) {
	items := []inventory.Item{
		{Class: "restraint", Description: "leather straps", Odds: odds(100)},
		{Class: "restraint", Description: "handcuffs", Odds: odds(1)},
		{Class: "restraint", Description: "rope", Odds: odds(100)},
	}
	ins := parseInstruction(t, `{text: Put on, odds: 1, choose_item: {class: restraint}}`)

	for i := 0; i < 200; i++ {
		h := newHarness(rng.NewSource(strconv.Itoa(i)), items, "cuff")
		require.NoError(t, h.ev.Evaluate(ins, h.vars))
		require.Equal(t, []Event{heading("Put on handcuffs")}, h.rec.Events, "seed %d", i)
	}
}

func TestEvaluate_ChooseManyItems(t *testing.T) {
	items := []inventory.Item{
		{Class: "bind", Description: "rope", Odds: odds(100)},
		{Class: "bind", Description: "tape", Odds: odds(100)},
		{Class: "bind", Description: "nothing", Odds: odds(100), Name: inventory.NoneName},
		{Class: "bind", Description: "chain"},
	}
	ins := parseInstruction(t, `{text: Use, set: bound, choose_many_items: {class: bind}}`)

	t.Run("independent picks skip none and items without odds", func(t *testing.T) {
		src := &rngtest.Scripted{Floats: []float64{0.5}, Ints: []int{0, 99, 0}}
		h := newHarness(src, items)
		require.NoError(t, h.ev.Evaluate(ins, h.vars))
		assert.Equal(t, []Event{heading("Use"), line("rope"), line("tape")}, h.rec.Events)
		assert.Equal(t, 3, src.IntCalls)
		v, _ := h.vars.Lookup("bound")
		assert.Equal(t, true, v)
	})

	t.Run("required matches come first without duplicates", func(t *testing.T) {
		src := &rngtest.Scripted{Floats: []float64{0.5}, Ints: []int{0, 0, 99}}
		h := newHarness(src, items, "chain", "rop")
		require.NoError(t, h.ev.Evaluate(ins, h.vars))
		assert.Equal(t, []Event{heading("Use"), line("chain"), line("rope"), line("tape")}, h.rec.Events)
	})

	t.Run("nothing picked", func(t *testing.T) {
		src := &rngtest.Scripted{Floats: []float64{0.5}, Ints: []int{0, 0, 0}}
		h := newHarness(src, items)
		require.NoError(t, h.ev.Evaluate(parseInstruction(t, `{text: Use, odds: 0, choose_many_items: {class: bind}}`), h.vars))
		assert.Empty(t, h.rec.Events)
	})

	t.Run("no text starts a paragraph", func(t *testing.T) {
		src := &rngtest.Scripted{Floats: []float64{0.5}, Ints: []int{0, 99, 99}}
		h := newHarness(src, items)
		require.NoError(t, h.ev.Evaluate(parseInstruction(t, `{odds: 50, choose_many_items: {class: bind}}`), h.vars))
		assert.Equal(t, []Event{breakEvent, line("rope")}, h.rec.Events)
	})
}

func TestEvaluate_ChooseText(t *testing.T) {
	ins := parseInstruction(t, `
text: Position
set: positioned
choose_text:
  - {text: kneel, odds: 1, set: {name: pose, value: kneel}}
  - {text: stand, odds: 3, set: {name: pose, value: stand}}
`)

	src := &rngtest.Scripted{Floats: []float64{0.9, 0.1}, Ints: []int{0}}
	h := newHarness(src, nil)
	require.NoError(t, h.ev.Evaluate(ins, h.vars))
	assert.Equal(t, []Event{heading("Position kneel")}, h.rec.Events)
	assert.Equal(t, []string{"positioned", "pose"}, h.vars.Names(), "entry set applies after instruction set")
	pose, _ := h.vars.Lookup("pose")
	assert.Equal(t, "kneel", pose)

	gated := parseInstruction(t, `{odds: 30, choose_text: [{text: a}]}`)
	src = &rngtest.Scripted{Floats: []float64{0.0, 0.5}}
	h = newHarness(src, nil)
	require.NoError(t, h.ev.Evaluate(gated, h.vars))
	assert.Empty(t, h.rec.Events)

	src = &rngtest.Scripted{Floats: []float64{0.9, 0.1}}
	h = newHarness(src, nil)
	require.NoError(t, h.ev.Evaluate(gated, h.vars))
	assert.Equal(t, []Event{heading("a")}, h.rec.Events, "single entry needs no weight draw")
}

func TestEvaluate_ChooseSomeOf(t *testing.T) {
	src := &rngtest.Scripted{Floats: []float64{0.5}, Ints: []int{49, 50, 0}}
	h := newHarness(src, nil)
	ins := parseInstruction(t, `
text: Pick
choose_some_of:
  - {text: a, odds: 50, set: got_a}
  - {text: b, odds: 50, set: got_b}
  - {text: c}
  - {text: d, odds: 1}
`)
	require.NoError(t, h.ev.Evaluate(ins, h.vars))
	assert.Equal(t, []Event{heading("Pick"), line("a"), line("d")}, h.rec.Events)
	assert.Equal(t, []string{"got_a"}, h.vars.Names())

	src = &rngtest.Scripted{Floats: []float64{0.5}, Ints: []int{0}}
	h = newHarness(src, nil)
	require.NoError(t, h.ev.Evaluate(parseInstruction(t, `{choose_some_of: [{text: x, odds: 10}]}`), h.vars))
	assert.Equal(t, []Event{line("x")}, h.rec.Events, "no heading without text")
}

func TestEvaluate_ChooseInstruction(t *testing.T) {
	ins := parseInstruction(t, `
set: chose
choose_instruction:
  - {text: a, odds: 3}
  - {text: b}
`)
	// gate, pick gate, weight roll 4 of 4, then the child's own gate
	src := &rngtest.Scripted{Floats: []float64{0.5, 0.0, 0.99}, Ints: []int{3}}
	h := newHarness(src, nil)
	require.NoError(t, h.ev.Evaluate(ins, h.vars))
	assert.Equal(t, []Event{breakEvent, heading("b")}, h.rec.Events)
	_, ok := h.vars.Lookup("chose")
	assert.True(t, ok)
}

func TestEvaluate_ChooseSomeInstructions(t *testing.T) {
	ins := parseInstruction(t, `
text: Some
odds: 50
choose_some_instructions:
  - {text: a, odds: 100, set: {name: n, value: 1}}
  - {text: b, odds: 100}
`)

	t.Run("gate fails", func(t *testing.T) {
		src := &rngtest.Scripted{Floats: []float64{0.7}}
		h := newHarness(src, nil)
		require.NoError(t, h.ev.Evaluate(ins, h.vars))
		assert.Empty(t, h.rec.Events)
		assert.Equal(t, 0, src.IntCalls)
	})

	t.Run("gate passes and odds scale inclusion", func(t *testing.T) {
		// rolls 11 and 81 against 100*0.5
		src := &rngtest.Scripted{Floats: []float64{0.2, 0.9}, Ints: []int{10, 80}}
		h := newHarness(src, nil)
		require.NoError(t, h.ev.Evaluate(ins, h.vars))
		assert.Equal(t, []Event{heading("Some"), heading("a")}, h.rec.Events)
		n, _ := h.vars.Lookup("n")
		assert.Equal(t, 1, n)
	})
}

func TestEvaluate_DoGate(t *testing.T) {
	ins := parseInstruction(t, `
text: Then
odds: 50
do:
  - text: one
  - text: two
  - text: three
`)
	want := []Event{heading("Then"), heading("one"), heading("two"), heading("three")}

	const runs = 10000
	fired := 0
	for i := 0; i < runs; i++ {
		h := newHarness(rng.NewSource("gate-"+strconv.Itoa(i)), nil)
		require.NoError(t, h.ev.Evaluate(ins, h.vars))
		if len(h.rec.Events) == 0 {
			continue
		}
		fired++
		require.Equal(t, want, h.rec.Events)
	}
	assert.InDelta(t, 0.5, float64(fired)/runs, 0.03)
}

func TestRun_VariableScoping(t *testing.T) {
	s := parseScenario(t, `
- name: Scoping
  instructions:
    - do:
        - text: first
          set: {name: x, value: 100}
        - text: sibling
          odds: x
    - text: after
      odds: x
`)
	rec := &Recorder{}
	ev := New(Options{Source: rng.NewSource("scope"), Sink: rec})
	vars, err := ev.Run(s)
	require.NoError(t, err)
	assert.Equal(t, []Event{breakEvent, heading("first"), heading("sibling"), heading("after")}, rec.Events)
	x, _ := vars.Lookup("x")
	assert.Equal(t, 100, x)

	early := parseScenario(t, `
- name: Early
  instructions:
    - text: too soon
      odds: x
    - text: setter
      set: {name: x, value: 3}
`)
	rec = &Recorder{}
	_, err = New(Options{Source: rng.NewSource("scope"), Sink: rec}).Run(early)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnboundVariable))
	var ube *UnboundVariableError
	require.ErrorAs(t, err, &ube)
	assert.Equal(t, "x", ube.Name)
	assert.Contains(t, err.Error(), `scenario "Early" instruction #0`)
	assert.Empty(t, rec.Events)
}

func TestRun_TemplatesSeeCurrentVariables(t *testing.T) {
	s := parseScenario(t, `
- name: Templates
  instructions:
    - set: {name: pet, value: Rex}
    - text: "Good {{ pet }}."
    - text: Put on
      choose_item: {class: headwear}
    - text: "{% if pet %}Stay{% endif %}"
`)
	items := []inventory.Item{{Class: "headwear", Description: "a tag reading {{ pet }}"}}
	rec := &Recorder{}
	_, err := New(Options{Inventory: inventory.New(items), Source: rng.NewSource("t"), Sink: rec}).Run(s)
	require.NoError(t, err)
	assert.Equal(t, []Event{
		breakEvent,
		heading("Good Rex."),
		heading("Put on a tag reading Rex"),
		heading("Stay"),
	}, rec.Events)
}

func TestRun_FlagOddsAndNonIdentifierNames(t *testing.T) {
	s := parseScenario(t, `
- name: Flags
  instructions:
    - set: {name: pose, value: upright}
    - text: Put on the collar
      set: collar-on
    - text: "Kneel {{ pose }}"
      odds: collar-on
`)

	tests := []struct {
		name   string
		floats []float64
		want   []Event
	}{
		{
			name:   "flag odds fire rarely",
			floats: []float64{0.5, 0.5, 0.005},
			want:   []Event{breakEvent, heading("Put on the collar"), heading("Kneel upright")},
		},
		{
			name:   "flag odds usually skip",
			floats: []float64{0.5, 0.5, 0.5},
			want:   []Event{breakEvent, heading("Put on the collar")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &Recorder{}
			vars, err := New(Options{Source: &rngtest.Scripted{Floats: tt.floats}, Sink: rec}).Run(s)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Events)
			assert.Equal(t, []string{"pose", "collar-on"}, vars.Names())
		})
	}
}

func TestResolveOdds(t *testing.T) {
	vars := env.New()
	vars.Set("int", 40)
	vars.Set("float", 12.5)
	vars.Set("str", " 25 ")
	vars.Set("empty", nil)
	vars.Set("flag", true)
	vars.Set("off", false)
	vars.Set("word", "often")

	tests := []struct {
		name    string
		odds    scenario.Odds
		want    float64
		wantErr error
	}{
		{name: "unset means always", odds: scenario.Odds{}, want: 100},
		{name: "fixed", odds: scenario.Fixed(30), want: 30},
		{name: "int variable", odds: scenario.FromVariable("int"), want: 40},
		{name: "float variable", odds: scenario.FromVariable("float"), want: 12.5},
		{name: "numeric string", odds: scenario.FromVariable("str"), want: 25},
		{name: "variable without value", odds: scenario.FromVariable("empty"), want: 100},
		{name: "unbound", odds: scenario.FromVariable("nope"), wantErr: ErrUnboundVariable},
		{name: "true flag", odds: scenario.FromVariable("flag"), want: 1},
		{name: "false flag", odds: scenario.FromVariable("off"), want: 0},
		{name: "word", odds: scenario.FromVariable("word"), wantErr: ErrInvalidInstruction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveOdds(tt.odds, vars)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	s := parseScenario(t, `
- name: Mixed
  instructions:
    - text: Wear
      choose_item: {class: headwear}
    - text: Then
      odds: 60
      do:
        - choose_text:
            - {text: kneel, odds: 2}
            - {text: sit, odds: 5}
            - {text: stand}
        - text: Also
          choose_some_of:
            - {text: a, odds: 50}
            - {text: b, odds: 50}
            - {text: c, odds: 50}
    - choose_instruction:
        - {text: x, odds: 4}
        - {text: y, odds: 2}
`)
	items := append([]inventory.Item{{Class: "headwear", Description: "a hood", Odds: odds(3)}}, headwear...)

	run := func(seed string) []Event {
		rec := &Recorder{}
		_, err := New(Options{Inventory: inventory.New(items), Source: rng.NewSource(seed), Sink: rec}).Run(s)
		require.NoError(t, err)
		return rec.Events
	}

	for _, seed := range []string{"a", "b", "1234", "bedtime"} {
		assert.Equal(t, run(seed), run(seed), "seed %q", seed)
	}
}

func TestEventKind_JSON(t *testing.T) {
	events := []Event{heading("h"), line("l"), breakEvent}
	data, err := json.Marshal(events)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"kind":"heading","text":"h"},{"kind":"line","text":"l"},{"kind":"paragraph_break"}]`, string(data))

	var back []Event
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, events, back)

	assert.Error(t, json.Unmarshal([]byte(`[{"kind":"chapter"}]`), &back))
}

func TestTee(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	Tee(a, b).Emit(heading("x"))
	assert.Equal(t, a.Events, b.Events)
	assert.Len(t, a.Events, 1)
}
