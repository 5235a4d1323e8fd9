package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jwebster45206/constraint/pkg/inventory"
	"github.com/jwebster45206/constraint/pkg/rng/rngtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func decodeInstruction(t *testing.T, src string) Instruction {
	t.Helper()
	var ins Instruction
	require.NoError(t, yaml.Unmarshal([]byte(src), &ins))
	return ins
}

func TestInstruction_UnmarshalKinds(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		validate func(*testing.T, Instruction)
	}{
		{
			name: "plain text",
			yaml: `text: Kneel.`,
			validate: func(t *testing.T, ins Instruction) {
				assert.Equal(t, KindText, ins.Kind)
				assert.Equal(t, "Kneel.", ins.Text)
				assert.False(t, ins.Odds.IsSet())
			},
		},
		{
			name: "choose_item with selector",
			yaml: `
text: Put on
odds: 40
choose_item:
  class: headwear
  category: leather
  not_category: [locking, metal]
`,
			validate: func(t *testing.T, ins Instruction) {
				assert.Equal(t, KindChooseItem, ins.Kind)
				p, ok := ins.Odds.Fixed()
				assert.True(t, ok)
				assert.Equal(t, 40, p)
				assert.Equal(t, inventory.Selector{
					Class:       "headwear",
					Category:    "leather",
					NotCategory: inventory.StringList{"locking", "metal"},
				}, ins.Selector)
			},
		},
		{
			name: "choose_many_items with single not_category",
			yaml: `
text: Gather
choose_many_items: {class: toy, not_category: noisy}
`,
			validate: func(t *testing.T, ins Instruction) {
				assert.Equal(t, KindChooseManyItems, ins.Kind)
				assert.Equal(t, inventory.StringList{"noisy"}, ins.Selector.NotCategory)
			},
		},
		{
			name: "choose_text with entry set",
			yaml: `
text: Position
choose_text:
  - text: kneeling
    odds: 3
    set: kneeling
  - text: standing
    set: {name: posture, value: 2}
`,
			validate: func(t *testing.T, ins Instruction) {
				require.Equal(t, KindChooseText, ins.Kind)
				require.Len(t, ins.Choices, 2)
				w, ok := ins.Choices[0].Weight()
				assert.True(t, ok)
				assert.Equal(t, 3, w)
				assert.Equal(t, &SetStatement{Name: "kneeling", Value: true}, ins.Choices[0].Set)
				assert.Equal(t, &SetStatement{Name: "posture", Value: 2}, ins.Choices[1].Set)
			},
		},
		{
			name: "choose_some_of",
			yaml: `
choose_some_of:
  - {text: a, odds: 50}
`,
			validate: func(t *testing.T, ins Instruction) {
				assert.Equal(t, KindChooseSomeOf, ins.Kind)
				assert.Len(t, ins.Choices, 1)
			},
		},
		{
			name: "do with variable odds and nested children",
			yaml: `
text: Then
odds: punish_odds
set: punished
do:
  - text: one
  - choose_instruction:
      - {text: two, odds: 3}
      - {text: three}
`,
			validate: func(t *testing.T, ins Instruction) {
				assert.Equal(t, KindDo, ins.Kind)
				name, ok := ins.Odds.Variable()
				assert.True(t, ok)
				assert.Equal(t, "punish_odds", name)
				assert.Equal(t, &SetStatement{Name: "punished", Value: true}, ins.Set)
				require.Len(t, ins.Children, 2)
				assert.Equal(t, KindChooseInstruction, ins.Children[1].Kind)
				require.Len(t, ins.Children[1].Children, 2)
				w, ok := ins.Children[1].Children[0].Weight()
				assert.True(t, ok)
				assert.Equal(t, 3, w)
				_, ok = ins.Children[1].Children[1].Weight()
				assert.False(t, ok)
			},
		},
		{
			name: "choose_some_instructions",
			yaml: `
choose_some_instructions:
  - {text: a, odds: 10}
`,
			validate: func(t *testing.T, ins Instruction) {
				assert.Equal(t, KindChooseSomeInstructions, ins.Kind)
			},
		},
		{
			name: "legacy input with two selectors keeps the first by priority",
			yaml: `
do:
  - text: ignored
choose_text:
  - text: wins
`,
			validate: func(t *testing.T, ins Instruction) {
				assert.Equal(t, KindChooseText, ins.Kind)
				assert.Equal(t, []Kind{KindDo}, ins.IgnoredSelectors())
				assert.Nil(t, ins.Children)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, decodeInstruction(t, tt.yaml))
		})
	}
}

func TestInstruction_UnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "malformed not_category", yaml: "choose_item: {class: a, not_category: {x: y}}"},
		{name: "unknown key", yaml: "txt: typo"},
		{name: "not a mapping", yaml: "- text: a"},
		{name: "float odds", yaml: "text: a\nodds: 2.5"},
		{name: "nested malformed", yaml: "do:\n  - choose_many_items: {not_category: [[a]]}"},
		{name: "set without name", yaml: "text: a\nset: {value: 3}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ins Instruction
			err := yaml.Unmarshal([]byte(tt.yaml), &ins)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInstruction), "expected ErrInvalidInstruction, got %v", err)
		})
	}
}

func TestOdds(t *testing.T) {
	assert.Equal(t, "always", Odds{}.String())
	assert.Equal(t, "25%", Fixed(25).String())
	assert.Equal(t, "$x", FromVariable("x").String())

	_, ok := FromVariable("x").Fixed()
	assert.False(t, ok)
	_, ok = Fixed(3).Variable()
	assert.False(t, ok)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const bedScenarios = `
- name: Bedtime
  odds: 3
  instructions:
    - text: Lie down.
- name: Tucked in
  instructions:
    - text: Pull up the blanket.
`

func TestLoadAndMatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bed_one.yaml", bedScenarios)
	writeFile(t, dir, "bed_two.yaml", "- name: Late\n  instructions:\n    - text: Stay up.\n")
	writeFile(t, dir, "chair.yaml", "- name: Chair\n  instructions:\n    - text: Sit.\n")
	writeFile(t, dir, "notes.txt", "not a scenario")

	files, err := Match(dir, []string{"bed_*"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "bed_one.yaml"), filepath.Join(dir, "bed_two.yaml")}, files)

	files, err = Match(dir, []string{"chair.yaml", "chair"})
	require.NoError(t, err)
	assert.Len(t, files, 2, "each pattern contributes its own matches")

	files, err = Match(dir, []string{"*"})
	require.NoError(t, err)
	assert.Len(t, files, 3)

	scenarios, err := LoadFiles(files)
	require.NoError(t, err)
	require.Len(t, scenarios, 4)
	assert.Equal(t, "Bedtime", scenarios[0].Name)
	assert.Equal(t, "bed_one.yaml", scenarios[0].File)
	assert.Equal(t, "bed_two.yaml", scenarios[2].File)

	names, err := List(dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Bedtime":   "bed_one.yaml",
		"Tucked in": "bed_one.yaml",
		"Late":      "bed_two.yaml",
		"Chair":     "chair.yaml",
	}, names)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.yaml", "- name: Broken\n  instructions:\n    - choose_item: {not_category: {a: b}}\n")

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInstruction))
	assert.Contains(t, err.Error(), "broken.yaml")

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestChoose(t *testing.T) {
	scenarios, err := Parse([]byte(bedScenarios))
	require.NoError(t, err)

	// weights 3 and 1: rolls 1-3 pick Bedtime, 4 picks Tucked in
	got, err := Choose(&rngtest.Scripted{Ints: []int{3}}, scenarios)
	require.NoError(t, err)
	assert.Equal(t, "Tucked in", got.Name)

	got, err = Choose(&rngtest.Scripted{Ints: []int{2}}, scenarios)
	require.NoError(t, err)
	assert.Equal(t, "Bedtime", got.Name)

	_, err = Choose(&rngtest.Scripted{}, nil)
	assert.ErrorIs(t, err, ErrNoScenario)
}

func TestSuggest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bedtime.yaml", bedScenarios)
	writeFile(t, dir, "bedroom.yaml", bedScenarios)
	writeFile(t, dir, "kitchen.yaml", bedScenarios)

	assert.Equal(t, []string{"bedtime"}, Suggest(dir, "bedtim", 3))
	assert.Equal(t, []string{"bedroom", "bedtime"}, Suggest(dir, "bed", 3), "substring matches tie on distance")
	assert.Equal(t, []string{"bedroom"}, Suggest(dir, "bed", 1))
	assert.Equal(t, []string{"kitchen"}, Suggest(dir, "kitchn*", 3))
	assert.Empty(t, Suggest(dir, "garage", 3))
}

func TestValidate(t *testing.T) {
	scenarios, err := Parse([]byte(`
- name: Messy
  instructions:
    - {}
    - choose_some_of:
        - {text: a}
    - choose_some_instructions:
        - text: b
    - choose_item: {}
      do:
        - text: c
`))
	require.NoError(t, err)
	require.Len(t, scenarios, 1)

	problems := Validate(scenarios[0])
	assert.Equal(t, []string{
		`instruction #0 of the "Messy" scenario: instruction has no text, selector or set`,
		`instruction #1 of the "Messy" scenario: choose_some_of entry #0 needs odds`,
		`instruction #2 of the "Messy" scenario: choose_some_instructions entry #0 needs numeric odds`,
		`instruction #3 of the "Messy" scenario: do is ignored because choose_item takes priority`,
		`instruction #3 of the "Messy" scenario: choose_item needs a class or a category`,
	}, problems)

	assert.Contains(t, Validate(Scenario{}), "scenario has no name")
}
