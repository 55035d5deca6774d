package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Passed(), "expectations failed: %v", result.Errors)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/does_not_exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Minimal(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: minimal
steps:
  - push: A
  - update: 2
  - add_child: {parent: A, child: B}
`))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	require.Len(t, s.Steps, 3)
	assert.Equal(t, "A", s.Steps[0].Push)
	assert.Equal(t, 2, s.Steps[1].Update)
	assert.Equal(t, &Edge{Parent: "A", Child: "B"}, s.Steps[2].AddChild)
	assert.Nil(t, s.Expect)
}

func TestParseScenario_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "malformed yaml",
			yaml: "name: [unclosed",
			want: "failed to parse YAML",
		},
		{
			name: "missing steps",
			yaml: "name: empty\n",
			want: "invalid scenario",
		},
		{
			name: "empty steps",
			yaml: "name: empty\nsteps: []\n",
			want: "invalid scenario",
		},
		{
			name: "bad scenario name",
			yaml: "name: Not Snake\nsteps:\n  - push: A\n",
			want: "invalid scenario",
		},
		{
			name: "unknown step",
			yaml: "name: typo\nsteps:\n  - pushh: A\n",
			want: "invalid scenario",
		},
		{
			name: "two operations in one step",
			yaml: "name: double\nsteps:\n  - {push: A, pop: true}\n",
			want: "invalid scenario",
		},
		{
			name: "zero update",
			yaml: "name: zero\nsteps:\n  - update: 0\n",
			want: "invalid scenario",
		},
		{
			name: "unknown top-level field",
			yaml: "name: extra\nsteps:\n  - pop: true\nflow: []\n",
			want: "invalid scenario",
		},
		{
			name: "hook with two actions",
			yaml: "name: hook\nhooks:\n  - {on: enter, node: A, push: B, pop: true}\nsteps:\n  - push: A\n",
			want: "exactly one of push, pop, add_child",
		},
		{
			name: "hook without action",
			yaml: "name: hook\nhooks:\n  - {on: exit, node: A}\nsteps:\n  - push: A\n",
			want: "exactly one of push, pop, add_child",
		},
		{
			name: "unknown hook event",
			yaml: "name: hook\nhooks:\n  - {on: draw, node: A, pop: true}\nsteps:\n  - push: A\n",
			want: "invalid scenario",
		},
		{
			name: "node is its own child",
			yaml: "name: loop\nsteps:\n  - add_child: {parent: A, child: A}\n",
			want: "cannot be its own child",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_NilScenario(t *testing.T) {
	_, err := Run(nil)
	assert.Error(t, err)
}

func TestRun_ExpectationFailure(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong_expect
steps:
  - push: A
  - update: 1
expect:
  stack: [B]
  physics:
    A: 1
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Passed())
	assert.Equal(t, []string{
		"stack: expected [B], got [A]",
		"physics A: expected 1, got 0",
	}, result.Errors)
}

func TestRun_HookAddsChildOnEnter(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: hook_child
hooks:
  - on: enter
    node: Level
    add_child: Player
steps:
  - push: Level
  - update: 2
  - physics: 2
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, []string{"Level", "Player"}, result.Entered)
	assert.Equal(t, map[string]int{"Level": 2, "Player": 2}, result.Physics)
	assert.Contains(t, result.Trace, "enter Player")
	assert.Contains(t, result.Trace, "update Player")
}

func TestRun_ClearExitsEverything(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: clear_all
steps:
  - push: A
  - push: B
  - persist: HUD
  - update: 1
  - clear: true
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)

	assert.Empty(t, result.Stack)
	assert.Empty(t, result.Persistent)
	assert.Empty(t, result.Entered)

	tail := result.Trace[len(result.Trace)-12:]
	assert.Equal(t, []string{
		"> clear",
		"exit B",
		"exit A",
		"exit HUD",
		"= stack []",
		"= persistent []",
	}, dropEvents(tail))
}

// dropEvents drops director event lines.
func dropEvents(lines []string) []string {
	var out []string
	for _, l := range lines {
		if len(l) > 0 && l[0] == '*' {
			continue
		}
		out = append(out, l)
	}
	return out
}

func TestRun_Deterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/persistent_overlay.yaml")
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, first.Events, second.Events)
}

func TestFormatTrace(t *testing.T) {
	r := &Result{Trace: []string{"> push A", "enter A"}}
	assert.Equal(t, "> push A\nenter A\n", string(FormatTrace(r)))
	assert.Empty(t, FormatTrace(&Result{}))
}
