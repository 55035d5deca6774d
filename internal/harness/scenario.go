package harness

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted run against a Director.
type Scenario struct {
	// Name is the scenario identifier and the golden file stem.
	Name string `yaml:"name"`

	Description string `yaml:"description,omitempty"`

	// Hooks install one-shot callbacks on named states before any step runs.
	Hooks []Hook `yaml:"hooks,omitempty"`

	// Steps run in order. At least one is required.
	Steps []Step `yaml:"steps"`

	// Expect is checked against the final director state, if present.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Step is one scenario instruction. Exactly one field is set.
type Step struct {
	Push        string `yaml:"push,omitempty"`
	Pop         bool   `yaml:"pop,omitempty"`
	Update      int    `yaml:"update,omitempty"`
	Physics     int    `yaml:"physics,omitempty"`
	Persist     string `yaml:"persist,omitempty"`
	Unpersist   string `yaml:"unpersist,omitempty"`
	AddChild    *Edge  `yaml:"add_child,omitempty"`
	RemoveChild *Edge  `yaml:"remove_child,omitempty"`
	Clear       bool   `yaml:"clear,omitempty"`
}

// Edge names a parent and child node.
type Edge struct {
	Parent string `yaml:"parent"`
	Child  string `yaml:"child"`
}

// Hook event names.
const (
	HookEnter  = "enter"
	HookUpdate = "update"
	HookExit   = "exit"
)

// Hook runs one action from inside a state's callback, the first time
// the callback fires.
type Hook struct {
	On       string `yaml:"on"`
	Node     string `yaml:"node"`
	Push     string `yaml:"push,omitempty"`
	Pop      bool   `yaml:"pop,omitempty"`
	AddChild string `yaml:"add_child,omitempty"`
}

// Expect describes the final state of a run. Nil fields are not checked.
type Expect struct {
	Stack      []string       `yaml:"stack,omitempty"`
	Persistent []string       `yaml:"persistent,omitempty"`
	Entered    []string       `yaml:"entered,omitempty"`
	Physics    map[string]int `yaml:"physics,omitempty"`
}

//go:embed schema.cue
var schemaSource string

var (
	schemaMu  sync.Mutex
	schemaVal cue.Value
	schemaErr error
	schemaSet bool
)

// scenarioSchema compiles the embedded schema once. Callers hold schemaMu.
func scenarioSchema() (cue.Value, error) {
	if !schemaSet {
		schemaSet = true
		v := cuecontext.New().CompileString(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile scenario schema: %w", err)
		} else {
			schemaVal = v.LookupPath(cue.ParsePath("#Scenario"))
			schemaErr = schemaVal.Err()
		}
	}
	return schemaVal, schemaErr
}

// LoadScenario reads and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario validates data against the scenario schema and decodes it.
func ParseScenario(data []byte) (*Scenario, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := checkSchema(raw); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	// Strict decode catches anything the schema lets through as open.
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func checkSchema(raw any) error {
	schemaMu.Lock()
	defer schemaMu.Unlock()

	schema, err := scenarioSchema()
	if err != nil {
		return err
	}
	doc := schema.Context().Encode(raw)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("encode scenario: %w", err)
	}
	if err := schema.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema: %s", cueerrors.Details(err, nil))
	}
	return nil
}

// validateScenario covers rules the schema cannot express.
func validateScenario(s *Scenario) error {
	for i, h := range s.Hooks {
		actions := 0
		if h.Push != "" {
			actions++
		}
		if h.Pop {
			actions++
		}
		if h.AddChild != "" {
			actions++
		}
		if actions != 1 {
			return fmt.Errorf("hooks[%d]: exactly one of push, pop, add_child is required", i)
		}
		if h.AddChild == h.Node {
			return fmt.Errorf("hooks[%d]: %s cannot add itself as a child", i, h.Node)
		}
	}
	for i, st := range s.Steps {
		for _, e := range []*Edge{st.AddChild, st.RemoveChild} {
			if e != nil && e.Parent == e.Child {
				return fmt.Errorf("steps[%d]: %s cannot be its own child", i, e.Parent)
			}
		}
	}
	return nil
}
