// Package replay drives recorded PTY sessions through the classification
// pipeline. Scenarios are YAML documents listing timed steps.
package replay

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pkt.systems/hybridterm/schema"
)

// Scenario is a recorded session.
type Scenario struct {
	Name string `yaml:"name,omitempty"`
	// Mode defaults to abstracted.
	Mode schema.RenderMode `yaml:"mode,omitempty"`
	Cols int               `yaml:"cols,omitempty"`
	Rows int               `yaml:"rows,omitempty"`
	// Settle is how long to keep the clock running after the last step so
	// debounce timers can fire. Zero uses DefaultSettle.
	Settle time.Duration `yaml:"settle,omitempty"`
	Steps  []Step        `yaml:"steps"`
}

// Step is one scenario action. After delays the action; a step may consist
// of a delay alone.
type Step struct {
	After    time.Duration `yaml:"after,omitempty"`
	Data     string        `yaml:"data,omitempty"`
	Submit   *string       `yaml:"submit,omitempty"`
	Exit     *int          `yaml:"exit,omitempty"`
	Compose  string        `yaml:"compose,omitempty"`
	Mode     string        `yaml:"mode,omitempty"`
	Viewport *Size         `yaml:"viewport,omitempty"`
	Teammate *Teammate     `yaml:"teammate,omitempty"`
}

// Size is a viewport change.
type Size struct {
	Cols int `yaml:"cols"`
	Rows int `yaml:"rows"`
}

// Teammate posts a message attributed to a named teammate.
type Teammate struct {
	Name string `yaml:"name"`
	Text string `yaml:"text"`
}

// DefaultSettle is the tail appended to every replay.
const DefaultSettle = 5 * time.Second

// Compose step values.
const (
	ComposeStart = "start"
	ComposeEnd   = "end"
)

// Load reads and validates a scenario file.
func Load(path string) (Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return Scenario{}, err
	}
	defer f.Close()
	sc, err := Decode(f)
	if err != nil {
		return Scenario{}, fmt.Errorf("scenario %s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes a scenario from YAML bytes.
func Parse(data []byte) (Scenario, error) {
	return Decode(bytes.NewReader(data))
}

// Decode decodes and validates a scenario. Unknown keys are rejected.
func Decode(r io.Reader) (Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return Scenario{}, errors.New("empty scenario")
		}
		return Scenario{}, fmt.Errorf("decode scenario: %w", err)
	}
	if err := sc.normalize(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

func (sc *Scenario) normalize() error {
	mode, err := schema.ParseRenderMode(string(sc.Mode))
	if err != nil {
		return err
	}
	sc.Mode = mode
	if sc.Cols == 0 && sc.Rows == 0 {
		sc.Cols, sc.Rows = 120, 40
	}
	if _, err := schema.NormalizeViewport(sc.Cols, sc.Rows); err != nil {
		return err
	}
	if sc.Settle < 0 {
		return errors.New("settle must not be negative")
	}
	if sc.Settle == 0 {
		sc.Settle = DefaultSettle
	}
	for i, step := range sc.Steps {
		if err := step.validate(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

func (s Step) validate() error {
	if s.After < 0 {
		return errors.New("after must not be negative")
	}
	actions := 0
	if s.Data != "" {
		actions++
	}
	if s.Submit != nil {
		actions++
	}
	if s.Exit != nil {
		actions++
	}
	if s.Compose != "" {
		actions++
		switch strings.ToLower(s.Compose) {
		case ComposeStart, ComposeEnd:
		default:
			return fmt.Errorf("compose must be %q or %q", ComposeStart, ComposeEnd)
		}
	}
	if s.Mode != "" {
		actions++
		if _, err := schema.ParseRenderMode(s.Mode); err != nil {
			return err
		}
	}
	if s.Viewport != nil {
		actions++
		if _, err := schema.NormalizeViewport(s.Viewport.Cols, s.Viewport.Rows); err != nil {
			return err
		}
	}
	if s.Teammate != nil {
		actions++
		if strings.TrimSpace(s.Teammate.Name) == "" || strings.TrimSpace(s.Teammate.Text) == "" {
			return errors.New("teammate needs name and text")
		}
	}
	if actions > 1 {
		return errors.New("a step carries at most one action")
	}
	if actions == 0 && s.After == 0 {
		return errors.New("empty step")
	}
	return nil
}
