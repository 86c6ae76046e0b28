package camera

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/bkfirstperson/extension/internal/config"
)

//go:embed forms.yaml
var defaultForms []byte

// ErrInvalidTable is wrapped by every form table validation failure.
var ErrInvalidTable = errors.New("invalid form table")

// Strategy selects how a profile computes the eye position.
type Strategy string

const (
	StrategyRoot Strategy = "root"
	StrategyHead Strategy = "head"
	StrategyBone Strategy = "bone"
)

// MotionKind selects a synthetic motion generator.
type MotionKind string

const (
	MotionNone     MotionKind = "none"
	MotionBob      MotionKind = "bob"
	MotionSway     MotionKind = "sway"
	MotionIdleSway MotionKind = "idleSway"
)

// Class groups behavior states that share an eye profile.
type Class string

const (
	ClassIdle   Class = "idle"
	ClassMove   Class = "move"
	ClassFlight Class = "flight"
	ClassEgg    Class = "egg"
	ClassOther  Class = "other"
)

var classes = []Class{ClassIdle, ClassMove, ClassFlight, ClassEgg, ClassOther}

// Motion parameters. Frequency is in degrees of phase per second.
type Motion struct {
	Kind      MotionKind `yaml:"kind" json:"kind"`
	Frequency float32    `yaml:"frequency" json:"frequency"`
	Amplitude float32    `yaml:"amplitude" json:"amplitude"`
	Dip       float32    `yaml:"dip" json:"dip,omitempty"`
	Roll      float32    `yaml:"roll" json:"roll,omitempty"`
}

// Active reports whether the motion produces any offset.
func (m Motion) Active() bool {
	return m.Kind != "" && m.Kind != MotionNone && m.Amplitude != 0
}

// Profile is the eye tuning for one form in one state class.
type Profile struct {
	Strategy     Strategy `yaml:"strategy" json:"strategy"`
	Bone         int      `yaml:"bone" json:"bone,omitempty"`
	Height       float32  `yaml:"height" json:"height"`
	Forward      float32  `yaml:"forward" json:"forward"`
	StaticHeight float32  `yaml:"staticHeight" json:"staticHeight"`
	SmoothSpeed  float32  `yaml:"smoothSpeed" json:"smoothSpeed,omitempty"`
	Motion       Motion   `yaml:"motion" json:"motion"`
}

// Form is one player transformation with its per-class profiles.
type Form struct {
	Name     string            `json:"name"`
	ID       int               `json:"id"`
	Base     Profile           `json:"base"`
	Profiles map[Class]Profile `json:"profiles"`
}

// Table maps (transformation, behavior state) to an eye profile.
type Table struct {
	EggHead  int           `json:"eggHead"`
	EggAss   int           `json:"eggAss"`
	Fallback Profile       `json:"fallback"`
	Forms    []*Form       `json:"forms"`
	States   map[int]Class `json:"states"`

	byID map[int]*Form
}

type tableFile struct {
	States struct {
		EggHead int   `yaml:"eggHead"`
		EggAss  int   `yaml:"eggAss"`
		Flight  []int `yaml:"flight"`
		Other   []int `yaml:"other"`
	} `yaml:"states"`
	Fallback Profile `yaml:"fallback"`
	Forms    map[string]struct {
		ID      int                  `yaml:"id"`
		Base    Profile              `yaml:"base"`
		Classes map[string]yaml.Node `yaml:"classes"`
	} `yaml:"forms"`
}

// DefaultTable parses the embedded form table.
func DefaultTable() (*Table, error) {
	return ParseTable(defaultForms)
}

// LoadTable reads a form table from path, or the embedded table when path is
// empty.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read form table: %w", err)
	}
	return ParseTable(data)
}

// ParseTable decodes and validates a YAML form table.
func ParseTable(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}

	t := &Table{
		EggHead:  f.States.EggHead,
		EggAss:   f.States.EggAss,
		Fallback: f.Fallback,
		States:   map[int]Class{},
		byID:     map[int]*Form{},
	}

	if t.EggHead == 0 || t.EggAss == 0 || t.EggHead == t.EggAss {
		return nil, fmt.Errorf("%w: eggHead and eggAss must be distinct non-zero states", ErrInvalidTable)
	}
	if err := t.addStates(ClassEgg, []int{t.EggHead, t.EggAss}); err != nil {
		return nil, err
	}
	if err := t.addStates(ClassFlight, f.States.Flight); err != nil {
		return nil, err
	}
	if err := t.addStates(ClassOther, f.States.Other); err != nil {
		return nil, err
	}

	if err := validateProfile("fallback", t.Fallback); err != nil {
		return nil, err
	}
	if t.Fallback.Strategy != StrategyRoot {
		return nil, fmt.Errorf("%w: fallback must use the root strategy", ErrInvalidTable)
	}

	for name, entry := range f.Forms {
		if entry.ID <= 0 {
			return nil, fmt.Errorf("%w: form %q has no transformation id", ErrInvalidTable, name)
		}
		if other, dup := t.byID[entry.ID]; dup {
			return nil, fmt.Errorf("%w: forms %q and %q share id %d", ErrInvalidTable, name, other.Name, entry.ID)
		}
		if err := validateProfile(name, entry.Base); err != nil {
			return nil, err
		}

		form := &Form{Name: name, ID: entry.ID, Base: entry.Base, Profiles: map[Class]Profile{}}
		for cls, node := range entry.Classes {
			if !validClass(Class(cls)) {
				return nil, fmt.Errorf("%w: form %q has unknown class %q", ErrInvalidTable, name, cls)
			}
			// decoding over a copy of base keeps the fields the class omits
			p := entry.Base
			if err := node.Decode(&p); err != nil {
				return nil, fmt.Errorf("%w: form %q class %q: %v", ErrInvalidTable, name, cls, err)
			}
			if err := validateProfile(name+"."+cls, p); err != nil {
				return nil, err
			}
			form.Profiles[Class(cls)] = p
		}

		t.Forms = append(t.Forms, form)
		t.byID[form.ID] = form
	}

	sort.Slice(t.Forms, func(i, j int) bool { return t.Forms[i].ID < t.Forms[j].ID })
	return t, nil
}

func (t *Table) addStates(cls Class, ids []int) error {
	for _, id := range ids {
		if prev, dup := t.States[id]; dup {
			return fmt.Errorf("%w: state 0x%x listed as both %s and %s", ErrInvalidTable, id, prev, cls)
		}
		t.States[id] = cls
	}
	return nil
}

func validClass(c Class) bool {
	for _, known := range classes {
		if c == known {
			return true
		}
	}
	return false
}

func validateProfile(where string, p Profile) error {
	switch p.Strategy {
	case StrategyRoot, StrategyHead:
	case StrategyBone:
		if p.Bone <= 0 {
			return fmt.Errorf("%w: %s uses the bone strategy without a bone", ErrInvalidTable, where)
		}
	default:
		return fmt.Errorf("%w: %s has unknown strategy %q", ErrInvalidTable, where, p.Strategy)
	}

	switch p.Motion.Kind {
	case "", MotionNone, MotionBob, MotionSway, MotionIdleSway:
	default:
		return fmt.Errorf("%w: %s has unknown motion kind %q", ErrInvalidTable, where, p.Motion.Kind)
	}
	if p.SmoothSpeed < 0 {
		return fmt.Errorf("%w: %s has a negative smoothSpeed", ErrInvalidTable, where)
	}
	return nil
}

// Form returns the form registered for a transformation id.
func (t *Table) Form(id int) (*Form, bool) {
	f, ok := t.byID[id]
	return f, ok
}

// Classify maps a behavior state to its class. Unlisted states count as
// movement when the speed indicator exceeds moveThreshold.
func (t *Table) Classify(state int, speed, moveThreshold float32) Class {
	if cls, ok := t.States[state]; ok {
		return cls
	}
	if speed > moveThreshold {
		return ClassMove
	}
	return ClassIdle
}

// IsFlight reports whether state is a flight-class state.
func (t *Table) IsFlight(state int) bool {
	return t.States[state] == ClassFlight
}

// IsEgg reports whether state is either egg-firing state.
func (t *Table) IsEgg(state int) bool {
	return state == t.EggHead || state == t.EggAss
}

// Lookup resolves the profile for a transformation in a class and applies
// the per-form overrides. The form name is empty when the fallback is used.
func (t *Table) Lookup(transformation int, cls Class, overrides map[string]config.FormOverride) (Profile, string) {
	form, ok := t.byID[transformation]
	if !ok {
		return t.Fallback, ""
	}

	p, ok := form.Profiles[cls]
	if !ok {
		p = form.Base
	}

	if o, ok := overrides[form.Name]; ok {
		if o.Height != nil {
			p.Height = *o.Height
		}
		if o.Forward != nil {
			p.Forward = *o.Forward
		}
		if o.StaticHeight != nil {
			p.StaticHeight = *o.StaticHeight
		}
		if o.SmoothSpeed != nil {
			p.SmoothSpeed = *o.SmoothSpeed
		}
	}
	return p, form.Name
}
