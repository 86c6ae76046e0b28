package camera

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkfirstperson/extension/internal/config"
)

func TestDefaultTable_Parses(t *testing.T) {
	table, err := DefaultTable()
	require.NoError(t, err)

	assert.Equal(t, 0x09, table.EggHead)
	assert.Equal(t, 0x0a, table.EggAss)
	require.Len(t, table.Forms, 7)

	for i, f := range table.Forms {
		assert.Equal(t, i+1, f.ID, "forms are sorted by id")
	}
}

func TestTable_LookupPerEntry(t *testing.T) {
	table, err := DefaultTable()
	require.NoError(t, err)

	tests := []struct {
		name           string
		transformation int
		class          Class
		wantForm       string
		wantStrategy   Strategy
		wantMotion     MotionKind
	}{
		{"banjo idle uses base", 1, ClassIdle, "banjo", StrategyHead, ""},
		{"banjo flight", 1, ClassFlight, "banjo", StrategyRoot, ""},
		{"termite walk bobs", 2, ClassMove, "termite", StrategyRoot, MotionBob},
		{"termite idle sways", 2, ClassIdle, "termite", StrategyRoot, MotionIdleSway},
		{"pumpkin hop", 3, ClassMove, "pumpkin", StrategyRoot, MotionBob},
		{"walrus bone", 4, ClassMove, "walrus", StrategyBone, ""},
		{"croc bone", 5, ClassIdle, "croc", StrategyBone, ""},
		{"bee flight sway", 6, ClassFlight, "bee", StrategyRoot, MotionSway},
		{"washer waddle", 7, ClassMove, "washer", StrategyRoot, MotionSway},
		{"unknown form", 99, ClassMove, "", StrategyRoot, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, form := table.Lookup(tt.transformation, tt.class, nil)
			assert.Equal(t, tt.wantForm, form)
			assert.Equal(t, tt.wantStrategy, p.Strategy)
			assert.Equal(t, tt.wantMotion, p.Motion.Kind)
		})
	}
}

func TestTable_ClassKeepsBaseFields(t *testing.T) {
	table, err := DefaultTable()
	require.NoError(t, err)

	bee, _ := table.Form(6)
	flight := bee.Profiles[ClassFlight]
	assert.Equal(t, float32(36), flight.Height)
	assert.Equal(t, bee.Base.Forward, flight.Forward)
	assert.Equal(t, bee.Base.StaticHeight, flight.StaticHeight)
}

func TestTable_Overrides(t *testing.T) {
	table, err := DefaultTable()
	require.NoError(t, err)

	height := float32(99)
	smooth := float32(3)
	overrides := map[string]config.FormOverride{
		"walrus": {Height: &height, SmoothSpeed: &smooth},
	}

	p, _ := table.Lookup(4, ClassIdle, overrides)
	assert.Equal(t, height, p.Height)
	assert.Equal(t, smooth, p.SmoothSpeed)
	assert.Equal(t, float32(6), p.Forward, "unset fields keep the table value")

	// overrides never leak into the table
	again, _ := table.Lookup(4, ClassIdle, nil)
	assert.Equal(t, float32(12), again.Height)
}

func TestTable_Classify(t *testing.T) {
	table, err := DefaultTable()
	require.NoError(t, err)

	assert.Equal(t, ClassEgg, table.Classify(0x09, 0, 1))
	assert.Equal(t, ClassEgg, table.Classify(0x0a, 5, 1))
	assert.Equal(t, ClassFlight, table.Classify(0x24, 0, 1))
	assert.Equal(t, ClassOther, table.Classify(0x3b, 5, 1))
	assert.Equal(t, ClassMove, table.Classify(0x02, 1.5, 1))
	assert.Equal(t, ClassIdle, table.Classify(0x02, 1, 1))

	assert.True(t, table.IsFlight(0x24))
	assert.False(t, table.IsFlight(0x09))
	assert.True(t, table.IsEgg(0x09))
	assert.False(t, table.IsEgg(0x24))
}

func TestParseTable_Rejects(t *testing.T) {
	const states = "states: { eggHead: 0x09, eggAss: 0x0a }\nfallback: { strategy: root }\n"

	tests := []struct {
		name string
		body string
	}{
		{"malformed yaml", "states: [\n"},
		{"missing egg states", "fallback: { strategy: root }\n"},
		{"same egg states", "states: { eggHead: 0x09, eggAss: 0x09 }\nfallback: { strategy: root }\n"},
		{"state in two classes", "states: { eggHead: 0x09, eggAss: 0x0a, flight: [0x24], other: [0x24] }\nfallback: { strategy: root }\n"},
		{"fallback not root", "states: { eggHead: 0x09, eggAss: 0x0a }\nfallback: { strategy: head }\n"},
		{"unknown strategy", states + "forms:\n  x:\n    id: 1\n    base: { strategy: orbit }\n"},
		{"bone without bone", states + "forms:\n  x:\n    id: 1\n    base: { strategy: bone }\n"},
		{"unknown motion", states + "forms:\n  x:\n    id: 1\n    base: { strategy: root, motion: { kind: shake } }\n"},
		{"unknown class", states + "forms:\n  x:\n    id: 1\n    base: { strategy: root }\n    classes:\n      swim: {}\n"},
		{"bad class override", states + "forms:\n  x:\n    id: 1\n    base: { strategy: root }\n    classes:\n      move: { strategy: warp }\n"},
		{"missing id", states + "forms:\n  x:\n    base: { strategy: root }\n"},
		{"duplicate id", states + "forms:\n  x:\n    id: 1\n    base: { strategy: root }\n  y:\n    id: 1\n    base: { strategy: root }\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTable([]byte(tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTable)
		})
	}
}

func TestLoadTable(t *testing.T) {
	embedded, err := LoadTable("")
	require.NoError(t, err)
	assert.Len(t, embedded.Forms, 7)

	path := filepath.Join(t.TempDir(), "forms.yaml")
	body := "states: { eggHead: 0x09, eggAss: 0x0a }\nfallback: { strategy: root, staticHeight: 5 }\nforms:\n  banjo:\n    id: 1\n    base: { strategy: root, staticHeight: 70 }\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	custom, err := LoadTable(path)
	require.NoError(t, err)
	require.Len(t, custom.Forms, 1)
	p, form := custom.Lookup(1, ClassIdle, nil)
	assert.Equal(t, "banjo", form)
	assert.Equal(t, float32(70), p.StaticHeight)

	_, err = LoadTable(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
