package catalog

import (
	"testing"

	"github.com/longbridgeapp/assert"
)

func TestLookup(t *testing.T) {
	def, ok := Lookup(Reflex)
	assert.True(t, ok)
	assert.True(t, def.LowerIsBetter)
	assert.Equal(t, FieldReactionTime, def.ValueField)
	assert.Equal(t, "ms", def.Unit)

	def, ok = Lookup(TypingSpeed)
	assert.True(t, ok)
	assert.False(t, def.LowerIsBetter)
	assert.Equal(t, FieldWPM, def.ValueField)

	_, ok = Lookup("tetris")
	assert.False(t, ok)
}

func TestAll_OnlyReflexIsLowerBetter(t *testing.T) {
	all := All()
	assert.Equal(t, 8, len(all))

	for _, def := range all {
		assert.Equal(t, def.TestType == Reflex, def.LowerIsBetter)
		assert.True(t, def.LegacyFile != "")
	}

	all[0].Label = "changed"
	assert.Equal(t, "Test du Chimpanzé", All()[0].Label)
}

func TestNames(t *testing.T) {
	names := Names()
	assert.Equal(t, ChimpTest, names[0])
	assert.Equal(t, Reflex, names[len(names)-1])
}
