// Package catalog lists the cognitive tests known to mindscore and how the scalar
// score of each one is read from a stored result.
package catalog

// ValueField names the result field carrying the score of a test.
type ValueField string

const (
	// FieldScore is the generic level/count score.
	FieldScore ValueField = "score"
	// FieldWPM is the words-per-minute of the typing test.
	FieldWPM ValueField = "wpm"
	// FieldReactionTime is the reaction time in milliseconds of the reflex test.
	FieldReactionTime ValueField = "reactionTime"
)

// Test type identifiers.
const (
	ChimpTest      = "chimpTest"
	TypingSpeed    = "typingSpeed"
	VisualMemory   = "visualMemory"
	NumberMemory   = "numberMemory"
	VerbalMemory   = "verbalMemory"
	SequenceMemory = "sequenceMemory"
	SymbolMemory   = "symbolMemory"
	Reflex         = "reflex"
)

// Definition describes one test.
type Definition struct {
	Label         string     `json:"label"`
	TestType      string     `json:"testType"`
	ValueField    ValueField `json:"valueField"`
	LowerIsBetter bool       `json:"lowerIsBetter"`
	Unit          string     `json:"unit"`
	// LegacyFile is the file name used by the flat JSON storage.
	LegacyFile string `json:"-"`
}

//nolint:gochecknoglobals
var definitions = []Definition{
	{Label: "Test du Chimpanzé", TestType: ChimpTest, ValueField: FieldScore, Unit: "niveau", LegacyFile: "chimpTest.json"},
	{Label: "Vitesse de frappe", TestType: TypingSpeed, ValueField: FieldWPM, Unit: "wpm", LegacyFile: "typingSpeed.json"},
	{Label: "Mémoire visuelle", TestType: VisualMemory, ValueField: FieldScore, Unit: "niveau", LegacyFile: "visualMemory.json"},
	{Label: "Mémoire des chiffres", TestType: NumberMemory, ValueField: FieldScore, Unit: "chiffres", LegacyFile: "numberMemory.json"},
	{Label: "Mémoire verbale", TestType: VerbalMemory, ValueField: FieldScore, Unit: "mots", LegacyFile: "verbalMemory.json"},
	{Label: "Mémoire de séquence", TestType: SequenceMemory, ValueField: FieldScore, Unit: "niveau", LegacyFile: "sequenceMemory.json"},
	{Label: "Mémoire des symboles", TestType: SymbolMemory, ValueField: FieldScore, Unit: "niveau", LegacyFile: "symbolMemory.json"},
	{
		Label: "Réflexes", TestType: Reflex, ValueField: FieldReactionTime, LowerIsBetter: true,
		Unit: "ms", LegacyFile: "reflex-results.json",
	},
}

// All returns every test in display order. The returned slice is a copy.
func All() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)

	return out
}

// Names returns the test types in display order.
func Names() []string {
	names := make([]string, 0, len(definitions))
	for _, def := range definitions {
		names = append(names, def.TestType)
	}

	return names
}

// Lookup returns the definition of testType.
func Lookup(testType string) (Definition, bool) {
	for _, def := range definitions {
		if def.TestType == testType {
			return def, true
		}
	}

	return Definition{}, false
}
