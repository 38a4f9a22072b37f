package slip

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// defaultTranslations maps English thread color names to the Spanish the
// embroidery team reads. Longest keys win so "light pink" never collapses
// to plain "pink".
var defaultTranslations = map[string]string{
	"white":       "Blanco",
	"black":       "Negro",
	"brown":       "Marrón",
	"blue":        "Azul",
	"navy":        "Azul Marino",
	"red":         "Rojo",
	"pink":        "Rosa",
	"light pink":  "Rosa Claro",
	"hot pink":    "Rosa Fucsia",
	"salmon pink": "Rosa Salmón",
	"purple":      "Morado",
	"lilac":       "Lila",
	"gray":        "Gris",
	"grey":        "Gris",
	"gold":        "Dorado",
	"silver":      "Plateado",
	"beige":       "Beige",
	"green":       "Verde",
	"olive":       "Verde Oliva",
	"yellow":      "Amarillo",
	"champagne":   "Champán",
}

// ColorTable translates thread color names for label rendering.
type ColorTable struct {
	translations map[string]string
	keys         []string // longest first
}

// DefaultColorTable returns the built-in translation table.
func DefaultColorTable() *ColorTable {
	return newColorTable(defaultTranslations)
}

// LoadColorTable reads a YAML sidecar of color translations and merges it
// over the built-in table, so a file only needs the colors it changes.
func LoadColorTable(path string) (*ColorTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "slip: read color table %s", path)
	}

	// The YAML has a top-level "colors" key
	var wrapper struct {
		Colors map[string]string `yaml:"colors"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "slip: parse color table")
	}

	merged := make(map[string]string, len(defaultTranslations)+len(wrapper.Colors))
	for k, v := range defaultTranslations {
		merged[k] = v
	}
	for k, v := range wrapper.Colors {
		merged[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return newColorTable(merged), nil
}

func newColorTable(translations map[string]string) *ColorTable {
	t := &ColorTable{translations: translations}
	for k := range translations {
		t.keys = append(t.keys, k)
	}
	sort.Slice(t.keys, func(i, j int) bool {
		if len(t.keys[i]) != len(t.keys[j]) {
			return len(t.keys[i]) > len(t.keys[j])
		}
		return t.keys[i] < t.keys[j]
	})
	return t
}

// Translate appends the Spanish name to a thread color, e.g. "Hot Pink"
// becomes "Hot Pink (Rosa Fucsia)". Unknown colors pass through unchanged.
func (t *ColorTable) Translate(color string) string {
	if color == "" {
		return color
	}
	base := strings.TrimSpace(color)
	lower := strings.ToLower(base)
	for _, key := range t.keys {
		if strings.Contains(lower, key) {
			return fmt.Sprintf("%s (%s)", base, t.translations[key])
		}
	}
	return base
}
