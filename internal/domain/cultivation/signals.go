package cultivation

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// pinKeywords lista exacta de palabras que indican inicio de fructificación.
var pinKeywords = map[string]struct{}{
	"pin":       {},
	"pins":      {},
	"pinning":   {},
	"primordia": {},
	"knots":     {},
}

var folder = cases.Fold()

// IndicatesPinning heurística de texto: true si título o notas contienen alguna palabra clave
// (sin distinguir mayúsculas). Es el único punto a reemplazar por una señal estructurada.
func IndicatesPinning(title, notes string) bool {
	return containsKeyword(title) || containsKeyword(notes)
}

func containsKeyword(text string) bool {
	if text == "" {
		return false
	}
	words := strings.FieldsFunc(folder.String(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if _, ok := pinKeywords[w]; ok {
			return true
		}
	}
	return false
}
