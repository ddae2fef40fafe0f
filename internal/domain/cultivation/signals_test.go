package cultivation_test

import (
	"testing"

	"github.com/jhoicas/cultivo-lab/internal/domain/cultivation"
	"github.com/stretchr/testify/assert"
)

func TestIndicatesPinning(t *testing.T) {
	cases := []struct {
		title, notes string
		want         bool
	}{
		{"Pinning!", "", true},
		{"", "first PINS showing on the side", true},
		{"Primordia", "", true},
		{"", "hyphal knots everywhere", true},
		{"pin set", "", true},
		{"Full colonization", "looks healthy", false},
		{"spinning the jar", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, cultivation.IndicatesPinning(tc.title, tc.notes), "%q / %q", tc.title, tc.notes)
	}
}

// Solo palabras completas de la lista: derivados y singulares no cuentan.
func TestIndicatesPinning_SoloPalabrasCompletas(t *testing.T) {
	for _, text := range []string{"pinheads forming", "pinned overnight", "a single knot", "pinhead", "knotty surface"} {
		assert.False(t, cultivation.IndicatesPinning(text, ""), "%q", text)
	}
	for _, text := range []string{"pins, pinheads", "(knots)", "pin-set", "PRIMORDIA"} {
		assert.True(t, cultivation.IndicatesPinning("", text), "%q", text)
	}
}
