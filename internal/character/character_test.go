package character

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Elena":       "elena",
		"bot_Elena":   "elena",
		"Elena_bot":   "elena",
		"Sir Gideon!": "sir_gideon",
		"elena":       "elena",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := Normalize("bot_Elena Rodriguez")
	assert.Equal(t, n, Normalize(n))
}
