package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"shingeki-no-kyojin", "shingeki no kyojin"},
		{"  one__piece  ", "one piece"},
		{"Boku no   Hero\tAcademia", "Boku no Hero Academia"},
		{"---", ""},
		{"", ""},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeTitle(tc.in))
		})
	}
}

func TestSlugify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"Attack on Titan", "attack-on-titan"},
		{"Shingeki no Kyojin: The Final Season", "shingeki-no-kyojin-the-final-season"},
		{"Pokémon: Sol & Lua", "pokemon-sol-lua"},
		{"  --Dr. STONE--  ", "dr-stone"},
		{"Ação!!!", "acao"},
		{"", ""},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Slugify(tc.in))
		})
	}
}

func TestSlugifyIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"Attack on Titan",
		"Kimetsu no Yaiba — Yuukaku-hen",
		"Re:Zero kara Hajimeru Isekai Seikatsu",
		"Pokémon",
		"!!!",
		"naruto-shippuden",
		"進撃の巨人 Season 2",
	}
	for _, in := range inputs {
		once := Slugify(in)
		assert.Equal(t, once, Slugify(once), "input %q", in)
	}
}
