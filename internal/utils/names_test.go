package utils

import "testing"

func TestSpeciesName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"mistling", "Mistling"},
		{" MISTLING ", "Mistling"},
		{"ember  fox", "Ember Fox"},
		{"", ""},
		{"   ", ""},
		{"Galewing", "Galewing"},
	}
	for _, c := range cases {
		if got := SpeciesName(c.in); got != c.want {
			t.Fatalf("SpeciesName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
