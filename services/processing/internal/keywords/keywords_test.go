package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func words(s Set) []string {
	out := make([]string, 0, len(s))
	for w := range s {
		out = append(out, w)
	}
	return out
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"short tokens dropped", "Go Developer, AWS!!", []string{"developer"}},
		{"punctuation stripped inside words", "Node.js back-end", []string{"nodejs", "backend"}},
		{"newlines and tabs separate", "kubernetes\nterraform\tpython", []string{"kubernetes", "terraform", "python"}},
		{"duplicates collapse", "Docker docker DOCKER", []string{"docker"}},
		{"digits kept", "k8s 2024 html5", []string{"2024", "html5"}},
		{"empty", "", []string{}},
		{"non ascii only", "日本語 ñññ", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.want, words(Extract(tt.text)))
		})
	}
}

func TestExtract_Deterministic(t *testing.T) {
	text := "Senior Golang engineer building distributed systems"
	assert.Equal(t, Extract(text), Extract(text))
}

func TestUnion(t *testing.T) {
	union := Union("golang services", "services postgres", "")
	assert.ElementsMatch(t, []string{"golang", "services", "postgres"}, words(union))
	assert.True(t, union.Has("postgres"))
	assert.False(t, union.Has("java"))
	assert.Empty(t, Union())
}
