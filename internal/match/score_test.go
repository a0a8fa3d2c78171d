package match

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTags(t *testing.T) {
	got := NewSignal([]string{" #Burnout", "burnout", "", "  ", "Solitude "}, "").Tags()
	assert.Equal(t, []string{"burnout", "solitude"}, got)
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"short tokens dropped", "I am so very tired", []string{"tired", "very"}},
		{"punctuation removed", "don't! stop, believing.", []string{"believing", "dont", "stop"}},
		{"accents kept", "Fatigué et épuisé", []string{"fatigué", "épuisé"}},
		{"duplicates collapse", "Night night NIGHT", []string{"night"}},
		{"empty", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.text).sorted())
		})
	}
}

func TestScore_Symmetric(t *testing.T) {
	a := NewSignal([]string{"grief", "loss", "work"}, "losing my father changed everything")
	b := NewSignal([]string{"loss", "anxiety"}, "everything changed after losing work")

	assert.Equal(t, Score(a, b), Score(b, a))
	assert.Equal(t, TagScore(a, b), TagScore(b, a))
}

func TestScore_IdenticalIsOne(t *testing.T) {
	text := "alpha bravo charlie delta echo1 foxtrot golf1 hotel india juliet kilo1 lima1 mike1"
	a := NewSignal([]string{"burnout", "solitude"}, text)
	b := NewSignal([]string{"solitude", "burnout"}, text)

	assert.InDelta(t, 1.0, TagScore(a, b), 1e-9)
	assert.InDelta(t, 1.0, TextScore(a, b), 1e-9)
	assert.InDelta(t, 1.0, Score(a, b), 1e-9)
}

func TestScore_DisjointIsZero(t *testing.T) {
	a := NewSignal([]string{"burnout"}, "exhausted every single morning")
	b := NewSignal([]string{"insomnia"}, "cannot sleep through nights")

	assert.Equal(t, 0.0, Score(a, b))
}

func TestScore_EmptyIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Score(NewSignal(nil, ""), NewSignal(nil, "")))
}

func TestScore_WorkedExample(t *testing.T) {
	u := NewSignal([]string{"burnout", "solitude"},
		"exhausted overwhelmed sleepless lonely anxious at work")
	c := NewSignal([]string{"burnout", "insomnia"},
		"exhausted overwhelmed sleepless lonely anxious every night")

	assert.InDelta(t, 1.0/3.0, TagScore(u, c), 1e-9)
	assert.InDelta(t, 5.0/12.0, TextScore(u, c), 1e-9)
	assert.InDelta(t, 0.358, Score(u, c), 0.001)
}

func TestTextScore_Saturates(t *testing.T) {
	words := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		words = append(words, "word"+strings.Repeat("x", i))
	}
	text := strings.Join(words, " ")
	assert.Equal(t, 1.0, TextScore(NewSignal(nil, text), NewSignal(nil, text)))
}
