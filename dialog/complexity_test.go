package dialog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsComplex(t *testing.T) {
	c := NewComplexityClassifier()

	tests := []struct {
		name    string
		message string
		want    bool
	}{
		{"short plain message", "tell me about IS621", false},
		{"five words no triggers", "what is the exam date", false},
		{"multiple question marks", "what? where? when?", true},
		{"over ten words", "could you please give me a very detailed rundown of everything available", true},
		{"comparison phrase", "compare the two courses", true},
		{"career topic lowercase", "my CAREER goals", true},
		{"exact case trigger", "is DevSecOps covered", true},
		{"exact trigger needs matching case", "Traditional lectures", false},
		{"branded course phrase", "AI and Machine Learning", true},
		{"data science any case", "Data Science basics", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsComplex(tt.message))
		})
	}
}

func TestIsComplexExactlyThreeQuestionMarks(t *testing.T) {
	c := NewComplexityClassifier()
	assert.True(t, c.IsComplex("???"))
}
