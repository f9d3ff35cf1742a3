package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildAnalysisPrompt(t *testing.T) {
	prompt := BuildAnalysisPrompt(3.25)

	assert.Contains(t, prompt, `"duration":"3.3s"`)
	assert.NotContains(t, prompt, "%s")
	assert.NotContains(t, prompt, "%!")
	assert.Contains(t, prompt, "noCoughDetected")
	assert.Contains(t, prompt, "coughType")
	assert.Contains(t, prompt, "potentialCauses")
}

func TestFormatSeconds_RoundsHalvesUp(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{3.25, "3.3"},
		{0.45, "0.5"},
		{2.0, "2.0"},
		{0.2, "0.2"},
		{1.94, "1.9"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, formatSeconds(tc.in), "formatSeconds(%v)", tc.in)
	}
}

func TestSystemInstruction(t *testing.T) {
	instruction := SystemInstruction()
	assert.NotEmpty(t, instruction)
	assert.True(t, strings.Contains(instruction, "cough"))
}
