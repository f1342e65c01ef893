package prompt

import (
	"fmt"
	"testing"

	"github.com/manifoldco/promptui"
	"github.com/stretchr/testify/assert"
)

func TestParseAnswer(t *testing.T) {
	assert.True(t, parseAnswer("y", false))
	assert.True(t, parseAnswer(" YES ", false))
	assert.False(t, parseAnswer("no", true))
	assert.False(t, parseAnswer("maybe", false))
	assert.True(t, parseAnswer("", true))
	assert.False(t, parseAnswer("", false))
}

func TestConfirmWithForce(t *testing.T) {
	ok, err := ConfirmWithForce("Abort everything?", true)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestIsAborted(t *testing.T) {
	assert.True(t, IsAborted(ErrAborted))
	assert.True(t, IsAborted(fmt.Errorf("prompt: %w", promptui.ErrInterrupt)))
	assert.False(t, IsAborted(promptui.ErrAbort))
	assert.False(t, IsAborted(nil))
}
