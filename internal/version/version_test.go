package version

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasVersionArg(t *testing.T) {
	assert.True(t, HasVersionArg([]string{"svetserialu", "--version"}))
	assert.True(t, HasVersionArg([]string{"svetserialu", "-v"}))
	assert.False(t, HasVersionArg([]string{"svetserialu"}))
	assert.False(t, HasVersionArg([]string{"svetserialu", "--debug"}))
}

func TestShowVersion(t *testing.T) {
	var b bytes.Buffer
	ShowVersion(&b)
	assert.Contains(t, b.String(), "svetserialu v"+Version)
}
