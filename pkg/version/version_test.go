package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	s := Get()
	assert.NotEmpty(t, s)
	assert.Equal(t, byte('v'), s[0])
}
