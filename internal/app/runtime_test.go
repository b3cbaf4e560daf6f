package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInTestModeFollowsRefresh(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
