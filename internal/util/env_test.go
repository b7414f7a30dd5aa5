package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("START_YEAR", "1834")
	t.Setenv("DEBUG", "true")
	t.Setenv("MAX_YEAR_GAP", "ten")
	t.Setenv("LOG_FORMAT", "maybe")

	assert.Equal(t, 1834, GetEnvInt("START_YEAR", 1800))
	assert.Equal(t, 10, GetEnvInt("MAX_YEAR_GAP", 10), "unparsable keeps default")
	assert.Equal(t, 5, GetEnvInt("PARALLEL_RATIOS_UNSET", 5))
	assert.True(t, GetEnvBool("DEBUG", false))
	assert.False(t, GetEnvBool("LOG_FORMAT", false))
	assert.Equal(t, "fallback", GetEnvString("DATA_DIR_UNSET", "fallback"))
	assert.Equal(t, "", GetEnv("DATA_DIR_UNSET"))
}
