package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "RICentities.csv", NewS3FileLoaderWithClient("b", "", nil).ObjectKey("RICentities.csv"))
	assert.Equal(t, "ref/2024/RICentities.csv", NewS3FileLoaderWithClient("b", "ref/2024/", nil).ObjectKey("RICentities.csv"))
}
