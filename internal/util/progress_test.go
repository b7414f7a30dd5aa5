package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchProgress(t *testing.T) {
	p := NewBatchProgress(4)
	assert.Equal(t, 0, p.Percentage())

	p.Built()
	p.Built()
	p.Built()
	p.Failed()
	assert.Equal(t, 62, p.Percentage())

	p.Resolved()
	p.Resolved()
	p.Resolved()
	assert.Equal(t, 100, p.Percentage())
	assert.Equal(t, "built 3/4, resolved 3/4, failed 1", p.String())

	assert.Equal(t, 100, NewBatchProgress(0).Percentage())
}
