package csv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecords(t *testing.T) {
	content := "\ufeffRICname,type, parent_entity\n" +
		"Bombay,locality,British India\n" +
		",,\n" +
		"\"Sweden, Norway\",group\n"

	records, err := ParseRecords([]byte(content), "RICname", "type")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Bombay", records[0].Get("RICname"))
	assert.Equal(t, "British India", records[0].Get("parent_entity"))
	assert.Equal(t, "Sweden, Norway", records[1].Get("RICname"))
	assert.Equal(t, "", records[1].Get("parent_entity"))
}

func TestParseRecords_Errors(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		required []string
	}{
		{"empty", "", nil},
		{"missing column", "RICname,type\nFrance,GPH_entity\n", []string{"GPH_code"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecords([]byte(tt.content), tt.required...)
			require.Error(t, err)
		})
	}
}
