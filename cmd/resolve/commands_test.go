package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulgirard/ricardo-gph-analysis/internal/config"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/loader"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyYearFlags(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().IntVar(&fromYear, "from", 0, "")
	cmd.Flags().IntVar(&toYear, "to", 0, "")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--to", "1860"}))

	c := config.Default()
	applyYearFlags(cmd, c)
	assert.Equal(t, 1787, c.StartYear, "unset flags keep the settings")
	assert.Equal(t, 1860, c.EndYear)
	assert.Equal(t, 10, c.BatchSize)
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	p := loader.DefaultPaths()
	files := map[string]string{
		p.Entities:    "GPH_code,GPH_name,continent\nFR,France,Europe\n",
		p.Statuses:    `{"FR": {"name": "France", "years": {"1850": [{"status": "Sovereign"}]}}}`,
		p.RICEntities: "RICname,type,parent_entity,GPH_code\nFrance,GPH_entity,,FR\nParis,locality,Ile de France,\n",
		p.RICGroups:   "RICname_group,RICname_part\n",
		p.Areas:       "GPH_code,GPH_name,continent,RICname\n",
		p.Colonial:    "RICname,geographical_area,continental\n",
		p.Informal:    "informal_GPH_code,GPH_code,start_year,end_year\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	t.Setenv("DATA_DIR", dir)

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetArgs([]string{"check", "--config", filepath.Join(dir, "absent.yaml")})
	err := rootCmd.Execute()

	require.Error(t, err, "Paris names an unknown parent")
	assert.Contains(t, out.String(), "1 entities, 2 units, 0 groups: 1 problems")
}
