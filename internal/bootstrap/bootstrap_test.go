package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulgirard/ricardo-gph-analysis/internal/config"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/loader"
	ioloader "github.com/paulgirard/ricardo-gph-analysis/pkg/loader/io"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeReference(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	p := loader.DefaultPaths()
	files := map[string]string{
		p.Entities: "GPH_code,GPH_name,continent\nFR,France,Europe\nUK,United Kingdom,Europe\n",
		p.Statuses: `{"FR": {"name": "France", "years": {"1850": [{"status": "Sovereign"}]}},
			"UK": {"name": "United Kingdom", "years": {"1850": [{"status": "Sovereign"}]}}}`,
		p.RICEntities: "RICname,type,parent_entity,GPH_code\nFrance,GPH_entity,,FR\nUnited Kingdom,GPH_entity,,UK\n",
		p.RICGroups:   "RICname_group,RICname_part\n",
		p.Areas:       "GPH_code,GPH_name,continent,RICname\n",
		p.Colonial:    "RICname,geographical_area,continental\n",
		p.Informal:    "informal_GPH_code,GPH_code,start_year,end_year\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestLoadReferenceAndClient(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = writeReference(t)

	fl, err := FileLoader(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &ioloader.IOFileLoader{}, fl)

	tables, err := LoadReference(context.Background(), cfg)
	require.NoError(t, err)
	assert.Len(t, tables.Entities, 2)

	client, err := NewClient(cfg, tables, nil)
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestOptionalServices(t *testing.T) {
	cfg := config.Default()

	archive, err := OpenArchive(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, archive)

	kf, err := Keyfunc(cfg)
	require.NoError(t, err)
	assert.Nil(t, kf)

	cfg.DatabaseURL = ""
	_, _, err = OpenStore(context.Background(), cfg)
	require.Error(t, err)
}
