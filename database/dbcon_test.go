package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gribdecode.com/config"
)

func TestConnString(t *testing.T) {
	cfg := &config.Config{PGHost: "db", PGPort: "5432", PGBase: "grib", PGUser: "parser", PGPass: "p@ss word"}
	assert.Equal(t, "postgres://parser:p%40ss%20word@db:5432/grib?pool_max_conns=100", ConnString(cfg))
}

func TestSchema(t *testing.T) {
	qs := Schema()
	require.Len(t, qs, 3)
	assert.Contains(t, qs[0], "EXISTS grib_data\n")
	assert.Contains(t, qs[0], "grib_data_pkey")
	assert.Contains(t, qs[1], "EXISTS grib_data_buff\n")
	assert.Contains(t, qs[1], "grib_data_buff_pkey")
	assert.True(t, strings.Contains(qs[2], "hashes"))
}

func TestFileHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.grib2")
	require.NoError(t, os.WriteFile(path, nil, 0644))
	h, err := FileHash(path)
	require.NoError(t, err)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", h)

	_, err = FileHash(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
