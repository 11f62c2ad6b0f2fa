package dbconn

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeOptionFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "replica.cnf")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadOptionFile(t *testing.T) {
	path := writeOptionFile(t, `[client]
host = replica1.internal
port = 3307
user = maint
password = s3cret
database = prod
`)
	params, err := LoadOptionFile(path)
	require.NoError(t, err)
	assert.Equal(t, "replica1.internal", params.Host)
	assert.Equal(t, 3307, params.Port)
	assert.Equal(t, "maint", params.User)
	require.NotNil(t, params.Password)
	assert.Equal(t, "s3cret", *params.Password)
	assert.Equal(t, "prod", params.Database)
}

func TestLoadOptionFileEmptyPath(t *testing.T) {
	params, err := LoadOptionFile("")
	require.NoError(t, err)
	assert.Equal(t, &OptionFile{}, params)
}

func TestLoadOptionFileMissing(t *testing.T) {
	_, err := LoadOptionFile(filepath.Join(t.TempDir(), "nope.cnf"))
	assert.Error(t, err)
}

func TestLoadOptionFileNoClientSection(t *testing.T) {
	path := writeOptionFile(t, "[mysqld]\nport = 3306\n")
	params, err := LoadOptionFile(path)
	require.NoError(t, err)
	assert.Empty(t, params.User)
	assert.Nil(t, params.Password)
}

func TestLoadOptionFileEmptyPassword(t *testing.T) {
	path := writeOptionFile(t, "[client]\nuser = maint\npassword =\n")
	params, err := LoadOptionFile(path)
	require.NoError(t, err)
	require.NotNil(t, params.Password)
	assert.Empty(t, *params.Password)
}
