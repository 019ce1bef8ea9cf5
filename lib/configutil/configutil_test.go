package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string            `json:"name" yaml:"name"`
	Port  int               `json:"port" yaml:"port"`
	Extra map[string]string `json:"extra" yaml:"extra"`
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.yml"), []byte("name: base\nport: 80\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.local.yml"), []byte("port: 8080\n"), 0644))

	out, err := ReadConfig[sample](filepath.Join(dir, "app.yml"))
	require.NoError(t, err)
	require.Equal(t, sample{Name: "base", Port: 8080}, out)
}

func TestReadConfigNotFound(t *testing.T) {
	_, err := ReadConfig[sample](filepath.Join(t.TempDir(), "missing.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.json5"), []byte(`{name: "root", port: 1}`), 0644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	t.Cleanup(func() { os.Chdir(wd) })

	out, err := ReadRecursively[sample]("app.json5")
	require.NoError(t, err)
	require.Equal(t, "root", out.Name)
}

func TestReadConfigExpandsEnv(t *testing.T) {
	t.Setenv("TICKETSCOUT_TEST_KEY", "sg-123")
	dir := t.TempDir()
	path := filepath.Join(dir, "app.json5")
	body := `{name: "${TICKETSCOUT_TEST_KEY}", extra: {price: "$40", missing: "${TICKETSCOUT_UNSET_KEY}"}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	out, err := ReadConfig[sample](path)
	require.NoError(t, err)
	require.Equal(t, "sg-123", out.Name)
	require.Equal(t, map[string]string{"price": "$40", "missing": ""}, out.Extra)
}

func TestReadConfigOnlyLocal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.local.yaml"), []byte("name: local\n"), 0644))

	out, err := ReadConfig[sample](filepath.Join(dir, "app.yaml"))
	require.NoError(t, err)
	require.Equal(t, "local", out.Name)
}

func TestLocalPath(t *testing.T) {
	require.Equal(t, "conf/ticketscout.local.json5", LocalPath("conf/ticketscout.json5"))
	require.Equal(t, "settings.local", LocalPath("settings"))
}
