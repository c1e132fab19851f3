package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sadopc/spacescope/internal/ops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createScanFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]int{
		"big/data.bin":     100_000,
		"big/nested/b.go":  2_000,
		"small.txt":        10,
		".cache/blob":      50_000,
		"logs/app.log":     30_000,
		"logs/old/rotated": 5_000,
	}
	for rel, size := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x"), size), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(root, "empty"), 0o755))
	return root
}

// runCLI executes the command tree with an isolated config location.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	var out, errOut bytes.Buffer
	cmd := NewRootCommand("test")
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func lineIndex(t *testing.T, out, needle string) int {
	t.Helper()
	for i, line := range strings.Split(out, "\n") {
		if strings.Contains(line, needle) {
			return i
		}
	}
	t.Fatalf("%q not found in output:\n%s", needle, out)
	return -1
}

func TestScan_ListsChildrenLargestFirst(t *testing.T) {
	root := createScanFixture(t)

	out, err := runCLI(t, "scan", root)
	require.NoError(t, err)

	resolved, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, resolved), "output should start with the root path:\n%s", out)

	big := lineIndex(t, out, "big/")
	cache := lineIndex(t, out, ".cache/")
	logs := lineIndex(t, out, "logs/")
	small := lineIndex(t, out, "small.txt")
	assert.Less(t, big, cache)
	assert.Less(t, cache, logs)
	assert.Less(t, logs, small)

	assert.NotContains(t, out, "data.bin", "depth 1 lists only the root's children")
}

func TestScan_DepthAndExclusions(t *testing.T) {
	root := createScanFixture(t)

	out, err := runCLI(t, "scan", "--depth", "2", "--exclude", filepath.Join(root, ".cache"), root)
	require.NoError(t, err)

	assert.NotContains(t, out, ".cache")
	assert.Contains(t, out, "data.bin")
	assert.Contains(t, out, "nested/")
	assert.NotContains(t, out, "b.go", "third level stays unlisted")
}

func TestScan_ExportAndImport(t *testing.T) {
	root := createScanFixture(t)
	exportPath := filepath.Join(t.TempDir(), "scan.json")

	out, err := runCLI(t, "scan", "--export", exportPath, root)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported to "+exportPath)

	imported, err := ops.ImportJSON(exportPath)
	require.NoError(t, err)
	require.True(t, imported.Expanded())

	var big bool
	for _, c := range imported.Children {
		if c.Name == "big" {
			big = true
			assert.Nil(t, c.Children, "unlisted directories come back unloaded")
			assert.GreaterOrEqual(t, c.Size, int64(102_000))
		}
	}
	assert.True(t, big, "big should be in the export")

	out, err = runCLI(t, "scan", "--import", exportPath)
	require.NoError(t, err)
	assert.Contains(t, out, "big/")
	assert.Contains(t, out, "small.txt")
}

func TestScan_ExportToStdout(t *testing.T) {
	root := createScanFixture(t)

	out, err := runCLI(t, "scan", "--export", "-", root)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "[1, 0, {"), "stdout should hold only JSON:\n%s", out)
	assert.Contains(t, out, `"unloaded":true`)
}

func TestScan_Errors(t *testing.T) {
	root := createScanFixture(t)
	file := filepath.Join(root, "small.txt")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing path", []string{"scan", filepath.Join(root, "nope")}, "no such file"},
		{"file root", []string{"scan", file}, "not a directory"},
		{"negative depth", []string{"scan", "--depth", "-1", root}, "--depth"},
		{"import with target", []string{"scan", "--import", "x.json", root}, "--import"},
		{"bad log level", []string{"scan", "--log-level", "loud", root}, "log level"},
		{"bad port", []string{"scan", "--ssh-port", "0", root}, "port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestResolveSettings_FlagsOverrideConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
concurrency: 2
log_level: warn
exclude: [/from/config]
display:
  small_below: 1 MB
`), 0o644))

	root, opts := newRootCommand("test")
	scan, _, err := root.Find([]string{"scan"})
	require.NoError(t, err)
	require.NoError(t, scan.ParseFlags([]string{
		"--config", cfgPath, "-j", "6", "--exclude", "/a,/b", "--hide-hidden", "--grey-below", "5 MB",
	}))

	cfg, err := resolveSettings(scan, opts)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Concurrency)
	assert.Equal(t, "warn", cfg.LogLevel, "unset flags keep the file value")
	assert.Equal(t, []string{"/from/config", "/a", "/b"}, cfg.Exclude)

	filters, err := displayFilters(cfg)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), filters.SmallBelow)
	assert.Equal(t, int64(5_000_000), filters.GreyBelow)
	assert.True(t, filters.GreySmall)
	assert.True(t, filters.HideHidden)
	assert.False(t, filters.HideSmall)
}

func TestRootCommand_Version(t *testing.T) {
	out, err := runCLI(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "test")
}

func TestScan_SymlinkedRootHonoursExclusions(t *testing.T) {
	realDir := createScanFixture(t)
	link := filepath.Join(t.TempDir(), "link")
	require.NoError(t, os.Symlink(realDir, link))

	out, err := runCLI(t, "scan", "--exclude", filepath.Join(link, "big"), link)
	require.NoError(t, err)
	assert.NotContains(t, out, "big/")
	assert.Contains(t, out, "logs/")
}

func TestResolveExclusion(t *testing.T) {
	realDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(realDir, "cache"), 0o755))
	resolvedReal, err := filepath.EvalSymlinks(realDir)
	require.NoError(t, err)
	link := filepath.Join(t.TempDir(), "link")
	require.NoError(t, os.Symlink(realDir, link))

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"existing path through link", filepath.Join(link, "cache"), filepath.Join(resolvedReal, "cache")},
		{"missing path under link", filepath.Join(link, "later"), filepath.Join(resolvedReal, "later")},
		{"path outside root", "/elsewhere/x", "/elsewhere/x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveExclusion(tt.in, link, resolvedReal)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScan_RowsShowApparentSize(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "f"), bytes.Repeat([]byte("x"), 100), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "d"), 0o755))
	for i := 0; i < 10; i++ {
		name := filepath.Join(root, "d", string(rune('a'+i)))
		require.NoError(t, os.WriteFile(name, []byte("x"), 0o644))
	}

	out, err := runCLI(t, "scan", root)
	require.NoError(t, err)

	// Ten one-byte files take more blocks than one 100 byte file, but the
	// listing is ordered and labelled by apparent size.
	f := lineIndex(t, out, "100 B  f")
	d := lineIndex(t, out, "10 B  d/")
	assert.Less(t, f, d)
}
