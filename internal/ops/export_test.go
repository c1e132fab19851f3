package ops

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sadopc/spacescope/internal/model"
)

func sampleTree() *model.Node {
	root := model.NewRoot("/root", 1009, 12288)
	root.Loaded = true
	root.Children = []*model.Node{
		{Path: "/root/sub", Name: "sub", IsDir: true, Size: 600, Usage: 8192},
		{Path: "/root/empty", Name: "empty", IsDir: true, Loaded: true, Children: []*model.Node{}},
		{Path: "/root/a.txt", Name: "a.txt", Size: 400, Usage: 4096},
		{Path: "/root/link", Name: "link", Size: 9, Flag: model.FlagSymlink},
		{Path: "/root/denied", Name: "denied", IsDir: true, Flag: model.FlagError},
	}
	return root
}

func TestExport_Writer(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, sampleTree(), "test-version"); err != nil {
		t.Fatalf("Export returned error: %v", err)
	}

	out := strings.TrimSpace(buf.String())
	for _, want := range []string{
		`"progname":"spacescope"`,
		`"progver":"test-version"`,
		`"name":"/root"`,
		`"name":"a.txt","asize":400,"dsize":4096`,
		`"symlink":true`,
		`"read_error":true`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in export output, got:\n%s", want, out)
		}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		t.Fatalf("export output is not valid JSON: %v\n%s", err, out)
	}
	if len(raw) != 4 {
		t.Fatalf("expected ncdu format array with 4 elements, got %d", len(raw))
	}
}

func TestExport_UnloadedMarker(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, sampleTree(), ""); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if !strings.Contains(out, `[{"name":"sub","asize":600,"dsize":8192,"unloaded":true}]`) {
		t.Fatalf("expected unloaded sub directory, got:\n%s", out)
	}
	if strings.Contains(out, `"name":"empty","asize":0,"unloaded":true`) {
		t.Fatalf("expanded empty directory must not be marked unloaded:\n%s", out)
	}
	if !strings.Contains(out, `"progver":"dev"`) {
		t.Fatalf("expected default version, got:\n%s", out)
	}
}

func TestExport_NilRoot(t *testing.T) {
	if err := Export(&bytes.Buffer{}, nil, "x"); err == nil {
		t.Fatal("expected error for nil root")
	}
	if err := ExportJSON(nil, filepath.Join(t.TempDir(), "x.json"), "x"); err == nil {
		t.Fatal("expected error for nil root")
	}
}

func TestExportJSON_RoundTrip(t *testing.T) {
	target := filepath.Join(t.TempDir(), "output.json")

	if err := ExportJSON(sampleTree(), target, "test"); err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(target + ".lock"); !os.IsNotExist(err) {
		t.Fatalf("expected lock file to be removed, stat err = %v", err)
	}

	root, err := ImportJSON(target)
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if root.Path != "/root" || root.Name != "root" || root.Size != 1009 {
		t.Fatalf("unexpected root: %+v", root)
	}
	if !root.Expanded() || len(root.Children) != 5 {
		t.Fatalf("expected 5 loaded children, got %+v", root.Children)
	}

	byName := map[string]*model.Node{}
	for _, c := range root.Children {
		byName[c.Name] = c
	}
	if sub := byName["sub"]; !sub.IsDir || sub.Children != nil || sub.Path != "/root/sub" {
		t.Fatalf("sub should be an unloaded directory: %+v", sub)
	}
	if empty := byName["empty"]; !empty.Expanded() || len(empty.Children) != 0 {
		t.Fatalf("empty should be loaded with no children: %+v", empty)
	}
	if link := byName["link"]; link.Flag&model.FlagSymlink == 0 || link.IsDir {
		t.Fatalf("link flags lost: %+v", link)
	}
	if denied := byName["denied"]; denied.Flag&model.FlagError == 0 {
		t.Fatalf("denied flags lost: %+v", denied)
	}
}

func TestExportJSON_OverwriteExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.json")

	if err := ExportJSON(sampleTree(), path, "test"); err != nil {
		t.Fatalf("first export failed: %v", err)
	}

	rootB := model.NewRoot("/root", 7, 7)
	rootB.Loaded = true
	rootB.Children = []*model.Node{{Path: "/root/b.txt", Name: "b.txt", Size: 7, Usage: 7}}
	if err := ExportJSON(rootB, path, "test"); err != nil {
		t.Fatalf("second export failed: %v", err)
	}

	imported, err := ImportJSON(path)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if imported.Size != 7 {
		t.Fatalf("expected overwritten export size 7, got %d", imported.Size)
	}
	if len(imported.Children) != 1 || imported.Children[0].Name != "b.txt" {
		t.Fatalf("expected overwritten export to contain b.txt, got %+v", imported.Children)
	}
}

func TestExportJSON_MissingDirectory(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nope", "out.json")
	if err := ExportJSON(sampleTree(), target, "test"); err == nil {
		t.Fatal("expected error writing into a missing directory")
	}
	if _, err := os.Stat(filepath.Dir(target)); !os.IsNotExist(err) {
		t.Fatalf("export must not create directories, stat err = %v", err)
	}
}

func TestImportJSON_NcduDirectorySizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ncdu.json")
	data := `[1,2,{"progname":"ncdu","progver":"2.3","timestamp":1},
[{"name":"/data","asize":4096,"dsize":4096},
 {"name":"big.bin","asize":100000,"dsize":102400},
 [{"name":"logs","asize":4096,"dsize":4096},
  {"name":"app.log","asize":5000,"dsize":8192}]]]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	root, err := ImportJSON(path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if root.Size != 105000 {
		t.Fatalf("expected recursive root size 105000, got %d", root.Size)
	}
	logs := root.Children[1]
	if logs.Path != "/data/logs" || logs.Size != 5000 || logs.Children[0].Path != "/data/logs/app.log" {
		t.Fatalf("unexpected logs node: %+v", logs)
	}
}

func TestImportJSON_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"not json":     "{",
		"short array":  "[1,0,{}]",
		"root not dir": `[1,0,{},{"name":"/x"}]`,
		"empty root":   `[1,0,{},[]]`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".json")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := ImportJSON(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	if _, err := ImportJSON(filepath.Join(dir, "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
