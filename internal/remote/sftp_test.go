package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	pathpkg "path"
	"testing"
	"time"

	"github.com/sadopc/spacescope/internal/exclude"
	"github.com/sadopc/spacescope/internal/model"
	"github.com/sadopc/spacescope/internal/scanner"
	"golang.org/x/crypto/ssh"
)

func remoteTree() *fakeSFTP {
	return newFakeSFTP(map[string]fakeNode{
		"/root":                  {mode: os.ModeDir, children: []string{"keep", "skip", ".hidden", "file.txt", "link", "pipe"}},
		"/root/keep":             {mode: os.ModeDir, children: []string{"inside.txt"}},
		"/root/keep/inside.txt":  {mode: 0, size: 5},
		"/root/skip":             {mode: os.ModeDir, children: []string{"ignored.txt"}},
		"/root/skip/ignored.txt": {mode: 0, size: 9},
		"/root/.hidden":          {mode: 0, size: 11},
		"/root/file.txt":         {mode: 0, size: 7},
		"/root/link":             {mode: os.ModeSymlink, size: 3, target: "/root/keep"},
		"/root/pipe":             {mode: os.ModeNamedPipe},
	})
}

func TestComputeSizeOverSFTP(t *testing.T) {
	fsys := newFS(remoteTree(), nil)
	engine := scanner.NewEngine(fsys, scanner.DefaultOptions())

	totals, err := engine.ComputeSize(context.Background(), "/root", exclude.New("/root/skip"), nil)
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}

	// keep/inside.txt + .hidden + file.txt + the link itself; the link target
	// is not followed and the pipe does not count.
	if totals.Bytes != 5+11+7+3 {
		t.Fatalf("unexpected size: %d", totals.Bytes)
	}
	if totals.Usage != 4*defaultRemoteBlockSize {
		t.Fatalf("unexpected usage: %d", totals.Usage)
	}
}

func TestExpandOverSFTP(t *testing.T) {
	fsys := newFS(remoteTree(), nil)
	loader := scanner.NewLoader(scanner.NewEngine(fsys, scanner.DefaultOptions()), scanner.WithNodeFlag(model.FlagUsageEstimated))

	children, err := loader.Expand(context.Background(), "/root", exclude.New("/root/skip"), nil)
	if err != nil {
		t.Fatalf("expand failed: %v", err)
	}

	got := make([]string, 0, len(children))
	for _, c := range children {
		got = append(got, c.Name)
		if c.Flag&model.FlagUsageEstimated == 0 {
			t.Errorf("%s: expected estimated-usage flag", c.Name)
		}
	}
	want := []string{".hidden", "file.txt", "keep", "link", "pipe"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("children = %v, want %v", got, want)
	}

	keep := children[2]
	if !keep.IsDir || keep.Size != 5 || keep.Children != nil {
		t.Fatalf("unexpected keep node: %+v", keep)
	}
	link := children[3]
	if link.IsDir || link.Flag&model.FlagSymlink == 0 || link.Size != 3 {
		t.Fatalf("unexpected link node: %+v", link)
	}
	if children[4].Size != 0 {
		t.Fatalf("pipe should have zero size, got %d", children[4].Size)
	}
}

func TestExpandOverSFTP_UnreadableChildFlagged(t *testing.T) {
	client := newFakeSFTP(map[string]fakeNode{
		"/root":        {mode: os.ModeDir, children: []string{"denied"}},
		"/root/denied": {mode: os.ModeDir, errOnRead: true},
	})
	loader := scanner.NewLoader(scanner.NewEngine(newFS(client, nil), scanner.DefaultOptions()))

	children, err := loader.Expand(context.Background(), "/root", exclude.New(), nil)
	if err != nil {
		t.Fatalf("expand failed: %v", err)
	}
	if len(children) != 1 || children[0].Flag&model.FlagError == 0 {
		t.Fatalf("expected flagged denied dir, got %+v", children)
	}
}

func TestReadDirOnFileReportsNotDirectory(t *testing.T) {
	fsys := newFS(remoteTree(), nil)

	_, err := fsys.ReadDir(context.Background(), "/root/file.txt")
	if scanner.Classify(err) != scanner.KindNotDirectory {
		t.Fatalf("expected not-directory, got %v (%v)", scanner.Classify(err), err)
	}

	_, err = fsys.ReadDir(context.Background(), "/root/missing")
	if scanner.Classify(err) != scanner.KindNotFound {
		t.Fatalf("expected not-found, got %v (%v)", scanner.Classify(err), err)
	}
}

func TestReadDirHonoursCancelledContext(t *testing.T) {
	fsys := newFS(remoteTree(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := fsys.ReadDir(ctx, "/root"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestResolve(t *testing.T) {
	client := newFakeSFTP(map[string]fakeNode{
		"/home/me":         {mode: os.ModeDir},
		"/home/me/notes":   {mode: 0, size: 1},
		"/home/me/current": {mode: os.ModeSymlink, target: "/home/me"},
	})
	client.cwd = "/home/me"
	fsys := newFS(client, nil)

	root, err := fsys.Resolve("")
	if err != nil || root != "/home/me" {
		t.Fatalf("Resolve(\"\") = %q, %v", root, err)
	}
	root, err = fsys.Resolve("current")
	if err != nil || root != "/home/me" {
		t.Fatalf("Resolve(current) = %q, %v", root, err)
	}
	if _, err := fsys.Resolve("/home/me/notes"); err == nil {
		t.Fatal("expected error for file root")
	}
	if _, err := fsys.Resolve("/nowhere"); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestFSJoinAndBase(t *testing.T) {
	fsys := newFS(remoteTree(), nil)
	if got := fsys.Join("/root", "keep"); got != "/root/keep" {
		t.Fatalf("Join = %q", got)
	}
	if got := fsys.Join("/", "etc"); got != "/etc" {
		t.Fatalf("Join = %q", got)
	}
	if got := fsys.Base("/root/keep"); got != "keep" {
		t.Fatalf("Base = %q", got)
	}
}

func TestEstimateDiskUsage(t *testing.T) {
	tests := []struct {
		size, blockSize int64
		want            int64
	}{
		{size: 0, blockSize: 4096, want: 0},
		{size: -1, blockSize: 4096, want: 0},
		{size: 1, blockSize: 4096, want: 4096},
		{size: 4096, blockSize: 4096, want: 4096},
		{size: 4097, blockSize: 4096, want: 8192},
		{size: 1, blockSize: 512, want: 512},
		{size: 1, blockSize: 0, want: defaultRemoteBlockSize},
	}

	for _, tt := range tests {
		if got := estimateDiskUsage(tt.size, tt.blockSize); got != tt.want {
			t.Fatalf("estimateDiskUsage(%d, %d) = %d, want %d", tt.size, tt.blockSize, got, tt.want)
		}
	}
}

func TestCleanRemotePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: "."},
		{in: ".", want: "."},
		{in: "/tmp/../var", want: "/var"},
		{in: `C:\temp\x`, want: "C:/temp/x"},
	}

	for _, tc := range tests {
		if got := cleanRemotePath(tc.in); got != tc.want {
			t.Fatalf("cleanRemotePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDialRejectsBadPort(t *testing.T) {
	if _, err := Dial(context.Background(), Config{Target: "me@host", Port: 0}); err == nil {
		t.Fatal("expected port error")
	}
	if _, err := Dial(context.Background(), Config{Target: "nohost", Port: 22}); err == nil {
		t.Fatal("expected target error")
	}
}

func TestConnectSSH_RespectsContextCancellation(t *testing.T) {
	origDial := dialContext
	origNewClientConn := sshNewClientConn
	t.Cleanup(func() {
		dialContext = origDial
		sshNewClientConn = origNewClientConn
	})

	dialCalled := false
	handshakeCalled := false

	dialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
		dialCalled = true
		<-ctx.Done()
		return nil, ctx.Err()
	}
	sshNewClientConn = func(net.Conn, string, *ssh.ClientConfig) (ssh.Conn, <-chan ssh.NewChannel, <-chan *ssh.Request, error) {
		handshakeCalled = true
		return nil, nil, nil, errors.New("unexpected handshake call")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := connectSSH(ctx, "example.com:22", &ssh.ClientConfig{
		User:            "user",
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !dialCalled {
		t.Fatal("expected dial to be called")
	}
	if handshakeCalled {
		t.Fatal("did not expect SSH handshake to start after canceled dial")
	}
}

type fakeNode struct {
	mode      os.FileMode
	size      int64
	mtime     time.Time
	target    string
	children  []string
	errOnRead bool // if true, ReadDir returns an error
}

// fakeSFTP mimics an SFTP server: every failure is a generic error, so
// callers cannot tell "not a directory" from "permission denied".
type fakeSFTP struct {
	nodes map[string]fakeNode
	cwd   string
}

func newFakeSFTP(nodes map[string]fakeNode) *fakeSFTP {
	cp := make(map[string]fakeNode, len(nodes))
	for k, v := range nodes {
		if v.mtime.IsZero() {
			v.mtime = time.Unix(1700000000, 0)
		}
		cp[cleanRemotePath(k)] = v
	}
	return &fakeSFTP{nodes: cp, cwd: "/"}
}

func (f *fakeSFTP) ReadDir(path string) ([]os.FileInfo, error) {
	node, err := f.get(path)
	if err != nil {
		return nil, err
	}
	if !node.mode.IsDir() {
		return nil, fmt.Errorf("sftp: failure")
	}
	if node.errOnRead {
		return nil, fmt.Errorf("sftp: failure")
	}

	out := make([]os.FileInfo, 0, len(node.children))
	for _, child := range node.children {
		childPath := cleanRemotePath(pathpkg.Join(cleanRemotePath(path), child))
		childNode, ok := f.nodes[childPath]
		if !ok {
			return nil, fmt.Errorf("missing child %s", childPath)
		}
		out = append(out, fakeInfo{name: child, size: childNode.size, mode: childNode.mode, mtime: childNode.mtime})
	}
	return out, nil
}

func (f *fakeSFTP) Lstat(path string) (os.FileInfo, error) {
	node, err := f.get(path)
	if err != nil {
		return nil, err
	}
	return fakeInfo{name: pathpkg.Base(path), size: node.size, mode: node.mode, mtime: node.mtime}, nil
}

func (f *fakeSFTP) RealPath(path string) (string, error) {
	clean := cleanRemotePath(path)
	if !pathpkg.IsAbs(clean) {
		clean = pathpkg.Join(f.cwd, clean)
	}
	return f.resolve(clean, map[string]bool{})
}

func (f *fakeSFTP) get(path string) (fakeNode, error) {
	node, ok := f.nodes[cleanRemotePath(path)]
	if !ok {
		return fakeNode{}, os.ErrNotExist
	}
	return node, nil
}

func (f *fakeSFTP) resolve(path string, seen map[string]bool) (string, error) {
	node, ok := f.nodes[path]
	if !ok {
		return "", os.ErrNotExist
	}
	if node.mode&os.ModeSymlink == 0 {
		return path, nil
	}
	if seen[path] {
		return "", fmt.Errorf("symlink cycle")
	}
	seen[path] = true

	target := node.target
	if !pathpkg.IsAbs(target) {
		target = pathpkg.Join(pathpkg.Dir(path), target)
	}
	return f.resolve(cleanRemotePath(target), seen)
}

type fakeInfo struct {
	name  string
	size  int64
	mode  os.FileMode
	mtime time.Time
}

func (fi fakeInfo) Name() string       { return fi.name }
func (fi fakeInfo) Size() int64        { return fi.size }
func (fi fakeInfo) Mode() os.FileMode  { return fi.mode }
func (fi fakeInfo) ModTime() time.Time { return fi.mtime }
func (fi fakeInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi fakeInfo) Sys() any           { return nil }
