// Package remote provides a scanner.FileSystem backed by SFTP over SSH.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	pathpkg "path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/sftp"
	"github.com/sadopc/spacescope/internal/scanner"
	"golang.org/x/crypto/ssh"
)

const defaultRemotePath = "."

const defaultRemoteBlockSize int64 = 4096
const maxInt64 = int64(^uint64(0) >> 1)

// Config configures a remote connection.
type Config struct {
	Target    string // user@host
	Port      int
	BatchMode bool
	Timeout   time.Duration
}

type sftpClient interface {
	ReadDir(string) ([]os.FileInfo, error)
	Lstat(string) (os.FileInfo, error)
	RealPath(string) (string, error)
}

var dialContext = func(ctx context.Context, network, address string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, network, address)
}

var sshNewClientConn = func(conn net.Conn, addr string, config *ssh.ClientConfig) (ssh.Conn, <-chan ssh.NewChannel, <-chan *ssh.Request, error) {
	return ssh.NewClientConn(conn, addr, config)
}

// FS walks a remote filesystem. Disk usage is estimated by rounding sizes up
// to the remote block size.
type FS struct {
	client    sftpClient
	closer    io.Closer
	blockSize atomic.Int64
}

// Dial connects to cfg.Target and starts the SFTP subsystem.
func Dial(ctx context.Context, cfg Config) (*FS, error) {
	client, closer, err := dialSFTP(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newFS(client, closer), nil
}

func newFS(client sftpClient, closer io.Closer) *FS {
	f := &FS{client: client, closer: closer}
	f.blockSize.Store(defaultRemoteBlockSize)
	return f
}

// Close ends the SFTP session and the SSH connection.
func (f *FS) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

// Resolve turns remotePath into the canonical absolute directory to scan
// and picks up the block size of the filesystem it lives on.
func (f *FS) Resolve(remotePath string) (string, error) {
	if strings.TrimSpace(remotePath) == "" {
		remotePath = defaultRemotePath
	}
	root := cleanRemotePath(remotePath)
	if resolved, err := f.client.RealPath(root); err == nil {
		root = cleanRemotePath(resolved)
	}

	info, err := f.client.Lstat(root)
	if err != nil {
		return "", fmt.Errorf("cannot stat remote path %q: %w", root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", root)
	}

	f.blockSize.Store(remoteBlockSize(f.client, root))
	return root, nil
}

func (f *FS) ReadDir(ctx context.Context, path string) ([]scanner.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	infos, err := readRemoteDir(ctx, f.client, path)
	if err != nil {
		return nil, f.refineReadErr(path, err)
	}

	bs := f.blockSize.Load()
	out := make([]scanner.Entry, 0, len(infos))
	for _, info := range infos {
		out = append(out, entryFromInfo(info.Name(), info, bs))
	}
	return out, nil
}

func (f *FS) Lstat(ctx context.Context, path string) (scanner.Entry, error) {
	if err := ctx.Err(); err != nil {
		return scanner.Entry{}, err
	}
	info, err := f.client.Lstat(path)
	if err != nil {
		return scanner.Entry{}, err
	}
	return entryFromInfo(pathpkg.Base(path), info, f.blockSize.Load()), nil
}

func (f *FS) Join(elem ...string) string { return cleanRemotePath(pathpkg.Join(elem...)) }

func (f *FS) Base(path string) string { return pathpkg.Base(path) }

// refineReadErr distinguishes "not a directory" from generic failures,
// which SFTP servers report with the same status code.
func (f *FS) refineReadErr(path string, err error) error {
	if scanner.Classify(err) != scanner.KindIO {
		return err
	}
	if info, statErr := f.client.Lstat(path); statErr == nil && !info.IsDir() {
		return fmt.Errorf("%s: %w", path, scanner.ErrNotDirectory)
	}
	return err
}

func entryFromInfo(name string, info os.FileInfo, blockSize int64) scanner.Entry {
	size := info.Size()
	return scanner.Entry{
		Name:  name,
		Mode:  info.Mode(),
		Size:  size,
		Usage: estimateDiskUsage(size, blockSize),
	}
}

func cleanRemotePath(p string) string {
	if p == "" {
		return defaultRemotePath
	}
	clean := pathpkg.Clean(strings.ReplaceAll(p, "\\", "/"))
	if clean == "" {
		return defaultRemotePath
	}
	return clean
}

func estimateDiskUsage(size, blockSize int64) int64 {
	if size <= 0 {
		return 0
	}
	if blockSize <= 0 {
		blockSize = defaultRemoteBlockSize
	}
	blocks := (size + blockSize - 1) / blockSize
	return blocks * blockSize
}

func remoteBlockSize(client sftpClient, rootPath string) int64 {
	vfsClient, ok := client.(interface {
		StatVFS(path string) (*sftp.StatVFS, error)
	})
	if !ok {
		return defaultRemoteBlockSize
	}

	stat, err := vfsClient.StatVFS(rootPath)
	if err != nil || stat == nil {
		return defaultRemoteBlockSize
	}

	if stat.Frsize > 0 && stat.Frsize <= uint64(maxInt64) {
		return int64(stat.Frsize)
	}
	if stat.Bsize > 0 && stat.Bsize <= uint64(maxInt64) {
		return int64(stat.Bsize)
	}
	return defaultRemoteBlockSize
}

func readRemoteDir(ctx context.Context, client sftpClient, dirPath string) ([]os.FileInfo, error) {
	if rc, ok := client.(interface {
		ReadDirContext(context.Context, string) ([]os.FileInfo, error)
	}); ok {
		return rc.ReadDirContext(ctx, dirPath)
	}
	return client.ReadDir(dirPath)
}

func dialSFTP(ctx context.Context, cfg Config) (sftpClient, io.Closer, error) {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, nil, fmt.Errorf("ssh port must be between 1 and 65535")
	}

	user, host, err := ParseTarget(cfg.Target)
	if err != nil {
		return nil, nil, err
	}

	tty := stdTerminal()
	hostCB, err := hostKeyCallback(host, cfg.Port, cfg.BatchMode, tty)
	if err != nil {
		return nil, nil, err
	}

	auth, err := buildAuthMethods(user, host, cfg.BatchMode, tty)
	if err != nil {
		return nil, nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sshConfig := &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: hostCB,
		Timeout:         timeout,
	}

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", cfg.Port))
	sshClient, err := connectSSH(dialCtx, addr, sshConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("SSH connection failed: %w", err)
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, nil, fmt.Errorf("cannot start SFTP subsystem: %w", err)
	}

	closer := &remoteCloser{ssh: sshClient, sftp: sftpClient}
	return sftpClient, closer, nil
}

func connectSSH(ctx context.Context, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	conn, err := dialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	// Ensure cancellation interrupts handshake/authentication.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	c, chans, reqs, err := sshNewClientConn(conn, addr, config)
	close(done)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return ssh.NewClient(c, chans, reqs), nil
}

type remoteCloser struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

func (c *remoteCloser) Close() error {
	var errs []error
	if c.sftp != nil {
		errs = append(errs, c.sftp.Close())
	}
	if c.ssh != nil {
		errs = append(errs, c.ssh.Close())
	}
	return errors.Join(errs...)
}
