package remote

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"
)

var defaultPrivateKeyFiles = []string{
	"id_ed25519",
	"id_ecdsa",
	"id_rsa",
}

// ParseTarget splits user@host.
func ParseTarget(target string) (user, host string, err error) {
	if strings.TrimSpace(target) == "" {
		return "", "", fmt.Errorf("remote target is required")
	}

	user, host, ok := strings.Cut(target, "@")
	if !ok || user == "" || host == "" {
		return "", "", fmt.Errorf("invalid remote target %q: expected user@host", target)
	}
	return user, host, nil
}

// terminal asks the user questions during connection setup.
type terminal struct {
	in         io.Reader
	out        io.Writer
	fd         int
	isTerminal func(fd int) bool
	readSecret func(fd int) ([]byte, error)
}

func stdTerminal() *terminal {
	return &terminal{
		in:         os.Stdin,
		out:        os.Stderr,
		fd:         int(os.Stdin.Fd()),
		isTerminal: term.IsTerminal,
		readSecret: term.ReadPassword,
	}
}

func (t *terminal) confirm(prompt string) (bool, error) {
	if !t.isTerminal(t.fd) {
		return false, fmt.Errorf("cannot prompt for host key trust: stdin is not a terminal")
	}

	fmt.Fprint(t.out, prompt)
	answer, err := bufio.NewReader(t.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("host key prompt failed: %w", err)
	}

	a := strings.ToLower(strings.TrimSpace(answer))
	return a == "y" || a == "yes", nil
}

func (t *terminal) secret(prompt string) (string, error) {
	if !t.isTerminal(t.fd) {
		return "", fmt.Errorf("cannot prompt for SSH password: stdin is not a terminal")
	}

	fmt.Fprint(t.out, prompt)
	b, err := t.readSecret(t.fd)
	fmt.Fprintln(t.out)
	if err != nil {
		return "", fmt.Errorf("password prompt failed: %w", err)
	}
	return string(b), nil
}

// knownHosts is the user's ~/.ssh/known_hosts file.
type knownHosts struct {
	path string
}

func openKnownHosts() (*knownHosts, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine home directory for known_hosts: %w", err)
	}

	sshDir := filepath.Join(home, ".ssh")
	if err := os.MkdirAll(sshDir, 0o700); err != nil {
		return nil, fmt.Errorf("cannot create ~/.ssh directory: %w", err)
	}

	path := filepath.Join(sshDir, "known_hosts")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			return nil, fmt.Errorf("cannot create known_hosts: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("cannot access known_hosts: %w", err)
	}
	return &knownHosts{path: path}, nil
}

func (k *knownHosts) add(host string, port int, key ssh.PublicKey) error {
	f, err := os.OpenFile(k.path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("cannot update known_hosts: %w", err)
	}
	defer f.Close()

	line := knownhosts.Line([]string{knownHostAddress(host, port)}, key)
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("cannot write known_hosts entry: %w", err)
	}
	return nil
}

func (k *knownHosts) replace(host string, port int, key ssh.PublicKey) error {
	data, err := os.ReadFile(k.path)
	if err != nil {
		return fmt.Errorf("cannot read known_hosts: %w", err)
	}

	updated := removeKnownHostEntries(data, host, port)
	if len(updated) > 0 && updated[len(updated)-1] != '\n' {
		updated = append(updated, '\n')
	}
	updated = append(updated, knownhosts.Line([]string{knownHostAddress(host, port)}, key)...)
	updated = append(updated, '\n')

	if err := os.WriteFile(k.path, updated, 0o600); err != nil {
		return fmt.Errorf("cannot write known_hosts: %w", err)
	}
	return nil
}

func hostKeyCallback(host string, port int, batchMode bool, tty *terminal) (ssh.HostKeyCallback, error) {
	kh, err := openKnownHosts()
	if err != nil {
		return nil, err
	}
	verify, err := knownhosts.New(kh.path)
	if err != nil {
		return nil, fmt.Errorf("cannot load known_hosts: %w", err)
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := verify(hostname, remote, key)
		if err == nil {
			return nil
		}
		var keyErr *knownhosts.KeyError
		if !errors.As(err, &keyErr) {
			return fmt.Errorf("host key verification failed: %w", err)
		}
		return trustDecision(keyErr, host, port, key, batchMode, tty, kh)
	}, nil
}

// trustDecision handles an unknown or changed host key: refuse in batch
// mode, otherwise ask and record the answer.
func trustDecision(keyErr *knownhosts.KeyError, host string, port int, key ssh.PublicKey, batchMode bool, tty *terminal, kh *knownHosts) error {
	address := knownHostAddress(host, port)
	presented := ssh.FingerprintSHA256(key)

	if len(keyErr.Want) == 0 {
		if batchMode {
			return fmt.Errorf("unknown host key for %s (%s); run ssh once to trust it or disable --ssh-batch", address, presented)
		}
		ok, err := tty.confirm(fmt.Sprintf(
			"The authenticity of host '%s' can't be established.\n%s key fingerprint is %s.\nTrust this host and continue connecting (yes/no)? ",
			address, key.Type(), presented,
		))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("host key for %s was not trusted", address)
		}
		return kh.add(host, port, key)
	}

	expected := make([]string, 0, len(keyErr.Want))
	for _, want := range keyErr.Want {
		expected = append(expected, ssh.FingerprintSHA256(want.Key))
	}
	if batchMode {
		return fmt.Errorf("host key mismatch for %s: expected %s, presented %s",
			address, strings.Join(expected, ", "), presented)
	}

	ok, err := tty.confirm(fmt.Sprintf(
		"WARNING: HOST KEY CHANGED for '%s'.\nExpected: %s\nPresented: %s\nReplace stored key and continue (yes/no)? ",
		address, strings.Join(expected, ", "), presented,
	))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("host key mismatch for %s", address)
	}
	return kh.replace(host, port, key)
}

func knownHostAddress(host string, port int) string {
	if port == 22 {
		return host
	}
	return fmt.Sprintf("[%s]:%d", host, port)
}

func knownHostCandidates(host string, port int) map[string]bool {
	candidates := map[string]bool{
		fmt.Sprintf("[%s]:%d", host, port): true,
	}
	// A bare host name only ever refers to port 22.
	if port == 22 {
		candidates[host] = true
	}
	return candidates
}

func removeKnownHostEntries(data []byte, host string, port int) []byte {
	lines := strings.Split(string(data), "\n")
	keep := make([]string, 0, len(lines))
	candidates := knownHostCandidates(host, port)

	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			keep = append(keep, line)
			continue
		}

		hostField := fields[0]
		if strings.HasPrefix(hostField, "@") {
			if len(fields) < 2 {
				keep = append(keep, line)
				continue
			}
			hostField = fields[1]
		}

		drop := false
		for _, h := range strings.Split(hostField, ",") {
			if candidates[h] {
				drop = true
				break
			}
		}
		if !drop {
			keep = append(keep, line)
		}
	}

	return []byte(strings.Join(keep, "\n"))
}

func buildAuthMethods(user, host string, batchMode bool, tty *terminal) ([]ssh.AuthMethod, error) {
	methods := make([]ssh.AuthMethod, 0, 4)

	if m := agentAuthMethod(); m != nil {
		methods = append(methods, m)
	}
	if signers := loadDefaultKeySigners(); len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}

	if !batchMode {
		p := &passwordPrompter{prompt: fmt.Sprintf("%s@%s's password: ", user, host), tty: tty}
		methods = append(methods, ssh.PasswordCallback(p.password))
		methods = append(methods, ssh.KeyboardInteractive(p.keyboardInteractive))
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("no SSH auth methods available (configure ssh-agent or private keys, or disable --ssh-batch)")
	}
	return methods, nil
}

func agentAuthMethod() ssh.AuthMethod {
	sock := strings.TrimSpace(os.Getenv("SSH_AUTH_SOCK"))
	if sock == "" {
		return nil
	}

	return ssh.PublicKeysCallback(func() ([]ssh.Signer, error) {
		conn, err := net.Dial("unix", sock)
		if err != nil {
			return nil, err
		}
		defer conn.Close()
		return agent.NewClient(conn).Signers()
	})
}

// loadDefaultKeySigners reads unencrypted default keys; protected keys are
// left to the agent.
func loadDefaultKeySigners() []ssh.Signer {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	signers := make([]ssh.Signer, 0, len(defaultPrivateKeyFiles))
	for _, name := range defaultPrivateKeyFiles {
		pem, err := os.ReadFile(filepath.Join(home, ".ssh", name))
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			continue
		}
		signers = append(signers, signer)
	}
	return signers
}

// passwordPrompter asks once and reuses the answer for both password and
// keyboard-interactive auth.
type passwordPrompter struct {
	prompt string
	tty    *terminal

	mu     sync.Mutex
	cached *string
}

func (p *passwordPrompter) password() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached != nil {
		return *p.cached, nil
	}

	pass, err := p.tty.secret(p.prompt)
	if err != nil {
		return "", err
	}
	p.cached = &pass
	return pass, nil
}

func (p *passwordPrompter) keyboardInteractive(_ string, _ string, questions []string, echos []bool) ([]string, error) {
	pass, err := p.password()
	if err != nil {
		return nil, err
	}

	answers := make([]string, len(questions))
	for i := range questions {
		if i < len(echos) && echos[i] {
			continue
		}
		answers[i] = pass
	}
	return answers, nil
}
