package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kevinburke/ssh_config"
	"github.com/pkg/sftp"
	"github.com/skeema/knownhosts"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"kubeconfig-updater/internal/config"
	"kubeconfig-updater/internal/prompt"
	"kubeconfig-updater/pkg/logging"
)

const sshSubsystem = "SSH"

// SSHDialer opens sessions over SSH. Keys come from ssh-agent and the
// configured or ~/.ssh/config identity file; the login password is asked
// for through the prompter when no key is accepted.
type SSHDialer struct {
	cfg      config.SSHConfig
	prompter prompt.Prompter
	settings *ssh_config.UserSettings

	known *knownhosts.HostKeyDB
}

var _ Dialer = (*SSHDialer)(nil)

// NewSSHDialer returns a Dialer for cfg.
func NewSSHDialer(cfg config.SSHConfig, p prompt.Prompter) *SSHDialer {
	if cfg.Port == 0 {
		cfg.Port = config.DefaultSSHPort
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = config.DefaultConnectTimeout
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = config.DefaultCommandTimeout
	}

	d := &SSHDialer{cfg: cfg, prompter: p}
	if cfg.SSHConfigEnabled() {
		d.settings = &ssh_config.UserSettings{IgnoreErrors: true}
	}
	return d
}

// Dial connects to host as user. Every failure is a *ConnectionError.
func (d *SSHDialer) Dial(ctx context.Context, host, user string) (Client, error) {
	addr, identity := d.resolve(host)

	signers, agentConn := d.signers(identity)
	auth := []ssh.AuthMethod{}
	if len(signers) > 0 {
		auth = append(auth, ssh.PublicKeys(signers...))
	}
	deadline := &handshakeDeadline{timeout: d.cfg.ConnectTimeout}
	if d.prompter != nil {
		auth = append(auth, ssh.PasswordCallback(func() (string, error) {
			resume := deadline.pause()
			defer resume()
			return d.prompter.LoginPassword(ctx, user, host)
		}))
	}

	hostKeyCallback, algorithms, err := d.hostKeyCallback(addr)
	if err != nil {
		closeQuietly(agentConn)
		return nil, &ConnectionError{Host: host, Err: err}
	}

	clientConfig := &ssh.ClientConfig{
		User:              user,
		Auth:              auth,
		HostKeyCallback:   hostKeyCallback,
		HostKeyAlgorithms: algorithms,
		Timeout:           d.cfg.ConnectTimeout,
	}

	logging.Debug(sshSubsystem, "Connecting to %s as %s", addr, user)
	client, err := d.connect(ctx, addr, clientConfig, deadline)
	if err != nil {
		closeQuietly(agentConn)
		return nil, &ConnectionError{Host: host, Err: err}
	}

	return &sshClient{
		host:           host,
		client:         client,
		agentConn:      agentConn,
		commandTimeout: d.cfg.CommandTimeout,
	}, nil
}

// resolve applies ~/.ssh/config HostName, Port and IdentityFile to host.
func (d *SSHDialer) resolve(host string) (addr, identity string) {
	hostname, port, identity := host, d.cfg.Port, expandUser(d.cfg.IdentityFile)

	if d.settings != nil {
		if val := d.settings.Get(host, "HostName"); val != "" {
			hostname = val
		}
		if port == config.DefaultSSHPort {
			if val := d.settings.Get(host, "Port"); val != "" && val != ssh_config.Default("Port") {
				if p, err := strconv.Atoi(val); err == nil {
					port = p
				} else {
					logging.Warn(sshSubsystem, "Ignoring non-numeric Port %q for %s in ssh config", val, host)
				}
			}
		}
		if identity == "" {
			if val := d.settings.Get(host, "IdentityFile"); val != "" {
				isDefault := val == ssh_config.Default("IdentityFile")
				identity = expandUser(strings.Trim(val, "\""))
				if _, err := os.Stat(identity); err != nil && isDefault {
					identity = ""
				}
			}
		}
	}

	return net.JoinHostPort(hostname, strconv.Itoa(port)), identity
}

// signers collects agent keys and the identity file key. The returned
// connection belongs to the agent and must stay open while the keys are used.
func (d *SSHDialer) signers(identity string) ([]ssh.Signer, net.Conn) {
	var (
		signers   []ssh.Signer
		agentConn net.Conn
	)

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		conn, err := net.Dial("unix", sock)
		if err != nil {
			logging.Debug(sshSubsystem, "ssh-agent at %s unavailable: %v", sock, err)
		} else {
			agentSigners, err := agent.NewClient(conn).Signers()
			if err != nil {
				logging.Debug(sshSubsystem, "Listing ssh-agent keys: %v", err)
				closeQuietly(conn)
			} else {
				signers = append(signers, agentSigners...)
				agentConn = conn
			}
		}
	}

	if identity != "" {
		signer, err := loadIdentity(identity)
		if err != nil {
			logging.Warn(sshSubsystem, "Skipping identity %s: %v", identity, err)
		} else {
			logging.Debug(sshSubsystem, "Identity %s %s", identity, ssh.FingerprintSHA256(signer.PublicKey()))
			signers = append(signers, signer)
		}
	}

	return signers, agentConn
}

func loadIdentity(path string) (ssh.Signer, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, errors.New("key is passphrase protected, load it into ssh-agent instead")
		}
		return nil, err
	}
	return signer, nil
}

// hostKeyCallback verifies host keys against known_hosts. Unknown hosts are
// recorded on first contact; a changed key is always rejected.
func (d *SSHDialer) hostKeyCallback(addr string) (ssh.HostKeyCallback, []string, error) {
	if d.cfg.InsecureIgnoreHostKey {
		logging.Warn(sshSubsystem, "Host key verification disabled for %s", addr)
		return ssh.InsecureIgnoreHostKey(), nil, nil
	}

	known, err := d.knownHosts()
	if err != nil {
		return nil, nil, err
	}

	verify := known.HostKeyCallback()
	callback := func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := verify(hostname, remote, key)
		switch {
		case knownhosts.IsHostKeyChanged(err):
			logging.Error(sshSubsystem, err, "Host key for %s changed, got %s %s", hostname, key.Type(), ssh.FingerprintSHA256(key))
			return fmt.Errorf("host key mismatch for %s: %w", hostname, err)
		case knownhosts.IsHostUnknown(err):
			return d.addKnownHost(hostname, key)
		default:
			return err
		}
	}
	return callback, known.HostKeyAlgorithms(addr), nil
}

func (d *SSHDialer) knownHosts() (*knownhosts.HostKeyDB, error) {
	if d.known != nil {
		return d.known, nil
	}

	path := d.cfg.KnownHostsFile
	if path == "" {
		return nil, errors.New("no known_hosts file configured")
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating known_hosts directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
		if err != nil {
			return nil, fmt.Errorf("creating known_hosts: %w", err)
		}
		f.Close()
	}

	known, err := knownhosts.NewDB(path)
	if err != nil {
		return nil, fmt.Errorf("reading known_hosts %s: %w", path, err)
	}
	d.known = known
	return known, nil
}

func (d *SSHDialer) addKnownHost(hostname string, key ssh.PublicKey) error {
	f, err := os.OpenFile(d.cfg.KnownHostsFile, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("recording host key: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(knownhosts.Line([]string{hostname}, key) + "\n"); err != nil {
		return fmt.Errorf("recording host key: %w", err)
	}
	logging.Info(sshSubsystem, "Added %s key %s for %s to %s", key.Type(), ssh.FingerprintSHA256(key), hostname, d.cfg.KnownHostsFile)

	// Reload so later dials in this run see the new entry.
	d.known = nil
	return nil
}

// connect dials addr and runs the handshake. Dial and handshake are each
// bounded by the connect timeout; ctx cancels either.
func (d *SSHDialer) connect(ctx context.Context, addr string, clientConfig *ssh.ClientConfig, deadline *handshakeDeadline) (*ssh.Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, d.cfg.ConnectTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	deadline.arm(conn)
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, clientConfig)
	if !stop() {
		if err == nil {
			c.Close()
		}
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, ctx.Err())
	}
	if err != nil {
		conn.Close()
		return nil, err
	}
	deadline.disarm()

	return ssh.NewClient(c, chans, reqs), nil
}

// handshakeDeadline bounds the SSH handshake by the connect timeout. The
// clock stops while the user is typing a password.
type handshakeDeadline struct {
	timeout time.Duration

	mu   sync.Mutex
	conn net.Conn
}

func (h *handshakeDeadline) arm(conn net.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conn = conn
	_ = conn.SetDeadline(time.Now().Add(h.timeout))
}

func (h *handshakeDeadline) disarm() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn != nil {
		_ = h.conn.SetDeadline(time.Time{})
		h.conn = nil
	}
}

// pause lifts the deadline until the returned func is called.
func (h *handshakeDeadline) pause() (resume func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn := h.conn
	if conn == nil {
		return func() {}
	}
	_ = conn.SetDeadline(time.Time{})
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.conn == conn {
			_ = conn.SetDeadline(time.Now().Add(h.timeout))
		}
	}
}

type sshClient struct {
	host           string
	client         *ssh.Client
	agentConn      net.Conn
	commandTimeout time.Duration
}

func (c *sshClient) ReadFile(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.commandTimeout)
	defer cancel()

	data, err := c.readSFTP(ctx, path)
	if err == nil || !errors.Is(err, errSFTPUnavailable) {
		return data, err
	}

	logging.Debug(sshSubsystem, "SFTP unavailable on %s, falling back to cat", c.host)
	return c.run(ctx, "cat -- "+shellQuote(path), nil)
}

func (c *sshClient) ReadFileElevated(ctx context.Context, path, secret string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.commandTimeout)
	defer cancel()

	data, err := c.run(ctx, "sudo -S -p '' cat -- "+shellQuote(path), strings.NewReader(secret+"\n"))
	if err != nil {
		return nil, fmt.Errorf("sudo: %w", err)
	}
	return data, nil
}

func (c *sshClient) Close() error {
	err := c.client.Close()
	closeQuietly(c.agentConn)
	return err
}

var errSFTPUnavailable = errors.New("sftp subsystem unavailable")

func (c *sshClient) readSFTP(ctx context.Context, path string) ([]byte, error) {
	sc, err := sftp.NewClient(c.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errSFTPUnavailable, err)
	}
	defer sc.Close()

	stop := context.AfterFunc(ctx, func() { sc.Close() })
	defer stop()

	f, err := sc.Open(path)
	if err != nil {
		return nil, c.classify(ctx, path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, c.classify(ctx, path, err)
	}
	return data, nil
}

func (c *sshClient) classify(ctx context.Context, path string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("reading %s: %w", path, ctx.Err())
	}
	if errors.Is(err, os.ErrPermission) {
		return fmt.Errorf("%s: %w", path, ErrPermissionDenied)
	}
	return err
}

// run executes command in a fresh session with LC_ALL=C so stderr can be
// matched reliably.
func (c *sshClient) run(ctx context.Context, command string, stdin io.Reader) ([]byte, error) {
	sess, err := c.client.NewSession()
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr
	if stdin != nil {
		sess.Stdin = stdin
	}

	stop := context.AfterFunc(ctx, func() {
		_ = sess.Signal(ssh.SIGKILL)
		sess.Close()
	})
	defer stop()

	if err := sess.Run("LC_ALL=C " + command); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", command, ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if strings.Contains(msg, "Permission denied") {
			return nil, fmt.Errorf("%s: %w", msg, ErrPermissionDenied)
		}
		if msg == "" {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	return stdout.Bytes(), nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func expandUser(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
