package sink

import (
	"context"
	"fmt"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	// DefaultProtocol is the engine backend used to reach SFTP sinks.
	DefaultProtocol = "pexpect+sftp"

	probeTimeout = 30 * time.Second
)

// SFTPOption lets you override default settings on an SFTP sink.
type SFTPOption func(*SFTP)

// SFTP is a sink reached over SFTP with a private key.
type SFTP struct {
	name       string
	hostname   string
	username   string
	port       int
	directory  string
	keyfile    string
	protocol   string
	knownHosts string
}

// Ensure SFTP satisfies Sink.
var _ Sink = (*SFTP)(nil)

// NewSFTP returns an SFTP sink for username@hostname:port. The keyfile must
// exist.
func NewSFTP(hostname, username string, port int, keyfile string, opts ...SFTPOption) (*SFTP, error) {
	if hostname == "" || username == "" {
		return nil, fmt.Errorf("%w: hostname and username are required", ErrInvalidSink)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("%w: port %d out of range", ErrInvalidSink, port)
	}
	info, err := os.Stat(keyfile)
	if err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %q", ErrKeyfileMissing, keyfile)
	}

	s := &SFTP{
		name:      hostname,
		hostname:  hostname,
		username:  username,
		port:      port,
		directory: "/",
		keyfile:   keyfile,
		protocol:  DefaultProtocol,
	}
	if home, err := os.UserHomeDir(); err == nil {
		s.knownHosts = filepath.Join(home, ".ssh", "known_hosts")
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// WithSFTPName sets the display name. It defaults to the hostname.
func WithSFTPName(name string) SFTPOption {
	return func(s *SFTP) {
		if name != "" {
			s.name = name
		}
	}
}

// WithSFTPDirectory sets the base directory backups are stored under.
func WithSFTPDirectory(dir string) SFTPOption {
	return func(s *SFTP) {
		if dir != "" {
			s.directory = withTrailingSlash(dir)
		}
	}
}

// WithSFTPProtocol overrides the engine backend scheme.
func WithSFTPProtocol(protocol string) SFTPOption {
	return func(s *SFTP) {
		if protocol != "" {
			s.protocol = protocol
		}
	}
}

// WithSFTPKnownHosts overrides the known_hosts file used by Probe.
func WithSFTPKnownHosts(file string) SFTPOption {
	return func(s *SFTP) {
		if file != "" {
			s.knownHosts = file
		}
	}
}

func (s *SFTP) GetName() string {
	return s.name
}

// EngineArgs returns the ssh options flag and the sink URL
// <protocol>://<user>@<host>:<port>/<directory><host>/<job>/.
func (s *SFTP) EngineArgs(host, job string) []string {
	return []string{
		fmt.Sprintf("--ssh-options='-oIdentityFile=%s'", s.keyfile),
		fmt.Sprintf("%s://%s@%s:%d/%s%s/%s/",
			s.protocol, s.username, s.hostname, s.port, s.directory, host, job),
	}
}

// Probe logs in with the sink's key, verifying the host key against
// known_hosts, and checks the base directory exists.
func (s *SFTP) Probe(ctx context.Context) error {
	key, err := os.ReadFile(s.keyfile)
	if err != nil {
		return fmt.Errorf("%w: read keyfile: %v", ErrProbeFailed, err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return fmt.Errorf("%w: parse keyfile %q: %v", ErrProbeFailed, s.keyfile, err)
	}
	hostKeys, err := knownhosts.New(s.knownHosts)
	if err != nil {
		return fmt.Errorf("%w: known_hosts: %v", ErrProbeFailed, err)
	}

	cfg := &ssh.ClientConfig{
		User:            s.username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeys,
		Timeout:         probeTimeout,
	}
	addr := net.JoinHostPort(s.hostname, strconv.Itoa(s.port))

	dialer := net.Dialer{Timeout: probeTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrProbeFailed, addr, err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return fmt.Errorf("%w: ssh handshake with %s: %v", ErrProbeFailed, addr, err)
	}
	client := ssh.NewClient(c, chans, reqs)
	defer client.Close()

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		return fmt.Errorf("%w: start sftp on %s: %v", ErrProbeFailed, addr, err)
	}
	defer sftpClient.Close()

	info, err := sftpClient.Stat(s.directory)
	if err != nil {
		return fmt.Errorf("%w: stat %s on %s: %v", ErrProbeFailed, s.directory, addr, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s on %s is not a directory", ErrProbeFailed, s.directory, addr)
	}
	return nil
}

func withTrailingSlash(dir string) string {
	if dir == "/" {
		return dir
	}
	return path.Clean(dir) + "/"
}
