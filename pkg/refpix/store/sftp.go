package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path"
	"strings"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// ConnectFunc opens an SFTP session. The returned close function releases the
// session and its transport.
type ConnectFunc func(ctx context.Context) (*sftp.Client, func() error, error)

// SFTPStore uploads objects over SFTP, one session per Put.
type SFTPStore struct {
	connect ConnectFunc
}

// NewSFTPStore returns a store for the SSH server at cfg.Endpoint (host:port;
// port 22 is assumed when omitted). Password and private-key authentication
// are offered when configured.
func NewSFTPStore(cfg Config) (*SFTPStore, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("sftp store requires an endpoint")
	}
	addr := cfg.Endpoint
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "22")
	}

	sshConfig, err := clientConfig(cfg)
	if err != nil {
		return nil, err
	}

	connect := func(ctx context.Context) (*sftp.Client, func() error, error) {
		conns := newAttemptConns(ctx, sshConfig.Timeout)
		conn, err := conns.dial("tcp", addr)
		if err != nil {
			conns.release()
			return nil, nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, sshConfig)
		if err != nil {
			conns.release()
			conn.Close()
			return nil, nil, classifySSH(fmt.Errorf("ssh handshake with %s: %w", addr, err))
		}
		sshClient := ssh.NewClient(sshConn, chans, reqs)

		client, err := sftp.NewClient(sshClient)
		if err != nil {
			conns.release()
			sshClient.Close()
			return nil, nil, fmt.Errorf("start sftp session: %w", err)
		}
		return client, func() error {
			conns.release()
			return errors.Join(client.Close(), sshClient.Close())
		}, nil
	}

	return NewSFTPStoreWithConnect(connect), nil
}

// NewSFTPStoreWithConnect builds a store that opens sessions with connect.
func NewSFTPStoreWithConnect(connect ConnectFunc) *SFTPStore {
	return &SFTPStore{connect: connect}
}

func clientConfig(cfg Config) (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	if cfg.KeyFile != "" {
		pem, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("parse key file: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		auth = append(auth, ssh.Password(cfg.Password))
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHostsFile != "" {
		cb, err := knownhosts.New(cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("load known hosts: %w", err)
		}
		hostKeyCallback = cb
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	return &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}, nil
}

// Put writes obj, creating parent directories first. The file is truncated
// before writing.
func (s *SFTPStore) Put(ctx context.Context, obj Object) error {
	client, closeFn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	if dir := path.Dir(obj.Key); dir != "." && dir != "/" {
		if err := client.MkdirAll(dir); err != nil {
			return classifySFTP(fmt.Errorf("create %s: %w", dir, err))
		}
	}

	f, err := client.Create(obj.Key)
	if err != nil {
		return classifySFTP(fmt.Errorf("create %s: %w", obj.Key, err))
	}
	if _, err := f.Write(obj.Body); err != nil {
		f.Close()
		return classifySFTP(fmt.Errorf("write %s: %w", obj.Key, err))
	}
	if err := f.Close(); err != nil {
		return classifySFTP(fmt.Errorf("close %s: %w", obj.Key, err))
	}
	return nil
}

func classifySSH(err error) error {
	var keyErr *knownhosts.KeyError
	if errors.As(err, &keyErr) || strings.Contains(err.Error(), "unable to authenticate") {
		return Permanent(err)
	}
	return err
}

func classifySFTP(err error) error {
	if errors.Is(err, os.ErrPermission) {
		return Permanent(err)
	}
	var status *sftp.StatusError
	if errors.As(err, &status) && status.FxCode() == sftp.ErrSSHFxPermissionDenied {
		return Permanent(err)
	}
	return err
}
