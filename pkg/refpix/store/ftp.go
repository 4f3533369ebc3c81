package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"path"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

// FTP reply codes that mean the request will never be accepted as sent.
var permanentFTPCodes = map[int]struct{}{
	501: {}, // syntax error in parameters
	530: {}, // not logged in
	532: {}, // need account for storing files
	550: {}, // file unavailable
	553: {}, // file name not allowed
}

const defaultDialTimeout = 30 * time.Second

// FTPStore uploads objects over FTP, one control connection per Put. The
// library switches the session to binary mode (TYPE I) at login, so bytes
// are never newline-translated.
type FTPStore struct {
	addr     string
	username string
	password string
	timeout  time.Duration
}

// NewFTPStore returns a store for the server at cfg.Endpoint (host:port; port
// 21 is assumed when omitted).
func NewFTPStore(cfg Config) (*FTPStore, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("ftp store requires an endpoint")
	}
	addr := cfg.Endpoint
	if !strings.Contains(addr, ":") {
		addr += ":21"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	return &FTPStore{addr: addr, username: cfg.Username, password: cfg.Password, timeout: timeout}, nil
}

// Put stores obj, creating parent directories first. Every exchange with the
// server is bounded by ctx.
func (s *FTPStore) Put(ctx context.Context, obj Object) error {
	conns := newAttemptConns(ctx, s.timeout)
	defer conns.release()

	// Control and data connections both go through conns.dial.
	conn, err := ftp.Dial(s.addr, ftp.DialWithDialFunc(conns.dial))
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.addr, err)
	}
	defer conn.Quit()

	if err := conn.Login(s.username, s.password); err != nil {
		return classifyFTP(fmt.Errorf("login to %s: %w", s.addr, err))
	}

	makeDirs(conn, path.Dir(obj.Key))

	if err := conn.Stor(obj.Key, bytes.NewReader(obj.Body)); err != nil {
		return classifyFTP(fmt.Errorf("store %s: %w", obj.Key, err))
	}
	return nil
}

// makeDirs creates each segment of dir. Failures are ignored: the directory
// usually exists already, and a real problem surfaces on STOR.
func makeDirs(conn *ftp.ServerConn, dir string) {
	if dir == "." || dir == "/" || dir == "" {
		return
	}
	prefix := ""
	if strings.HasPrefix(dir, "/") {
		prefix = "/"
	}
	for _, segment := range strings.Split(strings.Trim(dir, "/"), "/") {
		if segment == "" {
			continue
		}
		prefix = path.Join(prefix, segment)
		_ = conn.MakeDir(prefix)
	}
}

func classifyFTP(err error) error {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		if _, ok := permanentFTPCodes[protoErr.Code]; ok {
			return Permanent(err)
		}
	}
	return err
}
