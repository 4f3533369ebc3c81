// Package store transfers image bytes to a remote destination.
//
// Every backend overwrites the object at a key rather than appending to it,
// so repeating a Put with the same bytes leaves the destination unchanged.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Supported backend kinds.
const (
	KindLocal = "local"
	KindS3    = "s3"
	KindFTP   = "ftp"
	KindSFTP  = "sftp"
)

// Kinds lists the accepted values of Config.Kind.
var Kinds = []string{KindLocal, KindS3, KindFTP, KindSFTP}

// Object is one upload: the destination key and the exact bytes to store.
type Object struct {
	// Key is the slash-separated destination path.
	Key string
	// Body is sent byte-for-byte; no backend transcodes it.
	Body []byte
	// ContentType is the MIME type, used where the backend records one.
	ContentType string
}

// Store writes objects to a destination.
type Store interface {
	// Put stores obj.Body at obj.Key, replacing any existing object.
	// Errors wrapped with Permanent will not succeed on retry.
	Put(ctx context.Context, obj Object) error
}

// Config addresses and authenticates a backend.
type Config struct {
	Kind string
	// Endpoint is host:port for FTP/SFTP, a custom endpoint URL for S3, and
	// the root directory for the local store.
	Endpoint string
	Username string
	Password string
	// KeyFile is an SSH private key used by the SFTP backend.
	KeyFile string
	// KnownHostsFile verifies SFTP host keys. Empty accepts any host key.
	KnownHostsFile string
	Bucket         string
	Region         string
	// Timeout bounds connection establishment.
	Timeout time.Duration
}

// New builds the backend selected by cfg.Kind.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(cfg.Kind) {
	case KindLocal, "":
		return NewLocalStore(cfg.Endpoint)
	case KindS3:
		return NewS3Store(ctx, cfg)
	case KindFTP:
		return NewFTPStore(cfg)
	case KindSFTP:
		if cfg.KnownHostsFile == "" {
			logger.Warn("SFTP host key verification disabled", zap.String("endpoint", cfg.Endpoint))
		}
		return NewSFTPStore(cfg)
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string {
	return e.err.Error()
}

func (e *permanentError) Unwrap() error {
	return e.err
}

// Permanent marks err as one that retrying will not fix, such as rejected
// credentials or a denied path. It returns nil for a nil err.
func Permanent(err error) error {
	if err == nil || IsPermanent(err) {
		return err
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err, or any error it wraps, was marked Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
