package auth

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// DefaultDirectoryTimeout bounds a whole directory bind.
const DefaultDirectoryTimeout = 5 * time.Second

var (
	// ErrDirectoryRejected means the directory answered and refused the bind.
	ErrDirectoryRejected = errors.New("directory rejected bind")
	// ErrDirectoryUnavailable means the directory could not give an answer in time.
	ErrDirectoryUnavailable = errors.New("directory unavailable")
)

// DirectoryConfig describes how user DNs are built and the server reached.
type DirectoryConfig struct {
	URL                string
	BaseDN             string
	UserAttribute      string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// DirectoryAuthenticator verifies credentials against an external directory.
type DirectoryAuthenticator interface {
	// Authenticate returns nil only on a successful bind. Failures wrap
	// ErrDirectoryRejected or ErrDirectoryUnavailable.
	Authenticate(ctx context.Context, username, password string) error
}

// ldapConn is the part of *ldap.Conn a bind needs.
type ldapConn interface {
	StartTLS(config *tls.Config) error
	Bind(username, password string) error
	Close()
}

type dialFunc func(rawURL string, timeout time.Duration, tlsConfig *tls.Config) (ldapConn, error)

// LDAPAuthenticator binds as the user over LDAPS or StartTLS-upgraded LDAP.
type LDAPAuthenticator struct {
	cfg       DirectoryConfig
	tlsConfig *tls.Config
	dial      dialFunc
}

// NewLDAPAuthenticator accepts ldap:// and ldaps:// URLs only.
func NewLDAPAuthenticator(cfg DirectoryConfig) (*LDAPAuthenticator, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse directory url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "ldap", "ldaps":
	default:
		return nil, fmt.Errorf("unsupported directory url scheme %q", u.Scheme)
	}
	if cfg.UserAttribute == "" {
		cfg.UserAttribute = "cn"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultDirectoryTimeout
	}

	return &LDAPAuthenticator{
		cfg: cfg,
		tlsConfig: &tls.Config{
			ServerName:         u.Hostname(),
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
		dial: dialLDAP,
	}, nil
}

// UserDN builds "<attribute>=<escaped username>,<base DN>".
func (a *LDAPAuthenticator) UserDN(username string) string {
	dn := a.cfg.UserAttribute + "=" + ldap.EscapeDN(username)
	if base := strings.TrimSpace(a.cfg.BaseDN); base != "" {
		dn += "," + base
	}
	return dn
}

// Bind reports whether the directory accepted the credentials.
func (a *LDAPAuthenticator) Bind(ctx context.Context, username, password string) bool {
	return a.Authenticate(ctx, username, password) == nil
}

func (a *LDAPAuthenticator) Authenticate(ctx context.Context, username, password string) error {
	// an empty password would be an unauthenticated bind, which directories accept
	if username == "" || password == "" {
		return fmt.Errorf("%w: empty credentials", ErrDirectoryRejected)
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	dn := a.UserDN(username)
	result := make(chan error, 1)
	go func() {
		result <- a.bind(dn, password)
	}()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrDirectoryUnavailable, ctx.Err())
	}
}

func (a *LDAPAuthenticator) bind(dn, password string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic during bind: %v", ErrDirectoryUnavailable, r)
		}
	}()

	conn, err := a.dial(a.cfg.URL, a.cfg.Timeout, a.tlsConfig)
	if err != nil {
		return fmt.Errorf("%w: dial: %v", ErrDirectoryUnavailable, err)
	}
	defer conn.Close()

	if !strings.HasPrefix(strings.ToLower(a.cfg.URL), "ldaps://") {
		if err := conn.StartTLS(a.tlsConfig); err != nil {
			return fmt.Errorf("%w: starttls: %v", ErrDirectoryUnavailable, err)
		}
	}

	if err := conn.Bind(dn, password); err != nil {
		return classifyBindError(err)
	}
	return nil
}

// classifyBindError separates directory verdicts from transport failures.
func classifyBindError(err error) error {
	var ldapErr *ldap.Error
	if errors.As(err, &ldapErr) && ldapErr.ResultCode < ldap.ErrorNetwork {
		return fmt.Errorf("%w: %v", ErrDirectoryRejected, err)
	}
	return fmt.Errorf("%w: bind: %v", ErrDirectoryUnavailable, err)
}

type conn struct {
	*ldap.Conn
}

func (c conn) Close() {
	c.Conn.Close()
}

func dialLDAP(rawURL string, timeout time.Duration, tlsConfig *tls.Config) (ldapConn, error) {
	c, err := ldap.DialURL(rawURL,
		ldap.DialWithDialer(&net.Dialer{Timeout: timeout}),
		ldap.DialWithTLSConfig(tlsConfig),
	)
	if err != nil {
		return nil, err
	}
	c.SetTimeout(timeout)
	return conn{Conn: c}, nil
}

var _ DirectoryAuthenticator = (*LDAPAuthenticator)(nil)
