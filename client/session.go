package client

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
)

var ErrNoSession = errors.New("not logged in")

// Session is the identity every call is made with. It is immutable; a
// login produces a new Session.
type Session struct {
	baseURL *url.URL
	token   string
	userID  string
}

// NewSession validates baseURL. token and userID may be empty before login.
func NewSession(baseURL, token, userID string) (*Session, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", baseURL)
	}
	return &Session{baseURL: u, token: token, userID: userID}, nil
}

// SessionFromEnv reads TWINTRACK_API_URL, TWINTRACK_TOKEN and
// TWINTRACK_USER_ID.
func SessionFromEnv() (*Session, error) {
	base := os.Getenv("TWINTRACK_API_URL")
	if base == "" {
		base = "http://localhost:8080/api/v1"
	}
	return NewSession(base, os.Getenv("TWINTRACK_TOKEN"), os.Getenv("TWINTRACK_USER_ID"))
}

func (s *Session) BaseURL() string { return s.baseURL.String() }
func (s *Session) Token() string   { return s.token }
func (s *Session) UserID() string  { return s.userID }

func (s *Session) Authenticated() bool {
	return s.token != ""
}

// WithCredentials returns a copy of s carrying token and userID.
func (s *Session) WithCredentials(token, userID string) *Session {
	return &Session{baseURL: s.baseURL, token: token, userID: userID}
}

func (s *Session) endpoint(path string, query url.Values) string {
	u := *s.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = query.Encode()
	return u.String()
}
