package e2etest

import (
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/myrjola/nearmiss/internal/errors"
)

// unsafeCookieJar stores Secure cookies set by plain HTTP servers on loopback addresses. The session and CSRF
// cookies are always Secure, and the test servers listen on http://127.0.0.1. Other hosts get the standard jar
// behaviour so that smoke tests against a deployment still exercise the Secure flag.
type unsafeCookieJar struct {
	jar *cookiejar.Jar
}

func newUnsafeCookieJar() (*unsafeCookieJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "new cookie jar")
	}

	return &unsafeCookieJar{jar: jar}, nil
}

func (j *unsafeCookieJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if isLoopbackHTTP(u) {
		for _, cookie := range cookies {
			cookie.Secure = false
		}
	}
	j.jar.SetCookies(u, cookies)
}

func (j *unsafeCookieJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

func isLoopbackHTTP(u *url.URL) bool {
	if u.Scheme != "http" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
