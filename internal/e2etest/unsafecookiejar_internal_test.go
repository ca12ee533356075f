package e2etest

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnsafeCookieJar(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantSent bool
	}{
		{name: "loopback ip", url: "http://127.0.0.1:4000/", wantSent: true},
		{name: "localhost", url: "http://localhost:4000/", wantSent: true},
		{name: "remote plain http", url: "http://example.com/", wantSent: false},
		{name: "remote https", url: "https://example.com/", wantSent: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jar, err := newUnsafeCookieJar()
			require.NoError(t, err)
			u, err := url.Parse(tt.url)
			require.NoError(t, err)

			jar.SetCookies(u, []*http.Cookie{{Name: "session", Value: "abc", Path: "/", Secure: true}})
			cookies := jar.Cookies(u)
			if tt.wantSent {
				require.Len(t, cookies, 1)
				require.Equal(t, "abc", cookies[0].Value)
			} else {
				require.Empty(t, cookies)
			}
		})
	}
}
