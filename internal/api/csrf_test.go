package api_test

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"testing"

	"github.com/Astemirdum/library-loan-client/internal/api"
	"github.com/stretchr/testify/require"
)

func TestCookieCSRFReader_Token(t *testing.T) {
	t.Parallel()
	base := "http://localhost:8000"
	u, _ := url.Parse(base)

	tests := []struct {
		name    string
		cookies []*http.Cookie
		want    string
	}{
		{
			name: "no cookies",
			want: "",
		},
		{
			name:    "other cookies only",
			cookies: []*http.Cookie{{Name: "sessionid", Value: "s1", Path: "/"}},
			want:    "",
		},
		{
			name: "token among others",
			cookies: []*http.Cookie{
				{Name: "sessionid", Value: "s1", Path: "/"},
				{Name: "csrftoken", Value: "tok123", Path: "/"},
			},
			want: "tok123",
		},
		{
			name:    "percent encoded",
			cookies: []*http.Cookie{{Name: "csrftoken", Value: "a%2Fb%3Dc", Path: "/"}},
			want:    "a/b=c",
		},
		{
			name:    "malformed escape returned raw",
			cookies: []*http.Cookie{{Name: "csrftoken", Value: "a%zz", Path: "/"}},
			want:    "a%zz",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			jar, err := cookiejar.New(nil)
			require.NoError(t, err)
			jar.SetCookies(u, tt.cookies)

			r := api.NewCookieCSRFReader(jar, base, "csrftoken")
			require.Equal(t, tt.want, r.Token())
		})
	}
}

func TestCookieCSRFReader_NoJar(t *testing.T) {
	t.Parallel()
	require.Equal(t, "", api.NewCookieCSRFReader(nil, "http://localhost:8000", "").Token())

	var nilReader *api.CookieCSRFReader
	require.Equal(t, "", nilReader.Token())
}

func TestCookieCSRFReader_ReadsFresh(t *testing.T) {
	t.Parallel()
	base := "http://localhost:8000"
	u, _ := url.Parse(base)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	r := api.NewCookieCSRFReader(jar, base, "")

	jar.SetCookies(u, []*http.Cookie{{Name: "csrftoken", Value: "first", Path: "/"}})
	require.Equal(t, "first", r.Token())

	jar.SetCookies(u, []*http.Cookie{{Name: "csrftoken", Value: "second", Path: "/"}})
	require.Equal(t, "second", r.Token())
}
