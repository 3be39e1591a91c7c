package api

import (
	"net/http"
	"net/url"
)

const (
	DefaultCSRFCookie = "csrftoken"
	DefaultCSRFHeader = "X-CSRFToken"
)

type CSRFReader interface {
	Token() string
}

// CookieCSRFReader looks the token up in a cookie jar on every call.
type CookieCSRFReader struct {
	jar    http.CookieJar
	target *url.URL
	name   string
}

func NewCookieCSRFReader(jar http.CookieJar, baseURL, name string) *CookieCSRFReader {
	if name == "" {
		name = DefaultCSRFCookie
	}
	r := &CookieCSRFReader{jar: jar, name: name}
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		r.target = &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}
	}
	return r
}

// Token returns the decoded cookie value, or "" when the cookie is missing
// or the reader has no jar to look in.
func (r *CookieCSRFReader) Token() string {
	if r == nil || r.jar == nil || r.target == nil {
		return ""
	}
	for _, c := range r.jar.Cookies(r.target) {
		if c.Name != r.name {
			continue
		}
		v, err := url.PathUnescape(c.Value)
		if err != nil {
			return c.Value
		}
		return v
	}
	return ""
}
