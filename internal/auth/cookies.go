package auth

import (
	"strings"

	"github.com/ibeckermayer/dsltask/internal/browser"
)

// Cookie is a name/value pair taken from a Cookie header style string
type Cookie struct {
	Name  string
	Value string
}

// ParseCookieHeader splits a "name=value; name2=value2" string as copied from a
// browser's request headers. Only the first '=' separates name from value, so
// values may contain '='. Fragments without '=' or with an empty name are
// dropped. Surrounding whitespace is trimmed from names and values.
func ParseCookieHeader(s string) []Cookie {
	var cookies []Cookie
	for _, part := range strings.Split(s, ";") {
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		cookies = append(cookies, Cookie{Name: name, Value: strings.TrimSpace(value)})
	}
	return cookies
}

// ForDomain scopes the parsed cookies to domain with path "/"
func ForDomain(cookies []Cookie, domain string) []browser.Cookie {
	scoped := make([]browser.Cookie, 0, len(cookies))
	for _, c := range cookies {
		scoped = append(scoped, browser.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: domain,
			Path:   "/",
		})
	}
	return scoped
}

// onDomain reports whether a cookie from the browser's jar belongs to domain.
// Leading dots are ignored on both sides.
func onDomain(c browser.Cookie, domain string) bool {
	return strings.TrimPrefix(c.Domain, ".") == strings.TrimPrefix(domain, ".")
}
