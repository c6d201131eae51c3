package page

import (
	"net/url"
	"strings"
)

// Identity distinguishes one conversation from another.
// It is the path of the page address, which changes on in-app navigation.
type Identity string

// UnknownIdentity is used when the page address is empty.
const UnknownIdentity Identity = "unknown"

// IdentityFromURL derives the conversation identity from a page address.
// A site root such as https://chatgpt.com is "/". It falls back to the full
// address when no path can be parsed.
func IdentityFromURL(raw string) Identity {
	if raw == "" {
		return UnknownIdentity
	}
	u, err := url.Parse(raw)
	switch {
	case err != nil:
		return Identity(raw)
	case u.Path != "":
		return Identity(u.Path)
	case u.Host != "":
		return "/"
	default:
		return Identity(raw)
	}
}

// CurrentIdentity returns the identity of the page doc is showing.
func CurrentIdentity(doc Document) Identity {
	return IdentityFromURL(doc.Location())
}

// NormalizePath strips the query string and a trailing slash so link targets
// and identities can be compared.
func NormalizePath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return strings.TrimSuffix(p, "/")
}
