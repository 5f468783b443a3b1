package auth

import (
	"net/url"
	"strings"
)

const SignInPage = "/auth"

// SignInPath is where an unauthenticated caller is sent, carrying the
// page to return to. Only same-site absolute paths are carried over.
func SignInPath(returnPath string) string {
	if !SafeReturnPath(returnPath) {
		return SignInPage
	}
	return SignInPage + "?next=" + url.QueryEscape(returnPath)
}

// SafeReturnPath rejects anything that could leave the site, such as
// "//evil.com" or "https://evil.com".
func SafeReturnPath(p string) bool {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return false
	}
	u, err := url.Parse(p)
	return err == nil && u.Scheme == "" && u.Host == ""
}

func ListingPath(id string) string {
	return "/market/listings/" + url.PathEscape(id)
}
