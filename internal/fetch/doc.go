// Package fetch retrieves watched documents over HTTP(S).
//
// A Fetcher performs one GET per source and returns the response body decoded
// to UTF-8. Responses outside the 2xx range are failures, as are bodies larger
// than the configured limit, so a truncated or error page is never mistaken
// for a content change.
//
// NewClient builds the underlying *http.Client. It can route every request
// through a SOCKS5 proxy and caps the number of redirects followed.
package fetch
