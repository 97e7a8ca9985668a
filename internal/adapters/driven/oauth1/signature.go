package oauth1

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// SignatureMethod is the only signature method this client produces
const SignatureMethod = "HMAC-SHA1"

// Param is a single request parameter. Order and duplicates are preserved
// until normalization.
type Param struct {
	Key   string
	Value string
}

// PercentEncode encodes s per RFC 5849 section 3.6: every byte outside the
// RFC 3986 unreserved set becomes %XX with uppercase hex.
func PercentEncode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return ('A' <= c && c <= 'Z') ||
		('a' <= c && c <= 'z') ||
		('0' <= c && c <= '9') ||
		c == '-' || c == '.' || c == '_' || c == '~'
}

// NormalizeURL returns the base string URI of raw (RFC 5849 section 3.4.1.2):
// scheme and host lowercased, default ports dropped, query and fragment removed.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q is not absolute", raw)
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port != "" && !(scheme == "http" && port == "80") && !(scheme == "https" && port == "443") {
		host = host + ":" + port
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return scheme + "://" + host + path, nil
}

// NormalizeParams encodes, sorts and joins params (RFC 5849 section 3.4.1.3.2).
// Sorting is by encoded key, then encoded value.
func NormalizeParams(params []Param) string {
	encoded := make([]Param, len(params))
	for i, p := range params {
		encoded[i] = Param{Key: PercentEncode(p.Key), Value: PercentEncode(p.Value)}
	}
	sort.Slice(encoded, func(i, j int) bool {
		if encoded[i].Key == encoded[j].Key {
			return encoded[i].Value < encoded[j].Value
		}
		return encoded[i].Key < encoded[j].Key
	})

	pairs := make([]string, len(encoded))
	for i, p := range encoded {
		pairs[i] = p.Key + "=" + p.Value
	}
	return strings.Join(pairs, "&")
}

// SignatureBaseString builds the signature base string for a request.
// Query parameters already present on rawURL are included in the parameter set.
// params must not contain oauth_signature.
func SignatureBaseString(method, rawURL string, params []Param) (string, error) {
	baseURI, err := NormalizeURL(rawURL)
	if err != nil {
		return "", err
	}

	all := append([]Param(nil), params...)
	if u, err := url.Parse(rawURL); err == nil {
		for key, values := range u.Query() {
			for _, v := range values {
				all = append(all, Param{Key: key, Value: v})
			}
		}
	}

	return strings.ToUpper(method) + "&" +
		PercentEncode(baseURI) + "&" +
		PercentEncode(NormalizeParams(all)), nil
}

// SigningKey joins the encoded consumer secret and token secret with '&'.
// tokenSecret is empty on the temporary-credentials leg.
func SigningKey(consumerSecret, tokenSecret string) string {
	return PercentEncode(consumerSecret) + "&" + PercentEncode(tokenSecret)
}

// Sign computes the base64 HMAC-SHA1 of base with key
func Sign(key, base string) string {
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// AuthorizationHeader formats protocol parameters as an OAuth Authorization header value
func AuthorizationHeader(oauthParams []Param) string {
	sorted := append([]Param(nil), oauthParams...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	parts := make([]string, len(sorted))
	for i, p := range sorted {
		parts[i] = PercentEncode(p.Key) + `="` + PercentEncode(p.Value) + `"`
	}
	return "OAuth " + strings.Join(parts, ", ")
}
