// Package privacy scrubs credentials and identifying data from messages
// before they leave the process as error telemetry.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

var (
	urlPattern    = regexp.MustCompile(`\b(?:https?|tcp|ssl|wss?|mqtts?)://\S+`)
	geminiKey     = regexp.MustCompile(`\bAIza[0-9A-Za-z_\-]{30,}\b`)
	bearerPattern = regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/\-]+=*`)
	tokenPattern  = regexp.MustCompile(`(?i)\b(api_?key|key|token|secret|password|auth)\s*[:=]\s*[A-Za-z0-9._~+/\-]{8,}=*`)
	emailPattern  = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)
)

// ScrubMessage anonymizes URLs and redacts API keys, bearer tokens,
// key=value credentials and email addresses.
func ScrubMessage(message string) string {
	message = urlPattern.ReplaceAllStringFunc(message, AnonymizeURL)
	message = geminiKey.ReplaceAllString(message, "[API_KEY]")
	message = bearerPattern.ReplaceAllString(message, "Bearer [TOKEN]")
	message = tokenPattern.ReplaceAllString(message, "$1: [TOKEN]")
	return emailPattern.ReplaceAllString(message, "[EMAIL]")
}

// AnonymizeURL replaces a URL with a stable hash of its scheme, host
// category, port and path depth. Credentials and query strings never
// contribute to the result.
func AnonymizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		hash := sha256.Sum256([]byte(rawURL))
		return fmt.Sprintf("url-hash-%x", hash[:8])
	}

	parts := []string{u.Scheme}
	if host := u.Hostname(); host != "" {
		parts = append(parts, categorizeHost(host))
	}
	if port := u.Port(); port != "" {
		parts = append(parts, "port-"+port)
	}
	if path := strings.Trim(u.Path, "/"); path != "" {
		parts = append(parts, fmt.Sprintf("depth-%d", strings.Count(path, "/")+1))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("url-%x", hash[:12])
}

// categorizeHost keeps only the kind of host: localhost, private or public
// address, or the top level domain of a name.
func categorizeHost(host string) string {
	if host == "localhost" {
		return "localhost"
	}
	if ip := net.ParseIP(host); ip != nil {
		switch {
		case ip.IsLoopback():
			return "localhost"
		case ip.IsPrivate() || ip.IsLinkLocalUnicast():
			return "private-ip"
		default:
			return "public-ip"
		}
	}
	if i := strings.LastIndexByte(host, '.'); i >= 0 && i < len(host)-1 {
		return "domain-" + host[i+1:]
	}
	return "unknown-host"
}
