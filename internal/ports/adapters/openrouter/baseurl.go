package openrouter

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	defaultBaseURL = "https://openrouter.ai"
	apiPath        = "/api/v1"
)

var defaultAllowedHosts = []string{"openrouter.ai", "api.openrouter.ai"}

func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return defaultBaseURL
	}
	return baseURL
}

// apiURL returns the OpenAI-compatible endpoint root under baseURL. A base
// URL that already names the API path is used as is.
func apiURL(baseURL string) string {
	base := normalizeBaseURL(baseURL)
	if !strings.HasSuffix(base, apiPath) {
		base += apiPath
	}
	return base + "/"
}

// ValidateBaseURL accepts only an https origin on one of allowedHosts (the
// OpenRouter hosts when empty). The API key is sent to whatever host passes.
func ValidateBaseURL(baseURL string, allowedHosts []string) error {
	baseURL = normalizeBaseURL(baseURL)
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid OPENROUTER_BASE_URL: %w", err)
	}
	if reason := rejectReason(u, hostSet(allowedHosts)); reason != "" {
		return fmt.Errorf("invalid OPENROUTER_BASE_URL %q: %s", baseURL, reason)
	}
	return nil
}

func rejectReason(u *url.URL, allowed map[string]bool) string {
	switch {
	case !u.IsAbs() || u.Host == "":
		return "absolute URL with host is required"
	case u.User != nil:
		return "userinfo is not allowed"
	case u.RawQuery != "" || u.Fragment != "" || u.ForceQuery:
		return "query and fragment are not allowed"
	case u.Hostname() == "":
		return "host is required"
	case !strings.EqualFold(u.Scheme, "https"):
		return "https is required"
	}
	host := strings.ToLower(u.Hostname())
	if !allowed[host] {
		return fmt.Sprintf("host %q is not in OPENROUTER_ALLOWED_HOSTS", host)
	}
	return ""
}

// hostSet normalizes allow-list entries, which may carry a scheme, port or
// trailing slash. An empty result falls back to the OpenRouter hosts.
func hostSet(allowedHosts []string) map[string]bool {
	out := make(map[string]bool, len(allowedHosts))
	for _, h := range allowedHosts {
		if v := bareHost(h); v != "" {
			out[v] = true
		}
	}
	if len(out) == 0 {
		for _, h := range defaultAllowedHosts {
			out[h] = true
		}
	}
	return out
}

func bareHost(entry string) string {
	v := strings.ToLower(strings.TrimSpace(entry))
	if i := strings.Index(v, "://"); i >= 0 {
		v = v[i+3:]
	}
	if i := strings.IndexAny(v, "/"); i >= 0 {
		v = v[:i]
	}
	if i := strings.LastIndex(v, ":"); i >= 0 {
		v = v[:i]
	}
	return v
}
