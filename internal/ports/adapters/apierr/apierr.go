// Package apierr turns HTTP responses and transport failures from remote
// services into *types.ServiceError values with secrets scrubbed.
package apierr

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/forPelevin/autosub/internal/types"
)

const maxBody = 64 << 10

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
	keyParamRE    = regexp.MustCompile(`([?&]key=)[^&\s"]+`)
)

// Redact removes the given secrets and anything that looks like a credential.
func Redact(s string, secrets ...string) string {
	if s == "" {
		return s
	}
	out := s
	for _, secret := range secrets {
		if secret != "" {
			out = strings.ReplaceAll(out, secret, "[REDACTED]")
		}
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = keyParamRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}

// FromResponse builds a ServiceError from a non-2xx response. The body is
// read (bounded) but not closed.
func FromResponse(provider, op string, resp *http.Response, secrets ...string) *types.ServiceError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	retryAfter, _ := types.ParseRetryAfter(resp.Header.Get("Retry-After"))
	return types.StatusError(provider, op, resp.StatusCode, Redact(string(body), secrets...), retryAfter)
}

// FromTransport classifies an error returned by http.Client.Do. URLs in the
// message are scrubbed because some APIs carry the key as a query parameter.
func FromTransport(provider, op string, err error, secrets ...string) *types.ServiceError {
	se := types.ClassifyTransport(provider, op, err)
	var uerr *url.Error
	if errors.As(se.Err, &uerr) {
		se.Err = &scrubbed{msg: Redact(uerr.Error(), secrets...), err: uerr.Err}
	}
	return se
}

// Status classifies a status code reported inside an SDK error.
func Status(provider, op string, status int, msg string, secrets ...string) *types.ServiceError {
	return types.StatusError(provider, op, status, Redact(msg, secrets...), 0)
}

type scrubbed struct {
	msg string
	err error
}

func (s *scrubbed) Error() string { return s.msg }

func (s *scrubbed) Unwrap() error { return s.err }
