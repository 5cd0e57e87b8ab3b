package types

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// maxErrorBody caps how much of a response body lands in an error message.
const maxErrorBody = 400

// ErrorKind classifies why a region failed.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindTransient
	KindPermanent
	KindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindCanceled:
		return "canceled"
	}
	return "unknown"
}

// ServiceError is returned by transcription and translation backends.
type ServiceError struct {
	Provider   string
	Op         string
	Kind       ErrorKind
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *ServiceError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Provider)
	if e.Op != "" {
		b.WriteString(" ")
		b.WriteString(e.Op)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.StatusCode != 0 {
		b.WriteString(" (http ")
		b.WriteString(strconv.Itoa(e.StatusCode))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ServiceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Transient reports whether the failure is worth retrying.
func (e *ServiceError) Transient() bool { return e != nil && e.Kind == KindTransient }

func NewTransient(provider, op string, err error) *ServiceError {
	return &ServiceError{Provider: provider, Op: op, Kind: KindTransient, Err: err}
}

func NewPermanent(provider, op string, err error) *ServiceError {
	return &ServiceError{Provider: provider, Op: op, Kind: KindPermanent, Err: err}
}

// StatusError builds a ServiceError from an HTTP status code and body.
func StatusError(provider, op string, status int, body string, retryAfter time.Duration) *ServiceError {
	body = strings.TrimSpace(body)
	if len(body) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut] + "…"
	}
	return &ServiceError{
		Provider:   provider,
		Op:         op,
		Kind:       ClassifyStatus(status),
		StatusCode: status,
		RetryAfter: retryAfter,
		Err:        errors.New(body),
	}
}

// ClassifyStatus maps an HTTP status to transient (408, 429, 5xx) or permanent.
func ClassifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status >= http.StatusInternalServerError:
		return KindTransient
	default:
		return KindPermanent
	}
}

// ClassifyTransport wraps a transport-level failure from an HTTP client.
// Timeouts are transient; cancellation of the caller is reported as such.
func ClassifyTransport(provider, op string, err error) *ServiceError {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, context.Canceled) {
		return &ServiceError{Provider: provider, Op: op, Kind: KindCanceled, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTransient(provider, op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return NewTransient(provider, op, err)
	}
	return NewPermanent(provider, op, err)
}

// ParseRetryAfter accepts delta-seconds or an HTTP date.
func ParseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		d := time.Until(when)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// DecodeError reports that input media could not be turned into samples.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ConfigError reports an invalid option, detected before any processing.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

func ConfigErrorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
