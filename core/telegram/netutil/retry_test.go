package netutil

import (
	"context"
	"errors"
	"net"
	"net/url"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestShouldRetry(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	read := &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset")}
	tests := []struct {
		name  string
		err   error
		retry bool
		dial  bool
	}{
		{"nil", nil, false, false},
		{"plain", errors.New("bad request"), false, false},
		{"dial", dial, true, true},
		{"wrapped dial", &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: dial}, true, true},
		{"dns", &net.DNSError{Err: "no such host", Name: "api.telegram.org"}, true, true},
		{"timeout", &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: timeoutErr{}}, true, false},
		{"reset", read, false, false},
		{"canceled", context.Canceled, false, false},
	}
	for _, tt := range tests {
		if got := ShouldRetry(tt.err); got != tt.retry {
			t.Errorf("%s: ShouldRetry = %v, want %v", tt.name, got, tt.retry)
		}
		if got := IsDialError(tt.err); got != tt.dial {
			t.Errorf("%s: IsDialError = %v, want %v", tt.name, got, tt.dial)
		}
	}
}
