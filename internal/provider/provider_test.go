package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"

	"github.com/tomoki/wallfeed/internal/domain"
)

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"wrapped cancellation", fmt.Errorf("search: %w", context.Canceled), false},
		{"rate limited", &StatusError{Source: domain.SourceWallhaven, StatusCode: 429}, true},
		{"server error", &StatusError{Source: domain.SourcePixabay, StatusCode: 503}, true},
		{"internal error", &StatusError{Source: domain.SourcePexels, StatusCode: 500}, true},
		{"unauthorized", &StatusError{Source: domain.SourcePexels, StatusCode: 401}, false},
		{"not found", &StatusError{Source: domain.SourceWallhaven, StatusCode: 404}, false},
		{"bad request", &StatusError{Source: domain.SourcePixabay, StatusCode: 400}, false},
		{"net timeout", &net.DNSError{IsTimeout: true}, true},
		{"url error", &url.Error{Op: "Get", URL: "https://example.com", Err: errors.New("connection refused")}, true},
		{"plain error", errors.New("decode failure"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRetryable(tc.err); got != tc.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestStatusErrorMessage(t *testing.T) {
	e := &StatusError{Source: domain.SourceWallhaven, StatusCode: 429}
	if e.Error() != "wallhaven: status 429" {
		t.Errorf("unexpected error string: %q", e.Error())
	}
	withMsg := &StatusError{Source: domain.SourcePixabay, StatusCode: 400, Message: "bad key"}
	if withMsg.Error() != "pixabay: status 400: bad key" {
		t.Errorf("unexpected error string: %q", withMsg.Error())
	}
}
