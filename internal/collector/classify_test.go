package collector

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/rickgao/ashare-data/internal/api"
	"github.com/rickgao/ashare-data/internal/ratelimit"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ratelimit.Outcome
	}{
		{"nil", nil, ratelimit.OutcomeSuccess},
		{"429", &api.APIError{StatusCode: 429}, ratelimit.OutcomeRateLimited},
		{"403", &api.APIError{StatusCode: 403}, ratelimit.OutcomeRateLimited},
		{"418", &api.APIError{StatusCode: 418}, ratelimit.OutcomeRateLimited},
		{"500", &api.APIError{StatusCode: 500}, ratelimit.OutcomeOtherError},
		{"wrapped 429", fmt.Errorf("get daily bars: %w", &api.APIError{StatusCode: 429}), ratelimit.OutcomeRateLimited},
		{"connection reset", fmt.Errorf("read tcp: %w", syscall.ECONNRESET), ratelimit.OutcomeRateLimited},
		{"plain error", errors.New("parse kline: bad field"), ratelimit.OutcomeOtherError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
