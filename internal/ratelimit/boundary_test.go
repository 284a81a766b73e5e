package ratelimit

import (
	"testing"
	"time"
)

func TestBoundary_Validate(t *testing.T) {
	tests := []struct {
		name    string
		b       Boundary
		wantErr bool
	}{
		{"valid", Boundary{WindowSeconds: 300, MaxRequests: 120}, false},
		{"zero window", Boundary{WindowSeconds: 0, MaxRequests: 120}, true},
		{"negative window", Boundary{WindowSeconds: -5, MaxRequests: 120}, true},
		{"zero max", Boundary{WindowSeconds: 300, MaxRequests: 0}, true},
		{"negative max", Boundary{WindowSeconds: 300, MaxRequests: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.b.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBoundary_Policy(t *testing.T) {
	b := Boundary{WindowSeconds: 300, MaxRequests: 120}

	p := b.Policy(0.8, 1.2)
	if p.BatchSize != 96 {
		t.Errorf("BatchSize = %d, want 96", p.BatchSize)
	}
	if p.PauseDuration != 360*time.Second {
		t.Errorf("PauseDuration = %v, want 6m", p.PauseDuration)
	}

	// Zero margins fall back to the defaults.
	if got := b.Policy(0, 0); got != p {
		t.Errorf("Policy(0, 0) = %+v, want defaults %+v", got, p)
	}

	// Tiny budgets never produce an unusable zero batch.
	small := Boundary{WindowSeconds: 60, MaxRequests: 1}
	if got := small.Policy(0.8, 1.2).BatchSize; got != 1 {
		t.Errorf("BatchSize for budget 1 = %d, want 1", got)
	}
}

func TestBoundary_Window(t *testing.T) {
	b := Boundary{WindowSeconds: 2.5, MaxRequests: 1}
	if got := b.Window(); got != 2500*time.Millisecond {
		t.Errorf("Window() = %v, want 2.5s", got)
	}
}

func TestKey_String(t *testing.T) {
	k := Key{Source: "akshare", Interface: "kline", DataType: "daily"}
	if got := k.String(); got != "akshare/kline/daily" {
		t.Errorf("String() = %q", got)
	}
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey("akshare/kline/daily")
	if err != nil {
		t.Fatalf("ParseKey: %v", err)
	}
	if k != (Key{Source: "akshare", Interface: "kline", DataType: "daily"}) {
		t.Errorf("ParseKey = %+v", k)
	}

	for _, bad := range []string{"", "a/b", "a/b/c/d", "a//c"} {
		if _, err := ParseKey(bad); err == nil {
			t.Errorf("ParseKey(%q) accepted", bad)
		}
	}
}
