package ratelimit

import (
	"fmt"
	"strings"
)

// Key identifies one independently rate-limited API surface. Two keys never
// share learned state: each gets its own delay, history, detector state and
// persisted boundary.
type Key struct {
	// Source is the upstream provider (e.g. "akshare").
	Source string

	// Interface is the provider endpoint (e.g. "kline", "clist").
	Interface string

	// DataType is the data shape served by the endpoint (e.g. "daily").
	DataType string
}

// String returns the composite form used as the persistence key.
func (k Key) String() string {
	return k.Source + "/" + k.Interface + "/" + k.DataType
}

// ParseKey parses the composite "source/interface/datatype" form.
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Key{}, fmt.Errorf("invalid limiter key %q", s)
	}
	return Key{Source: parts[0], Interface: parts[1], DataType: parts[2]}, nil
}
