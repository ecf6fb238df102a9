package cache_test

import (
	"testing"

	"github.com/toastnco/prometheus/cache"
)

func TestKeys(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"server", cache.ServerKey(80351110224678912), "server_80351110224678912"},
		{"welcome", cache.WelcomeKey(42), "welcome_42"},
		{"max", cache.Key("x", ^uint64(0)), "x_18446744073709551615"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
