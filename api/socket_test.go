package api

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		ok      bool
	}{
		{name: "nothing configured", allowed: nil, origin: "http://evil.test", ok: true},
		{name: "allowed origin", allowed: []string{"http://chat.test"}, origin: "http://chat.test", ok: true},
		{name: "path is ignored", allowed: []string{"http://chat.test"}, origin: "http://chat.test/app", ok: true},
		{name: "other origin", allowed: []string{"http://chat.test"}, origin: "http://evil.test", ok: false},
		{name: "no origin header", allowed: []string{"http://chat.test"}, origin: "", ok: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/socket", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			require.Equal(t, tt.ok, checkOrigin(tt.allowed)(r))
		})
	}
}
