package clientip

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "forwarded-for first entry wins",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"},
			want:       "203.0.113.7",
		},
		{
			name:       "forwarded-for skips garbage entries",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "unknown, 203.0.113.9"},
			want:       "203.0.113.9",
		},
		{
			name:       "real-ip fallback",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-Ip": "198.51.100.4"},
			want:       "198.51.100.4",
		},
		{
			name:       "socket address fallback",
			remoteAddr: "192.0.2.8:5678",
			want:       "192.0.2.8",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "192.0.2.8",
			want:       "192.0.2.8",
		},
		{
			name:       "unparseable everything",
			remoteAddr: "garbage",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip"},
			want:       "",
		},
		{
			name:       "ipv6 normalized",
			remoteAddr: "[2001:db8::1]:443",
			want:       "2001:db8::1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/send-email", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := FromRequest(req); got != tt.want {
				t.Errorf("FromRequest() = %q, want %q", got, tt.want)
			}
		})
	}
}
