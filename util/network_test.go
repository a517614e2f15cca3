package util

import "testing"

func TestFormatAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"127.0.0.1", 10000, "127.0.0.1:10000"},
		{"::1", 80, "[::1]:80"},
		{"game.example.com", 443, "game.example.com:443"},
	}
	for _, tt := range tests {
		if got := FormatAddr(tt.host, tt.port); got != tt.want {
			t.Errorf("FormatAddr(%q, %d) = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestSplitAddr(t *testing.T) {
	host, port, err := SplitAddr("10.0.0.5:10000")
	if err != nil {
		t.Fatal(err)
	}
	if host != "10.0.0.5" || port != 10000 {
		t.Errorf("got (%q, %d)", host, port)
	}

	for _, bad := range []string{"nohost", "h:0", "h:70000", "h:abc"} {
		if _, _, err := SplitAddr(bad); err == nil {
			t.Errorf("SplitAddr(%q) expected error", bad)
		}
	}
}

func TestFindFreePort(t *testing.T) {
	port, err := FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	if port <= 0 || port > 65535 {
		t.Errorf("port %d out of range", port)
	}
}
