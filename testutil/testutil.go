// Package testutil generates fixture log lines matching record.Parse's
// grammar, for tests that need volume rather than hand-picked edge cases.
package testutil

import (
	"fmt"
	"os"
	"strings"
	"testing"
)

var sampleLines = []string{
	`203.0.113.10 - - [01/Jan/2025:10:15:30 +0000] "shop.example.com" "GET /api/users HTTP/1.1" 200 1024 "-" "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"`,
	`198.51.100.42 - - [01/Jan/2025:10:15:31 +0000] "shop.example.com" "POST /api/login HTTP/1.1" 401 512 "-" "curl/7.68.0"`,
	`192.0.2.88, 10.0.0.5 - - [01/Jan/2025:10:15:32 +0000] "cdn.example.com" "GET /static/logo.png HTTP/1.1" 200 8192 "https://example.com/" "Mozilla/5.0 (X11; Linux x86_64)"`,
	`203.0.113.25 - admin [01/Jan/2025:10:15:33 +0000] "api.example.com" "DELETE /api/cache HTTP/1.1" 204 0 "-" "AdminTool/2.0"`,
	`198.51.100.88 - - [01/Jan/2025:10:15:34 +0000] "api.example.com" "GET /dataset/?limit=100&offset=50 HTTP/1.1" 200 45678 "-" "Python-requests/2.28"`,
	`192.0.2.150 - - [01/Jan/2025:10:15:35 +0000] "shop.example.com" "HEAD /robots.txt HTTP/1.1" 404 0 "-" "Googlebot/2.1"`,
	`2001:db8::1 - user [01/Jan/2025:10:15:36 +0000] "shop.example.com" "PUT /api/profile/123 HTTP/1.1" 200 2048 "-" "Mozilla/5.0 (Macintosh; Intel Mac OS X)"`,
	`172.16.0.1 - - [01/Jan/2025:10:15:37 +0000] "health.example.com" "GET /health HTTP/1.1" 200 128 "-" "HealthChecker/1.0"`,
}

// Lines returns n fixture lines, cycling through a fixed sample set and
// stamping each with a distinct suffix on its request field so no two
// lines are byte-identical. Lines that reuse the same sample keep its
// timestamp and IP, so they hash to the same document ID.
func Lines(n int) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		base := sampleLines[i%len(sampleLines)]
		out[i] = stampRequest(base, i)
	}
	return out
}

// stampRequest appends a disambiguating query parameter to the quoted
// request field so Lines never produces two byte-identical records.
func stampRequest(line string, seq int) string {
	return strings.Replace(line, "HTTP/1.1\"", fmt.Sprintf("HTTP/1.1?seq=%d\"", seq), 1)
}

// WriteLogFile writes n generated lines to a temp file under t.TempDir
// and returns its path.
func WriteLogFile(t *testing.T, n int) string {
	t.Helper()
	path := t.TempDir() + "/access.log"
	content := strings.Join(Lines(n), "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture log file: %v", err)
	}
	return path
}
