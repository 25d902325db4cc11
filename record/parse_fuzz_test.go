package record

import "testing"

func FuzzParse(f *testing.F) {
	seeds := []string{
		happyLine,
		`127.0.0.1 - - [20/Jul/2022:22:12:47 +0200] "-" "GET / HTTP/1.1" 200 0 "-" "-"`,
		``,
		`short`,
		"   \t\t   ",
		`badip - - [invalid-date] "INVALID" 999 NaN "malformed" "agent"`,
		`192.168.1.1 - - [01/Jan/2025:00:00:00 +0000] "GET /path HTTP/1.1 200 0 "-" "test"`,
		"192.168.1.1 - - [01/Jan/2025:00:00:00 +0000] \"GET /\x00path HTTP/1.1\" 200 0 \"-\" \"test\"",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, line string) {
		rec, err := Parse(line)
		if err != nil {
			return
		}
		if rec.IP == nil {
			t.Fatalf("successful parse with nil IP for line %q", line)
		}
		// ID must never panic and must be deterministic for a successful parse.
		if rec.ID() != rec.ID() {
			t.Fatalf("ID not deterministic for line %q", line)
		}
	})
}
