package record

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// ParseError reports why a line failed to parse. Line is the original,
// unmodified input so callers can forward it to diagnostics.
type ParseError struct {
	Reason string
	Line   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %q", e.Reason, e.Line)
}

func malformed(line, reason string) error {
	return &ParseError{Reason: reason, Line: line}
}

// timestampLayout is the strict layout for "DD/Mon/YYYY:HH:MM:SS ±ZZZZ".
// time.Parse rejects an unknown or truncated month name against "Jan";
// it matches month names case-insensitively, so "jul" parses as "Jul".
const timestampLayout = "02/Jan/2006:15:04:05 -0700"

// Parse turns one raw log line into a Record, matching the grammar:
//
//	<client> <ident> <user> [<ts>] "<host>" "<request>" <status> <size> "<refer>" "<agent>"
//
// <client> may be "ip" or "ip, alt_ip". <ident> and <user> are consumed and
// discarded. A quoted value of "-" means the field is absent.
func Parse(line string) (*Record, error) {
	raw := line

	bracketStart := strings.IndexByte(line, '[')
	if bracketStart < 0 {
		return nil, malformed(raw, "missing timestamp bracket")
	}
	bracketEnd := strings.IndexByte(line[bracketStart:], ']')
	if bracketEnd < 0 {
		return nil, malformed(raw, "unterminated timestamp bracket")
	}
	bracketEnd += bracketStart

	preamble := strings.TrimRight(line[:bracketStart], " ")
	tokens := strings.Fields(preamble)
	if len(tokens) < 3 {
		return nil, malformed(raw, "missing client/ident/user fields")
	}
	clientField := strings.Join(tokens[:len(tokens)-2], " ")

	ip, altIP, err := parseClient(clientField)
	if err != nil {
		return nil, &ParseError{Reason: err.Error(), Line: raw}
	}

	ts, err := time.Parse(timestampLayout, line[bracketStart+1:bracketEnd])
	if err != nil {
		return nil, malformed(raw, "unparsable timestamp")
	}

	rest := line[bracketEnd+1:]
	fields, err := scanQuotedAndPlain(rest)
	if err != nil {
		return nil, &ParseError{Reason: err.Error(), Line: raw}
	}

	statusCode, err := strconv.ParseUint(fields.status, 10, 16)
	if err != nil {
		return nil, malformed(raw, "status not integral")
	}
	size, err := strconv.ParseUint(fields.size, 10, 64)
	if err != nil {
		return nil, malformed(raw, "size not integral")
	}

	return &Record{
		IP:         ip,
		AltIP:      altIP,
		Host:       optionalString(fields.host),
		Request:    fields.request,
		Refer:      optionalString(fields.refer),
		StatusCode: uint16(statusCode),
		Size:       size,
		UserAgent:  optionalString(fields.userAgent),
		Time:       ts.Unix(),
	}, nil
}

// parseClient splits "ip" or "ip, alt_ip" and validates each address.
// An unparsable alt_ip is demoted to absent, never an error.
func parseClient(field string) (net.IP, net.IP, error) {
	primary := field
	var altRaw string
	if idx := strings.IndexByte(field, ','); idx >= 0 {
		primary = strings.TrimSpace(field[:idx])
		altRaw = strings.TrimSpace(field[idx+1:])
	}

	ip := net.ParseIP(primary)
	if ip == nil {
		return nil, nil, fmt.Errorf("unparsable primary IP %q", primary)
	}

	var alt net.IP
	if altRaw != "" {
		if a := net.ParseIP(altRaw); a != nil {
			alt = a
		}
	}
	return ip, alt, nil
}

type plainFields struct {
	host      string
	request   string
	status    string
	size      string
	refer     string
	userAgent string
}

// scanQuotedAndPlain scans: "<host>" "<request>" <status> <size> "<refer>" "<agent>"
// Quoted fields are opaque: content is taken verbatim between the first and
// the matching closing quote, no escaping is recognized.
func scanQuotedAndPlain(s string) (plainFields, error) {
	var out plainFields
	pos := 0

	next := func() (string, bool) {
		for pos < len(s) && s[pos] == ' ' {
			pos++
		}
		if pos >= len(s) || s[pos] != '"' {
			return "", false
		}
		pos++
		start := pos
		idx := strings.IndexByte(s[pos:], '"')
		if idx < 0 {
			return "", false
		}
		pos += idx
		val := s[start:pos]
		pos++ // skip closing quote
		return val, true
	}

	var ok bool
	out.host, ok = next()
	if !ok {
		return out, fmt.Errorf("missing quoted host field")
	}
	out.request, ok = next()
	if !ok {
		return out, fmt.Errorf("missing quoted request field")
	}

	for pos < len(s) && s[pos] == ' ' {
		pos++
	}
	start := pos
	for pos < len(s) && s[pos] != ' ' {
		pos++
	}
	if start == pos {
		return out, fmt.Errorf("missing status field")
	}
	out.status = s[start:pos]

	for pos < len(s) && s[pos] == ' ' {
		pos++
	}
	start = pos
	for pos < len(s) && s[pos] != ' ' {
		pos++
	}
	if start == pos {
		return out, fmt.Errorf("missing size field")
	}
	out.size = s[start:pos]

	out.refer, ok = next()
	if !ok {
		return out, fmt.Errorf("missing quoted refer field")
	}
	out.userAgent, ok = next()
	if !ok {
		return out, fmt.Errorf("missing quoted user-agent field")
	}

	return out, nil
}
