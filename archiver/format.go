package archiver

import (
	"bufio"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ChristianF88/logarchivist/esclient"
)

const noneValue = "None"

// writeLine formats one document as a tab-separated line in the order
// time, ip, alt_ip, host, status, request, refer, user_agent, size, and
// writes it plus a trailing newline to sink.
func writeLine(sink io.Writer, doc esclient.Document) error {
	r := doc.Record
	fields := []string{
		time.Unix(r.Time, 0).Local().Format("2006-01-02 15:04:05"),
		ipOrNone(r.IP),
		ipOrNone(r.AltIP),
		stringOrNone(r.Host),
		strconv.FormatUint(uint64(r.StatusCode), 10),
		r.Request,
		stringOrNone(r.Refer),
		stringOrNone(r.UserAgent),
		strconv.FormatUint(r.Size, 10),
	}
	_, err := io.WriteString(sink, strings.Join(fields, "\t")+"\n")
	return err
}

func ipOrNone(ip net.IP) string {
	if ip == nil {
		return noneValue
	}
	return ip.String()
}

func stringOrNone(s *string) string {
	if s == nil {
		return noneValue
	}
	return *s
}

// canonicalizeDir collapses consecutive slashes and enforces a trailing
// slash, matching beautify("/a//b///c") == "/a/b/c/".
func canonicalizeDir(dir string) string {
	clean := filepath.Clean(dir)
	if clean == "." {
		clean = ""
	}
	if !strings.HasSuffix(clean, "/") {
		clean += "/"
	}
	if !strings.HasPrefix(clean, "/") && strings.HasPrefix(dir, "/") {
		clean = "/" + clean
	}
	return clean
}

func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.Create(path)
}

// bufferedFile wraps a *bufio.Writer over an *os.File so zlib's frequent
// small writes don't turn into frequent small syscalls; Close flushes and
// closes the underlying file.
type bufferedFile struct {
	*bufio.Writer
	file *os.File
}

func (b *bufferedFile) Close() error {
	if err := b.Flush(); err != nil {
		b.file.Close()
		return err
	}
	return b.file.Close()
}
