package helpers

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DateTimeLayout is the timestamp format accepted in range query parameters.
const DateTimeLayout = "2006-01-02 15:04:05"

// ParseTimeParam reads a named query parameter as a timestamp. Returns nil when
// the parameter is absent; an error when present but unparsable.
func ParseTimeParam(r *http.Request, name string) (*time.Time, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateTimeLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, err
		}
	}
	return &t, nil
}

// ParseInt64List reads a repeatable query parameter (or one comma-separated
// value) as a list of int64 ids. Unparsable entries are an error.
func ParseInt64List(r *http.Request, name string) ([]int64, error) {
	var out []int64
	for _, raw := range r.URL.Query()[name] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			v, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
	}
	return out, nil
}

// ParseBoolParam reads a named query parameter as a bool. Returns nil when absent.
func ParseBoolParam(r *http.Request, name string) (*bool, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ClientIP returns the caller's address: the first X-Forwarded-For entry when
// present, otherwise RemoteAddr without the port.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
