// Package codec reads and writes the profile contents format: one
// `KEY=BASE64(VALUE)` line per key, sorted by key, newline terminated.
package codec

import (
	"encoding/base64"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"
)

// Encode renders keys in the contents format. Each value is base64-encoded
// on its own so arbitrary bytes survive. An empty map encodes to "".
func Encode(keys map[string]string) string {
	if len(keys) == 0 {
		return ""
	}

	names := make([]string, 0, len(keys))
	for name := range keys {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(base64.StdEncoding.EncodeToString([]byte(keys[name])))
		b.WriteByte('\n')
	}
	return b.String()
}

// Decode parses the contents format. Blank lines, '#' comments and lines
// without '=' are ignored. A value that is not valid base64 or does not
// decode to UTF-8 drops only that line, with a warning on logger.
func Decode(text string, logger *slog.Logger) map[string]string {
	if logger == nil {
		logger = slog.Default()
	}

	keys := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, encoded, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			logger.Warn("skipping undecodable key", slog.String("key", name), slog.Any("error", err))
			continue
		}
		if !utf8.Valid(raw) {
			logger.Warn("skipping key with non-UTF-8 value", slog.String("key", name))
			continue
		}

		keys[name] = string(raw)
	}
	return keys
}
