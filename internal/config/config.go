// Package config parses the line-oriented target list file: one host per
// line, optional display name, optional header groups for UI display,
// '#' comments, ASCII-only.
package config

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Entry is one parsed, unresolved target line.
type Entry struct {
	// Host is the hostname or address as written in the file.
	Host string
	// Name is the display name: either explicitly given, or Host if none
	// was given. When a header group is active, Name is prefixed with the
	// canonical 3-space indent.
	Name string
	// Header is the most recently opened header group this entry falls
	// under, or "" if none is active. It is transparent to the engine and
	// exists purely for UI grouping.
	Header string
}

const headerIndent = "   "

// Parse reads a target list from r. Lines are ASCII-only; any byte >= 0x80
// is a fatal parse error. A line beginning with '#' is a comment. A line
// beginning with '>' opens a header group (text after '>' is the header
// name, trimmed); a bare '>' closes the current header. All other
// non-blank lines are "HOST [DISPLAY_NAME]", trailing whitespace trimmed.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry
	var header string

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := sc.Text()
		if err := requireASCII(raw); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNo, err)
		}
		line := trimTrailingASCIISpace(raw)

		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "#"):
			continue
		case strings.HasPrefix(line, ">"):
			rest := strings.TrimSpace(line[1:])
			header = rest // "" for a bare '>', which closes the group
			continue
		}

		host, name := splitHostName(line)
		if header != "" {
			name = headerIndent + name
		}
		entries = append(entries, Entry{Host: host, Name: name, Header: header})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return entries, nil
}

func splitHostName(line string) (host, name string) {
	fields := strings.SplitN(line, " ", 2)
	host = fields[0]
	if len(fields) == 2 {
		name = trimTrailingASCIISpace(strings.TrimLeft(fields[1], " \t"))
	}
	if name == "" {
		name = host
	}
	return host, name
}

// trimTrailingASCIISpace trims trailing ASCII whitespace. The original C
// implementation this config format was ported from trims while comparing
// line[l-1], which can leave the final character untrimmed; this is the
// corrected, off-by-one-free version.
func trimTrailingASCIISpace(s string) string {
	end := len(s)
	for end > 0 && isASCIISpace(s[end-1]) {
		end--
	}
	return s[:end]
}

func isASCIISpace(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '\v', '\f':
		return true
	}
	return false
}

func requireASCII(s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return fmt.Errorf("non-ASCII byte 0x%02x at offset %d", s[i], i)
		}
	}
	return nil
}
