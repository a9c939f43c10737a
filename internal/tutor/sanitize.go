package tutor

import (
	"regexp"
	"strings"
)

const marker = '*'

var markerRun = regexp.MustCompile(`\*{3,}`)

// Sanitize normalizes the emphasis markers in model output into bold
// headers, "* " bullets and "**bold**" spans. It works line by line and is
// not a markdown parser; it only promises that the result is stable under
// a second pass and that well-formed "**text**" spans are left alone.
func Sanitize(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = sanitizeLine(line)
	}
	return markerRun.ReplaceAllString(strings.Join(lines, "\n"), "**")
}

func sanitizeLine(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return line
	}
	if header, ok := asHeader(trimmed); ok {
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		return indent + header
	}
	if bullet, ok := asBullet(line); ok {
		return bullet
	}

	out := normalizeInline(line)
	if out != line {
		// Dropping stray markers can turn the line into a header.
		return sanitizeLine(out)
	}
	return out
}

// asHeader matches a line wrapped in doubled markers such as "***Title***"
// and rewraps its text in exactly one pair.
func asHeader(trimmed string) (string, bool) {
	if len(trimmed) <= 4 || !strings.HasPrefix(trimmed, "**") || !strings.HasSuffix(trimmed, "**") {
		return "", false
	}
	interior := strings.Trim(trimmed[2:len(trimmed)-2], string(marker))
	if strings.Contains(interior, "**") {
		return "", false
	}
	text := strings.TrimSpace(strings.ReplaceAll(interior, string(marker), ""))
	if text == "" {
		return "", false
	}
	return "**" + text + "**", true
}

// asBullet matches a line opening with a single marker.
func asBullet(line string) (string, bool) {
	body := strings.TrimLeft(line, " \t")
	if body == "" || body[0] != marker || strings.HasPrefix(body, "**") {
		return "", false
	}
	indent := line[:len(line)-len(body)]
	return indent + "* " + strings.TrimSpace(body[1:]), true
}

// normalizeInline collapses runs of three or more markers into a bold pair
// and drops markers that stand alone.
func normalizeInline(line string) string {
	line = markerRun.ReplaceAllString(line, "**")

	var b strings.Builder
	b.Grow(len(line))
	for i := 0; i < len(line); i++ {
		if line[i] != marker {
			b.WriteByte(line[i])
			continue
		}
		j := i
		for j < len(line) && line[j] == marker {
			j++
		}
		if j-i > 1 {
			b.WriteString(line[i:j])
		}
		i = j - 1
	}
	return b.String()
}
