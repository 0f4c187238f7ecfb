// Package inputfile rewrites `key = value # comment` style simulation
// input files in place. The first line whose left-hand side matches the
// target key has its value replaced, keeping surrounding whitespace and
// any trailing comment, and gains a marker noting the change. Missing
// keys are appended at the end of the file.
package inputfile

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/fjordsim/sweepforge/internal/document"
)

const (
	alteredMarker = "[script-altered]"
	addedMarker   = "[script-added]"
)

// SetField rewrites the first line of the file at path whose key
// matches field, or appends a new line when no line matches. Applying
// the same field and value twice leaves the file unchanged after the
// second application.
func SetField(path, field string, value any) error {
	formatted, err := formatValue(value)
	if err != nil {
		return fmt.Errorf("field %s: %w", field, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var out strings.Builder
	out.Grow(len(content) + 64)
	found := false
	for _, raw := range strings.SplitAfter(string(content), "\n") {
		if found || raw == "" {
			out.WriteString(raw)
			continue
		}
		line, terminated := strings.CutSuffix(raw, "\n")
		if rewritten, ok := rewriteLine(line, field, formatted); ok {
			found = true
			line = rewritten
		}
		out.WriteString(line)
		if terminated {
			out.WriteByte('\n')
		}
	}

	if !found {
		fmt.Fprintf(&out, "\n%s = %s #%s", field, formatted, addedMarker)
	}

	return os.WriteFile(path, []byte(out.String()), info.Mode().Perm())
}

// rewriteLine replaces the value part of line when its left-hand side
// matches field. The left-hand side text, the whitespace before the
// value, and the comment column are preserved.
func rewriteLine(line, field, formatted string) (string, bool) {
	content := line
	comment := ""
	commentPos := strings.IndexByte(line, '#')
	if commentPos != -1 {
		comment = strings.TrimRight(line[commentPos+1:], " \t")
		content = line[:commentPos]
	}

	eqPos := strings.IndexByte(content, '=')
	if eqPos == -1 {
		return "", false
	}
	lhs := content[:eqPos]
	if strings.TrimSpace(lhs) != field {
		return "", false
	}

	rhs := content[eqPos+1:]
	rewritten := lhs + "=" + leadingWhitespace(rhs) + formatted

	comment = stripMarker(comment)
	if commentPos != -1 && len(rewritten)+1 <= commentPos {
		rewritten += strings.Repeat(" ", commentPos-len(rewritten)-1)
	}
	rewritten += " # " + alteredMarker + comment
	return rewritten, true
}

// stripMarker drops a previously written marker from a preserved
// comment so that repeated patches do not accumulate markers.
func stripMarker(comment string) string {
	if rest, ok := strings.CutPrefix(comment, " "+alteredMarker); ok {
		return rest
	}
	if rest, ok := strings.CutPrefix(comment, addedMarker); ok {
		return rest
	}
	return comment
}

func leadingWhitespace(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' && s[i] != '\t' {
			return s[:i]
		}
	}
	return s
}

// formatValue renders a combination value for a line-oriented file.
// Sequences whose first element is numeric are space-joined in general
// number format; string sequences are space-joined as-is.
func formatValue(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case bool:
		return strconv.FormatBool(v), nil
	case *document.Seq:
		items := make([]any, v.Len())
		for i := range items {
			items[i] = v.At(i)
		}
		return formatSeq(items)
	case []any:
		return formatSeq(v)
	default:
		return "", fmt.Errorf("cannot render value of type %T", value)
	}
}

func formatSeq(items []any) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("cannot render empty sequence value")
	}

	parts := make([]string, len(items))
	if _, numeric := asFloat(items[0]); numeric {
		for i, item := range items {
			f, ok := asFloat(item)
			if !ok {
				return "", fmt.Errorf("mixed sequence value: element %d is not numeric", i)
			}
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return strings.Join(parts, " "), nil
	}

	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return "", fmt.Errorf("mixed sequence value: element %d is not a string", i)
		}
		parts[i] = s
	}
	return strings.Join(parts, " "), nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// ReadFloatField scans the file at path for the first line whose key
// matches field and parses its value as a float. The second return is
// false when no line matches.
func ReadFloatField(path, field string) (float64, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		content := line
		if pos := strings.IndexByte(line, '#'); pos != -1 {
			content = line[:pos]
		}
		eqPos := strings.IndexByte(content, '=')
		if eqPos == -1 {
			continue
		}
		if strings.TrimSpace(content[:eqPos]) != field {
			continue
		}

		raw := strings.TrimSpace(content[eqPos+1:])
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, false, fmt.Errorf("field %s: parse %q: %w", field, raw, err)
		}
		return parsed, true, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, false, err
	}
	return 0, false, nil
}
