package document

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/goccy/go-json"
)

const indentUnit = "    "

// Save writes the document tree to w with four-space indentation, keys
// in insertion order.
func Save(w io.Writer, root any) error {
	bw := bufio.NewWriter(w)
	if err := writeValue(bw, root, 0); err != nil {
		return err
	}
	return bw.Flush()
}

// SaveFile writes the document tree to path, truncating any existing
// file.
func SaveFile(path string, root any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Save(f, root); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func writeValue(w *bufio.Writer, v any, depth int) error {
	switch node := v.(type) {
	case *Map:
		return writeMap(w, node.keys, node.values, depth)
	case map[string]any:
		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return writeMap(w, keys, node, depth)
	case *Seq:
		return writeSeq(w, node.items, depth)
	case []any:
		return writeSeq(w, node, depth)
	default:
		return writeScalar(w, v)
	}
}

func writeMap(w *bufio.Writer, keys []string, values map[string]any, depth int) error {
	if len(keys) == 0 {
		_, err := w.WriteString("{}")
		return err
	}
	if _, err := w.WriteString("{\n"); err != nil {
		return err
	}
	for i, key := range keys {
		writeIndent(w, depth+1)
		if err := writeScalar(w, key); err != nil {
			return err
		}
		if _, err := w.WriteString(": "); err != nil {
			return err
		}
		if err := writeValue(w, values[key], depth+1); err != nil {
			return err
		}
		if i < len(keys)-1 {
			w.WriteByte(',')
		}
		w.WriteByte('\n')
	}
	writeIndent(w, depth)
	return w.WriteByte('}')
}

func writeSeq(w *bufio.Writer, items []any, depth int) error {
	if len(items) == 0 {
		_, err := w.WriteString("[]")
		return err
	}
	if _, err := w.WriteString("[\n"); err != nil {
		return err
	}
	for i, item := range items {
		writeIndent(w, depth+1)
		if err := writeValue(w, item, depth+1); err != nil {
			return err
		}
		if i < len(items)-1 {
			w.WriteByte(',')
		}
		w.WriteByte('\n')
	}
	writeIndent(w, depth)
	return w.WriteByte(']')
}

func writeIndent(w *bufio.Writer, depth int) {
	for i := 0; i < depth; i++ {
		w.WriteString(indentUnit)
	}
}

func writeScalar(w *bufio.Writer, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode scalar %v: %w", v, err)
	}
	_, err := w.Write(bytes.TrimRight(buf.Bytes(), "\n"))
	return err
}

// MarshalJSON renders the mapping compactly with keys in insertion
// order, so that document values embed in ordinary JSON marshaling.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(m.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON renders the sequence compactly.
func (s *Seq) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, item := range s.items {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
