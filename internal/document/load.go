package document

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
)

// Load parses a document from r. C++-style `//` comments are stripped
// before parsing; `//` inside string literals is preserved. Numbers are
// kept as json.Number so that untouched leaves serialize back with
// their original literal form.
func Load(r io.Reader) (any, error) {
	stripped, err := stripComments(r)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(stripped))
	dec.UseNumber()

	root, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after document")
	}
	return root, nil
}

// LoadFile reads and parses the document at path.
func LoadFile(path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	root, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return root, nil
}

// stripComments removes everything from `//` to end of line, outside
// string literals.
func stripComments(r io.Reader) ([]byte, error) {
	var out bytes.Buffer
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		out.Write(uncommentLine(line))
		out.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func uncommentLine(line []byte) []byte {
	inString := false
	for i := 0; i < len(line); i++ {
		switch {
		case inString && line[i] == '\\':
			i++
		case line[i] == '"':
			inString = !inString
		case !inString && line[i] == '/' && i+1 < len(line) && line[i+1] == '/':
			return line[:i]
		}
	}
	return line
}

// decodeValue reads one complete value from the token stream.
func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeFrom(dec, tok)
}

func decodeFrom(dec *json.Decoder, tok json.Token) (any, error) {
	delim, ok := tok.(json.Delim)
	if !ok {
		// string, bool, json.Number, or nil
		return tok, nil
	}

	switch delim {
	case '{':
		m := NewMap()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key token %v", keyTok)
			}
			value, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			m.Set(key, value)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return m, nil
	case '[':
		s := NewSeq()
		for dec.More() {
			value, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			s.Append(value)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim.String())
	}
}
