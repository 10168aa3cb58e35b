// Package jsonpath navigates decoded JSON/YAML documents (nested maps,
// slices and scalars) using explicit key/index paths.
package jsonpath

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Kind tags a path segment as a mapping key or a sequence index.
type Kind uint8

const (
	KindKey Kind = iota
	KindIndex
)

// Segment is a single step of a Path.
type Segment struct {
	Kind  Kind
	Key   string
	Index int
}

// Key returns a mapping-key segment.
func Key(k string) Segment { return Segment{Kind: KindKey, Key: k} }

// Index returns a sequence-index segment.
func Index(i int) Segment { return Segment{Kind: KindIndex, Index: i} }

// IsKey reports whether s is a key segment equal to k.
func (s Segment) IsKey(k string) bool { return s.Kind == KindKey && s.Key == k }

func (s Segment) String() string {
	if s.Kind == KindIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Key
}

// Path is an ordered sequence of segments. A string key "0" and the index 0
// are distinct segments.
type Path []Segment

// P builds a Path from strings (keys) and ints (indices). Any other value is
// formatted and used as a key.
func P(parts ...any) Path {
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		switch v := part.(type) {
		case string:
			p = append(p, Key(v))
		case int:
			p = append(p, Index(v))
		case Segment:
			p = append(p, v)
		default:
			p = append(p, Key(fmt.Sprint(v)))
		}
	}
	return p
}

// String renders the path as a.b[0].c.
func (p Path) String() string {
	var sb strings.Builder
	for i, s := range p {
		if s.Kind == KindKey && i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(s.String())
	}
	return sb.String()
}

// Last returns the final segment.
func (p Path) Last() (Segment, bool) {
	if len(p) == 0 {
		return Segment{}, false
	}
	return p[len(p)-1], true
}

// WithLast returns a copy of p with the final segment replaced.
func (p Path) WithLast(s Segment) Path {
	if len(p) == 0 {
		return Path{s}
	}
	out := make(Path, len(p))
	copy(out, p)
	out[len(out)-1] = s
	return out
}

// Parent returns a copy of p without its final segment.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	out := make(Path, len(p)-1)
	copy(out, p[:len(p)-1])
	return out
}

// Append returns a copy of p extended with segs.
func (p Path) Append(segs ...Segment) Path {
	out := make(Path, 0, len(p)+len(segs))
	out = append(out, p...)
	return append(out, segs...)
}

// Equal reports whether two paths have identical segments.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// ParseDotted parses "a.b[0].c" into a Path. A bare all-digit part such as
// "a.0.b" is also read as an index.
func ParseDotted(s string) (Path, error) {
	if strings.TrimSpace(s) == "" {
		return nil, eris.New("jsonpath: empty path")
	}
	var p Path
	for _, part := range strings.Split(s, ".") {
		if part == "" {
			return nil, eris.Errorf("jsonpath: empty segment in %q", s)
		}
		name := part
		var indices []int
		if open := strings.IndexByte(part, '['); open >= 0 {
			name = part[:open]
			rest := part[open:]
			for rest != "" {
				if rest[0] != '[' {
					return nil, eris.Errorf("jsonpath: malformed index in %q", s)
				}
				end := strings.IndexByte(rest, ']')
				if end < 0 {
					return nil, eris.Errorf("jsonpath: unterminated index in %q", s)
				}
				n, err := strconv.Atoi(rest[1:end])
				if err != nil || n < 0 {
					return nil, eris.Errorf("jsonpath: invalid index %q in %q", rest[1:end], s)
				}
				indices = append(indices, n)
				rest = rest[end+1:]
			}
		}
		if name != "" {
			if n, err := strconv.Atoi(name); err == nil && n >= 0 && isDigits(name) {
				p = append(p, Index(n))
			} else {
				p = append(p, Key(name))
			}
		}
		for _, n := range indices {
			p = append(p, Index(n))
		}
	}
	return p, nil
}

// MustParseDotted is ParseDotted for static paths; it panics on error.
func MustParseDotted(s string) Path {
	p, err := ParseDotted(s)
	if err != nil {
		panic(err)
	}
	return p
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// MarshalJSON encodes the path as a mixed array: ["a", 0, "b"].
func (p Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.parts())
}

// UnmarshalJSON decodes a mixed array of strings and non-negative integers.
// A string value is accepted as shorthand for a dotted path.
func (p *Path) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return eris.Wrap(err, "jsonpath: decode path")
	}
	switch v := raw.(type) {
	case string:
		parsed, err := ParseDotted(v)
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	case []any:
		out := make(Path, 0, len(v))
		for i, elem := range v {
			switch e := elem.(type) {
			case string:
				out = append(out, Key(e))
			case json.Number:
				n, err := strconv.Atoi(e.String())
				if err != nil || n < 0 {
					return eris.Errorf("jsonpath: segment %d: %s is not a valid index", i, e)
				}
				out = append(out, Index(n))
			default:
				return eris.Errorf("jsonpath: segment %d: unsupported type %T", i, elem)
			}
		}
		*p = out
		return nil
	default:
		return eris.Errorf("jsonpath: path must be an array or string, got %T", raw)
	}
}

// MarshalYAML encodes the path as a mixed sequence.
func (p Path) MarshalYAML() (any, error) {
	return p.parts(), nil
}

// UnmarshalYAML decodes a mixed sequence; integer-tagged scalars are indices.
func (p *Path) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		parsed, err := ParseDotted(node.Value)
		if err != nil {
			return err
		}
		*p = parsed
		return nil
	case yaml.SequenceNode:
		out := make(Path, 0, len(node.Content))
		for i, n := range node.Content {
			if n.Kind != yaml.ScalarNode {
				return eris.Errorf("jsonpath: segment %d: expected scalar", i)
			}
			if n.Tag == "!!int" {
				idx, err := strconv.Atoi(n.Value)
				if err != nil || idx < 0 {
					return eris.Errorf("jsonpath: segment %d: %s is not a valid index", i, n.Value)
				}
				out = append(out, Index(idx))
				continue
			}
			out = append(out, Key(n.Value))
		}
		*p = out
		return nil
	default:
		return eris.Errorf("jsonpath: line %d: path must be a sequence or string", node.Line)
	}
}

func (p Path) parts() []any {
	out := make([]any, len(p))
	for i, s := range p {
		if s.Kind == KindIndex {
			out[i] = s.Index
		} else {
			out[i] = s.Key
		}
	}
	return out
}
