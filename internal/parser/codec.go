package parser

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// keyOrder is the canonical frontmatter key order. Remaining keys follow
// alphabetically.
var keyOrder = []string{"id", "core/title", "core/aliases"}

// EncodeFile renders a note in canonical form: frontmatter keys in
// canonical order, the --- delimiters, one blank line, then the body.
// An empty meta map yields the bare body. EncodeFile is the single write
// path for notes, so parse → encode → parse is a fixed point.
func EncodeFile(meta map[string]any, body string) ([]byte, error) {
	body = strings.TrimLeft(body, "\n")
	if len(meta) == 0 {
		return []byte(body), nil
	}

	doc := &yaml.Node{Kind: yaml.MappingNode}
	add := func(k string) error {
		var val yaml.Node
		if err := val.Encode(meta[k]); err != nil {
			return fmt.Errorf("parser: encode frontmatter key %q: %w", k, err)
		}
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: k},
			&val)
		return nil
	}

	seen := make(map[string]bool, len(keyOrder))
	for _, k := range keyOrder {
		if _, ok := meta[k]; ok {
			if err := add(k); err != nil {
				return nil, err
			}
			seen[k] = true
		}
	}
	rest := make([]string, 0, len(meta))
	for k := range meta {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		if err := add(k); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("parser: encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("parser: close frontmatter encoder: %w", err)
	}
	buf.WriteString("---\n\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}
