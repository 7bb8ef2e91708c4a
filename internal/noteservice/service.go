// Package noteservice coordinates vault writes with eager index updates,
// keeping the index current before the next query can run.
package noteservice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/starford/hypo/internal/apperr"
	"github.com/starford/hypo/internal/idgen"
	"github.com/starford/hypo/internal/index"
	"github.com/starford/hypo/internal/parser"
	"github.com/starford/hypo/internal/vault"
)

// Service coordinates storage and index mutations.
type Service struct {
	vault  *vault.Vault
	db     *index.DB
	gen    *idgen.Generator
	logger *slog.Logger
}

// New creates a note service.
func New(v *vault.Vault, db *index.DB, gen *idgen.Generator, logger *slog.Logger) *Service {
	return &Service{vault: v, db: db, gen: gen, logger: logger}
}

// Create writes a new note under a fresh id and indexes it. When a title
// is given it lands in core/title and as the opening heading.
func (s *Service) Create(_ context.Context, title string, meta map[string]any) (string, error) {
	id, err := s.gen.Generate()
	if err != nil {
		return "", err
	}

	m := make(map[string]any, len(meta)+2)
	for k, v := range meta {
		m[k] = v
	}
	m["id"] = id
	body := ""
	if title != "" {
		m["core/title"] = title
		body = "# " + title + "\n"
	}

	if err := s.vault.Put(id, m, body); err != nil {
		return "", err
	}
	if err := s.reindexOne(id); err != nil {
		return "", err
	}
	s.logger.Info("note created", slog.String("id", id))
	return id, nil
}

// Update replaces a note's file content after validating that it still
// parses; a broken edit never reaches the vault.
func (s *Service) Update(_ context.Context, id string, raw []byte) error {
	ok, err := s.vault.Exists(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("noteservice: note %s: %w", id, apperr.ErrNotFound)
	}
	if _, err := parser.Parse(id, raw); err != nil {
		return err
	}
	if err := s.vault.PutRaw(id, raw); err != nil {
		return err
	}
	return s.reindexOne(id)
}

// SetMeta merges keys into a note's frontmatter and reindexes it.
func (s *Service) SetMeta(_ context.Context, id string, values map[string]any) error {
	n, err := s.vault.Get(id)
	if err != nil {
		return err
	}
	meta := n.Meta
	if meta == nil {
		meta = make(map[string]any, len(values)+1)
	}
	for k, v := range values {
		meta[k] = v
	}
	meta["id"] = id
	if err := s.vault.Put(id, meta, n.Body); err != nil {
		return err
	}
	return s.reindexOne(id)
}

// UnsetMeta removes keys from a note's frontmatter, reporting which were
// actually present. The id key is never removed.
func (s *Service) UnsetMeta(_ context.Context, id string, keys []string) ([]string, error) {
	n, err := s.vault.Get(id)
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, k := range keys {
		if k == "id" {
			continue
		}
		if _, ok := n.Meta[k]; ok {
			delete(n.Meta, k)
			removed = append(removed, k)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}
	if err := s.vault.Put(id, n.Meta, n.Body); err != nil {
		return nil, err
	}
	return removed, s.reindexOne(id)
}

// Delete removes the note file and its index rows.
func (s *Service) Delete(_ context.Context, id string) error {
	if err := s.vault.Delete(id); err != nil {
		return err
	}
	if err := s.db.Delete(id); err != nil {
		return err
	}
	s.logger.Info("note deleted", slog.String("id", id))
	return nil
}

// Reindex synchronizes the whole index with the vault.
func (s *Service) Reindex(_ context.Context, opts index.SyncOptions) (index.SyncResult, error) {
	return index.Sync(s.db, s.vault.Store(), opts, s.logger)
}

func (s *Service) reindexOne(id string) error {
	return index.IndexNote(s.db, s.vault.Store(), id)
}

// ParseMetaValue coerces a command-line metadata value: JSON object or
// array first, then bool, integer, float, and finally the raw string.
// Only lowercase true/false count as bools, matching JSON.
func ParseMetaValue(raw string) any {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return raw
}
