// Package file implements the persistence boundary on top of a plain
// directory of JSON files, one entity per file. This matches the
// desktop deployment where all state is profile-local.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/emberflow/emberflow/pkg/persistence"
)

const dirPerm = 0o755

// Persistence implements persistence.Persistence using the file system.
type Persistence struct {
	root       string
	workflows  *WorkflowRepository
	templates  *WarmupTemplateRepository
	progress   *WarmupProgressRepository
	cookies    *CookieRepository
	executions *ExecutionRepository
}

// NewPersistence creates a file-backed store rooted at root; a "file://"
// prefix is tolerated.
func NewPersistence(root string) (*Persistence, error) {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	for _, sub := range []string{"workflows", "warmup_templates", "warmup_progress", "cookies", "executions"} {
		if err := os.MkdirAll(filepath.Join(cleanRoot, sub), dirPerm); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", sub, err)
		}
	}

	return &Persistence{
		root:       cleanRoot,
		workflows:  &WorkflowRepository{dir: filepath.Join(cleanRoot, "workflows")},
		templates:  &WarmupTemplateRepository{dir: filepath.Join(cleanRoot, "warmup_templates")},
		progress:   &WarmupProgressRepository{dir: filepath.Join(cleanRoot, "warmup_progress")},
		cookies:    &CookieRepository{dir: filepath.Join(cleanRoot, "cookies")},
		executions: &ExecutionRepository{dir: filepath.Join(cleanRoot, "executions")},
	}, nil
}

func (p *Persistence) Workflows() persistence.WorkflowRepository             { return p.workflows }
func (p *Persistence) WarmupTemplates() persistence.WarmupTemplateRepository { return p.templates }
func (p *Persistence) WarmupProgress() persistence.WarmupProgressRepository  { return p.progress }
func (p *Persistence) Cookies() persistence.CookieRepository                 { return p.cookies }
func (p *Persistence) Executions() persistence.ExecutionRepository           { return p.executions }

func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close is a no-op for file-based persistence.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// readEntity decodes one JSON file, mapping a missing file to notFound.
func readEntity[T any](dir, id string, notFound error) (*T, error) {
	data, err := os.ReadFile(filepath.Join(dir, id+".json"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", id, notFound)
		}

		return nil, fmt.Errorf("read %s: %w", id, err)
	}

	var entity T
	if err := json.Unmarshal(data, &entity); err != nil {
		return nil, fmt.Errorf("decode %s: %w", id, err)
	}

	return &entity, nil
}

func writeEntity(dir, id string, entity any) error {
	data, err := json.MarshalIndent(entity, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", id, err)
	}

	path := filepath.Join(dir, id+".json")
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", id, err)
	}

	return os.Rename(tmp, path)
}

func deleteEntity(dir, id string, notFound error) error {
	err := os.Remove(filepath.Join(dir, id+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", id, notFound)
	}

	return err
}

// listEntities decodes every JSON file in dir.
func listEntities[T any](dir string) ([]*T, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	entities := make([]*T, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}

		var entity T
		if err := json.Unmarshal(data, &entity); err != nil {
			return nil, fmt.Errorf("decode %s: %w", entry.Name(), err)
		}

		entities = append(entities, &entity)
	}

	return entities, nil
}
