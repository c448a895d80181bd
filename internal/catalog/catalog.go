// Package catalog loads exercise definitions from YAML and seeds the store.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/korefront/repcoach/internal/animation"
	"github.com/korefront/repcoach/internal/evaluate"
	"github.com/korefront/repcoach/internal/store"
)

// Entry is one exercise definition.
type Entry struct {
	Name            string                      `yaml:"name"`
	Description     string                      `yaml:"description"`
	InstructionsURL string                      `yaml:"instructionsURL"`
	RepTarget       int                         `yaml:"repTarget"`
	Classification  evaluate.ClassificationSpec `yaml:"classification"`
	Animation       *animation.Rig              `yaml:"animation"`
}

type document struct {
	Exercises []Entry `yaml:"exercises"`
}

//go:embed exercises.yaml
var builtinYAML []byte

// Builtin returns the exercises shipped with the binary.
func Builtin() ([]Entry, error) {
	entries, err := Parse(bytes.NewReader(builtinYAML))
	if err != nil {
		return nil, fmt.Errorf("builtin catalog: %w", err)
	}
	return entries, nil
}

// Load reads and validates the catalog file at path.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	entries, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Parse decodes and validates a catalog document. Every classification must
// resolve and every animation rig must compile.
func Parse(r io.Reader) ([]Entry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seen := make(map[string]bool, len(doc.Exercises))
	for i := range doc.Exercises {
		e := &doc.Exercises[i]
		e.Name = strings.TrimSpace(e.Name)
		if e.Name == "" {
			return nil, fmt.Errorf("exercise %d: name is required", i)
		}
		key := strings.ToLower(e.Name)
		if seen[key] {
			return nil, fmt.Errorf("exercise %q: duplicate name", e.Name)
		}
		seen[key] = true

		if err := e.Classification.Validate(); err != nil {
			return nil, fmt.Errorf("exercise %q: %w", e.Name, err)
		}
		if e.Animation != nil {
			if _, err := animation.Compile(*e.Animation); err != nil {
				return nil, fmt.Errorf("exercise %q: %w", e.Name, err)
			}
		}
	}
	return doc.Exercises, nil
}

// Exercise converts the entry into a new store record.
func (e Entry) Exercise(defaultRepTarget int) *store.Exercise {
	target := e.RepTarget
	if target <= 0 {
		target = defaultRepTarget
	}
	return &store.Exercise{
		ID:              uuid.New().String(),
		Name:            e.Name,
		Description:     e.Description,
		InstructionsURL: e.InstructionsURL,
		Classification:  e.Classification,
		Animation:       e.Animation,
		RepTarget:       target,
	}
}

// Seed inserts entries that are not yet stored, matched by name. Existing
// exercises are left alone so edits made through the API survive restarts.
// It returns the number of exercises created.
func Seed(s *store.Store, entries []Entry, defaultRepTarget int) (int, error) {
	repo := s.Exercises()
	created := 0
	for _, e := range entries {
		_, err := repo.GetByName(e.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return created, fmt.Errorf("lookup %q: %w", e.Name, err)
		}
		if err := repo.Create(e.Exercise(defaultRepTarget)); err != nil {
			return created, fmt.Errorf("create %q: %w", e.Name, err)
		}
		created++
	}
	if created > 0 {
		log.Printf("catalog: seeded %d exercises", created)
	}
	return created, nil
}
