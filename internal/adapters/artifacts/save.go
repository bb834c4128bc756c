package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/okian/scout/internal/domain/schema"
	"github.com/okian/scout/internal/domain/valuation"
)

// SaveSchema writes schema.yaml, encoder.json and club_encoding.json.
func SaveSchema(dir string, s *schema.Schema) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	layout, err := yaml.Marshal(s.Layout())
	if err != nil {
		return fmt.Errorf("encode %s: %w", SchemaFile, err)
	}
	if err := writeAtomic(filepath.Join(dir, SchemaFile), layout); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, EncoderFile), s.Encoder()); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, ClubFile), s.Club())
}

// SaveModel writes model.json.
func SaveModel(dir string, doc *valuation.Document) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, ModelFile), doc)
}

func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return writeAtomic(path, raw)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
