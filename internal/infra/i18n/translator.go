package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"whatsapp-telegram-bridge/internal/domain/model"

	"gopkg.in/yaml.v3"
)

//go:embed locales
var LocalesFS embed.FS

// Translator holds one locale's string table.
type Translator struct {
	translations map[string]string
}

// NewTranslator reads locales/<langCode>.yaml from fsys.
func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := path.Join("locales", fmt.Sprintf("%s.yaml", langCode))

	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	return newTranslatorFromBytes(data)
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return &Translator{translations: translations}, nil
}

func (t *Translator) lookup(key string) (string, bool) {
	if t == nil {
		return "", false
	}
	s, ok := t.translations[key]
	return s, ok
}

// T formats key with args, or returns key itself when missing.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.lookup(key)
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

// Catalog is the process-wide (locale, key) lookup. It is built once at
// startup and never mutated.
type Catalog struct {
	tables map[model.Locale]*Translator
}

// NewCatalog loads en and ru from fsys. en is mandatory since every other
// locale falls back to it.
func NewCatalog(fsys fs.FS) (*Catalog, error) {
	c := &Catalog{tables: make(map[model.Locale]*Translator, 2)}
	for _, l := range []model.Locale{model.LocaleEN, model.LocaleRU} {
		tr, err := NewTranslator(fsys, string(l))
		if err != nil {
			return nil, err
		}
		c.tables[l] = tr
	}
	return c, nil
}

// Default loads the embedded catalogs.
func Default() (*Catalog, error) { return NewCatalog(LocalesFS) }

// T renders key for locale l. Missing keys fall back to en and then to the
// key itself.
func (c *Catalog) T(l model.Locale, key string, args ...interface{}) string {
	format, ok := c.tables[l.Catalog()].lookup(key)
	if !ok {
		format, ok = c.tables[model.LocaleEN].lookup(key)
	}
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

// Has reports whether key exists for l without the key-as-text fallback.
func (c *Catalog) Has(l model.Locale, key string) bool {
	_, ok := c.tables[l.Catalog()].lookup(key)
	return ok
}
