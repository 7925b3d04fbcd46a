// Package i18n renders error codes into localized user messages.
package i18n

import (
	"bytes"
	"sync"
	"text/template"

	i18ncatalog "github.com/triplea-game/triplea-sub001/internal/platform/i18n/catalog"
)

// Code is a machine-readable error code (duplicated from errors package to avoid cycle).
type Code = string

// Catalog maps error codes to message templates for one locale.
type Catalog struct {
	locale   string
	messages map[Code]entry
}

type entry struct {
	text string
	// tmpl is nil when text does not parse as a template.
	tmpl *template.Template
}

// catalogs caches one Catalog per resolved locale.
var catalogs sync.Map

// GetCatalog returns the error catalog closest to locale. Codes without a
// translation use the en-US text.
func GetCatalog(locale string) *Catalog {
	resolved, messages := i18ncatalog.Default().Namespace(locale, i18ncatalog.NamespaceErrors)
	if c, ok := catalogs.Load(resolved); ok {
		return c.(*Catalog)
	}
	c, _ := catalogs.LoadOrStore(resolved, NewCatalog(resolved, messages))
	return c.(*Catalog)
}

// NewCatalog parses messages as text/template bodies. A message that does
// not parse is kept as literal text.
func NewCatalog(locale string, messages map[Code]string) *Catalog {
	c := &Catalog{locale: locale, messages: make(map[Code]entry, len(messages))}
	for code, text := range messages {
		e := entry{text: text}
		if t, err := template.New(code).Option("missingkey=zero").Parse(text); err == nil {
			e.tmpl = t
		}
		c.messages[code] = e
	}
	return c
}

// Locale returns the locale of this catalog.
func (c *Catalog) Locale() string {
	return c.locale
}

// Format renders the message for code with metadata such as Territory or
// Player. Unknown codes render as the code itself.
func (c *Catalog) Format(code Code, metadata map[string]string) string {
	e, ok := c.messages[code]
	if !ok {
		return code
	}
	if e.tmpl == nil {
		return e.text
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	var buf bytes.Buffer
	if err := e.tmpl.Execute(&buf, metadata); err != nil {
		return e.text
	}
	return buf.String()
}
