// Package catalog loads the localized battle prompts and error templates and
// registers them with golang.org/x/text/message.
package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"maps"
	"path"
	"slices"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the source locale every translation is checked against.
const BaseLocale = "en-US"

// Namespaces of the embedded catalogs.
const (
	NamespaceBattle = "battle"
	NamespaceErrors = "errors"
)

type catalogFile struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

// Bundle holds the messages of every locale.
type Bundle struct {
	// messages is keyed by locale, then namespace, then message key.
	messages map[string]map[string]map[string]string
	// tags lists the locales with BaseLocale first, so an unmatched
	// request resolves to it.
	tags    []language.Tag
	matcher language.Matcher
}

//go:embed locales/*/*.yaml
var embeddedFS embed.FS

var defaultBundle = mustLoadEmbedded()

// Default returns the embedded bundle, already registered.
func Default() *Bundle {
	return defaultBundle
}

// Load reads locales/<locale>/<namespace>.yaml files from fsys.
func Load(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	slices.Sort(paths)

	b := &Bundle{messages: map[string]map[string]map[string]string{}}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var parsed catalogFile
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := b.add(p, parsed); err != nil {
			return nil, err
		}
	}
	if err := b.checkTranslations(); err != nil {
		return nil, err
	}

	b.tags = []language.Tag{language.MustParse(BaseLocale)}
	for _, locale := range b.Locales() {
		if locale == BaseLocale {
			continue
		}
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("parse locale tag %q: %w", locale, err)
		}
		b.tags = append(b.tags, tag)
	}
	b.matcher = language.NewMatcher(b.tags)
	return b, nil
}

func (b *Bundle) add(p string, file catalogFile) error {
	dirLocale := path.Base(path.Dir(p))
	fileNamespace := strings.TrimSuffix(path.Base(p), path.Ext(p))

	locale := strings.TrimSpace(file.Locale)
	switch {
	case locale != dirLocale:
		return fmt.Errorf("catalog %s: locale %q must match directory %q", p, locale, dirLocale)
	case strings.TrimSpace(file.Namespace) != fileNamespace:
		return fmt.Errorf("catalog %s: namespace %q must match file name %q", p, file.Namespace, fileNamespace)
	case len(file.Messages) == 0:
		return fmt.Errorf("catalog %s: messages are required", p)
	}

	namespaces, ok := b.messages[locale]
	if !ok {
		namespaces = map[string]map[string]string{}
		b.messages[locale] = namespaces
	}
	if _, exists := namespaces[fileNamespace]; exists {
		return fmt.Errorf("catalog %s: namespace %q defined twice for %s", p, fileNamespace, locale)
	}
	out := make(map[string]string, len(file.Messages))
	for key, value := range file.Messages {
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("catalog %s: blank message key", p)
		}
		for other, messages := range namespaces {
			if _, dup := messages[key]; dup {
				return fmt.Errorf("catalog %s: key %q already defined in %s/%s", p, key, locale, other)
			}
		}
		out[key] = value
	}
	namespaces[fileNamespace] = out
	return nil
}

// checkTranslations rejects translated keys the base locale does not define.
func (b *Bundle) checkTranslations() error {
	base, ok := b.messages[BaseLocale]
	if !ok {
		return fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	for _, locale := range b.Locales() {
		for namespace, messages := range b.messages[locale] {
			for key := range messages {
				if _, ok := base[namespace][key]; !ok {
					return fmt.Errorf("catalog %s/%s: key %q has no %s source", locale, namespace, key, BaseLocale)
				}
			}
		}
	}
	return nil
}

// Register makes every message available to x/text/message printers, under
// both the full tag and its bare language.
func (b *Bundle) Register() error {
	for _, tag := range b.tags {
		locale := tag.String()
		tags := []language.Tag{tag}
		if base, conf := tag.Base(); conf != language.No {
			if bare := language.Make(base.String()); bare != tag {
				tags = append(tags, bare)
			}
		}
		for _, namespace := range slices.Sorted(maps.Keys(b.messages[locale])) {
			messages := b.messages[locale][namespace]
			for _, key := range slices.Sorted(maps.Keys(messages)) {
				for _, t := range tags {
					if err := message.SetString(t, key, messages[key]); err != nil {
						return fmt.Errorf("register %s/%s: %w", locale, key, err)
					}
				}
			}
		}
	}
	return nil
}

// Match returns the loaded locale closest to locale, or BaseLocale.
func (b *Bundle) Match(locale string) string {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return BaseLocale
	}
	_, index, conf := b.matcher.Match(tag)
	if conf == language.No {
		return BaseLocale
	}
	return b.tags[index].String()
}

// Printer returns a printer for the closest loaded locale.
func (b *Bundle) Printer(locale string) *message.Printer {
	return message.NewPrinter(language.MustParse(b.Match(locale)))
}

// Sprintf formats the message key for locale.
func (b *Bundle) Sprintf(locale, key string, args ...any) string {
	return b.Printer(locale).Sprintf(key, args...)
}

// Namespace returns the messages of one namespace for the closest locale to
// locale, with untranslated keys taken from BaseLocale. It also returns the
// locale it resolved to.
func (b *Bundle) Namespace(locale, namespace string) (string, map[string]string) {
	resolved := b.Match(locale)
	out := maps.Clone(b.messages[BaseLocale][namespace])
	if out == nil {
		out = map[string]string{}
	}
	if resolved != BaseLocale {
		maps.Copy(out, b.messages[resolved][namespace])
	}
	return resolved, out
}

// Locales returns the loaded locales in order.
func (b *Bundle) Locales() []string {
	return slices.Sorted(maps.Keys(b.messages))
}

func mustLoadEmbedded() *Bundle {
	b, err := Load(embeddedFS)
	if err != nil {
		panic(err)
	}
	if err := b.Register(); err != nil {
		panic(err)
	}
	return b
}
