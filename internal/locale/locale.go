// Package locale holds the translated weekday names and notification texts.
package locale

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"

	"github.com/verpflegung/meal-api/internal/calendar"
)

//go:embed translations/*.toml
var translationsFS embed.FS

// Catalog resolves request languages and localizes messages. It is immutable
// after New and safe for concurrent use.
type Catalog struct {
	fallback   language.Tag
	supported  []language.Tag
	matcher    language.Matcher
	localizers map[language.Tag]*i18n.Localizer
}

// New loads the embedded translations. defaultLang must be one of them.
func New(defaultLang string) (*Catalog, error) {
	fallback, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("invalid default locale %q: %w", defaultLang, err)
	}

	bundle := i18n.NewBundle(fallback)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := fs.Glob(translationsFS, "translations/*.toml")
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if _, err := bundle.LoadMessageFileFS(translationsFS, f); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	// the fallback goes first so the matcher prefers it on ties
	supported := []language.Tag{fallback}
	found := false
	for _, tag := range bundle.LanguageTags() {
		if tag == fallback {
			found = true
			continue
		}
		supported = append(supported, tag)
	}
	if !found {
		return nil, fmt.Errorf("no translations for default locale %q", defaultLang)
	}

	localizers := make(map[language.Tag]*i18n.Localizer, len(supported))
	for _, tag := range supported {
		localizers[tag] = i18n.NewLocalizer(bundle, tag.String())
	}

	return &Catalog{
		fallback:   fallback,
		supported:  supported,
		matcher:    language.NewMatcher(supported),
		localizers: localizers,
	}, nil
}

// Default returns the fallback language
func (c *Catalog) Default() language.Tag {
	return c.fallback
}

// Supported lists the loaded languages, fallback first
func (c *Catalog) Supported() []language.Tag {
	out := make([]language.Tag, len(c.supported))
	copy(out, c.supported)
	return out
}

// Match picks the best supported language for the given preferences. Each
// preference may be a single tag ("fr") or an Accept-Language header value.
func (c *Catalog) Match(prefs ...string) language.Tag {
	var tags []language.Tag
	for _, p := range prefs {
		if strings.TrimSpace(p) == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	if len(tags) == 0 {
		return c.fallback
	}
	_, idx, conf := c.matcher.Match(tags...)
	if conf == language.No {
		return c.fallback
	}
	return c.supported[idx]
}

// Localize renders a message in lang, falling back to the message ID
func (c *Catalog) Localize(lang language.Tag, id string, data map[string]any) string {
	loc, ok := c.localizers[lang]
	if !ok {
		loc = c.localizers[c.fallback]
	}
	msg, err := loc.Localize(&i18n.LocalizeConfig{MessageID: id, TemplateData: data})
	if err != nil || msg == "" {
		return id
	}
	return msg
}

// Namer returns the weekday namer for lang
func (c *Catalog) Namer(lang language.Tag) calendar.WeekdayNamer {
	return weekdayNamer{catalog: c, lang: lang}
}

type weekdayNamer struct {
	catalog *Catalog
	lang    language.Tag
}

func (n weekdayNamer) WeekdayName(d time.Weekday) string {
	id := "weekday." + strings.ToLower(d.String())
	name := n.catalog.Localize(n.lang, id, nil)
	if name == id {
		return ""
	}
	return name
}
