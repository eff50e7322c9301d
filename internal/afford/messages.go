package afford

import (
	"embed"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var localeFS embed.FS

// Message IDs, one per affordability tier.
const (
	msgImpossible  = "TierImpossible"
	msgHardly      = "TierHardly"
	msgPossible    = "TierPossible"
	msgComfortable = "TierComfortable"
)

// DefaultLanguage is used when no language is configured.
const DefaultLanguage = "en"

var bundle = mustLoadBundle()

func mustLoadBundle() *i18n.Bundle {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		panic(fmt.Sprintf("afford: reading embedded locales: %v", err))
	}
	for _, e := range entries {
		if _, err := b.LoadMessageFileFS(localeFS, "locales/"+e.Name()); err != nil {
			panic(fmt.Sprintf("afford: loading %s: %v", e.Name(), err))
		}
	}
	return b
}

// Languages returns the language tags with an embedded catalog.
func Languages() []string {
	tags := bundle.LanguageTags()
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.String())
	}
	return out
}

// Messages renders tier messages in one language. The zero value is not usable;
// build one with NewMessages.
type Messages struct {
	lang      string
	localizer *i18n.Localizer
}

// NewMessages returns a renderer for lang, falling back to English for
// unknown tags or missing messages.
func NewMessages(lang string) *Messages {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		lang = DefaultLanguage
	}
	return &Messages{
		lang:      lang,
		localizer: i18n.NewLocalizer(bundle, lang, DefaultLanguage),
	}
}

// Language returns the requested language tag.
func (m *Messages) Language() string { return m.lang }

func (m *Messages) render(id string, years, months int) string {
	msg, err := m.localizer.Localize(&i18n.LocalizeConfig{
		MessageID: id,
		TemplateData: map[string]int{
			"Years":  years,
			"Months": months,
		},
	})
	if err != nil {
		// Every ID ships in the English catalog, so this only trips on a broken build.
		return fmt.Sprintf("%s: %d years and %d months", id, years, months)
	}
	return msg
}
