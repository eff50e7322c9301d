package afford

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanguages_IncludesEmbeddedCatalogs(t *testing.T) {
	langs := Languages()
	assert.Contains(t, langs, "en")
	assert.Contains(t, langs, "es")
}

func TestMessages_Spanish(t *testing.T) {
	est := New(nil, NewMessages("es"))

	got, err := est.Estimate(Input{Salary: 60000, Price: 300000})
	require.NoError(t, err)
	assert.Equal(t,
		"Según tus condiciones, realmente podrías comprar esa propiedad. Quizás en 1 años y 5 meses.",
		got.Message)
}

func TestMessages_UnknownLanguageFallsBackToEnglish(t *testing.T) {
	m := NewMessages("fr")
	assert.Equal(t, "fr", m.Language())
	assert.Equal(t,
		"According to your conditions, I think you could hardly buy that property. Maybe in 3 years and 2 months.",
		m.render(msgHardly, 3, 2))
}

func TestMessages_EveryTierRendersInEveryLanguage(t *testing.T) {
	for _, lang := range Languages() {
		m := NewMessages(lang)
		for _, id := range []string{msgImpossible, msgHardly, msgPossible, msgComfortable} {
			out := m.render(id, 4, 7)
			assert.Contains(t, out, "4", "%s/%s", lang, id)
			assert.Contains(t, out, "7", "%s/%s", lang, id)
			assert.NotContains(t, out, "{{", "%s/%s", lang, id)
		}
	}
}
