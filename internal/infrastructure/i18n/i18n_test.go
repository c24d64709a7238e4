package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/iho/gojournal/internal/domain"
)

func TestMatch(t *testing.T) {
	tr, err := NewTranslator()
	require.NoError(t, err)

	tests := []struct {
		header string
		want   language.Tag
	}{
		{"", language.English},
		{"ar", language.Arabic},
		{"ar-SA,ar;q=0.9,en;q=0.8", language.Arabic},
		{"en-GB,en;q=0.9", language.English},
		{"fr-FR", language.English},
		{";;;garbage", language.English},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, tr.Match(tt.header))
		})
	}
}

func TestMessage(t *testing.T) {
	tr := MustNewTranslator()

	assert.Equal(t, "The accounting period is closed.", tr.Message("en", domain.KindPeriodClosed))
	assert.Equal(t, "الفترة المحاسبية مغلقة.", tr.Message("ar", domain.KindPeriodClosed))
	assert.Equal(t, "The request is invalid.", tr.Message("de", domain.KindValidation))
}

func TestEveryKindIsTranslated(t *testing.T) {
	kinds := []domain.ErrorKind{
		domain.KindUnbalanced, domain.KindInvalidState, domain.KindPeriodClosed, domain.KindReadOnly,
		domain.KindForbidden, domain.KindNotFound, domain.KindHasDependents, domain.KindConflict,
		domain.KindUnavailable, domain.KindValidation, domain.KindInternal,
	}
	for tag, byKind := range messages {
		for _, k := range kinds {
			assert.NotEmpty(t, byKind[k], "%s missing %s", tag, k)
		}
	}
}
