// Package i18n localizes error messages for API clients.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/iho/gojournal/internal/domain"
)

var supported = []language.Tag{
	language.English,
	language.Arabic,
}

var messages = map[language.Tag]map[domain.ErrorKind]string{
	language.English: {
		domain.KindUnbalanced:    "The entry is not balanced: total debit must equal total credit.",
		domain.KindInvalidState:  "The entry is not in a state that allows this action.",
		domain.KindPeriodClosed:  "The accounting period is closed.",
		domain.KindReadOnly:      "The entry is read-only.",
		domain.KindForbidden:     "You are not allowed to perform this action.",
		domain.KindNotFound:      "The requested resource was not found.",
		domain.KindHasDependents: "The resource is still referenced and cannot be removed.",
		domain.KindConflict:      "The resource was modified concurrently. Please retry.",
		domain.KindUnavailable:   "The service is temporarily unavailable.",
		domain.KindValidation:    "The request is invalid.",
		domain.KindInternal:      "An internal error occurred.",
	},
	language.Arabic: {
		domain.KindUnbalanced:    "القيد غير متوازن: يجب أن يساوي إجمالي المدين إجمالي الدائن.",
		domain.KindInvalidState:  "حالة القيد لا تسمح بهذا الإجراء.",
		domain.KindPeriodClosed:  "الفترة المحاسبية مغلقة.",
		domain.KindReadOnly:      "القيد للقراءة فقط.",
		domain.KindForbidden:     "غير مسموح لك بتنفيذ هذا الإجراء.",
		domain.KindNotFound:      "المورد المطلوب غير موجود.",
		domain.KindHasDependents: "المورد مرتبط بسجلات أخرى ولا يمكن حذفه.",
		domain.KindConflict:      "تم تعديل المورد في نفس الوقت. يرجى المحاولة مرة أخرى.",
		domain.KindUnavailable:   "الخدمة غير متاحة مؤقتاً.",
		domain.KindValidation:    "الطلب غير صالح.",
		domain.KindInternal:      "حدث خطأ داخلي.",
	},
}

// Translator picks a language from an Accept-Language header and renders
// error-kind messages in it.
type Translator struct {
	matcher language.Matcher
	catalog catalog.Catalog
}

// NewTranslator builds a Translator over the bundled English and Arabic catalogs.
func NewTranslator() (*Translator, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, byKind := range messages {
		for kind, msg := range byKind {
			if err := b.SetString(tag, string(kind), msg); err != nil {
				return nil, err
			}
		}
	}
	return &Translator{
		matcher: language.NewMatcher(supported),
		catalog: b,
	}, nil
}

// MustNewTranslator is like NewTranslator but panics on error.
func MustNewTranslator() *Translator {
	t, err := NewTranslator()
	if err != nil {
		panic(err)
	}
	return t
}

// Match returns the supported language that best fits acceptLanguage.
func (t *Translator) Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, _ := t.matcher.Match(tags...)
	return supported[idx]
}

// Message renders the message for kind in the language chosen from acceptLanguage.
func (t *Translator) Message(acceptLanguage string, kind domain.ErrorKind) string {
	p := message.NewPrinter(t.Match(acceptLanguage), message.Catalog(t.catalog))
	return p.Sprintf(string(kind))
}
