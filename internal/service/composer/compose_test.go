package composer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/notify-api/internal/model"
)

func TestInterpolate(t *testing.T) {
	attrs := map[string]string{
		"firstName": "Ana",
		"clinic":    "Northside",
	}

	assert.Equal(t, "Hello Ana", Interpolate("Hello {{firstName}}", attrs))
	assert.Equal(t, "Ana visits Northside", Interpolate("{{firstName}} visits {{clinic}}", attrs))

	// Placeholders without a matching key stay verbatim.
	assert.Equal(t, "Ana {{missingKey}}", Interpolate("{{firstName}} {{missingKey}}", attrs))

	// Repeated placeholders are all replaced.
	assert.Equal(t, "Ana Ana", Interpolate("{{firstName}} {{firstName}}", attrs))

	// No placeholders, no changes.
	assert.Equal(t, "plain text", Interpolate("plain text", attrs))
	assert.Equal(t, "", Interpolate("", attrs))
}

func TestSelectContent(t *testing.T) {
	en := &model.TemplateContent{Lang: "en", Subject: "Hello"}
	pt := &model.TemplateContent{Lang: "pt", Subject: "Olá"}
	contents := []*model.TemplateContent{en, pt}

	assert.Equal(t, pt, SelectContent(contents, "pt"))
	assert.Equal(t, en, SelectContent(contents, "en"))

	// Unknown language falls back to the first variant.
	assert.Equal(t, en, SelectContent(contents, "de"))
	assert.Equal(t, en, SelectContent(contents, ""))

	assert.Nil(t, SelectContent(nil, "en"))
}

func TestComposeContent(t *testing.T) {
	tc := &model.TemplateContent{
		Lang:      "en",
		Subject:   "Visit for {{firstName}}",
		Excerpt:   "{{firstName}}, see details",
		PlainText: "Dear {{firstName}}, your visit is at {{clinic}}.",
		RichText:  "<p>Dear {{firstName}}</p>",
	}

	content := ComposeContent(tc, map[string]string{"firstName": "Ana", "clinic": "Northside"})

	assert.Equal(t, "Visit for Ana", content.Subject)
	assert.Equal(t, "Ana, see details", content.Excerpt)
	assert.Equal(t, "Dear Ana, your visit is at Northside.", content.PlainText)
	assert.Equal(t, "<p>Dear Ana</p>", content.RichText)
	assert.Equal(t, "en", content.Lang)
}

func TestMergeAttributes(t *testing.T) {
	recipient := &model.Recipient{
		Attributes: map[string]string{
			"id":        "should-never-leak",
			"firstName": "Ana",
		},
	}
	interpolations := map[string]string{
		"firstName": "fallback",
		"clinic":    "Northside",
	}

	merged := mergeAttributes(interpolations, recipient)

	// Profile attributes win over batch interpolations.
	assert.Equal(t, "Ana", merged["firstName"])
	assert.Equal(t, "Northside", merged["clinic"])

	// The identifier never participates in substitution.
	_, ok := merged["id"]
	assert.False(t, ok)
}
