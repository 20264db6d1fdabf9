package composer

import (
	"strings"

	"github.com/jwalitptl/notify-api/internal/model"
)

// identifierKey is the recipient's own identifier inside the profile
// attribute map; it is never substituted into content.
const identifierKey = "id"

// SelectContent picks the variant matching the recipient's language,
// falling back to the first variant in insertion order. Returns nil
// when no variants exist.
func SelectContent(contents []*model.TemplateContent, lang string) *model.TemplateContent {
	if len(contents) == 0 {
		return nil
	}
	for _, c := range contents {
		if c.Lang == lang {
			return c
		}
	}
	return contents[0]
}

// Interpolate replaces every occurrence of the literal pattern {{key}}
// with the attribute's value, for every attribute present. Substitution
// is best-effort: placeholders whose key is absent stay verbatim, since
// receivers silently tolerate missing variables.
func Interpolate(text string, attrs map[string]string) string {
	for key, value := range attrs {
		text = strings.ReplaceAll(text, "{{"+key+"}}", value)
	}
	return text
}

// ComposeContent finalizes all four content fields of one template
// variant for one recipient.
func ComposeContent(tc *model.TemplateContent, attrs map[string]string) *model.Content {
	return &model.Content{
		Subject:   Interpolate(tc.Subject, attrs),
		Excerpt:   Interpolate(tc.Excerpt, attrs),
		PlainText: Interpolate(tc.PlainText, attrs),
		RichText:  Interpolate(tc.RichText, attrs),
		Lang:      tc.Lang,
	}
}

// mergeAttributes combines the batch-level interpolation map with the
// recipient's profile attributes. Profile attributes win on collision;
// the recipient identifier is excluded.
func mergeAttributes(interpolations map[string]string, recipient *model.Recipient) map[string]string {
	merged := make(map[string]string, len(interpolations)+len(recipient.Attributes))
	for k, v := range interpolations {
		merged[k] = v
	}
	for k, v := range recipient.Attributes {
		if k == identifierKey {
			continue
		}
		merged[k] = v
	}
	return merged
}
