// Package sanitize cleans customer-supplied storefront input before it
// is stored or echoed back: plain fields (names, remarks, promo codes)
// are escaped, rich product descriptions go through an HTML policy.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	descriptionPolicyOnce sync.Once
	descriptionPolicy     *bluemonday.Policy
)

// Text trims and escapes a plain input field.
func Text(input string) string {
	return html.EscapeString(strings.TrimSpace(input))
}

// TextPtr is Text for optional fields; nil stays nil.
func TextPtr(input *string) *string {
	if input == nil {
		return nil
	}
	value := Text(*input)
	return &value
}

// Markdown sanitizes rendered product and promo descriptions, keeping
// the formatting tags the storefront displays.
func Markdown(input string) string {
	value := strings.TrimSpace(input)
	if value == "" {
		return ""
	}
	return getDescriptionPolicy().Sanitize(value)
}

func getDescriptionPolicy() *bluemonday.Policy {
	descriptionPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.AllowElements("p", "pre", "code", "blockquote")
		descriptionPolicy = policy
	})

	return descriptionPolicy
}
