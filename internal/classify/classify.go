// Package classify maps a clicked link or button onto the tracked event vocabulary.
//
// Classification is a best-effort keyword heuristic. Rules are evaluated in
// order and only the first match produces an event; unmatched clicks produce none.
package classify

import (
	"strings"

	"github.com/vincentbai/visionui-beacon/internal/models"
)

// Result is the event a click maps to.
type Result struct {
	Tag    models.Tag
	Detail string
}

type rule struct {
	name  string
	match func(c clicked) (Result, bool)
}

type clicked struct {
	href, text, class string
	button            bool
}

var rules = []rule{
	{name: "apps", match: matchApps},
	{name: "download", match: matchDownload},
	{name: "purchase", match: matchPurchase},
	{name: "auth", match: matchAuth},
	{name: "cta", match: matchCTA},
}

// Classify returns the event for el, or false when no rule matches.
func Classify(el models.Element) (Result, bool) {
	c := clicked{
		href:   el.Href,
		text:   strings.ToLower(strings.TrimSpace(el.Text)),
		class:  strings.ToLower(el.Class),
		button: el.IsButton(),
	}
	for _, r := range rules {
		if res, ok := r.match(c); ok {
			return res, true
		}
	}
	return Result{}, false
}

// RuleNames lists the rules in evaluation order.
func RuleNames() []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.name
	}
	return names
}

func matchApps(c clicked) (Result, bool) {
	if containsAny(c.href, "store", "apps") || containsAny(c.text, "apps", "tienda") {
		return Result{Tag: models.TagAppsClick, Detail: or(c.text, c.href)}, true
	}
	return Result{}, false
}

func matchDownload(c clicked) (Result, bool) {
	if !strings.Contains(c.href, "download") && !containsAny(c.text, "descargar", "download") {
		return Result{}, false
	}
	if containsAny(c.text, "framework", "visionui") || strings.Contains(c.href, "framework") {
		return Result{Tag: models.TagDownload, Detail: "framework"}, true
	}
	return Result{Tag: models.TagDownload, Detail: or(c.text, c.href)}, true
}

func matchPurchase(c clicked) (Result, bool) {
	if containsAny(c.text, "comprar", "buy", "purchase") || strings.Contains(c.class, "purchase") {
		return Result{Tag: models.TagCheckoutStarted, Detail: or(c.text, "purchase_button")}, true
	}
	return Result{}, false
}

func matchAuth(c clicked) (Result, bool) {
	if !containsAny(c.text, "iniciar sesión", "login", "registr", "crear cuenta") {
		return Result{}, false
	}
	if containsAny(c.text, "registr", "crear") {
		return Result{Tag: models.TagRegistrationClick, Detail: c.text}, true
	}
	return Result{Tag: models.TagLoginClick, Detail: c.text}, true
}

func matchCTA(c clicked) (Result, bool) {
	if c.button && containsAny(c.class, "primary", "cta") {
		return Result{Tag: models.TagButtonClick, Detail: or(c.text, "cta_button")}, true
	}
	return Result{}, false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func or(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
