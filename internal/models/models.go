package models

import "strings"

// Tag names one kind of tracked occurrence.
type Tag string

const (
	TagPageView          Tag = "page_view"
	TagAppsClick         Tag = "apps_click"
	TagDownload          Tag = "download"
	TagCheckoutStarted   Tag = "checkout_started"
	TagLoginClick        Tag = "login_click"
	TagRegistrationClick Tag = "registration_click"
	TagButtonClick       Tag = "button_click"
	TagRegistration      Tag = "registration"
	TagLogin             Tag = "login"
	TagPurchaseComplete  Tag = "purchase_complete"
	TagScrollDepth       Tag = "scroll_depth"
	TagSessionEnd        Tag = "session_end"
)

var knownTags = map[Tag]bool{
	TagPageView: true, TagAppsClick: true, TagDownload: true, TagCheckoutStarted: true,
	TagLoginClick: true, TagRegistrationClick: true, TagButtonClick: true,
	TagRegistration: true, TagLogin: true, TagPurchaseComplete: true,
	TagScrollDepth: true, TagSessionEnd: true,
}

// Known reports whether t belongs to the site's event vocabulary. Manual
// instrumentation may still send other tags; the collector decides what to keep.
func (t Tag) Known() bool { return knownTags[t] }

// Event is the flat record posted to the collector.
type Event struct {
	Event     Tag     `json:"event"`
	Page      string  `json:"page"`
	Detail    *string `json:"detail"`   // nullable
	Referrer  *string `json:"referrer"` // nullable
	SessionID string  `json:"session_id"`
	Duration  *int64  `json:"duration,omitempty"` // session_end only
}

// Page is the identity of the document an event is reported against.
type Page struct {
	Path     string `json:"path"`
	Referrer string `json:"referrer"`
	Search   string `json:"search"`
}

// Element describes the nearest interactive ancestor (link or button) of a click target.
type Element struct {
	Tag   string `json:"tag"`
	Href  string `json:"href"`
	Text  string `json:"text"`
	Class string `json:"class"`
}

// IsButton reports whether the element is a <button>.
func (e Element) IsButton() bool { return strings.EqualFold(e.Tag, "button") }

// StringPtr returns nil for an empty string, matching the `value || null` idiom
// the collector expects for optional fields.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
