package classify

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/vincentbai/visionui-beacon/internal/models"
)

// TargetAttr marks the element that received the click inside an HTML fragment.
const TargetAttr = "data-beacon-target"

const interactive = "a, button"

// ErrNoInteractive is returned when a fragment has no link or button around the target.
var ErrNoInteractive = errors.New("no interactive ancestor")

// ElementFromHTML parses an HTML fragment and returns the nearest interactive
// ancestor of the click target. The target is the element carrying TargetAttr,
// or the innermost element of the fragment when none is marked.
func ElementFromHTML(fragment string) (models.Element, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return models.Element{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	target := doc.Find("[" + TargetAttr + "]").First()
	if target.Length() == 0 {
		target = innermost(doc.Find("body"))
	}

	el := target.Closest(interactive)
	if el.Length() == 0 {
		return models.Element{}, ErrNoInteractive
	}
	return elementOf(el), nil
}

func innermost(sel *goquery.Selection) *goquery.Selection {
	for {
		children := sel.Children()
		if children.Length() == 0 {
			return sel
		}
		sel = children.First()
	}
}

// elementOf reads the attributes a click reports. Text is trimmed, never
// collapsed, so audits and live clicks classify the same string.
func elementOf(sel *goquery.Selection) models.Element {
	href, _ := sel.Attr("href")
	class, _ := sel.Attr("class")
	return models.Element{
		Tag:   goquery.NodeName(sel),
		Href:  href,
		Text:  strings.TrimSpace(sel.Text()),
		Class: class,
	}
}

// Finding is one interactive element of an audited document.
type Finding struct {
	Element models.Element
	Result  Result
	Tracked bool
}

// Audit lists every link and button of an HTML document together with the event
// a click on it would produce.
func Audit(r io.Reader) ([]Finding, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var findings []Finding
	doc.Find(interactive).Each(func(_ int, sel *goquery.Selection) {
		el := elementOf(sel)
		res, ok := Classify(el)
		findings = append(findings, Finding{Element: el, Result: res, Tracked: ok})
	})
	return findings, nil
}
