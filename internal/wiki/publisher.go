package wiki

import (
	"context"
)

const (
	DefaultPageTitle   = "Wikidata:Main Page/Popular"
	DefaultEditSummary = "upd"
)

// Editor replaces the text of a page.
type Editor interface {
	Edit(ctx context.Context, title, text, summary string) error
}

// Publisher writes the rendered list to the display page.
type Publisher struct {
	editor  Editor
	title   string
	summary string
}

// NewPublisher returns a Publisher that overwrites title with every call.
func NewPublisher(editor Editor, title, summary string) *Publisher {
	if title == "" {
		title = DefaultPageTitle
	}
	if summary == "" {
		summary = DefaultEditSummary
	}
	return &Publisher{editor: editor, title: title, summary: summary}
}

// Publish replaces the whole display page with text.
func (p *Publisher) Publish(ctx context.Context, text string) error {
	return p.editor.Edit(ctx, p.title, text, p.summary)
}

// Title returns the page the publisher writes to.
func (p *Publisher) Title() string { return p.title }
