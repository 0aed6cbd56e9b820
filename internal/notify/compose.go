package notify

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"

	"typowatch/pkg/domain"
	"typowatch/pkg/mailer"
)

// markdown renders the HTML alternative of notifications. Autolinking is left
// off so lookalike names are never turned into clickable links.
//
//nolint: gochecknoglobals
var markdown = goldmark.New(goldmark.WithRendererOptions(html.WithXHTML()))

// Compose builds the notification for report addressed to sub.
func Compose(options Options, sub domain.Subscription, report domain.DeltaReport) (mailer.Message, error) {
	text := body(options, sub, report)

	var rendered bytes.Buffer
	if err := markdown.Convert([]byte(text), &rendered); err != nil {
		return mailer.Message{}, fmt.Errorf("could not render email: %w", err)
	}

	return mailer.Message{
		To:      sub.Email,
		Subject: subject(report),
		Text:    text,
		HTML:    rendered.String(),
	}, nil
}

func subject(report domain.DeltaReport) string {
	if !report.HasChanges() {
		return fmt.Sprintf("typowatch: no changes for %s", report.Domain)
	}

	return fmt.Sprintf("typowatch: %d changes for %s",
		len(report.New)+len(report.Updated)+len(report.Deleted), report.Domain)
}

func body(options Options, sub domain.Subscription, report domain.DeltaReport) string {
	var b strings.Builder

	resolving := 0
	for _, r := range report.Records {
		if r.Resolved() {
			resolving++
		}
	}

	fmt.Fprintf(&b, "# Lookalike domains of %s\n\n", report.Domain)
	fmt.Fprintf(&b, "Report computed %s: %d of %d generated variants resolve.\n\n",
		report.ComputedAt.UTC().Format(time.RFC1123), resolving, len(report.Records))

	if !report.HasChanges() {
		b.WriteString("Nothing changed since the previous report.\n\n")
	}
	changes(&b, "New", report.New, func(c domain.Change) string {
		return fmt.Sprintf("`%s` now resolves to %s", c.Domain, c.NewIP)
	})
	changes(&b, "Updated", report.Updated, func(c domain.Change) string {
		return fmt.Sprintf("`%s` moved from %s to %s", c.Domain, c.OldIP, c.NewIP)
	})
	changes(&b, "Deleted", report.Deleted, func(c domain.Change) string {
		return fmt.Sprintf("`%s` no longer resolves (was %s)", c.Domain, c.OldIP)
	})

	base := strings.TrimSuffix(options.BaseURL, "/")
	fmt.Fprintf(&b, "[Full report](%s/v1/domains/%s/report)\n\n", base, url.PathEscape(report.Domain))
	fmt.Fprintf(&b, "You receive this email because %s subscribed to reports for %s. [Unsubscribe](%s/v1/subscriptions/%s/unsubscribe)\n",
		sub.Email, report.Domain, base, url.PathEscape(string(sub.ID)))

	return b.String()
}

func changes(b *strings.Builder, title string, list []domain.Change, line func(domain.Change) string) {
	if len(list) == 0 {
		return
	}

	fmt.Fprintf(b, "## %s\n\n", title)
	for _, c := range list {
		fmt.Fprintf(b, "- %s\n", line(c))
	}
	b.WriteString("\n")
}
