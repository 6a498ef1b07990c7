package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	titlePrefix = "Portal de Transparência - "

	minCategories = 3
	maxCategories = 6

	updateYear = 2024
)

// hostFragment returns the text between the scheme separator and the
// first following dot.
func hostFragment(pageURL string) string {
	rest := pageURL
	if _, after, ok := strings.Cut(pageURL, "//"); ok {
		rest = after
	}
	fragment, _, _ := strings.Cut(rest, ".")
	return fragment
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	_, size := utf8.DecodeRuneInString(s)
	return cases.Upper(language.BrazilianPortuguese).String(s[:size]) + lower(s[size:])
}

// PortalTitle derives the display title of a portal from its URL.
func PortalTitle(pageURL string) string {
	return titlePrefix + capitalize(hostFragment(pageURL))
}

// Analyze builds one synthetic PortalRecord per URL, in order.
func (a *Agent) Analyze(ctx context.Context, urls []string) ([]PortalRecord, error) {
	a.logger.InfoContext(ctx, "Analisando páginas encontradas...", slog.Int("total_urls", len(urls)))

	portals := make([]PortalRecord, 0, len(urls))
	for _, pageURL := range urls {
		if err := a.sleep(ctx, a.delays.Analyze); err != nil {
			a.logger.WarnContext(ctx, "Analysis interrupted",
				slog.String("url", pageURL),
				slog.Any("error", err),
			)
			return nil, fmt.Errorf("analysis interrupted: %w", err)
		}

		portal := a.analyzePage(pageURL)
		a.logger.DebugContext(ctx, "Page analyzed",
			slog.String("url", pageURL),
			slog.Int("categories", len(portal.Categories)),
			slog.String("format", portal.Format),
		)
		portals = append(portals, portal)
	}

	a.logger.InfoContext(ctx, "Page analysis complete", slog.Int("portals", len(portals)))
	return portals, nil
}

func (a *Agent) analyzePage(pageURL string) PortalRecord {
	k := a.intBetween(minCategories, maxCategories)
	return PortalRecord{
		URL:        pageURL,
		Title:      PortalTitle(pageURL),
		Categories: a.sample(Vocabulary, k),
		LastUpdate: fmt.Sprintf("%d/%d/%d", a.intBetween(1, 28), a.intBetween(1, 12), updateYear),
		Format:     a.pick(Formats),
	}
}
