package agent

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// lower applies Brazilian-Portuguese lowercasing.
// A Caser is stateful, so a fresh one is built per call.
func lower(s string) string {
	return cases.Lower(language.BrazilianPortuguese).String(s)
}

// PortalURLs formats the four candidate portal addresses for a locality.
func PortalURLs(locality, region string) []string {
	l, r := lower(locality), lower(region)
	return []string{
		fmt.Sprintf("https://transparencia.%s.%s.gov.br", l, r),
		fmt.Sprintf("https://www.%s.%s.gov.br/transparencia", l, r),
		fmt.Sprintf("https://portal.%s.%s.gov.br/dadosabertos", l, r),
		fmt.Sprintf("https://www.transparencia.%s.gov.br/%s", r, l),
	}
}

// Discover pretends to search for transparency portals and returns
// the templated URLs after the configured search delay.
func (a *Agent) Discover(ctx context.Context, in SearchInput) ([]string, error) {
	logger := a.logger.With(slog.String("locality", in.Locality), slog.String("region", in.Region))
	logger.InfoContext(ctx, fmt.Sprintf("Buscando portais de transparência para %s/%s...", in.Locality, in.Region))

	if err := a.sleep(ctx, a.delays.Search); err != nil {
		logger.WarnContext(ctx, "Search interrupted", slog.Any("error", err))
		return nil, fmt.Errorf("search interrupted: %w", err)
	}

	urls := PortalURLs(in.Locality, in.Region)
	logger.InfoContext(ctx, "Portal search complete", slog.Int("urls_found", len(urls)))
	return urls, nil
}
