package agent

import (
	"context"
	"fmt"
	"log/slog"
)

// successRate is the fixed probability of a simulated download succeeding.
const successRate = 0.9

// Download simulates fetching every selected category from every selected
// portal. Pairs whose category the portal does not publish are skipped.
func (a *Agent) Download(ctx context.Context, portals []PortalRecord, categories []Category) ([]DownloadRecord, error) {
	a.logger.InfoContext(ctx, "Baixando dados selecionados...",
		slog.Int("portals", len(portals)),
		slog.Int("categories", len(categories)),
	)

	var records []DownloadRecord
	for _, portal := range portals {
		for _, category := range categories {
			if !portal.HasCategory(category) {
				continue
			}

			if err := a.sleep(ctx, a.delays.Download); err != nil {
				a.logger.WarnContext(ctx, "Download interrupted",
					slog.String("portal", portal.Title),
					slog.Any("error", err),
				)
				return nil, fmt.Errorf("download interrupted: %w", err)
			}

			record := a.downloadOne(portal, category)
			a.logger.DebugContext(ctx, "File downloaded",
				slog.String("file", record.Filename),
				slog.String("status", record.Status.String()),
			)
			records = append(records, record)
		}
	}

	failed := 0
	for _, r := range records {
		if !r.Succeeded() {
			failed++
		}
	}
	a.logger.InfoContext(ctx, "Downloads complete",
		slog.Group("results",
			slog.Int("total", len(records)),
			slog.Int("succeeded", len(records)-failed),
			slog.Int("failed", failed),
		),
	)
	return records, nil
}

// Filename builds the name a downloaded file is stored under.
func Filename(category Category, portalURL, format string, serial int) string {
	return fmt.Sprintf("%s_%s_%d.%s", lower(string(category)), hostFragment(portalURL), serial, lower(format))
}

func (a *Agent) downloadOne(portal PortalRecord, category Category) DownloadRecord {
	status := StatusSucceeded
	filename := Filename(category, portal.URL, portal.Format, a.intBetween(1000, 9999))
	size := fmt.Sprintf("%d KB", a.intBetween(100, 9999))
	if a.float() >= successRate {
		status = StatusFailed
	}
	return DownloadRecord{
		Portal:   portal.Title,
		Category: category,
		Filename: filename,
		Size:     size,
		Status:   status,
	}
}
