package service

import (
	"context"

	"keyword-agent/internal/config"
	"keyword-agent/pkg/research"
)

// ResearchService runs one research request end to end.
type ResearchService interface {
	Run(ctx context.Context, req research.Request) (*research.Report, error)
}

// CatalogService exposes the region and language lookup tables.
type CatalogService interface {
	Regions() []config.Region
	Languages() []config.Language
}
