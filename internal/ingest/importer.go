// Package ingest turns uploaded spreadsheets into catalog schemes.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/terra-clan/scheme-connect/internal/models"
)

// Catalog is the part of the catalog store an import writes to
type Catalog interface {
	ReplaceIngested(records []models.Scheme)
	List() []models.Scheme
}

// Parse reads and normalizes a spreadsheet without touching any catalog
func Parse(data []byte, name string) ([]models.Scheme, error) {
	rows, err := ReadRows(data, name)
	if err != nil {
		return nil, err
	}
	return Normalize(rows), nil
}

// File parses the spreadsheet at path
func File(path string) ([]models.Scheme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet: %w", err)
	}
	return Parse(data, filepath.Base(path))
}

// Importer replaces the ingested partition of a catalog with spreadsheet contents
type Importer struct {
	catalog Catalog
	logger  *zap.Logger
}

// NewImporter creates an importer writing to catalog
func NewImporter(catalog Catalog, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		catalog: catalog,
		logger:  logger.Named("ingest"),
	}
}

// Import decodes data and, on success, swaps it into the catalog.
// On failure the catalog is left unchanged and a *ParseError is returned.
func (i *Importer) Import(data []byte, name string) (*models.ImportResult, error) {
	rows, err := ReadRows(data, name)
	if err != nil {
		i.logger.Warn("spreadsheet rejected", zap.String("file", name), zap.Error(err))
		return nil, err
	}

	schemes := make([]models.Scheme, 0, len(rows))
	for idx, row := range rows {
		s, defaulted := NormalizeRow(row, idx+1)
		if len(defaulted) > 0 {
			i.logger.Debug("field defaults applied",
				zap.String("file", name),
				zap.Int("row", idx+1),
				zap.Int("count", len(defaulted)),
				zap.Strings("fields", defaulted),
			)
		}
		schemes = append(schemes, s)
	}

	i.catalog.ReplaceIngested(schemes)

	result := &models.ImportResult{
		FileName: name,
		Imported: len(schemes),
		Total:    len(i.catalog.List()),
		Schemes:  schemes,
	}

	i.logger.Info("spreadsheet imported",
		zap.String("file", name),
		zap.Int("imported", result.Imported),
		zap.Int("total", result.Total),
	)

	return result, nil
}
