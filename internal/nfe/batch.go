package nfe

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/rezonia/mdfe-builder/internal/model"
)

// ErrNotInvoice marks a well-formed XML file that holds no infNFe element
var ErrNotInvoice = errors.New("not an NF-e document")

// ErrDuplicateKey marks a file whose access key was already imported in the batch
var ErrDuplicateKey = errors.New("duplicate access key")

// SkippedFile is a batch entry that produced no record
type SkippedFile struct {
	Path string `json:"path"`
	Err  error  `json:"-"`

	// Reason is Err rendered for JSON output
	Reason string `json:"reason"`
}

// BatchResult holds the outcome of a batch import
type BatchResult struct {
	ID      string                `json:"id"`
	Records []model.InvoiceRecord `json:"records"`
	Skipped []SkippedFile         `json:"skipped,omitempty"`
}

// ExtractFile reads and parses one file
func (e *Extractor) ExtractFile(path string) (*model.InvoiceRecord, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, model.NewParseError(path, "file", "failed to read file", err)
	}
	record, err := e.extract(path, content)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, model.NewParseError(path, "infNFe", "no invoice element", ErrNotInvoice)
	}
	record.SourceFile = path
	return record, nil
}

// ExtractBatch parses files one at a time. A file that fails is logged and
// skipped; the batch never aborts on a bad file. Records keep input order.
func (e *Extractor) ExtractBatch(ctx context.Context, paths []string) *BatchResult {
	result := &BatchResult{
		ID:      uuid.NewString(),
		Records: make([]model.InvoiceRecord, 0, len(paths)),
	}
	seen := make(map[string]string, len(paths))

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			result.skip(path, err)
			continue
		}

		record, err := e.ExtractFile(path)
		if err == nil {
			if first, dup := seen[record.AccessKey]; dup {
				err = fmt.Errorf("%w: %s already imported from %s", ErrDuplicateKey, record.AccessKey, first)
			}
		}
		if err != nil {
			e.logger.Warn("skipping invoice file",
				"batch_id", result.ID,
				"file", path,
				"error", err,
			)
			result.skip(path, err)
			continue
		}

		if record.Signature != nil && !record.Signature.Valid {
			e.logger.Warn("invoice signature not verified",
				"batch_id", result.ID,
				"file", path,
				"reason", record.Signature.Error,
			)
		}

		seen[record.AccessKey] = path
		result.Records = append(result.Records, *record)
	}

	e.logger.Info("invoice batch imported",
		"batch_id", result.ID,
		"files", len(paths),
		"records", len(result.Records),
		"skipped", len(result.Skipped),
	)
	return result
}

func (r *BatchResult) skip(path string, err error) {
	r.Skipped = append(r.Skipped, SkippedFile{Path: path, Err: err, Reason: err.Error()})
}
