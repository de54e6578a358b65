// Package ingest turns normalized statement rows into validated transactions.
// It reads one canonical CSV layout per dataset; format-specific bank parsers
// live outside the engine and hand it rows in this shape.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oakmere/nominal/internal/common"
	"github.com/oakmere/nominal/internal/model"
	"github.com/oakmere/nominal/internal/normalize"
)

// Canonical CSV columns: date, amount, description, nominal_code. The code
// column is required for historical rows and ignored for incoming ones.
const (
	colDate = iota
	colAmount
	colDescription
	colNominalCode
	minColumns = 3
)

// DateLayout is the canonical date format for statement rows.
const DateLayout = "2006-01-02"

// RowError records one rejected row. Rejections never block the rest of the
// file.
type RowError struct {
	Err  error
	Line int
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Record validates and converts one raw row into a transaction. Malformed
// rows fail with an error wrapping common.ErrInvalidRecord.
func Record(date, amount, description, nominalCode string, source model.TransactionSource) (*model.Transaction, error) {
	when, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return nil, fmt.Errorf("%w: bad date %q", common.ErrInvalidRecord, date)
	}

	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, fmt.Errorf("%w: bad amount %q", common.ErrInvalidRecord, amount)
	}

	vendor, err := normalize.Vendor(description)
	if err != nil {
		return nil, fmt.Errorf("%w: empty description", common.ErrInvalidRecord)
	}

	nominalCode = strings.TrimSpace(nominalCode)
	if source == model.SourceHistorical && nominalCode == "" {
		return nil, fmt.Errorf("%w: historical row without nominal code", common.ErrInvalidRecord)
	}
	if source == model.SourceIncoming {
		nominalCode = ""
	}

	txn := &model.Transaction{
		ID:               uuid.NewString(),
		Date:             when,
		Amount:           value.Round(2),
		RawDescription:   strings.TrimSpace(description),
		NormalizedVendor: vendor,
		NominalCode:      nominalCode,
		Source:           source,
		Status:           model.StatusUnclassified,
	}
	return txn, nil
}

// ReadCSV parses a canonical statement file. It returns the accepted
// transactions alongside the per-row rejections; one malformed row never
// discards the rest of the file.
func ReadCSV(r io.Reader, source model.TransactionSource) ([]model.Transaction, []RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var transactions []model.Transaction
	var rejected []RowError

	line := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		line++

		if line == 1 && looksLikeHeader(row) {
			continue
		}
		if len(row) < minColumns {
			rejected = append(rejected, RowError{
				Line: line,
				Err:  fmt.Errorf("%w: expected at least %d columns, got %d", common.ErrInvalidRecord, minColumns, len(row)),
			})
			continue
		}

		code := ""
		if len(row) > colNominalCode {
			code = row[colNominalCode]
		}

		txn, err := Record(row[colDate], row[colAmount], row[colDescription], code, source)
		if err != nil {
			rejected = append(rejected, RowError{Line: line, Err: err})
			continue
		}
		transactions = append(transactions, *txn)
	}

	return transactions, rejected, nil
}

func looksLikeHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}
	_, err := time.Parse(DateLayout, strings.TrimSpace(row[colDate]))
	return err != nil && strings.EqualFold(strings.TrimSpace(row[colDate]), "date")
}
