package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"coinboard/internal/domain"
	"coinboard/internal/logging"
)

// CategoryWriter is the category surface the importer needs.
type CategoryWriter interface {
	GetByName(ctx context.Context, name string) (*domain.Category, error)
	Create(ctx context.Context, req domain.CategoryRequest) (*domain.Category, error)
}

// Row is one category to import. Parent names another row or an existing category.
type Row struct {
	Name        string
	Description string
	Parent      string
}

// Result counts what an import did.
type Result struct {
	Created int
	Skipped int
}

// CSVImporter reads a name,description,parent CSV and creates the categories parents-first.
type CSVImporter struct {
	reader *csv.Reader
	writer CategoryWriter
	logger *zap.Logger
}

func NewCSVImporter(r io.Reader, w CategoryWriter, logger *zap.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader: csvr,
		writer: w,
		logger: logging.OrNop(logger).Named("importer"),
	}
}

// Run parses every row, then imports them.
func (i *CSVImporter) Run(ctx context.Context) (Result, error) {
	rows, err := i.readRows()
	if err != nil {
		return Result{}, err
	}
	return Import(ctx, i.writer, rows, i.logger)
}

func (i *CSVImporter) readRows() ([]Row, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["name"]; !ok {
		return nil, errors.New("read headers: missing name column")
	}

	var rows []Row
	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		row := Row{
			Name:        pick(record, index, "name"),
			Description: pick(record, index, "description"),
			Parent:      pick(record, index, "parent"),
		}
		if row.Name == "" && row.Description == "" && row.Parent == "" {
			continue
		}
		if row.Name == "" {
			return nil, fmt.Errorf("row %d: name is required", line)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Import creates rows so that every parent exists before its children. Categories whose
// name already exists are skipped and still usable as parents.
func Import(ctx context.Context, w CategoryWriter, rows []Row, logger *zap.Logger) (Result, error) {
	logger = logging.OrNop(logger)

	byName := make(map[string]Row, len(rows))
	for _, r := range rows {
		if _, dup := byName[r.Name]; dup {
			return Result{}, fmt.Errorf("category %q listed twice", r.Name)
		}
		byName[r.Name] = r
	}

	var res Result
	ids := make(map[string]int64, len(rows))
	visiting := make(map[string]bool)

	var ensure func(name string) (int64, error)
	ensure = func(name string) (int64, error) {
		if id, ok := ids[name]; ok {
			return id, nil
		}
		row, inFile := byName[name]
		existing, err := w.GetByName(ctx, name)
		if err != nil && !errors.Is(err, domain.ErrCategoryNotFound) {
			return 0, fmt.Errorf("lookup %q: %w", name, err)
		}
		if existing != nil {
			if inFile {
				res.Skipped++
				logger.Debug("category exists, skipping", zap.String("name", name))
			}
			ids[name] = existing.ID
			return existing.ID, nil
		}
		if !inFile {
			return 0, fmt.Errorf("parent category %q not found", name)
		}
		if visiting[name] {
			return 0, fmt.Errorf("category %q is its own ancestor", name)
		}
		visiting[name] = true
		defer delete(visiting, name)

		req := domain.CategoryRequest{Name: row.Name, Description: row.Description}
		if row.Parent != "" {
			pid, err := ensure(row.Parent)
			if err != nil {
				return 0, fmt.Errorf("%s: %w", name, err)
			}
			req.ParentID = &pid
		}
		created, err := w.Create(ctx, req)
		if err != nil {
			return 0, fmt.Errorf("create %q: %w", name, err)
		}
		res.Created++
		ids[name] = created.ID
		return created.ID, nil
	}

	for _, r := range rows {
		if _, err := ensure(r.Name); err != nil {
			return res, err
		}
	}
	logger.Info("categories imported", zap.Int("created", res.Created), zap.Int("skipped", res.Skipped))
	return res, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
