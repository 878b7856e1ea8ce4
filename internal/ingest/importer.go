package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/devicelab/devpool-core/internal/device"
)

// Sentinel errors returned by the importer. Per-row failures never
// surface here; they are collected in the Report instead.
var (
	ErrEmptyFile       = errors.New("csv file has no header row")
	ErrMissingColumns  = errors.New("csv header missing required columns")
	ErrInvalidCategory = errors.New("invalid default category")
)

// Logger is the minimal logging interface the importer needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// RowError describes one row that could not be imported.
type RowError struct {
	Line     int    `json:"line"`
	DeviceID string `json:"device_id,omitempty"`
	Reason   string `json:"reason"`
}

// Report summarises one import run.
type Report struct {
	Rows       int        `json:"rows"`
	Created    int        `json:"created"`
	Duplicates int        `json:"duplicates"`
	Failed     int        `json:"failed"`
	Errors     []RowError `json:"errors,omitempty"`
}

// Importer maps CSV rows onto device registrations.
type Importer struct {
	manager *device.Manager
	logger  Logger
}

// NewImporter creates an importer over the given manager.
func NewImporter(manager *device.Manager) *Importer {
	return &Importer{
		manager: manager,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the importer.
func (i *Importer) SetLogger(logger Logger) {
	i.logger = logger
}

// columnAliases maps legacy export header names onto canonical columns.
// Headers are matched after normalisation (lowercased, trimmed, spaces
// and dashes collapsed to underscores).
var columnAliases = map[string]string{
	"id":           "device_id",
	"device_id":    "device_id",
	"serial":       "device_id",
	"name":         "name",
	"device_name":  "name",
	"category":     "category",
	"platform":     "category",
	"sku":          "sku",
	"cpu":          "cpu_type",
	"cpu_type":     "cpu_type",
	"model":        "model",
	"version":      "os_version",
	"os_version":   "os_version",
	"manufacturer": "manufacturer",
	"memory":       "memory",
	"ram":          "memory",
	"storage":      "storage",
	"disk":         "storage",
	"tags":         "tags",
	"notes":        "notes",
	"building":     "building",
	"floor":        "floor",
	"room":         "room",
	"rack":         "rack",
}

// requiredColumns must all resolve from the header before any row is
// processed.
var requiredColumns = []string{"device_id", "name", "sku", "cpu_type"}

// ImportFile reads the CSV at path and imports its rows. The default
// category applies to rows without a category column or value; a row's
// own category always wins.
func (i *Importer) ImportFile(ctx context.Context, path string, defaultCategory device.Category) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()

	report, err := i.Import(ctx, f, defaultCategory)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	return report, nil
}

// Import reads CSV rows from r and registers a device per row.
//
// The first row is the header; recognised columns are mapped via
// columnAliases, unrecognised columns are ignored. Blank rows are
// skipped without counting. Processing stops early if ctx is cancelled.
func (i *Importer) Import(ctx context.Context, r io.Reader, defaultCategory device.Category) (*Report, error) {
	if defaultCategory != "" {
		if err := device.ValidateCategory(defaultCategory); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCategory, defaultCategory)
		}
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	columns, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			report.fail(line, "", fmt.Sprintf("malformed row: %v", err))
			continue
		}
		if blankRow(record) {
			continue
		}

		report.Rows++
		row := extractRow(columns, record)
		spec := rowToSpec(row, defaultCategory)

		if _, err := i.manager.Create(ctx, spec); err != nil {
			if errors.Is(err, device.ErrExists) {
				report.Duplicates++
				i.logger.Info("import skipped duplicate", "device_id", spec.DeviceID, "line", line)
				continue
			}
			report.fail(line, spec.DeviceID, err.Error())
			i.logger.Warn("import row failed", "device_id", spec.DeviceID, "line", line, "error", err)
			continue
		}
		report.Created++
	}

	i.logger.Info("csv import finished",
		"rows", report.Rows,
		"created", report.Created,
		"duplicates", report.Duplicates,
		"failed", report.Failed,
	)
	return report, nil
}

func (r *Report) fail(line int, deviceID, reason string) {
	r.Failed++
	r.Errors = append(r.Errors, RowError{Line: line, DeviceID: deviceID, Reason: reason})
}

// mapHeader resolves each header cell to its canonical column index.
// Duplicate canonical names keep the first occurrence.
func mapHeader(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for idx, cell := range header {
		canonical, ok := columnAliases[normalizeHeader(cell)]
		if !ok {
			continue
		}
		if _, seen := columns[canonical]; !seen {
			columns[canonical] = idx
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return columns, nil
}

func normalizeHeader(cell string) string {
	cell = strings.ToLower(strings.TrimSpace(cell))
	cell = strings.ReplaceAll(cell, " ", "_")
	return strings.ReplaceAll(cell, "-", "_")
}

func blankRow(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func extractRow(columns map[string]int, record []string) map[string]string {
	row := make(map[string]string, len(columns))
	for col, idx := range columns {
		if idx < len(record) {
			row[col] = strings.TrimSpace(record[idx])
		}
	}
	return row
}

func rowToSpec(row map[string]string, defaultCategory device.Category) device.CreateSpec {
	category := device.Category(strings.ToLower(row["category"]))
	if category == "" {
		category = defaultCategory
	}

	spec := device.CreateSpec{
		DeviceID: row["device_id"],
		Name:     row["name"],
		Category: category,
		SKU:      row["sku"],
		CPUType:  row["cpu_type"],
		Specs: device.Specs{
			Model:        row["model"],
			OSVersion:    row["os_version"],
			Manufacturer: row["manufacturer"],
			Memory:       row["memory"],
			Storage:      row["storage"],
		},
	}

	if tags := row["tags"]; tags != "" {
		for _, tag := range strings.Split(tags, ";") {
			if tag = strings.TrimSpace(tag); tag != "" {
				spec.Tags = append(spec.Tags, tag)
			}
		}
	}
	if notes := row["notes"]; notes != "" {
		spec.Notes = &notes
	}
	if loc := rowToLocation(row); loc != nil {
		spec.Location = loc
	}
	return spec
}

func rowToLocation(row map[string]string) *device.Location {
	var loc device.Location
	found := false
	for col, field := range map[string]**string{
		"building": &loc.Building,
		"floor":    &loc.Floor,
		"room":     &loc.Room,
		"rack":     &loc.Rack,
	} {
		if v := row[col]; v != "" {
			value := v
			*field = &value
			found = true
		}
	}
	if !found {
		return nil
	}
	return &loc
}
