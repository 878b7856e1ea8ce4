package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/devicelab/devpool-core/internal/device"
)

func newTestImporter(t *testing.T) (*Importer, *device.Manager) {
	t.Helper()

	store, err := device.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	manager := device.NewManager(store)
	return NewImporter(manager), manager
}

func TestImportCreatesDevices(t *testing.T) {
	imp, manager := newTestImporter(t)
	ctx := context.Background()

	csvData := `Device ID,Name,SKU,CPU Type,Model,OS Version,Memory,Storage,Tags,Notes
pixel8-001,Pixel 8,GP8,arm64,Pixel 8,Android 14,8GB,128GB,lab-a;camera,team phone
pixel7-002,Pixel 7,GP7,arm64,Pixel 7,Android 13,8GB,256GB,,
`

	report, err := imp.Import(ctx, strings.NewReader(csvData), device.CategoryAndroid)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Rows != 2 || report.Created != 2 || report.Failed != 0 || report.Duplicates != 0 {
		t.Errorf("report = %+v, want 2 rows created", report)
	}

	d, err := manager.Get(ctx, "pixel8-001")
	if err != nil {
		t.Fatalf("Get after import: %v", err)
	}
	if d.Category != device.CategoryAndroid {
		t.Errorf("category = %s, want android", d.Category)
	}
	if d.Status != device.StatusAvailable {
		t.Errorf("status = %s, want available", d.Status)
	}
	if d.Specs.OSVersion != "Android 14" || d.Specs.Memory != "8GB" {
		t.Errorf("specs = %+v, want Android 14 / 8GB", d.Specs)
	}
	if len(d.Tags) != 2 || d.Tags[0] != "lab-a" || d.Tags[1] != "camera" {
		t.Errorf("tags = %v, want [lab-a camera]", d.Tags)
	}
	if d.Notes == nil || *d.Notes != "team phone" {
		t.Errorf("notes = %v, want team phone", d.Notes)
	}
}

func TestImportRowCategoryWins(t *testing.T) {
	imp, manager := newTestImporter(t)
	ctx := context.Background()

	csvData := `device_id,name,sku,cpu_type,category
iphone15-001,iPhone 15,IP15,arm64,ios
pixel8-001,Pixel 8,GP8,arm64,
`

	report, err := imp.Import(ctx, strings.NewReader(csvData), device.CategoryAndroid)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Created != 2 {
		t.Fatalf("created = %d, want 2", report.Created)
	}

	d, err := manager.Get(ctx, "iphone15-001")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if d.Category != device.CategoryIOS {
		t.Errorf("category = %s, want ios (row value over default)", d.Category)
	}

	d, err = manager.Get(ctx, "pixel8-001")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if d.Category != device.CategoryAndroid {
		t.Errorf("category = %s, want android (default)", d.Category)
	}
}

func TestImportSkipsDuplicates(t *testing.T) {
	imp, manager := newTestImporter(t)
	ctx := context.Background()

	_, err := manager.Create(ctx, device.CreateSpec{
		DeviceID: "pixel8-001",
		Name:     "Pixel 8",
		Category: device.CategoryAndroid,
		SKU:      "GP8",
		CPUType:  "arm64",
	})
	if err != nil {
		t.Fatalf("seed Create: %v", err)
	}

	csvData := `device_id,name,sku,cpu_type
pixel8-001,Pixel 8,GP8,arm64
pixel7-002,Pixel 7,GP7,arm64
`

	report, err := imp.Import(ctx, strings.NewReader(csvData), device.CategoryAndroid)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Created != 1 || report.Duplicates != 1 || report.Failed != 0 {
		t.Errorf("report = %+v, want 1 created 1 duplicate", report)
	}
}

func TestImportReportsRowErrors(t *testing.T) {
	imp, _ := newTestImporter(t)
	ctx := context.Background()

	// Row 2 has an unsafe ID, row 3 a bad category, row 4 is fine.
	csvData := `device_id,name,sku,cpu_type,category
../escape,Bad ID,SKU1,arm64,android
pixel8-001,Pixel 8,GP8,arm64,gameboy
pixel7-002,Pixel 7,GP7,arm64,android
`

	report, err := imp.Import(ctx, strings.NewReader(csvData), "")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Created != 1 || report.Failed != 2 {
		t.Fatalf("report = %+v, want 1 created 2 failed", report)
	}
	if len(report.Errors) != 2 {
		t.Fatalf("errors = %v, want 2", report.Errors)
	}
	if report.Errors[0].Line != 2 || report.Errors[1].Line != 3 {
		t.Errorf("error lines = %d, %d, want 2, 3", report.Errors[0].Line, report.Errors[1].Line)
	}
	if report.Errors[1].DeviceID != "pixel8-001" {
		t.Errorf("error device_id = %q, want pixel8-001", report.Errors[1].DeviceID)
	}
}

func TestImportSkipsBlankRows(t *testing.T) {
	imp, _ := newTestImporter(t)

	csvData := `device_id,name,sku,cpu_type
pixel8-001,Pixel 8,GP8,arm64

,,,
pixel7-002,Pixel 7,GP7,arm64
`

	report, err := imp.Import(context.Background(), strings.NewReader(csvData), device.CategoryAndroid)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Rows != 2 || report.Created != 2 {
		t.Errorf("report = %+v, want 2 rows from 4 lines", report)
	}
}

func TestImportHeaderErrors(t *testing.T) {
	imp, _ := newTestImporter(t)
	ctx := context.Background()

	if _, err := imp.Import(ctx, strings.NewReader(""), device.CategoryAndroid); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("empty input err = %v, want ErrEmptyFile", err)
	}

	_, err := imp.Import(ctx, strings.NewReader("device_id,name\nx,y\n"), device.CategoryAndroid)
	if !errors.Is(err, ErrMissingColumns) {
		t.Errorf("missing columns err = %v, want ErrMissingColumns", err)
	}
	if err != nil && !strings.Contains(err.Error(), "sku") {
		t.Errorf("err = %v, want missing column names listed", err)
	}
}

func TestImportInvalidDefaultCategory(t *testing.T) {
	imp, _ := newTestImporter(t)

	_, err := imp.Import(context.Background(), strings.NewReader("device_id,name,sku,cpu_type\n"), "gameboy")
	if !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("err = %v, want ErrInvalidCategory", err)
	}
}

func TestImportCancelledContext(t *testing.T) {
	imp, _ := newTestImporter(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	csvData := `device_id,name,sku,cpu_type
pixel8-001,Pixel 8,GP8,arm64
`
	_, err := imp.Import(ctx, strings.NewReader(csvData), device.CategoryAndroid)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestImportFileMissing(t *testing.T) {
	imp, _ := newTestImporter(t)

	if _, err := imp.ImportFile(context.Background(), "/no/such/file.csv", device.CategoryAndroid); err == nil {
		t.Error("ImportFile on missing path should fail")
	}
}
