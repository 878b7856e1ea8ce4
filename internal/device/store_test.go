package device

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return store
}

func testDevice(id string, cat Category) *Device {
	now := time.Now().UTC()
	return &Device{
		DeviceID: id,
		Name:     "Pixel 8 Pro",
		Category: cat,
		SKU:      "SKU-" + id,
		CPUType:  "arm64",
		Specs: Specs{
			Model:        "Pixel 8 Pro",
			OSVersion:    "14",
			Manufacturer: "Google",
			Memory:       "12GB",
			Storage:      "256GB",
		},
		Status:             StatusAvailable,
		BorrowHistory:      []BorrowRecord{},
		MaintenanceHistory: []MaintenanceRecord{},
		CreatedAt:          now,
		LastUpdated:        now,
	}
}

func TestFileStore_SaveLoad(t *testing.T) {
	store := newTestStore(t)

	d := testDevice("dev-001", CategoryAndroid)
	if err := store.Save(d); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load("dev-001")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.DeviceID != "dev-001" {
		t.Errorf("DeviceID = %q, want dev-001", loaded.DeviceID)
	}
	if loaded.Category != CategoryAndroid {
		t.Errorf("Category = %q, want android", loaded.Category)
	}
	if loaded.Specs.Model != "Pixel 8 Pro" {
		t.Errorf("Specs.Model = %q, want Pixel 8 Pro", loaded.Specs.Model)
	}
}

func TestFileStore_LoadNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(missing) = %v, want ErrNotFound", err)
	}
}

func TestFileStore_SaveCreatesArtifactDirs(t *testing.T) {
	store := newTestStore(t)

	d := testDevice("dev-002", CategoryIOS)
	if err := store.Save(d); err != nil {
		t.Fatalf("Save: %v", err)
	}

	deviceDir := filepath.Join(store.Root(), "IOS", "dev-002")
	for _, sub := range []string{"logs", "files"} {
		info, err := os.Stat(filepath.Join(deviceDir, sub))
		if err != nil || !info.IsDir() {
			t.Errorf("expected artifact dir %s to exist", sub)
		}
	}
}

func TestFileStore_SaveLeavesNoTempFiles(t *testing.T) {
	store := newTestStore(t)

	d := testDevice("dev-003", CategoryWindows)
	if err := store.Save(d); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// Save again to exercise the replace path.
	d.Name = "Surface Pro 9"
	if err := store.Save(d); err != nil {
		t.Fatalf("Save (replace): %v", err)
	}

	deviceDir := filepath.Join(store.Root(), "Windows", "dev-003")
	entries, err := os.ReadDir(deviceDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != "device.json" && e.Name() != "logs" && e.Name() != "files" {
			t.Errorf("unexpected entry %q left behind", e.Name())
		}
	}
}

func TestFileStore_Delete(t *testing.T) {
	store := newTestStore(t)

	d := testDevice("dev-004", CategoryAndroid)
	if err := store.Save(d); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := store.Delete("dev-004"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load("dev-004"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load after delete = %v, want ErrNotFound", err)
	}
	if _, err := os.Stat(filepath.Join(store.Root(), "Android", "dev-004")); !os.IsNotExist(err) {
		t.Errorf("device directory still exists after delete")
	}

	// Deleting again reports not found rather than silent success.
	if err := store.Delete("dev-004"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestFileStore_IndexRebuiltOnOpen(t *testing.T) {
	root := t.TempDir()

	store, err := NewFileStore(root)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := store.Save(testDevice("dev-005", CategoryIOS)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A fresh store over the same root must find the device without being
	// told its category.
	reopened, err := NewFileStore(root)
	if err != nil {
		t.Fatalf("NewFileStore (reopen): %v", err)
	}
	if _, err := reopened.Load("dev-005"); err != nil {
		t.Errorf("Load after reopen: %v", err)
	}
	if got := reopened.Count(); got != 1 {
		t.Errorf("Count = %d, want 1", got)
	}
}

func TestFileStore_ListAllSkipsCorrupt(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileStore(root)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if err := store.Save(testDevice("good-1", CategoryAndroid)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(testDevice("good-2", CategoryWindows)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Corrupt one document by hand.
	badDir := filepath.Join(root, "Android", "bad-1")
	if err := os.MkdirAll(badDir, 0o750); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(badDir, "device.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	reopened, err := NewFileStore(root)
	if err != nil {
		t.Fatalf("NewFileStore (reopen): %v", err)
	}
	devices, err := reopened.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("ListAll returned %d devices, want 2 (corrupt skipped)", len(devices))
	}
}

func TestFileStore_ListAllDeterministicOrder(t *testing.T) {
	store := newTestStore(t)

	// Insert out of order across categories.
	for _, tc := range []struct {
		id  string
		cat Category
	}{
		{"w-2", CategoryWindows},
		{"a-2", CategoryAndroid},
		{"i-1", CategoryIOS},
		{"a-1", CategoryAndroid},
	} {
		if err := store.Save(testDevice(tc.id, tc.cat)); err != nil {
			t.Fatalf("Save(%s): %v", tc.id, err)
		}
	}

	devices, err := store.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}

	want := []string{"a-1", "a-2", "i-1", "w-2"}
	if len(devices) != len(want) {
		t.Fatalf("ListAll returned %d devices, want %d", len(devices), len(want))
	}
	for i, id := range want {
		if devices[i].DeviceID != id {
			t.Errorf("devices[%d] = %q, want %q", i, devices[i].DeviceID, id)
		}
	}
}

func TestFileStore_UnknownJSONFieldsTolerated(t *testing.T) {
	root := t.TempDir()
	if _, err := NewFileStore(root); err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	dir := filepath.Join(root, "Android", "fwd-1")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	doc := `{
		"device_id": "fwd-1",
		"name": "Future Phone",
		"category": "android",
		"sku": "SKU-F",
		"cpu_type": "arm64",
		"specs": {"model": "F1", "version": "15", "manufacturer": "X", "memory": "8GB", "storage": "128GB"},
		"status": "available",
		"borrow_history": [],
		"maintenance_history": [],
		"created_at": "2026-01-02T15:04:05Z",
		"last_updated": "2026-01-02T15:04:05Z",
		"some_future_field": {"nested": true}
	}`
	if err := os.WriteFile(filepath.Join(dir, "device.json"), []byte(doc), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	reopened, err := NewFileStore(root)
	if err != nil {
		t.Fatalf("NewFileStore (reopen): %v", err)
	}
	d, err := reopened.Load("fwd-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.Name != "Future Phone" {
		t.Errorf("Name = %q, want Future Phone", d.Name)
	}
}

func TestFileStore_MissingRequiredFieldIsCorruption(t *testing.T) {
	root := t.TempDir()
	if _, err := NewFileStore(root); err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	dir := filepath.Join(root, "IOS", "hollow-1")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	// Decodes fine but has no name.
	doc := `{"device_id": "hollow-1", "category": "ios", "status": "available"}`
	if err := os.WriteFile(filepath.Join(dir, "device.json"), []byte(doc), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	reopened, err := NewFileStore(root)
	if err != nil {
		t.Fatalf("NewFileStore (reopen): %v", err)
	}
	_, err = reopened.Load("hollow-1")
	if !errors.Is(err, ErrCorruptDocument) {
		t.Errorf("Load = %v, want ErrCorruptDocument", err)
	}
}
