package device

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Store is the persistence contract for device documents.
// Implementations have no business logic; they read and write one device's
// document at a time.
type Store interface {
	// Load returns the device with the given ID, or ErrNotFound.
	Load(deviceID string) (*Device, error)

	// Save atomically replaces the device's document on disk.
	Save(d *Device) error

	// Delete removes the device's document and artifact directories.
	// Returns ErrNotFound if the device does not exist.
	Delete(deviceID string) error

	// ListAll returns every readable device. Corrupt documents are
	// skipped and reported, not fatal.
	ListAll() ([]Device, error)
}

// File layout constants.
const (
	documentName = "device.json"

	// Artifact subdirectories created alongside each device document,
	// matching the legacy inventory layout.
	logsDirName  = "logs"
	filesDirName = "files"

	dirPermissions  = 0o750
	filePermissions = 0o600
)

// FileStore persists one JSON document per device under
// <root>/<Category>/<device_id>/device.json.
//
// Lookups are category-agnostic: an in-memory device_id → category index,
// built at startup and maintained on every write, avoids scanning all
// category directories per lookup.
//
// Save is atomic: the document is written to a temp file in the same
// directory and renamed over the old one, so readers never observe a
// half-written document.
//
// Thread Safety: all methods are safe for concurrent use.
type FileStore struct {
	root   string
	index  map[string]Category // device_id → category
	mu     sync.RWMutex        // protects index and on-disk layout
	logger Logger
}

// NewFileStore opens (or initialises) a device store rooted at the given
// directory. Category partition directories are created if missing and the
// id → category index is built by a one-time scan.
func NewFileStore(root string) (*FileStore, error) {
	s := &FileStore{
		root:   root,
		index:  make(map[string]Category),
		logger: noopLogger{},
	}

	for _, cat := range AllCategories() {
		dir := filepath.Join(root, cat.DirName())
		if err := os.MkdirAll(dir, dirPermissions); err != nil {
			return nil, fmt.Errorf("%w: creating %s: %w", ErrStore, dir, err)
		}
	}

	if err := s.rebuildIndex(); err != nil {
		return nil, err
	}

	return s, nil
}

// SetLogger sets the logger used for skip-and-report warnings.
func (s *FileStore) SetLogger(logger Logger) {
	s.logger = logger
}

// Root returns the store's root directory.
func (s *FileStore) Root() string {
	return s.root
}

// rebuildIndex scans every category partition and records which category
// each device ID lives in. Unreadable entries are logged and skipped.
func (s *FileStore) rebuildIndex() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index = make(map[string]Category)
	for _, cat := range AllCategories() {
		dir := filepath.Join(s.root, cat.DirName())
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("%w: scanning %s: %w", ErrStore, dir, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			if _, dup := s.index[entry.Name()]; dup {
				s.logger.Warn("duplicate device id across categories, keeping first",
					"device_id", entry.Name(), "category", cat)
				continue
			}
			s.index[entry.Name()] = cat
		}
	}
	return nil
}

// documentPath returns the path of a device's JSON document.
func (s *FileStore) documentPath(deviceID string, cat Category) string {
	return filepath.Join(s.root, cat.DirName(), deviceID, documentName)
}

// Load returns the device with the given ID, or ErrNotFound.
// The returned device is owned by the caller.
func (s *FileStore) Load(deviceID string) (*Device, error) {
	s.mu.RLock()
	cat, ok := s.index[deviceID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	return s.readDocument(s.documentPath(deviceID, cat))
}

// readDocument reads and decodes a single device document.
// Unknown JSON fields are tolerated; missing required fields are reported
// as ErrCorruptDocument.
func (s *FileStore) readDocument(path string) (*Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: reading %s: %w", ErrStore, path, err)
	}

	var d Device
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptDocument, path, err)
	}
	if err := validateDocument(&d); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &d, nil
}

// Save atomically replaces the device's document. The device directory and
// its artifact subdirectories are created on first save.
func (s *FileStore) Save(d *Device) error {
	if err := ValidateID(d.DeviceID); err != nil {
		return err
	}
	if err := ValidateCategory(d.Category); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deviceDir := filepath.Join(s.root, d.Category.DirName(), d.DeviceID)
	for _, dir := range []string{deviceDir, filepath.Join(deviceDir, logsDirName), filepath.Join(deviceDir, filesDirName)} {
		if err := os.MkdirAll(dir, dirPermissions); err != nil {
			return fmt.Errorf("%w: creating %s: %w", ErrStore, dir, err)
		}
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %w", ErrStore, d.DeviceID, err)
	}

	// Write-to-temp-then-rename keeps the replacement atomic. The temp
	// file must live in the same directory as the target so the rename
	// never crosses filesystems.
	tmp, err := os.CreateTemp(deviceDir, documentName+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %w", ErrStore, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: writing %s: %w", ErrStore, tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: closing %s: %w", ErrStore, tmpPath, err)
	}
	if err := os.Chmod(tmpPath, filePermissions); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: chmod %s: %w", ErrStore, tmpPath, err)
	}

	target := filepath.Join(deviceDir, documentName)
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: replacing %s: %w", ErrStore, target, err)
	}

	s.index[d.DeviceID] = d.Category
	return nil
}

// Delete removes the device's directory, including logs/ and files/
// artifacts. The removal is irreversible.
func (s *FileStore) Delete(deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cat, ok := s.index[deviceID]
	if !ok {
		return ErrNotFound
	}

	deviceDir := filepath.Join(s.root, cat.DirName(), deviceID)
	if err := os.RemoveAll(deviceDir); err != nil {
		return fmt.Errorf("%w: removing %s: %w", ErrStore, deviceDir, err)
	}

	delete(s.index, deviceID)
	return nil
}

// ListAll returns every readable device in deterministic order: categories
// in AllCategories() order, device IDs sorted within each category.
// Individually unreadable or corrupt documents are skipped and reported
// via the logger rather than aborting the listing.
func (s *FileStore) ListAll() ([]Device, error) {
	s.mu.RLock()
	byCategory := make(map[Category][]string)
	for id, cat := range s.index {
		byCategory[cat] = append(byCategory[cat], id)
	}
	s.mu.RUnlock()

	var devices []Device
	for _, cat := range AllCategories() {
		ids := byCategory[cat]
		sort.Strings(ids)
		for _, id := range ids {
			d, err := s.readDocument(s.documentPath(id, cat))
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					continue // removed between snapshot and read
				}
				s.logger.Warn("skipping unreadable device document",
					"device_id", id, "category", cat, "error", err)
				continue
			}
			devices = append(devices, *d)
		}
	}

	return devices, nil
}

// Count returns the number of indexed devices.
func (s *FileStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}
