package device

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Logger defines the logging interface used by this package.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Manager owns every device state transition. Each mutating operation runs
// load → validate → compute next state → persist under an exclusive
// per-device-ID critical section, so two concurrent borrows of the same
// device can never both observe status=available. Operations on different
// IDs never block each other; read-only operations never take the
// per-device lock.
type Manager struct {
	store  Store
	logger Logger
	sinks  []EventSink

	// locks holds one mutex per device ID seen by a mutating operation.
	// Entries are removed when the device is deleted.
	locks   map[string]*sync.Mutex
	locksMu sync.Mutex
}

// NewManager creates a lifecycle manager on top of a store.
func NewManager(store Store) *Manager {
	return &Manager{
		store:  store,
		logger: noopLogger{},
		locks:  make(map[string]*sync.Mutex),
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// AddSink registers a lifecycle event sink. Not safe to call concurrently
// with operations; wire sinks during startup.
func (m *Manager) AddSink(sink EventSink) {
	m.sinks = append(m.sinks, sink)
}

// lockFor returns the mutex guarding one device ID, creating it on first use.
func (m *Manager) lockFor(deviceID string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()

	mu, ok := m.locks[deviceID]
	if !ok {
		mu = &sync.Mutex{}
		m.locks[deviceID] = mu
	}
	return mu
}

// dropLock removes a deleted device's mutex so the table doesn't grow
// unboundedly over create/delete cycles.
func (m *Manager) dropLock(deviceID string) {
	m.locksMu.Lock()
	delete(m.locks, deviceID)
	m.locksMu.Unlock()
}

// bumpTimestamp advances LastUpdated, guaranteeing a strict increase even
// when two mutations land within clock resolution.
func bumpTimestamp(d *Device) time.Time {
	now := time.Now().UTC()
	if !now.After(d.LastUpdated) {
		now = d.LastUpdated.Add(time.Microsecond)
	}
	d.LastUpdated = now
	return now
}

// CreateSpec carries the caller-supplied fields for Create.
type CreateSpec struct {
	DeviceID string    `json:"device_id"`
	Name     string    `json:"name"`
	Category Category  `json:"category"`
	SKU      string    `json:"sku"`
	CPUType  string    `json:"cpu_type"`
	Specs    Specs     `json:"specs"`
	Location *Location `json:"location,omitempty"`
	Tags     []string  `json:"tags,omitempty"`
	Notes    *string   `json:"notes,omitempty"`
}

// Create registers a new device in the pool with status available and
// empty histories. Returns ErrExists if the ID is already taken in any
// category.
func (m *Manager) Create(_ context.Context, spec CreateSpec) (*Device, error) {
	if err := ValidateCreate(spec); err != nil {
		return nil, err
	}

	mu := m.lockFor(spec.DeviceID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := m.store.Load(spec.DeviceID); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, spec.DeviceID)
	}

	now := time.Now().UTC()
	d := &Device{
		DeviceID:           spec.DeviceID,
		Name:               spec.Name,
		Category:           spec.Category,
		SKU:                spec.SKU,
		CPUType:            spec.CPUType,
		Specs:              spec.Specs,
		Status:             StatusAvailable,
		BorrowHistory:      []BorrowRecord{},
		MaintenanceHistory: []MaintenanceRecord{},
		Location:           spec.Location,
		Tags:               spec.Tags,
		Notes:              spec.Notes,
		CreatedAt:          now,
		LastUpdated:        now,
	}

	if err := m.store.Save(d); err != nil {
		return nil, err
	}

	m.logger.Info("device created", "device_id", d.DeviceID, "category", d.Category)
	m.publish(EventCreated, d, nil)
	return d.DeepCopy(), nil
}

// Get returns the device with the given ID, or ErrNotFound.
func (m *Manager) Get(_ context.Context, deviceID string) (*Device, error) {
	d, err := m.store.Load(deviceID)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// List returns every device in deterministic store order.
func (m *Manager) List(_ context.Context) ([]Device, error) {
	return m.store.ListAll()
}

// Update carries the caller-supplied partial update for Update.
// Nil fields are left untouched. DeviceID, borrow bookkeeping, and
// histories are never updatable through this path.
type Update struct {
	Name     *string   `json:"name,omitempty"`
	Specs    *Specs    `json:"specs,omitempty"`
	Status   *Status   `json:"status,omitempty"`
	Location *Location `json:"location,omitempty"`
	Tags     *[]string `json:"tags,omitempty"`
	Notes    *string   `json:"notes,omitempty"`
}

// Update merges the supplied fields into an existing device and bumps
// LastUpdated.
//
// Status may be set to available, maintenance, or offline. It may not be
// set to borrowed (only Borrow does that, with its bookkeeping), and a
// borrowed device must be returned before its status can change.
func (m *Manager) Update(_ context.Context, deviceID string, upd Update) (*Device, error) {
	mu := m.lockFor(deviceID)
	mu.Lock()
	defer mu.Unlock()

	d, err := m.store.Load(deviceID)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		if err := ValidateName(*upd.Name); err != nil {
			return nil, err
		}
		d.Name = *upd.Name
	}
	if upd.Specs != nil {
		d.Specs = *upd.Specs
	}
	if upd.Status != nil {
		if err := ValidateStatus(*upd.Status); err != nil {
			return nil, err
		}
		if *upd.Status == StatusBorrowed {
			return nil, fmt.Errorf("%w: status borrowed is set via borrow only", ErrInvalidState)
		}
		if d.Status == StatusBorrowed && *upd.Status != StatusBorrowed {
			return nil, fmt.Errorf("%w: device %s is borrowed, return it first", ErrInvalidState, deviceID)
		}
		d.Status = *upd.Status
	}
	if upd.Location != nil {
		d.Location = upd.Location
	}
	if upd.Tags != nil {
		d.Tags = *upd.Tags
	}
	if upd.Notes != nil {
		d.Notes = upd.Notes
	}

	bumpTimestamp(d)
	if err := m.store.Save(d); err != nil {
		return nil, err
	}

	m.logger.Info("device updated", "device_id", d.DeviceID)
	m.publish(EventUpdated, d, nil)
	return d.DeepCopy(), nil
}

// Delete removes a device and its artifact directories. The removal is
// irreversible; there is no tombstone. Returns ErrNotFound for unknown IDs
// (never a silent success).
func (m *Manager) Delete(_ context.Context, deviceID string) error {
	mu := m.lockFor(deviceID)
	mu.Lock()
	defer mu.Unlock()

	d, err := m.store.Load(deviceID)
	if err != nil {
		return err
	}

	if err := m.store.Delete(deviceID); err != nil {
		return err
	}
	m.dropLock(deviceID)

	m.logger.Info("device deleted", "device_id", deviceID, "category", d.Category)
	m.publish(EventDeleted, d, nil)
	return nil
}

// BorrowRequest carries the caller-supplied fields for Borrow.
type BorrowRequest struct {
	Borrower           string
	Purpose            string
	ExpectedReturnDate time.Time
	Contact            *string
}

// Borrow transitions an available device to borrowed: sets the current
// borrower, records the active loan, and appends an open borrow record.
// Returns ErrInvalidState if the device is not available; the device is
// left unchanged on failure.
func (m *Manager) Borrow(_ context.Context, deviceID string, req BorrowRequest) (*Device, error) {
	if req.Borrower == "" {
		return nil, fmt.Errorf("%w: borrower is required", ErrInvalidDevice)
	}
	if req.Purpose == "" {
		return nil, fmt.Errorf("%w: purpose is required", ErrInvalidDevice)
	}

	mu := m.lockFor(deviceID)
	mu.Lock()
	defer mu.Unlock()

	d, err := m.store.Load(deviceID)
	if err != nil {
		return nil, err
	}

	if d.Status != StatusAvailable {
		return nil, fmt.Errorf("%w: device %s is %s", ErrInvalidState, deviceID, d.Status)
	}

	now := bumpTimestamp(d)
	d.Status = StatusBorrowed
	d.CurrentBorrower = &req.Borrower
	d.CurrentBorrowInfo = &BorrowInfo{
		Borrower:           req.Borrower,
		BorrowDate:         now,
		ExpectedReturnDate: req.ExpectedReturnDate,
		Purpose:            req.Purpose,
		Contact:            req.Contact,
	}
	d.BorrowHistory = append(d.BorrowHistory, BorrowRecord{
		Borrower:   req.Borrower,
		BorrowDate: now,
		ReturnDate: nil,
		Purpose:    req.Purpose,
		Contact:    req.Contact,
	})

	if err := m.store.Save(d); err != nil {
		return nil, err
	}

	m.logger.Info("device borrowed",
		"device_id", deviceID, "borrower", req.Borrower, "purpose", req.Purpose)
	m.publish(EventBorrowed, d, map[string]any{"borrower": req.Borrower})
	return d.DeepCopy(), nil
}

// Return transitions a borrowed device back to available: clears the
// current borrower, and closes the single open borrow record by setting
// its return date. Returns ErrInvalidState if the device is not borrowed.
func (m *Manager) Return(_ context.Context, deviceID, returner string) (*Device, error) {
	if returner == "" {
		return nil, fmt.Errorf("%w: returner is required", ErrInvalidDevice)
	}

	mu := m.lockFor(deviceID)
	mu.Lock()
	defer mu.Unlock()

	d, err := m.store.Load(deviceID)
	if err != nil {
		return nil, err
	}

	if d.Status != StatusBorrowed {
		return nil, fmt.Errorf("%w: device %s is %s", ErrInvalidState, deviceID, d.Status)
	}

	now := bumpTimestamp(d)
	d.Status = StatusAvailable
	d.CurrentBorrower = nil
	d.CurrentBorrowInfo = nil
	if open := d.OpenBorrow(); open != nil {
		ret := now
		open.ReturnDate = &ret
	}

	if err := m.store.Save(d); err != nil {
		return nil, err
	}

	m.logger.Info("device returned", "device_id", deviceID, "returner", returner)
	m.publish(EventReturned, d, map[string]any{"returner": returner})
	return d.DeepCopy(), nil
}

// Search returns devices matching the query and filters, in deterministic
// store order (category, then device_id).
//
// query is a case-insensitive substring match over name, sku, category,
// and cpu_type. filters is a conjunction over the recognised keys
// category, status, cpu_type, and available (boolean); unrecognised keys
// are ignored so forward-compatible callers are tolerated.
func (m *Manager) Search(_ context.Context, query string, filters map[string]any) ([]Device, error) {
	devices, err := m.store.ListAll()
	if err != nil {
		return nil, err
	}

	if query == "" && len(filters) == 0 {
		return devices, nil
	}

	var matched []Device
	for i := range devices {
		d := &devices[i]
		if query != "" && !matchesQuery(d, query) {
			continue
		}
		if !matchesFilters(d, filters) {
			continue
		}
		matched = append(matched, *d)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Category != matched[j].Category {
			return matched[i].Category < matched[j].Category
		}
		return matched[i].DeviceID < matched[j].DeviceID
	})

	return matched, nil
}

// matchesQuery reports whether the query is a case-insensitive substring
// of the device's searchable text.
func matchesQuery(d *Device, query string) bool {
	haystack := strings.ToLower(strings.Join([]string{
		d.Name, d.SKU, string(d.Category), d.CPUType,
	}, " "))
	return strings.Contains(haystack, strings.ToLower(query))
}

// matchesFilters applies the conjunction of recognised filters.
func matchesFilters(d *Device, filters map[string]any) bool {
	for key, value := range filters {
		switch key {
		case "category":
			s, ok := value.(string)
			if !ok || !strings.EqualFold(string(d.Category), s) {
				return false
			}
		case "status":
			s, ok := value.(string)
			if !ok || string(d.Status) != s {
				return false
			}
		case "cpu_type":
			s, ok := value.(string)
			if !ok || d.CPUType != s {
				return false
			}
		case "available":
			want, ok := value.(bool)
			if !ok {
				return false
			}
			if want && d.Status != StatusAvailable {
				return false
			}
		default:
			// Unknown filter keys are ignored, not rejected.
		}
	}
	return true
}

// StatusSnapshot is the read-only projection of a device exposed by the
// device.status tool.
type StatusSnapshot struct {
	DeviceID        string         `json:"device_id"`
	Name            string         `json:"name"`
	Category        Category       `json:"category"`
	SKU             string         `json:"sku"`
	CPUType         string         `json:"cpu_type"`
	Status          Status         `json:"status"`
	CurrentBorrower *string        `json:"current_borrower"`
	Specs           Specs          `json:"specs"`
	BorrowHistory   []BorrowRecord `json:"borrow_history"`
	LastUpdated     time.Time      `json:"last_updated"`
}

// StatusOf projects a device into its externally visible summary.
// Returns ErrNotFound for unknown IDs.
func (m *Manager) StatusOf(_ context.Context, deviceID string) (*StatusSnapshot, error) {
	d, err := m.store.Load(deviceID)
	if err != nil {
		return nil, err
	}

	return &StatusSnapshot{
		DeviceID:        d.DeviceID,
		Name:            d.Name,
		Category:        d.Category,
		SKU:             d.SKU,
		CPUType:         d.CPUType,
		Status:          d.Status,
		CurrentBorrower: d.CurrentBorrower,
		Specs:           d.Specs,
		BorrowHistory:   d.BorrowHistory,
		LastUpdated:     d.LastUpdated,
	}, nil
}

// PoolStats summarises pool composition for monitoring.
type PoolStats struct {
	TotalDevices int              `json:"total_devices"`
	ByCategory   map[Category]int `json:"by_category"`
	ByStatus     map[Status]int   `json:"by_status"`
}

// Stats returns current pool statistics.
func (m *Manager) Stats(ctx context.Context) (PoolStats, error) {
	devices, err := m.store.ListAll()
	if err != nil {
		return PoolStats{}, err
	}

	stats := PoolStats{
		TotalDevices: len(devices),
		ByCategory:   make(map[Category]int),
		ByStatus:     make(map[Status]int),
	}
	for i := range devices {
		stats.ByCategory[devices[i].Category]++
		stats.ByStatus[devices[i].Status]++
	}
	return stats, nil
}
