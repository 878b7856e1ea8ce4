package device

import "time"

// Device represents a physical test device tracked by the pool.
// The JSON field names match the on-disk document layout; decoding
// tolerates unknown fields for forward compatibility.
type Device struct {
	// Identity
	DeviceID string   `json:"device_id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	SKU      string   `json:"sku"`
	CPUType  string   `json:"cpu_type"`

	// Hardware specification
	Specs Specs `json:"specs"`

	// Lifecycle state
	Status            Status      `json:"status"`
	CurrentBorrower   *string     `json:"current_borrower,omitempty"`
	CurrentBorrowInfo *BorrowInfo `json:"current_borrow_info,omitempty"`

	// Histories. BorrowHistory is append-only: entries are only ever
	// closed (return_date set), never removed or reordered.
	BorrowHistory      []BorrowRecord      `json:"borrow_history"`
	MaintenanceHistory []MaintenanceRecord `json:"maintenance_history"`

	// Metadata
	Location *Location `json:"location,omitempty"`
	Tags     []string  `json:"tags,omitempty"`
	Notes    *string   `json:"notes,omitempty"`

	// Timestamps. LastUpdated strictly increases on every successful
	// mutation.
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// Specs holds the hardware specification of a device.
type Specs struct {
	Model            string  `json:"model"`
	OSVersion        string  `json:"version"`
	Manufacturer     string  `json:"manufacturer"`
	Memory           string  `json:"memory"`
	Storage          string  `json:"storage"`
	ScreenResolution *string `json:"screen_resolution,omitempty"`
	BatteryCapacity  *string `json:"battery_capacity,omitempty"`
}

// BorrowRecord documents one loan period of a device.
// A nil ReturnDate means the loan is still open; closed records are
// immutable.
type BorrowRecord struct {
	Borrower   string     `json:"borrower"`
	BorrowDate time.Time  `json:"borrow_date"`
	ReturnDate *time.Time `json:"return_date"`
	Purpose    string     `json:"purpose"`
	Contact    *string    `json:"contact,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
}

// BorrowInfo describes the active loan of a borrowed device.
// Present iff Status == StatusBorrowed.
type BorrowInfo struct {
	Borrower           string    `json:"borrower"`
	BorrowDate         time.Time `json:"borrow_date"`
	ExpectedReturnDate time.Time `json:"expected_return_date"`
	Purpose            string    `json:"purpose"`
	Contact            *string   `json:"contact,omitempty"`
}

// MaintenanceRecord documents one maintenance action on a device.
type MaintenanceRecord struct {
	Date        time.Time `json:"date"`
	Type        string    `json:"type"` // maintenance|repair|upgrade
	Description string    `json:"description"`
	Technician  string    `json:"technician"`
	Cost        float64   `json:"cost"`
}

// Location describes where a device physically lives.
type Location struct {
	Building *string `json:"building,omitempty"`
	Floor    *string `json:"floor,omitempty"`
	Room     *string `json:"room,omitempty"`
	Rack     *string `json:"rack,omitempty"`
}

// Category partitions the pool by platform. It doubles as the on-disk
// partition directory (see DirName).
type Category string

// Category constants.
const (
	CategoryAndroid Category = "android"
	CategoryIOS     Category = "ios"
	CategoryWindows Category = "windows"
)

// AllCategories returns all valid categories in deterministic store
// iteration order.
func AllCategories() []Category {
	return []Category{CategoryAndroid, CategoryIOS, CategoryWindows}
}

// DirName returns the on-disk partition directory for the category.
// The names mirror the legacy inventory layout (Android/IOS/Windows).
func (c Category) DirName() string {
	switch c {
	case CategoryAndroid:
		return "Android"
	case CategoryIOS:
		return "IOS"
	case CategoryWindows:
		return "Windows"
	default:
		return string(c)
	}
}

// Status is the lifecycle state of a device.
//
// Only available ⇄ borrowed transitions carry dedicated rules (Borrow and
// Return). Maintenance and offline are free-form statuses settable via
// Update only, outside the borrow/return state machine.
type Status string

// Status constants.
const (
	StatusAvailable   Status = "available"
	StatusBorrowed    Status = "borrowed"
	StatusMaintenance Status = "maintenance"
	StatusOffline     Status = "offline"
)

// AllStatuses returns all valid status values.
func AllStatuses() []Status {
	return []Status{StatusAvailable, StatusBorrowed, StatusMaintenance, StatusOffline}
}

// OpenBorrow returns a pointer to the single open borrow record, or nil if
// every record is closed. Open records can only be the most recently
// appended one; scanning from the tail keeps this O(1) in practice.
func (d *Device) OpenBorrow() *BorrowRecord {
	for i := len(d.BorrowHistory) - 1; i >= 0; i-- {
		if d.BorrowHistory[i].ReturnDate == nil {
			return &d.BorrowHistory[i]
		}
	}
	return nil
}

// DeepCopy creates a complete independent copy of the Device.
// Slice and pointer fields are cloned so modifications to the copy do not
// affect the original. Callers of the store and manager always receive
// copies.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d // Shallow copy of value fields

	cpy.CurrentBorrower = copyStringPtr(d.CurrentBorrower)
	cpy.Notes = copyStringPtr(d.Notes)

	if d.CurrentBorrowInfo != nil {
		info := *d.CurrentBorrowInfo
		info.Contact = copyStringPtr(d.CurrentBorrowInfo.Contact)
		cpy.CurrentBorrowInfo = &info
	}

	if d.BorrowHistory != nil {
		cpy.BorrowHistory = make([]BorrowRecord, len(d.BorrowHistory))
		for i, rec := range d.BorrowHistory {
			rec.ReturnDate = copyTimePtr(rec.ReturnDate)
			rec.Contact = copyStringPtr(rec.Contact)
			rec.Notes = copyStringPtr(rec.Notes)
			cpy.BorrowHistory[i] = rec
		}
	}

	if d.MaintenanceHistory != nil {
		cpy.MaintenanceHistory = make([]MaintenanceRecord, len(d.MaintenanceHistory))
		copy(cpy.MaintenanceHistory, d.MaintenanceHistory)
	}

	if d.Location != nil {
		loc := Location{
			Building: copyStringPtr(d.Location.Building),
			Floor:    copyStringPtr(d.Location.Floor),
			Room:     copyStringPtr(d.Location.Room),
			Rack:     copyStringPtr(d.Location.Rack),
		}
		cpy.Location = &loc
	}

	if d.Tags != nil {
		cpy.Tags = make([]string, len(d.Tags))
		copy(cpy.Tags, d.Tags)
	}

	cpy.Specs.ScreenResolution = copyStringPtr(d.Specs.ScreenResolution)
	cpy.Specs.BatteryCapacity = copyStringPtr(d.Specs.BatteryCapacity)

	return &cpy
}

func copyStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
