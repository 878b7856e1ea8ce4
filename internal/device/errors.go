package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrNotFound is returned when a device ID does not exist in any category.
	ErrNotFound = errors.New("device: not found")

	// ErrExists is returned when creating a device with an ID that already exists.
	ErrExists = errors.New("device: already exists")

	// ErrInvalidState is returned when an operation precondition on the
	// device status is violated (e.g. borrowing a borrowed device).
	ErrInvalidState = errors.New("device: invalid state")

	// ErrInvalidDevice is returned when device validation fails.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidID is returned when a device ID is empty or unsafe as a
	// directory name.
	ErrInvalidID = errors.New("device: invalid id")

	// ErrInvalidCategory is returned when a category value is not recognised.
	ErrInvalidCategory = errors.New("device: invalid category")

	// ErrInvalidStatus is returned when a status value is not recognised.
	ErrInvalidStatus = errors.New("device: invalid status")

	// ErrCorruptDocument is returned when a persisted document decodes but
	// is missing required fields. Listings skip and report these rather
	// than aborting.
	ErrCorruptDocument = errors.New("device: corrupt document")

	// ErrStore is returned when persistence read/write fails at the disk
	// layer. The dispatcher maps this to IO_ERROR.
	ErrStore = errors.New("device: store I/O")
)
