package device

import (
	"fmt"
	"regexp"
)

// Validation constants.
const (
	maxIDLength   = 64
	maxNameLength = 100
	maxTags       = 32

	// idPattern keeps device IDs safe for use as directory names: no path
	// separators, no dot-dot, no whitespace.
	idPattern = `^[A-Za-z0-9][A-Za-z0-9._-]*$`
)

var idRegex = regexp.MustCompile(idPattern)

// Pre-computed validation sets for O(1) lookups.
var (
	validCategories map[Category]struct{}
	validStatuses   map[Status]struct{}
)

func init() {
	validCategories = make(map[Category]struct{}, len(AllCategories()))
	for _, c := range AllCategories() {
		validCategories[c] = struct{}{}
	}

	validStatuses = make(map[Status]struct{}, len(AllStatuses()))
	for _, s := range AllStatuses() {
		validStatuses[s] = struct{}{}
	}
}

// ValidateID checks that a device ID is non-empty, within length limits,
// and safe to use as an on-disk directory name.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidID, maxIDLength)
	}
	if !idRegex.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// ValidateName checks that a device name is non-empty and within limits.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDevice)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidDevice, maxNameLength)
	}
	return nil
}

// ValidateCategory checks that a category is one of the recognised values.
func ValidateCategory(c Category) error {
	if _, ok := validCategories[c]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, c)
	}
	return nil
}

// ValidateStatus checks that a status is one of the recognised values.
func ValidateStatus(s Status) error {
	if _, ok := validStatuses[s]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return nil
}

// ValidateCreate checks a creation spec before a device is built from it.
func ValidateCreate(spec CreateSpec) error {
	if err := ValidateID(spec.DeviceID); err != nil {
		return err
	}
	if err := ValidateName(spec.Name); err != nil {
		return err
	}
	if err := ValidateCategory(spec.Category); err != nil {
		return err
	}
	if spec.SKU == "" {
		return fmt.Errorf("%w: sku is required", ErrInvalidDevice)
	}
	if spec.CPUType == "" {
		return fmt.Errorf("%w: cpu_type is required", ErrInvalidDevice)
	}
	if len(spec.Tags) > maxTags {
		return fmt.Errorf("%w: too many tags (max %d)", ErrInvalidDevice, maxTags)
	}
	return nil
}

// validateDocument checks that a decoded on-disk document carries the
// fields every valid device must have. Used by the store to distinguish
// corruption from forward-compatible extra fields.
func validateDocument(d *Device) error {
	if d.DeviceID == "" {
		return fmt.Errorf("%w: missing device_id", ErrCorruptDocument)
	}
	if d.Name == "" {
		return fmt.Errorf("%w: missing name", ErrCorruptDocument)
	}
	if err := ValidateCategory(d.Category); err != nil {
		return fmt.Errorf("%w: bad category %q", ErrCorruptDocument, d.Category)
	}
	if err := ValidateStatus(d.Status); err != nil {
		return fmt.Errorf("%w: bad status %q", ErrCorruptDocument, d.Status)
	}
	return nil
}
