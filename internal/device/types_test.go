package device

import (
	"testing"
	"time"
)

func TestDeviceDeepCopy(t *testing.T) {
	now := time.Now().UTC()
	borrower := "alice"
	contact := "alice@example.com"
	notes := "handle with care"
	building := "B2"
	res := "1170x2532"

	orig := &Device{
		DeviceID: "dev-1",
		Name:     "iPhone 15",
		Category: CategoryIOS,
		SKU:      "IP15",
		CPUType:  "arm64",
		Specs: Specs{
			Model:            "iPhone 15",
			OSVersion:        "17",
			Manufacturer:     "Apple",
			Memory:           "6GB",
			Storage:          "128GB",
			ScreenResolution: &res,
		},
		Status:          StatusBorrowed,
		CurrentBorrower: &borrower,
		CurrentBorrowInfo: &BorrowInfo{
			Borrower:           borrower,
			BorrowDate:         now,
			ExpectedReturnDate: now.Add(24 * time.Hour),
			Purpose:            "QA",
			Contact:            &contact,
		},
		BorrowHistory: []BorrowRecord{
			{Borrower: borrower, BorrowDate: now, Purpose: "QA", Contact: &contact},
		},
		MaintenanceHistory: []MaintenanceRecord{
			{Date: now, Type: "repair", Description: "screen", Technician: "bob", Cost: 120},
		},
		Location:    &Location{Building: &building},
		Tags:        []string{"qa"},
		Notes:       &notes,
		CreatedAt:   now,
		LastUpdated: now,
	}

	cpy := orig.DeepCopy()

	// Mutate every shared-looking part of the copy.
	*cpy.CurrentBorrower = "mallory"
	*cpy.CurrentBorrowInfo.Contact = "evil@example.com"
	cpy.BorrowHistory[0].Borrower = "mallory"
	ret := now.Add(time.Hour)
	cpy.BorrowHistory[0].ReturnDate = &ret
	cpy.MaintenanceHistory[0].Technician = "mallory"
	*cpy.Location.Building = "B9"
	cpy.Tags[0] = "stolen"
	*cpy.Notes = "scratched"
	*cpy.Specs.ScreenResolution = "0x0"

	if *orig.CurrentBorrower != "alice" {
		t.Errorf("CurrentBorrower aliased")
	}
	if *orig.CurrentBorrowInfo.Contact != contact {
		t.Errorf("CurrentBorrowInfo.Contact aliased")
	}
	if orig.BorrowHistory[0].Borrower != "alice" || orig.BorrowHistory[0].ReturnDate != nil {
		t.Errorf("BorrowHistory aliased")
	}
	if orig.MaintenanceHistory[0].Technician != "bob" {
		t.Errorf("MaintenanceHistory aliased")
	}
	if *orig.Location.Building != "B2" {
		t.Errorf("Location aliased")
	}
	if orig.Tags[0] != "qa" {
		t.Errorf("Tags aliased")
	}
	if *orig.Notes != notes {
		t.Errorf("Notes aliased")
	}
	if *orig.Specs.ScreenResolution != res {
		t.Errorf("Specs.ScreenResolution aliased")
	}
}

func TestDeviceDeepCopyNil(t *testing.T) {
	var d *Device
	if d.DeepCopy() != nil {
		t.Errorf("DeepCopy of nil device should be nil")
	}
}

func TestOpenBorrow(t *testing.T) {
	now := time.Now().UTC()
	closed := now.Add(time.Hour)

	d := &Device{
		BorrowHistory: []BorrowRecord{
			{Borrower: "a", BorrowDate: now, ReturnDate: &closed},
			{Borrower: "b", BorrowDate: now},
		},
	}
	open := d.OpenBorrow()
	if open == nil || open.Borrower != "b" {
		t.Fatalf("OpenBorrow = %+v, want open record for b", open)
	}

	// Closing it through the returned pointer mutates the history in place.
	open.ReturnDate = &closed
	if d.OpenBorrow() != nil {
		t.Errorf("OpenBorrow should be nil once every record is closed")
	}

	empty := &Device{}
	if empty.OpenBorrow() != nil {
		t.Errorf("OpenBorrow on empty history should be nil")
	}
}

func TestCategoryDirName(t *testing.T) {
	tests := []struct {
		cat  Category
		want string
	}{
		{CategoryAndroid, "Android"},
		{CategoryIOS, "IOS"},
		{CategoryWindows, "Windows"},
	}
	for _, tt := range tests {
		if got := tt.cat.DirName(); got != tt.want {
			t.Errorf("DirName(%q) = %q, want %q", tt.cat, got, tt.want)
		}
	}
}
