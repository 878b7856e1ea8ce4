// Package ingest imports legacy inventory spreadsheets into the device
// pool.
//
// Inventory handed over from older tracking systems arrives as CSV
// exports, one file per platform. The importer reads a header-driven
// CSV, maps recognised columns onto device registrations and reports
// per-row outcomes: rows whose device ID already exists in the pool are
// skipped as duplicates, rows that fail validation are reported with
// their line number, and everything else is created as an available
// device.
package ingest
