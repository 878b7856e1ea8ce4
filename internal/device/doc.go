// Package device implements the device pool core: the data model for
// physical test devices (phones, tablets, PCs), the durable file-backed
// store, and the lifecycle manager that owns every state transition.
//
// The package is organised in three layers:
//
//   - types.go: the Device entity, borrow/maintenance records, and the
//     category/status enumerations
//   - store.go: one JSON document per device on disk, partitioned by
//     category, with atomic replacement and an id → category index
//   - manager.go: business rules (create, update, delete, borrow, return,
//     search, status snapshot) with per-device mutual exclusion
//
// The manager is the sole authority over state transitions. Transports and
// the tool dispatcher never touch the store directly.
package device
