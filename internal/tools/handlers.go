package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/devicelab/devpool-core/internal/device"
)

// handlers binds every tool to the lifecycle manager.
type handlers struct {
	manager *device.Manager
}

// stringArg returns a string argument. Presence and type are already
// guaranteed by schema validation for required string arguments.
func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// optionalString returns a pointer to an optional string argument, or
// nil when absent.
func optionalString(args map[string]any, key string) *string {
	if s, ok := args[key].(string); ok {
		return &s
	}
	return nil
}

// decodeInto converts a decoded-JSON value into a typed struct by
// round-tripping through encoding/json. Unknown keys are ignored.
func decodeInto(src any, dst any) error {
	b, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// parseDate accepts RFC3339 timestamps and bare YYYY-MM-DD dates.
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date: %q", s)
}

// Summary shapes returned by the listing tools.
type listItemInfo struct {
	Model        string `json:"model"`
	Version      string `json:"version"`
	Manufacturer string `json:"manufacturer"`
}

type listItem struct {
	ID       string          `json:"id"`
	Category device.Category `json:"category"`
	Name     string          `json:"name"`
	Status   device.Status   `json:"status"`
	Info     listItemInfo    `json:"info"`
}

type listResult struct {
	Devices []listItem `json:"devices"`
}

func (h *handlers) list(ctx context.Context, _ map[string]any) (any, error) {
	devices, err := h.manager.List(ctx)
	if err != nil {
		return nil, err
	}

	out := listResult{Devices: make([]listItem, 0, len(devices))}
	for i := range devices {
		d := &devices[i]
		out.Devices = append(out.Devices, listItem{
			ID:       d.DeviceID,
			Category: d.Category,
			Name:     d.Name,
			Status:   d.Status,
			Info: listItemInfo{
				Model:        d.Specs.Model,
				Version:      d.Specs.OSVersion,
				Manufacturer: d.Specs.Manufacturer,
			},
		})
	}
	return out, nil
}

type ackResult struct {
	Success  bool   `json:"success"`
	DeviceID string `json:"device_id"`
	Message  string `json:"message"`
}

func (h *handlers) create(ctx context.Context, args map[string]any) (any, error) {
	spec := device.CreateSpec{
		DeviceID: stringArg(args, "device_id"),
		Name:     stringArg(args, "name"),
		Category: device.Category(stringArg(args, "category")),
		SKU:      stringArg(args, "sku"),
		CPUType:  stringArg(args, "cpu_type"),
		Notes:    optionalString(args, "notes"),
	}

	if raw, ok := args["specs"].(map[string]any); ok {
		if err := decodeInto(raw, &spec.Specs); err != nil {
			return nil, newError(CodeInvalidParameters, "bad specs: %v", err)
		}
	}
	if raw, ok := args["location"].(map[string]any); ok {
		loc := &device.Location{}
		if err := decodeInto(raw, loc); err != nil {
			return nil, newError(CodeInvalidParameters, "bad location: %v", err)
		}
		spec.Location = loc
	}
	if raw, ok := args["tags"].([]any); ok {
		for _, v := range raw {
			tag, ok := v.(string)
			if !ok {
				return nil, newError(CodeInvalidParameters, "tags must be strings")
			}
			spec.Tags = append(spec.Tags, tag)
		}
	}

	d, err := h.manager.Create(ctx, spec)
	if err != nil {
		return nil, err
	}
	return ackResult{Success: true, DeviceID: d.DeviceID, Message: "device created"}, nil
}

func (h *handlers) update(ctx context.Context, args map[string]any) (any, error) {
	deviceID := stringArg(args, "device_id")
	raw, _ := args["updates"].(map[string]any)

	var upd device.Update
	if err := decodeInto(raw, &upd); err != nil {
		return nil, newError(CodeInvalidParameters, "bad updates: %v", err)
	}

	d, err := h.manager.Update(ctx, deviceID, upd)
	if err != nil {
		return nil, err
	}
	return ackResult{Success: true, DeviceID: d.DeviceID, Message: "device updated"}, nil
}

func (h *handlers) delete(ctx context.Context, args map[string]any) (any, error) {
	deviceID := stringArg(args, "device_id")
	if err := h.manager.Delete(ctx, deviceID); err != nil {
		return nil, err
	}
	return ackResult{Success: true, DeviceID: deviceID, Message: "device deleted"}, nil
}

type borrowResult struct {
	Success            bool      `json:"success"`
	DeviceID           string    `json:"device_id"`
	Borrower           string    `json:"borrower"`
	BorrowDate         time.Time `json:"borrow_date"`
	ExpectedReturnDate time.Time `json:"expected_return_date"`
	Purpose            string    `json:"purpose"`
}

func (h *handlers) borrow(ctx context.Context, args map[string]any) (any, error) {
	expected, err := parseDate(stringArg(args, "expected_return_date"))
	if err != nil {
		return nil, newError(CodeInvalidParameters, "%v", err)
	}

	req := device.BorrowRequest{
		Borrower:           stringArg(args, "borrower"),
		Purpose:            stringArg(args, "purpose"),
		ExpectedReturnDate: expected,
		Contact:            optionalString(args, "contact"),
	}

	d, err := h.manager.Borrow(ctx, stringArg(args, "device_id"), req)
	if err != nil {
		return nil, err
	}

	return borrowResult{
		Success:            true,
		DeviceID:           d.DeviceID,
		Borrower:           req.Borrower,
		BorrowDate:         d.CurrentBorrowInfo.BorrowDate,
		ExpectedReturnDate: expected,
		Purpose:            req.Purpose,
	}, nil
}

type returnResult struct {
	Success        bool      `json:"success"`
	DeviceID       string    `json:"device_id"`
	Returner       string    `json:"returner"`
	ReturnDate     time.Time `json:"return_date"`
	BorrowDuration string    `json:"borrow_duration"`
}

func (h *handlers) returnDevice(ctx context.Context, args map[string]any) (any, error) {
	returner := stringArg(args, "returner")

	d, err := h.manager.Return(ctx, stringArg(args, "device_id"), returner)
	if err != nil {
		return nil, err
	}

	res := returnResult{Success: true, DeviceID: d.DeviceID, Returner: returner}
	if rec := lastClosedBorrow(d); rec != nil {
		res.ReturnDate = *rec.ReturnDate
		res.BorrowDuration = rec.ReturnDate.Sub(rec.BorrowDate).Round(time.Second).String()
	}
	return res, nil
}

// lastClosedBorrow returns the most recently closed borrow record.
func lastClosedBorrow(d *device.Device) *device.BorrowRecord {
	for i := len(d.BorrowHistory) - 1; i >= 0; i-- {
		if d.BorrowHistory[i].ReturnDate != nil {
			return &d.BorrowHistory[i]
		}
	}
	return nil
}

type searchItem struct {
	DeviceID string          `json:"device_id"`
	Name     string          `json:"name"`
	Category device.Category `json:"category"`
	SKU      string          `json:"sku"`
	Status   device.Status   `json:"status"`
}

type searchResult struct {
	Devices []searchItem `json:"devices"`
	Total   int          `json:"total"`
}

func (h *handlers) search(ctx context.Context, args map[string]any) (any, error) {
	query := stringArg(args, "query")
	filters, _ := args["filters"].(map[string]any)

	devices, err := h.manager.Search(ctx, query, filters)
	if err != nil {
		return nil, err
	}

	out := searchResult{Devices: make([]searchItem, 0, len(devices)), Total: len(devices)}
	for i := range devices {
		d := &devices[i]
		out.Devices = append(out.Devices, searchItem{
			DeviceID: d.DeviceID,
			Name:     d.Name,
			Category: d.Category,
			SKU:      d.SKU,
			Status:   d.Status,
		})
	}
	return out, nil
}

func (h *handlers) status(ctx context.Context, args map[string]any) (any, error) {
	return h.manager.StatusOf(ctx, stringArg(args, "device_id"))
}

func (h *handlers) info(ctx context.Context, args map[string]any) (any, error) {
	return h.manager.Get(ctx, stringArg(args, "device_id"))
}

// Control tools are placeholders for agent-driven device access. They
// verify the device exists and acknowledge; no transport to real
// hardware is wired up yet.

type controlAck struct {
	Success  bool   `json:"success"`
	DeviceID string `json:"device_id"`
}

func (h *handlers) connect(ctx context.Context, args map[string]any) (any, error) {
	deviceID := stringArg(args, "device_id")
	if _, err := h.manager.Get(ctx, deviceID); err != nil {
		return nil, err
	}
	return controlAck{Success: true, DeviceID: deviceID}, nil
}

func (h *handlers) disconnect(ctx context.Context, args map[string]any) (any, error) {
	deviceID := stringArg(args, "device_id")
	if _, err := h.manager.Get(ctx, deviceID); err != nil {
		return nil, err
	}
	return controlAck{Success: true, DeviceID: deviceID}, nil
}

type executeResult struct {
	Success  bool   `json:"success"`
	Output   string `json:"output"`
	Error    string `json:"error"`
	DeviceID string `json:"device_id"`
}

func (h *handlers) execute(ctx context.Context, args map[string]any) (any, error) {
	deviceID := stringArg(args, "device_id")
	command := stringArg(args, "command")
	if _, err := h.manager.Get(ctx, deviceID); err != nil {
		return nil, err
	}
	return executeResult{
		Success:  true,
		Output:   fmt.Sprintf("accepted command: %s", command),
		DeviceID: deviceID,
	}, nil
}

type transferResult struct {
	Success    bool   `json:"success"`
	LocalPath  string `json:"local_path"`
	RemotePath string `json:"remote_path"`
	DeviceID   string `json:"device_id"`
}

func (h *handlers) upload(ctx context.Context, args map[string]any) (any, error) {
	deviceID := stringArg(args, "device_id")
	if _, err := h.manager.Get(ctx, deviceID); err != nil {
		return nil, err
	}
	return transferResult{
		Success:    true,
		LocalPath:  stringArg(args, "local_path"),
		RemotePath: stringArg(args, "remote_path"),
		DeviceID:   deviceID,
	}, nil
}

func (h *handlers) download(ctx context.Context, args map[string]any) (any, error) {
	deviceID := stringArg(args, "device_id")
	if _, err := h.manager.Get(ctx, deviceID); err != nil {
		return nil, err
	}
	return transferResult{
		Success:    true,
		LocalPath:  stringArg(args, "local_path"),
		RemotePath: stringArg(args, "remote_path"),
		DeviceID:   deviceID,
	}, nil
}
