package tools

// Descriptor describes one callable tool: its name, a human-readable
// description, and the schema of its arguments. The descriptor is the
// discovery contract: argument names and required/optional status match
// the bound operation exactly, so a client can drive the full surface
// from a tools listing alone.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema Schema `json:"inputSchema"`
}

// Schema is a JSON-Schema-like description of a tool's arguments.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// Property describes one argument.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Argument type names used in schemas.
const (
	typeString = "string"
	typeObject = "object"
	typeArray  = "array"
)

// objectSchema builds a schema with the given properties and required list.
func objectSchema(props map[string]Property, required ...string) Schema {
	if props == nil {
		props = map[string]Property{}
	}
	if required == nil {
		required = []string{}
	}
	return Schema{Type: typeObject, Properties: props, Required: required}
}

// descriptors returns the full static tool set. Order here is the order
// returned by List.
func descriptors() []Descriptor {
	return []Descriptor{
		{
			Name:        "device.list",
			Description: "List every device in the pool with a summary per device",
			InputSchema: objectSchema(nil),
		},
		{
			Name:        "device.create",
			Description: "Register a new device in the pool",
			InputSchema: objectSchema(map[string]Property{
				"device_id": {Type: typeString},
				"name":      {Type: typeString},
				"category":  {Type: typeString, Description: "android, ios or windows"},
				"sku":       {Type: typeString},
				"cpu_type":  {Type: typeString},
				"specs":     {Type: typeObject},
				"location":  {Type: typeObject},
				"tags":      {Type: typeArray},
				"notes":     {Type: typeString},
			}, "device_id", "name", "category", "sku", "cpu_type"),
		},
		{
			Name:        "device.update",
			Description: "Merge the supplied fields into an existing device",
			InputSchema: objectSchema(map[string]Property{
				"device_id": {Type: typeString},
				"updates":   {Type: typeObject},
			}, "device_id", "updates"),
		},
		{
			Name:        "device.delete",
			Description: "Remove a device and its artifacts; irreversible",
			InputSchema: objectSchema(map[string]Property{
				"device_id": {Type: typeString},
			}, "device_id"),
		},
		{
			Name:        "device.borrow",
			Description: "Borrow an available device",
			InputSchema: objectSchema(map[string]Property{
				"device_id":            {Type: typeString},
				"borrower":             {Type: typeString},
				"purpose":              {Type: typeString},
				"expected_return_date": {Type: typeString, Description: "RFC3339 or YYYY-MM-DD"},
				"contact":              {Type: typeString},
			}, "device_id", "borrower", "purpose", "expected_return_date"),
		},
		{
			Name:        "device.return",
			Description: "Return a borrowed device",
			InputSchema: objectSchema(map[string]Property{
				"device_id": {Type: typeString},
				"returner":  {Type: typeString},
			}, "device_id", "returner"),
		},
		{
			Name:        "device.search",
			Description: "Search devices by free-text query and structured filters",
			InputSchema: objectSchema(map[string]Property{
				"query":   {Type: typeString},
				"filters": {Type: typeObject, Description: "category, status, cpu_type, available"},
			}),
		},
		{
			Name:        "device.status",
			Description: "Get a device's status summary",
			InputSchema: objectSchema(map[string]Property{
				"device_id": {Type: typeString},
			}, "device_id"),
		},
		{
			Name:        "device.info",
			Description: "Get a device's full record",
			InputSchema: objectSchema(map[string]Property{
				"device_id": {Type: typeString},
			}, "device_id"),
		},
		{
			Name:        "device.connect",
			Description: "Connect to a device (not yet implemented; verifies the device exists)",
			InputSchema: objectSchema(map[string]Property{
				"device_id": {Type: typeString},
			}, "device_id"),
		},
		{
			Name:        "device.disconnect",
			Description: "Disconnect from a device (not yet implemented; verifies the device exists)",
			InputSchema: objectSchema(map[string]Property{
				"device_id": {Type: typeString},
			}, "device_id"),
		},
		{
			Name:        "device.execute",
			Description: "Run a command on a device (not yet implemented; verifies the device exists)",
			InputSchema: objectSchema(map[string]Property{
				"device_id": {Type: typeString},
				"command":   {Type: typeString},
			}, "device_id", "command"),
		},
		{
			Name:        "device.upload",
			Description: "Upload a file to a device (not yet implemented; verifies the device exists)",
			InputSchema: objectSchema(map[string]Property{
				"device_id":   {Type: typeString},
				"local_path":  {Type: typeString},
				"remote_path": {Type: typeString},
			}, "device_id", "local_path", "remote_path"),
		},
		{
			Name:        "device.download",
			Description: "Download a file from a device (not yet implemented; verifies the device exists)",
			InputSchema: objectSchema(map[string]Property{
				"device_id":   {Type: typeString},
				"remote_path": {Type: typeString},
				"local_path":  {Type: typeString},
			}, "device_id", "remote_path", "local_path"),
		},
	}
}
