package coretools

// Parameter describes one tool argument.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Items       string `json:"items,omitempty"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`
}

// Declaration is a tool's name, description and parameter list as shown to
// the model.
type Declaration struct {
	Kind        Kind        `json:"-"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
}

var declarations = []Declaration{
	{
		Kind:        KindListDirectory,
		Name:        KindListDirectory.String(),
		Description: "Lists files in a specified directory relative to the working directory, providing file size and directory status",
		Parameters: []Parameter{
			{
				Name:        "directory",
				Type:        "string",
				Description: "Directory path to list files from, relative to the working directory (default is the working directory itself)",
				Default:     ".",
			},
		},
	},
	{
		Kind:        KindReadFile,
		Name:        KindReadFile.String(),
		Description: "Reads the contents of a file relative to the working directory and returns up to a maximum number of characters",
		Parameters: []Parameter{
			{Name: "file_path", Type: "string", Description: "Path to the file to read, relative to the working directory", Required: true},
		},
	},
	{
		Kind:        KindWriteFile,
		Name:        KindWriteFile.String(),
		Description: "Writes content to a file relative to the working directory, creating parent directories if needed",
		Parameters: []Parameter{
			{Name: "file_path", Type: "string", Description: "Path to the file to write to, relative to the working directory", Required: true},
			{Name: "content", Type: "string", Description: "Content to write into the file", Required: true},
		},
	},
	{
		Kind:        KindRunScript,
		Name:        KindRunScript.String(),
		Description: "Executes a script file relative to the working directory with optional command-line arguments",
		Parameters: []Parameter{
			{Name: "file_path", Type: "string", Description: "Path to the script to execute, relative to the working directory", Required: true},
			{Name: "args", Type: "array", Items: "string", Description: "Optional list of command-line arguments to pass to the script"},
		},
	},
}

// Declarations returns the declaration of every tool, in Kinds order.
func Declarations() []Declaration {
	out := make([]Declaration, len(declarations))
	for i, d := range declarations {
		d.Parameters = append([]Parameter(nil), d.Parameters...)
		out[i] = d
	}
	return out
}

// DeclarationFor returns the declaration of one tool.
func DeclarationFor(kind Kind) (Declaration, bool) {
	for _, d := range Declarations() {
		if d.Kind == kind {
			return d, true
		}
	}
	return Declaration{}, false
}

// Schema renders the declaration as a JSON-schema object. With injected set,
// the schema also admits the working_directory argument the dispatcher adds,
// which is never declared to the model.
func (d Declaration) Schema(injected bool) map[string]any {
	properties := make(map[string]any, len(d.Parameters)+1)
	required := []string{}

	for _, param := range d.Parameters {
		prop := map[string]any{
			"type":        param.Type,
			"description": param.Description,
		}
		if param.Items != "" {
			prop["items"] = map[string]any{"type": param.Items}
		}
		if param.Default != nil {
			prop["default"] = param.Default
		}
		properties[param.Name] = prop

		if param.Required {
			required = append(required, param.Name)
		}
	}

	if injected {
		properties[WorkingDirectoryArg] = map[string]any{
			"type":        "string",
			"description": "Sandbox root injected by the dispatcher",
		}
		required = append(required, WorkingDirectoryArg)
	}

	schema := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
