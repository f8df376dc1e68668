package coretools

// Kind identifies one tool in the catalog. The set is closed.
type Kind int

const (
	KindListDirectory Kind = iota + 1
	KindReadFile
	KindWriteFile
	KindRunScript
)

var kindNames = map[Kind]string{
	KindListDirectory: "list_directory",
	KindReadFile:      "read_file",
	KindWriteFile:     "write_file",
	KindRunScript:     "run_script",
}

// Kinds returns every tool kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindListDirectory, KindReadFile, KindWriteFile, KindRunScript}
}

// String returns the name the model uses for the tool.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind maps a model-supplied tool name to its Kind.
func ParseKind(name string) (Kind, bool) {
	for kind, n := range kindNames {
		if n == name {
			return kind, true
		}
	}
	return 0, false
}
