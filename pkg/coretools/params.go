package coretools

// WorkingDirectoryArg is the argument the dispatcher injects into every call.
const WorkingDirectoryArg = "working_directory"

// ListDirectoryParams are the arguments of list_directory.
type ListDirectoryParams struct {
	WorkingDirectory string `mapstructure:"working_directory"`
	Directory        string `mapstructure:"directory"`
}

// ReadFileParams are the arguments of read_file.
type ReadFileParams struct {
	WorkingDirectory string `mapstructure:"working_directory"`
	FilePath         string `mapstructure:"file_path"`
}

// WriteFileParams are the arguments of write_file.
type WriteFileParams struct {
	WorkingDirectory string `mapstructure:"working_directory"`
	FilePath         string `mapstructure:"file_path"`
	Content          string `mapstructure:"content"`
}

// RunScriptParams are the arguments of run_script.
type RunScriptParams struct {
	WorkingDirectory string   `mapstructure:"working_directory"`
	FilePath         string   `mapstructure:"file_path"`
	Args             []string `mapstructure:"args"`
}
