package tools

// Builtin tool names. The extractor accepts any name; the normalizer
// validates against these through the registry.
const (
	ToolRunCommand    = "run_command"
	ToolReadFile      = "read_file"
	ToolWriteFile     = "write_file"
	ToolListDir       = "list_dir"
	ToolApplyPatch    = "apply_patch"
	ToolFetchURL      = "fetch_url"
	ToolWebSearch     = "web_search"
	ToolCodeOutline   = "code_outline"
	ToolSystemInfo    = "get_system_info"
	ToolMemorySearch  = "memory_search"
)
