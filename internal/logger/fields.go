package logger

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so that log
// aggregation and querying see one vocabulary.
const (
	// Content store objects
	KeyURL        = "url"         // Source URL of a file being imported
	KeyContentKey = "content_key" // git-annex content key
	KeyBackend    = "backend"     // Key backend tag (MD5E, ...)
	KeySize       = "size"        // File size in bytes
	KeyDigest     = "digest"      // Content digest (lower-case hex)
	KeyPath       = "path"        // Filesystem path
	KeyTarget     = "target"      // Symlink target

	// Remotes
	KeyRemote     = "remote"      // Remote name
	KeyRemoteUUID = "remote_uuid" // Remote uuid from git config
	KeyRemoteType = "remote_type" // External remote type tag (ldir, s3uri)

	// Batch execution
	KeyTool     = "tool"     // Executable name (git, git-annex)
	KeyArgs     = "args"     // Invariant argument vector
	KeyDir      = "dir"      // Working directory of an invocation
	KeyPriority = "priority" // Batch priority
	KeyCalls    = "calls"    // Number of batched calls in a group
	KeyLines    = "lines"    // Number of output lines received

	// Generic
	KeyError      = "error"
	KeyDurationMs = "duration_ms"
	KeyCount      = "count"
)
