package db

// Config holds the process-wide constants that govern page I/O. They must be
// set (via SetConfig) before the first page is read or written; the engine
// does not support changing them once a HeapFile has been constructed
// against a given value.
type Config struct {
	// PageSize is the fixed size, in bytes, of every page on disk.
	PageSize int
	// StringLength is the fixed payload width, in bytes, of a STRING field.
	// On disk a STRING field is a 4-byte big-endian length prefix followed
	// by StringLength bytes of payload.
	StringLength int
}

// DefaultConfig returns the engine's out-of-the-box configuration:
// 4096-byte pages and 128-byte string payloads.
func DefaultConfig() Config {
	return Config{PageSize: 4096, StringLength: 128}
}

var activeConfig = DefaultConfig()

// SetConfig installs the process-wide page configuration. Callers must do
// this before constructing any HeapFile.
func SetConfig(c Config) {
	activeConfig = c
}

// PageSize returns the active page size in bytes.
func PageSize() int {
	return activeConfig.PageSize
}

// StringLength returns the active STRING payload width in bytes.
func StringLength() int {
	return activeConfig.StringLength
}
