// Package consts holds shared size and timing limits.
package consts

import "time"

// Buffer sizes for streaming readers
const (
	// BufferSize64KB is 64 kilobytes
	BufferSize64KB = 64 * 1024
	// BufferSize256KB is 256 kilobytes
	BufferSize256KB = 256 * 1024
	// BufferSize1MB is 1 megabyte
	BufferSize1MB = 1024 * 1024
	// BufferSize10MB is 10 megabytes
	BufferSize10MB = 10 * 1024 * 1024
)

// Tool execution limits
const (
	// MaxToolOutputBytes caps the output a single tool may return before
	// truncation
	MaxToolOutputBytes = BufferSize256KB
	// MaxFetchBodyBytes caps the body size read from a fetched URL
	MaxFetchBodyBytes = BufferSize10MB
	// DefaultCommandTimeout bounds a single shell command execution
	DefaultCommandTimeout = 2 * time.Minute
)

// Loop defaults
const (
	// DefaultMaxIterations caps the rounds of one task run
	DefaultMaxIterations = 10
	// DefaultPromptBudget is the character budget for an assembled prompt
	DefaultPromptBudget = 24000
)

// Timeouts for common operations
const (
	// Timeout5Seconds is a 5 second timeout
	Timeout5Seconds = 5 * time.Second
	// Timeout30Seconds is a 30 second timeout
	Timeout30Seconds = 30 * time.Second
	// Timeout2Minutes is a 2 minute timeout
	Timeout2Minutes = 2 * time.Minute
)
