package main

import "time"

// =============================================================================
// Server Timeouts
// =============================================================================

const (
	// Why: a long-lived MJPEG stream response must not be cut off by a write
	//      deadline; viewers disconnect on their own, not on a timer.
	ServerReadTimeout       = 30 * time.Second
	ServerIdleTimeout       = 120 * time.Second
	ServerReadHeaderTimeout = 10 * time.Second
	ServerWriteTimeout      = 0
)

// =============================================================================
// Storage and Data Conversions
// =============================================================================

const (
	BytesPerKB = 1024
	BytesPerMB = 1024 * 1024
	BytesPerGB = 1024 * 1024 * 1024
)

// =============================================================================
// Default Configuration Values
// =============================================================================

const (
	DefaultServerHost       = "0.0.0.0"
	DefaultServerPort       = 5000
	DefaultMaxFrameSizeMB   = 10
	DefaultMaxConcurrent    = 50
	DefaultMaxBufferFrames  = 30
	DefaultStreamTimeoutS   = 300
	DefaultRecordingEnabled = true
	DefaultRecordingCodec   = "mp4v"
	DefaultRecordingFPS     = 30
	DefaultRetentionDays    = 7
	DefaultCleanupInterval  = 60
	DefaultScheduleTime     = "03:00"
)

// =============================================================================
// HTTP
// =============================================================================

const (
	// Why: prevents malicious clients from sending huge headers that consume
	//      memory; typical legitimate headers are well under 10KB.
	HTTPMaxHeaderBytes = 1 << 20
)
