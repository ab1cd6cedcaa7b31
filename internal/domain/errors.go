package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Sensor layer
	ErrSensorUnavailable = errors.New("sensor reading unavailable")
	ErrSensorTimeout     = errors.New("sensor read exceeded 1s timeout")

	// Hardware bus
	ErrBusContention = errors.New("hardware bus owned by another broker process")

	// Shared memory
	ErrSharedMemoryStale   = errors.New("shared memory snapshot is stale")
	ErrSharedMemoryMissing = errors.New("shared memory file not found")
	ErrSharedMemoryWrite   = errors.New("shared memory write exceeded 200ms timeout")

	// Calibration
	ErrCalibrationInvalid = errors.New("calibration rejected: invalid weights or ranges")

	// Persistence
	ErrPersistenceIO = errors.New("persistence I/O failed after retry")

	// Reflection / LLM (pluggable sink, interface only)
	ErrLLMTimeout = errors.New("reflection cycle skipped: narrator call timed out")

	// Governance (pluggable external service, interface only)
	ErrGovernanceUnreachable = errors.New("governance service unreachable")

	// Identity
	ErrIdentityNotFound = errors.New("identity not found")

	// Drawing
	ErrCanvasFull = errors.New("canvas pixel cap reached")
	ErrEraUnknown = errors.New("unknown drawing era")

	// Goals
	ErrTooManyActiveGoals = errors.New("at most 2 goals may be active")

	// Tool surface
	ErrToolUnknown      = errors.New("unknown tool")
	ErrToolInputInvalid = errors.New("invalid tool input")
)
