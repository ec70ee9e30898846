package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidDateRange     ErrorCode = 102
	ErrCodeInvalidSymbol        ErrorCode = 103
	ErrCodeInsufficientData     ErrorCode = 104

	// Market data errors (200-299)
	ErrCodeDataNotFound     ErrorCode = 200
	ErrCodeDataLoadFailed   ErrorCode = 201
	ErrCodeDataContract     ErrorCode = 202
	ErrCodeQueryFailed      ErrorCode = 203
	ErrCodeMissingBarFields ErrorCode = 204

	// Simulation errors (300-399)
	ErrCodeSimulationNotInitialized ErrorCode = 300
	ErrCodeSimulationFailed         ErrorCode = 301
	ErrCodeNoSignalFunction         ErrorCode = 302

	// Recorder errors (400-499)
	ErrCodeRecorderInitFailed  ErrorCode = 400
	ErrCodeRecorderWriteFailed ErrorCode = 401
	ErrCodeRecorderQueryFailed ErrorCode = 402
)
