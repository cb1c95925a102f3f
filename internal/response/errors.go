package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Generation jobs ───────────────────────────────────────────────
	ErrJobBusy          ErrCode = "JOB_ALREADY_RUNNING"
	ErrNoSourceMaterial ErrCode = "NO_SOURCE_MATERIAL"
	ErrGenerationFailed ErrCode = "GENERATION_FAILED"

	// ─── Uploads ───────────────────────────────────────────────────────
	ErrFileRequired ErrCode = "FILE_REQUIRED"
	ErrEmptyFile    ErrCode = "EMPTY_FILE"
	ErrFileTooLarge ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidPayload:
		return "The request payload is invalid."
	case ErrNotFound:
		return "The requested resource was not found."
	case ErrJobBusy:
		return "A generation process is already running. Please try again later."
	case ErrNoSourceMaterial:
		return "Could not find or process any source material for this request."
	case ErrGenerationFailed:
		return "The generation process failed. Please try again."
	case ErrFileRequired:
		return "A file upload is required."
	case ErrEmptyFile:
		return "The uploaded file appears to be empty."
	case ErrFileTooLarge:
		return "The uploaded file exceeds the size limit."
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
