package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Auth errors
// 12000-12999: Challenge (content store) errors
// 13000-13999: Submission & Judge errors
// 14000-14999: Remote execution errors
// 15000-15999: Code store errors
// 16000-16999: Assistant errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Unauthorized        ErrorCode = 10004
	Forbidden           ErrorCode = 10005
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008
	RequestTooLarge     ErrorCode = 10009

	// Database errors (10100-10199)
	DatabaseError  ErrorCode = 10100
	RecordNotFound ErrorCode = 10101

	// Cache errors (10200-10299)
	CacheError     ErrorCode = 10200
	CacheMiss      ErrorCode = 10201
	CacheSetFailed ErrorCode = 10202

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// ========== Auth Errors (11000-11999) ==========

	TokenExpired ErrorCode = 11003
	TokenInvalid ErrorCode = 11004

	// ========== Challenge Errors (12000-12999) ==========

	ChallengeNotFound ErrorCode = 12000
	TestCaseInvalid   ErrorCode = 12102

	// ========== Submission & Judge Errors (13000-13999) ==========

	// Submission (13000-13099)
	CodeTooLarge        ErrorCode = 13002
	SubmitTooFrequently ErrorCode = 13004
	SubmissionCanceled  ErrorCode = 13006

	// Judge (13100-13199)
	JudgeQueueFull     ErrorCode = 13100
	JudgeSystemError   ErrorCode = 13101
	ParseError         ErrorCode = 13102
	RuntimeError       ErrorCode = 13103
	TimeoutError       ErrorCode = 13104
	LoadError          ErrorCode = 13105
	ConfigurationError ErrorCode = 13106
	SerializationError ErrorCode = 13107

	// ========== Remote Execution Errors (14000-14999) ==========

	LanguageNotSupported  ErrorCode = 14000
	RemoteExecutionFailed ErrorCode = 14001

	// ========== Code Store Errors (15000-15999) ==========

	CodeFileNotFound   ErrorCode = 15000
	CodeFileSaveFailed ErrorCode = 15001
	InvalidFilename    ErrorCode = 15002

	// ========== Assistant Errors (16000-16999) ==========

	AssistantFailed ErrorCode = 16000
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Unauthorized:        "Unauthorized access",
	Forbidden:           "Access forbidden",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",
	RequestTooLarge:     "Request body is too large",

	// Database
	DatabaseError:  "Database operation failed",
	RecordNotFound: "Record not found in database",

	// Cache
	CacheError:     "Cache operation failed",
	CacheMiss:      "Cache miss",
	CacheSetFailed: "Failed to set cache",

	// Validation
	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	// Auth
	TokenExpired: "Token has expired",
	TokenInvalid: "Invalid token",

	// Challenge
	ChallengeNotFound: "Challenge not found",
	TestCaseInvalid:   "Invalid test case format",

	// Submission
	CodeTooLarge:        "Code is too large",
	SubmitTooFrequently: "Submitting too frequently, please wait",
	SubmissionCanceled:  "Submission was canceled",

	// Judge
	JudgeQueueFull:     "Judge queue is full, please try again later",
	JudgeSystemError:   "Judge system error",
	ParseError:         "Source code failed to parse",
	RuntimeError:       "Runtime error",
	TimeoutError:       "Execution time limit exceeded",
	LoadError:          "Entry point not found",
	ConfigurationError: "Server configuration error",
	SerializationError: "Result could not be serialized",

	// Remote
	LanguageNotSupported:  "Programming language not supported",
	RemoteExecutionFailed: "Remote execution failed",

	// Code store
	CodeFileNotFound:   "File not found",
	CodeFileSaveFailed: "Failed to save file",
	InvalidFilename:    "Invalid filename",

	// Assistant
	AssistantFailed: "Ollama error",
}

// errorTypes names the judge taxonomy codes as they appear in reports.
var errorTypes = map[ErrorCode]string{
	ParseError:         "ParseError",
	LoadError:          "LoadError",
	RuntimeError:       "RuntimeError",
	TimeoutError:       "TimeoutError",
	SerializationError: "SerializationError",
	ConfigurationError: "ConfigurationError",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// Type returns the taxonomy name of a judge error code, or "Error" for others.
func (c ErrorCode) Type() string {
	if name, ok := errorTypes[c]; ok {
		return name
	}
	return "Error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == Unauthorized, c == TokenExpired, c == TokenInvalid:
		return 401
	case c == Forbidden:
		return 403
	case c == NotFound, c == ChallengeNotFound, c == CodeFileNotFound:
		return 404
	case c == CodeTooLarge, c == RequestTooLarge:
		return 413
	case c == TooManyRequests, c == SubmitTooFrequently:
		return 429
	case c == RemoteExecutionFailed, c == AssistantFailed:
		return 502
	case c == ServiceUnavailable, c == JudgeQueueFull:
		return 503
	case c == Timeout:
		return 504
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c == InvalidParams, c == InvalidFilename, c == LanguageNotSupported:
		return 400
	default:
		return 500
	}
}
