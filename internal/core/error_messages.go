package core

// # Error Codes Reference
//
// User-facing error messages carry a code that can be quoted to support.
//
//	CAT001  - Catalog invalid          ("catalog invalid")
//	MAP001  - Required fields missing  ("unresolved required")
//	MAP002  - Bad column override      ("override")
//	VAL001  - Invalid date             ("no accepted date format")
//	VAL002  - Invalid number           ("not a number", "not a whole number", "out of integer range")
//	VAL003  - Required value empty     ("required value is empty")
//	VAL004  - Required column missing  ("required field has no source column")
//	VAL007  - Value out of range       ("outside [")
//	FILE001 - File too large           ("file too large")
//	FILE002 - Invalid CSV              ("invalid csv")
//	FILE003 - Encoding error           ("encoding error")
//	FILE004 - No file                  ("no file provided")
//	FILE005 - Empty file               ("empty file")
//	DB001   - Duplicate key            ("duplicate key")
//	DB002   - Unique constraint        ("unique constraint", "violates unique")
//	DB003   - Login failed             ("login failed", "password authentication failed")
//	DB004   - Connection refused       ("connection refused")
//	DB005   - Connection reset         ("connection reset")
//	DB006   - Timeout                  ("timeout")
//	DB007   - Deadlock                 ("deadlock")
//	ING001  - System busy              ("too many concurrent ingests")
//	ING002  - Request cancelled        ("context canceled")
//	ING003  - Request timeout          ("context deadline exceeded")
//	ERR000  - Anything else
//
// Patterns are matched case-insensitively using strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Catalog and mapping
	{
		pattern: "catalog invalid",
		msg: UserMessage{
			Message: "The field catalog is invalid",
			Action:  "Run 'retailpulse catalog validate' and fix the reported entries",
			Code:    "CAT001",
		},
	},
	{
		pattern: "unresolved required",
		msg: UserMessage{
			Message: "Required columns could not be identified",
			Action:  "Rename the columns or pass explicit overrides for the missing fields",
			Code:    "MAP001",
		},
	},
	{
		pattern: "override",
		msg: UserMessage{
			Message: "A column override could not be applied",
			Action:  "Check the field name and that the column exists in the file",
			Code:    "MAP002",
		},
	},

	// Row validation
	{
		pattern: "no accepted date format",
		msg: UserMessage{
			Message: "Invalid date format detected",
			Action:  "Use YYYY-MM-DD, MM/DD/YYYY, or Jan 15, 2024",
			Code:    "VAL001",
		},
	},
	{
		pattern: "not a number",
		msg: UserMessage{
			Message: "Invalid number format detected",
			Action:  "Use a plain decimal number",
			Code:    "VAL002",
		},
	},
	{
		pattern: "not a whole number",
		msg: UserMessage{
			Message: "A whole number was expected",
			Action:  "Remove the fractional part",
			Code:    "VAL002",
		},
	},
	{
		pattern: "out of integer range",
		msg: UserMessage{
			Message: "Number is too large",
			Action:  "Check the value for typos",
			Code:    "VAL002",
		},
	},
	{
		pattern: "required value is empty",
		msg: UserMessage{
			Message: "Required field is empty",
			Action:  "Ensure all required columns have values",
			Code:    "VAL003",
		},
	},
	{
		pattern: "required field has no source column",
		msg: UserMessage{
			Message: "Required column is missing from the file",
			Action:  "Check that all required columns are present in your file",
			Code:    "VAL004",
		},
	},
	{
		pattern: "outside [",
		msg: UserMessage{
			Message: "Value is outside the allowed range",
			Action:  "Correct the value in the source data",
			Code:    "VAL007",
		},
	},

	// Files
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure file is comma-separated with a header row",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File encoding is not supported",
			Action:  "Use utf-8, latin1 or windows-1252",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was provided",
			Action:  "Attach a CSV file",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The file is empty",
			Action:  "Provide a CSV file with a header and data rows",
			Code:    "FILE005",
		},
	},

	// Database
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this key already exists",
			Action:  "Review the failed rows for duplicates",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries in your CSV",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Review your data for duplicate key values",
			Code:    "DB002",
		},
	},
	{
		pattern: "login failed",
		msg: UserMessage{
			Message: "Database rejected the credentials",
			Action:  "Check DATABASE_URL",
			Code:    "DB003",
		},
	},
	{
		pattern: "password authentication failed",
		msg: UserMessage{
			Message: "Database rejected the credentials",
			Action:  "Check DATABASE_URL",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// Ingest
	{
		pattern: "too many concurrent ingests",
		msg: UserMessage{
			Message: "System is busy processing other files",
			Action:  "Please wait a moment and try again",
			Code:    "ING001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "ING002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "ING003",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It returns the first matching pattern, or the ERR000 fallback.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
