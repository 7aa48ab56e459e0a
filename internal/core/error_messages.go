package core

// # Error Codes Reference
//
// User-facing messages carry a code that submitters can quote to support
// staff. Codes are grouped by category:
//
// # Database Errors (DB001-DB006)
//
//	DB001 - Record already exists: registration is already in the permanent store
//	        Patterns: "record already exists"
//	DB002 - Unique constraint: a value must be unique but already exists
//	        Patterns: "duplicate key", "unique constraint", "violates unique"
//	DB003 - Foreign key: referenced record does not exist
//	        Patterns: "foreign key constraint", "violates foreign key"
//	DB004 - Connection refused
//	DB005 - Connection reset
//	DB006 - Deadlock
//
// # Validation Errors (VAL001-VAL006)
//
//	VAL001 - Invalid date ("invalid date")
//	VAL002 - Invalid number or yes/no value ("invalid number", "invalid boolean")
//	VAL003 - Required field empty ("required field")
//	VAL004 - Missing column ("missing required column")
//	VAL005 - Invalid registration or route number
//	VAL006 - Invalid enum ("invalid enum")
//
// # File Errors (FILE001-FILE006)
//
//	FILE001 - File too large
//	FILE002 - Invalid CSV
//	FILE003 - Encoding error: no candidate encoding decoded the file
//	FILE004 - No file provided
//	FILE005 - Empty file
//	FILE006 - Virus scan failed or could not complete (fail closed)
//
// # Submission Errors (SUB001-SUB005)
//
//	SUB001 - Too many submissions in progress
//	SUB002 - Report not ready yet
//	SUB003 - Request cancelled
//	SUB004 - Request timed out
//	SUB005 - Report not found (already delivered, or unknown id)
//
// # Staging Errors (STG001-STG004)
//
//	STG001 - Previous process not completed
//	STG002 - No staged process
//	STG003 - Staging in progress
//	STG004 - Batch belongs to another submitter
//
// # Licensing Authority Errors (EXT001-EXT003)
//
//	EXT001 - Authority timed out
//	EXT002 - Authority unavailable
//	EXT003 - Authority rejected the request
//
// # Identity (AUTH001-AUTH002)
//
//	AUTH001 - Not signed in
//	AUTH002 - Invalid or expired token
//
// # Rate Limiting (RATE001), Default (ERR000)
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns are listed before general ones. For
// ERR000, check the application logs for the original technical error.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// Staging lifecycle (STG001-STG004)
	// =========================================================================
	{
		pattern: "previous process not completed",
		msg: UserMessage{
			Message: "A previous submission is still awaiting a decision",
			Action:  "Commit or discard your staged records before submitting again",
			Code:    "STG001",
		},
	},
	{
		pattern: "no staged process",
		msg: UserMessage{
			Message: "There are no staged records",
			Action:  "Submit a file to stage records",
			Code:    "STG002",
		},
	},
	{
		pattern: "staging in progress",
		msg: UserMessage{
			Message: "Records are still being staged",
			Action:  "Please wait a moment and try again",
			Code:    "STG003",
		},
	},
	{
		pattern: "belongs to another submitter",
		msg: UserMessage{
			Message: "This staging batch belongs to another submitter",
			Action:  "You can only commit or discard your own submissions",
			Code:    "STG004",
		},
	},

	// =========================================================================
	// Licensing authority (EXT001-EXT003)
	// =========================================================================
	{
		pattern: "authority timeout",
		msg: UserMessage{
			Message: "The licensing authority did not respond in time",
			Action:  "Please submit the file again later",
			Code:    "EXT001",
		},
	},
	{
		pattern: "authority unavailable",
		msg: UserMessage{
			Message: "The licensing authority is unavailable",
			Action:  "Please submit the file again later",
			Code:    "EXT002",
		},
	},
	{
		pattern: "authority auth",
		msg: UserMessage{
			Message: "The licensing authority rejected the request",
			Action:  "Contact support",
			Code:    "EXT003",
		},
	},
	{
		pattern: "authority bad_data",
		msg: UserMessage{
			Message: "The licensing authority rejected the request",
			Action:  "Contact support",
			Code:    "EXT003",
		},
	},

	// =========================================================================
	// Identity (AUTH001-AUTH002)
	// =========================================================================
	{
		pattern: "unauthenticated",
		msg: UserMessage{
			Message: "You are not signed in",
			Action:  "Sign in and try again",
			Code:    "AUTH001",
		},
	},
	{
		pattern: "invalid token",
		msg: UserMessage{
			Message: "Your session is invalid or has expired",
			Action:  "Sign in again",
			Code:    "AUTH002",
		},
	},

	// =========================================================================
	// Database (DB001-DB006)
	// =========================================================================
	{
		pattern: "record already exists",
		msg: UserMessage{
			Message: "This registration already exists",
			Action:  "Remove rows that were submitted and committed before",
			Code:    "DB001",
		},
	},
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries in your file",
			Code:    "DB002",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries in your file",
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
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Contact support",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Contact support",
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
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB006",
		},
	},

	// =========================================================================
	// Validation (VAL001-VAL006)
	// =========================================================================
	{
		pattern: "invalid date",
		msg: UserMessage{
			Message: "Invalid date format detected",
			Action:  "Use DD/MM/YYYY, for example 15/01/2024",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid number",
		msg: UserMessage{
			Message: "Invalid number format detected",
			Action:  "Use whole numbers only",
			Code:    "VAL002",
		},
	},
	{
		pattern: "invalid boolean",
		msg: UserMessage{
			Message: "Invalid yes/no value detected",
			Action:  "Use true/false, yes/no or 1/0",
			Code:    "VAL002",
		},
	},
	{
		pattern: "required field",
		msg: UserMessage{
			Message: "Required field is empty",
			Action:  "Ensure all required columns have values",
			Code:    "VAL003",
		},
	},
	{
		pattern: "missing required column",
		msg: UserMessage{
			Message: "Required column is missing from the file",
			Action:  "Check that all template columns are present",
			Code:    "VAL004",
		},
	},
	{
		pattern: "invalid registration number",
		msg: UserMessage{
			Message: "Invalid registration number",
			Action:  "Use the form PB0000001/00000001",
			Code:    "VAL005",
		},
	},
	{
		pattern: "invalid characters found in route number",
		msg: UserMessage{
			Message: "Invalid characters in route number",
			Action:  "Avoid using any of _ - / . ,",
			Code:    "VAL005",
		},
	},
	{
		pattern: "invalid enum",
		msg: UserMessage{
			Message: "Value is not in the allowed list",
			Action:  "Check the allowed values for this field",
			Code:    "VAL006",
		},
	},

	// =========================================================================
	// File (FILE001-FILE006)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller files",
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
			Message: "File contains characters that could not be read",
			Action:  "Save the file as UTF-8",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to submit",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please submit a CSV file with data rows",
			Code:    "FILE005",
		},
	},
	{
		pattern: "virus scan",
		msg: UserMessage{
			Message: "The file is infected or could not be scanned",
			Action:  "Check the file and submit it again",
			Code:    "FILE006",
		},
	},

	// =========================================================================
	// Submission (SUB001-SUB004)
	// =========================================================================
	{
		pattern: "too many submissions",
		msg: UserMessage{
			Message: "System is busy processing other submissions",
			Action:  "Please wait a moment and try again",
			Code:    "SUB001",
		},
	},
	{
		pattern: "report not ready",
		msg: UserMessage{
			Message: "Your submission is still being processed",
			Action:  "Check again shortly",
			Code:    "SUB002",
		},
	},
	{
		pattern: "report not found",
		msg: UserMessage{
			Message: "No report is available for this submission",
			Action:  "Reports can be read once; submit the file again if needed",
			Code:    "SUB005",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "SUB003",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "SUB004",
		},
	},

	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. The first
// matching pattern wins; ERR000 is returned when nothing matches.
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

// FormatUserError formats err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern, i.e. whether the
// mapped message is more useful than the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
