package core

// errors.go maps technical errors to user-friendly messages with stable
// codes for support reference. Patterns are matched case-insensitively
// with strings.Contains; the first match wins, so specific patterns come
// before general ones.
//
// Code groups:
//
//	FILE001-FILE099  file handling (size, type, encoding, empty)
//	VAL001-VAL099    validation (formats, required fields, mappings)
//	IMP001-IMP099    import session lifecycle
//	API001-API099    CMS persistence API failures
//	RATE001          request throttling
//	ERR000           fallback

import "strings"

// UserMessage is a user-facing rendering of a technical error.
type UserMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

type errorPattern struct {
	patterns []string
	msg      UserMessage
}

var errorPatterns = []errorPattern{
	{
		patterns: []string{"file too large", "exceeds"},
		msg: UserMessage{
			Code:    "FILE001",
			Message: "The file exceeds the maximum size limit",
			Action:  "Split the file into smaller chunks and import them separately",
		},
	},
	{
		patterns: []string{"unsupported file type", "not a csv"},
		msg: UserMessage{
			Code:    "FILE002",
			Message: "Only CSV files can be imported",
			Action:  "Save the file as CSV (UTF-8) and try again",
		},
	},
	{
		patterns: []string{"empty input", "empty file"},
		msg: UserMessage{
			Code:    "FILE003",
			Message: "The file is empty",
			Action:  "Upload a CSV file with a header row and data rows",
		},
	},
	{
		patterns: []string{"no file provided"},
		msg: UserMessage{
			Code:    "FILE004",
			Message: "No file was selected",
			Action:  "Choose a CSV file to import",
		},
	},
	{
		patterns: []string{"required field"},
		msg: UserMessage{
			Code:    "VAL001",
			Message: "A required field is empty",
			Action:  "Fill in all required columns or adjust the column mapping",
		},
	},
	{
		patterns: []string{"invalid number"},
		msg: UserMessage{
			Code:    "VAL002",
			Message: "A cell contains an invalid number",
			Action:  "Remove currency symbols and use a plain decimal format",
		},
	},
	{
		patterns: []string{"invalid date"},
		msg: UserMessage{
			Code:    "VAL003",
			Message: "A cell contains an invalid date",
			Action:  "Use YYYY-MM-DD or a common date format",
		},
	},
	{
		patterns: []string{"malformed row", "unterminated quoted"},
		msg: UserMessage{
			Code:    "VAL004",
			Message: "A row could not be parsed",
			Action:  "Check quoting in the flagged rows",
		},
	},
	{
		patterns: []string{"import not found"},
		msg: UserMessage{
			Code:    "IMP001",
			Message: "The import session was not found",
			Action:  "The import may have expired; start a new one",
		},
	},
	{
		patterns: []string{"too many concurrent imports"},
		msg: UserMessage{
			Code:    "IMP002",
			Message: "Too many imports are in progress",
			Action:  "Wait a moment and try again",
		},
	},
	{
		patterns: []string{"cancelled", "context canceled"},
		msg: UserMessage{
			Code:    "IMP003",
			Message: "The operation was cancelled",
			Action:  "Start a new import when ready",
		},
	},
	{
		patterns: []string{"context deadline exceeded", "timeout"},
		msg: UserMessage{
			Code:    "IMP004",
			Message: "The operation timed out",
			Action:  "Try a smaller file or check your connection",
		},
	},
	{
		patterns: []string{"unknown kind"},
		msg: UserMessage{
			Code:    "IMP005",
			Message: "This entity kind is not configured",
			Action:  "Verify the kind name is correct",
		},
	},
	{
		patterns: []string{"nothing to export"},
		msg: UserMessage{
			Code:    "IMP006",
			Message: "There is no data to export",
			Action:  "Import some records first",
		},
	},
	{
		patterns: []string{"cms api"},
		msg: UserMessage{
			Code:    "API001",
			Message: "The content API rejected the request",
			Action:  "Try again; if the problem persists, check the API status",
		},
	},
	{
		patterns: []string{"connection refused", "connection reset"},
		msg: UserMessage{
			Code:    "API002",
			Message: "The content API is unreachable",
			Action:  "Try again in a few moments",
		},
	},
	{
		patterns: []string{"rate limit"},
		msg: UserMessage{
			Code:    "RATE001",
			Message: "Too many requests",
			Action:  "Wait a moment before trying again",
		},
	},
}

// MapError converts a technical error into a UserMessage.
// Unmatched errors fall back to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{Code: "ERR000", Message: "An unexpected error occurred"}
	}

	text := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		for _, p := range ep.patterns {
			if strings.Contains(text, p) {
				return ep.msg
			}
		}
	}

	return UserMessage{
		Code:    "ERR000",
		Message: "An unexpected error occurred",
		Action:  "Please try again or contact support",
	}
}
