package errors

// Error codes for the qconv compiler
// These codes appear in diagnostics printed by the CLI and published by the
// language server.
//
// Error code ranges:
// E0100-E0199: Build errors raised while converting a program
// E0200-E0299: Front-end (host script) errors
// E0900-E0999: Reserved for tooling errors

const (
	// E0100: Operation on a finalized, aborted, suspended or never-opened context
	ErrorContextClosed = "E0100"

	// E0101: Structural event with no circuit-IR representation
	ErrorUnsupportedFeature = "E0101"

	// E0102: Variable or qubit allocation exhausted
	ErrorAllocation = "E0102"

	// E0103: Assignment between incompatible kinds or widths
	ErrorTypeMismatch = "E0103"

	// E0104: Alias of a name that has never been bound
	ErrorUndefinedName = "E0104"

	// E0200: Host script could not be parsed
	ErrorSyntax = "E0200"

	// E0900: Configuration file could not be loaded
	ErrorConfig = "E0900"
)

// GetErrorDescription returns a human-readable description of the error code
func GetErrorDescription(code string) string {
	switch code {
	case ErrorContextClosed:
		return "Conversion context is closed or not open"
	case ErrorUnsupportedFeature:
		return "Construct has no circuit representation"
	case ErrorAllocation:
		return "Variable or qubit allocation failed"
	case ErrorTypeMismatch:
		return "Assigned value does not match the variable type"
	case ErrorUndefinedName:
		return "Name is used before it is bound"
	case ErrorSyntax:
		return "Host program syntax error"
	case ErrorConfig:
		return "Invalid compiler configuration"
	default:
		return "Unknown error code"
	}
}

// GetErrorCategory returns the category of the error based on its code
func GetErrorCategory(code string) string {
	switch {
	case code >= "E0100" && code < "E0200":
		return "Build"
	case code >= "E0200" && code < "E0300":
		return "Front End"
	case code >= "E0900" && code < "E1000":
		return "Tooling"
	default:
		return "Unknown"
	}
}
