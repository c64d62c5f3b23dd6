package config

// LogLevel represents valid logging levels
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// IsValid returns whether the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		return true
	default:
		return false
	}
}

// String implements the Stringer interface
func (l LogLevel) String() string {
	return string(l)
}

// SourceKind selects where observations come from
type SourceKind string

const (
	SourceStdin  SourceKind = "stdin"
	SourceFile   SourceKind = "file"
	SourceSQLite SourceKind = "sqlite"
	SourceNVML   SourceKind = "nvml"
)

func (s SourceKind) IsValid() bool {
	switch s {
	case SourceStdin, SourceFile, SourceSQLite, SourceNVML:
		return true
	default:
		return false
	}
}

// NeedsPath reports whether the source reads from source_path
func (s SourceKind) NeedsPath() bool {
	return s == SourceFile || s == SourceSQLite
}

// OutputKind selects how updated views are emitted
type OutputKind string

const (
	OutputJSON OutputKind = "json"
	OutputLog  OutputKind = "log"
	OutputNone OutputKind = "none"
)

func (o OutputKind) IsValid() bool {
	switch o {
	case OutputJSON, OutputLog, OutputNone:
		return true
	default:
		return false
	}
}

// ValidationError describes a single invalid configuration field
type ValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (v ValidationError) String() string {
	return v.Field + ": " + v.Reason
}
