package mapper

// Logger receives optional debug output of the mappers
type Logger interface {
	Debug(message string, fields map[string]any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, map[string]any) {}

// NopLogger returns a logger that discards everything
func NopLogger() Logger {
	return nopLogger{}
}
