package log

// ZapConfig configures the zap-backed Logger.
type ZapConfig struct {
	Level        string
	Mode         string // "production" or "debug"
	Encoding     string // "json" or "console"
	ColorEnabled bool
}

const (
	ModeProduction  = "production"
	EncodingConsole = "console"
	EncodingJSON    = "json"
)

type ctxKey struct{}

// requestIDKey is the context key carrying the inbound request id.
var requestIDKey = ctxKey{}
