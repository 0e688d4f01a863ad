package webhook

import "time"

// GitHub delivery headers.
const (
	HeaderEvent        = "X-GitHub-Event"
	HeaderDelivery     = "X-GitHub-Delivery"
	HeaderSignature    = "X-Hub-Signature"
	HeaderSignature256 = "X-Hub-Signature-256"
)

// SecurityConfig holds webhook security settings
type SecurityConfig struct {
	Secret          string   // Shared secret for signature verification; empty disables it
	AllowedIPs      []string // IP whitelist (optional)
	RateLimitPerMin int      // Max requests per minute per source
}

// Config configures the delivery handler and router.
type Config struct {
	Security          SecurityConfig
	DedupWindow       time.Duration
	ProcessingTimeout time.Duration
	MaxBodyBytes      int64
}

// Delivery is one inbound webhook request, before any validation.
type Delivery struct {
	Event        string
	Signature    string // X-Hub-Signature, sha1=<hex>
	Signature256 string // X-Hub-Signature-256, sha256=<hex>
	DeliveryID   string
	Body         []byte
}

// Outcome is how a verified delivery was handled.
type Outcome int

const (
	OutcomeRejected  Outcome = iota
	OutcomeHandled           // a status was written
	OutcomeIgnored           // verified, nothing to do
	OutcomeAccepted          // a status was written, more work continues in the background
	OutcomeDuplicate         // delivery id already processed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHandled:
		return "handled"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeAccepted:
		return "accepted"
	case OutcomeDuplicate:
		return "duplicate"
	}
	return "rejected"
}

const (
	defaultDedupWindow       = 10 * time.Minute
	defaultProcessingTimeout = 2 * time.Minute
	defaultMaxBodyBytes      = 25 << 20 // GitHub caps payloads at 25 MB
	dedupCacheSize           = 10000
)
