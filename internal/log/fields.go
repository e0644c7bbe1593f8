package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"

	FieldPhone       = "phone"
	FieldUserID      = "user_id"
	FieldIntent      = "intent"
	FieldMessageLen  = "message_len"
	FieldAmountCents = "amount_cents"
	FieldYear        = "year"
	FieldDeliveryID  = "delivery_id"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentBot       = "bot"
	ComponentAtlas     = "atlas"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentOutbox    = "outbox"
	ComponentGateway   = "gateway"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
	ComponentExport    = "export"
)
