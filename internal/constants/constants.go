package constants

// Logging field names used across the service so log queries stay stable.
const (
	LOG_REQUEST_ID = "request_id"
	LOG_METHOD     = "method"
	LOG_URI        = "uri"
	LOG_USER_AGENT = "user_agent"
	LOG_REMOTE_ADR = "remote_addr"
	LOG_REFERER    = "referer"
	LOG_RUN_ID     = "run_id"
	LOG_QUEUE      = "queue_status"
)

// Path parameter names registered on the router.
const (
	PATH_PARAMETER_RUN_ID     = "run_id"
	PATH_PARAMETER_ITEM_INDEX = "index"
)

// Environment variables honoured even when config loading fails.
const (
	EnvVarTerminationFile = "TERMINATION_FILE"
)

// Message codes attached to MessageInfo payloads.
const (
	MESSAGE_CODE_RUN_FAILED = "run_failed"
)
