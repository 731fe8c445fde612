package logger

import "strings"

// Known values of the status and outcome fields. Unknown statuses pass
// through as written; unknown outcomes are dropped.
var (
	knownStatus  = set("ok", "fail", "skip", "retry", "rate_limited", "cancelled")
	knownOutcome = set("ok", "fail", "cancelled", "rate_limited")
)

func set(values ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}
	return m
}

// normalizeLevel upper-cases level names and folds "warning" into WARN.
func normalizeLevel(level string) string {
	switch up := strings.ToUpper(strings.TrimSpace(level)); up {
	case "":
		return "INFO"
	case "WARNING":
		return "WARN"
	default:
		return up
	}
}

func normalizeStatus(status string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(status))
	_, ok := knownStatus[v]
	return v, ok && v != ""
}

func normalizeOutcome(outcome string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(outcome))
	_, ok := knownOutcome[v]
	return v, ok
}

// defaultKeyOrder fixes the leading keys of every record; others follow sorted.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"operation",
	"op",
	"cb_key",
	"outcome",
	"state",
	"from_state",
	"program",
	"workout",
	"exercise",
	"sets",
	"repeated",
	"training_id",
	"date",
	"duration_ms",
	"duration_min",
	"workouts",
	"count",
	"limit",
	"payload",
	"username",
	"mode",
	"listen",
	"method",
	"path",
	"http_code",
	"driver",
	"db",
	"host",
	"port",
	"spec",
	"idle_ms",
	"err",
	"err_code",
	"cause",
	"retryable",
	"attempts",
	"backoff_ms",
	"rate_limited",
	"collapsed",
	"repeats",
	"pending_count",
}
