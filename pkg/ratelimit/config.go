package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RuleFromEnv reads overrides following the pattern RATELIMIT_{NAME}_REQUESTS
// and RATELIMIT_{NAME}_WINDOW_SEC, falling back to def for anything unset
// or unparsable. NAME is the scope upper-cased with ':' and '-' turned into
// '_', so scope "send:ip" reads RATELIMIT_SEND_IP_REQUESTS.
func RuleFromEnv(scope string, def Rule) Rule {
	name := strings.ToUpper(strings.NewReplacer(":", "_", "-", "_").Replace(scope))
	rule := def

	if val := os.Getenv("RATELIMIT_" + name + "_REQUESTS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			rule.Limit = n
		}
	}

	if val := os.Getenv("RATELIMIT_" + name + "_WINDOW_SEC"); val != "" {
		if secs, err := strconv.Atoi(val); err == nil && secs > 0 {
			rule.Window = time.Duration(secs) * time.Second
		}
	}

	return rule
}
