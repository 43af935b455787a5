package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/yunolab/connect_bridge/biz/dal/model"
	"github.com/yunolab/connect_bridge/pkg/common"
)

// Connector configs arrive in several historical shapes: old payloads used
// bare keys (host, port, user), newer ones the db.* prefix, current ones the
// engine's database.* keys. canonicalKeys folds every known spelling into
// one canonical flat key so that checksums and diffs compare like with like.
var canonicalKeys = map[string]string{
	"host":              "database.hostname",
	"hostname":          "database.hostname",
	"db.host":           "database.hostname",
	"database.host":     "database.hostname",
	"port":              "database.port",
	"db.port":           "database.port",
	"user":              "database.user",
	"username":          "database.user",
	"db.user":           "database.user",
	"database.username": "database.user",
	"password":          "database.password",
	"db.password":       "database.password",
	"dbname":            "database.dbname",
	"db.name":           "database.dbname",
	"database.name":     "database.dbname",
	"server.name":       "database.server.name",
	"servername":        "database.server.name",
	"db.server.name":    "database.server.name",
}

// maxSafeTasks is the advisory ceiling for tasks.max; more tasks than this
// tends to starve the engine workers without improving throughput.
const maxSafeTasks = 8

// CanonicalizeConfig returns a new flat map with every key folded to its
// canonical spelling and surrounding whitespace trimmed. When two input
// spellings collide on one canonical key, the canonical spelling wins.
func CanonicalizeConfig(config map[string]string) map[string]string {
	keys := make([]string, 0, len(config))
	for k := range config {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(config))
	for _, key := range keys {
		value := config[key]
		k := strings.TrimSpace(key)
		if k == "" {
			continue
		}
		canonical, folded := canonicalKeys[strings.ToLower(k)]
		if !folded {
			canonical = k
		}
		if folded {
			if _, exists := config[canonical]; exists && canonical != k {
				continue
			}
		}
		out[canonical] = strings.TrimSpace(value)
	}
	return out
}

// ChecksumConfig computes the MD5 of the canonicalized config rendered with
// stable key ordering. Two configs that canonicalize identically always
// yield the same checksum regardless of input key order or spelling.
func ChecksumConfig(config map[string]string) string {
	canonical := CanonicalizeConfig(config)
	keys := make([]string, 0, len(canonical))
	for k := range canonical {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(canonical[k])
		sb.WriteByte('\n')
	}
	return common.GetMD5Hash(sb.String())
}

// ValidatePolicy runs the advisory checks over a canonicalized config.
// Warnings never block a write; they are stored with the version so the
// operator sees them on every later read.
func ValidatePolicy(kind string, config map[string]string) []string {
	var warnings []string

	if raw, ok := config["tasks.max"]; ok {
		if n, err := strconv.Atoi(raw); err != nil {
			warnings = append(warnings, fmt.Sprintf("tasks.max %q is not a number", raw))
		} else if n > maxSafeTasks {
			warnings = append(warnings, fmt.Sprintf("tasks.max %d exceeds the safe ceiling of %d", n, maxSafeTasks))
		}
	}

	if kind == model.ConnectorTypeSource {
		if config["database.server.name"] == "" && config["topic.prefix"] == "" {
			warnings = append(warnings, "source connector has no database.server.name or topic.prefix; topic names will be engine defaults")
		}
	}

	for key, value := range config {
		if !strings.Contains(strings.ToLower(key), "password") || value == "" {
			continue
		}
		if !strings.HasPrefix(value, "${") {
			warnings = append(warnings, fmt.Sprintf("%s is stored in plaintext; consider an externalized secret reference", key))
		}
	}

	sort.Strings(warnings)
	return warnings
}
