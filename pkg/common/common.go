package common

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strconv"
)

// CommonResponse is the uniform response wrapper used by HTTP handlers.
type CommonResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// GetMD5Hash returns the lowercase hex MD5 hash of the input.
// Used as the checksum over canonicalized connector configurations.
func GetMD5Hash(input string) string {
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])
}

type contextKey string

const (
	userIDKey contextKey = "user_id"
)

// ContextWithUserID stores user ID into context.
func ContextWithUserID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// GetUserID retrieves the user ID from context.
func GetUserID(ctx context.Context) (int, bool) {
	v := ctx.Value(userIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case string:
		id, err := strconv.Atoi(val)
		if err != nil {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}

// UserFromContext renders the acting user as a created_by attribution string.
func UserFromContext(ctx context.Context) string {
	if id, ok := GetUserID(ctx); ok && id > 0 {
		return "user:" + strconv.Itoa(id)
	}
	return "system"
}
