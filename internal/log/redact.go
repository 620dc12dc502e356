package log

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// MaskValue replaces redacted values.
const MaskValue = "***REDACTED***"

// sensitiveKeys are attribute keys whose value is always masked.
var sensitiveKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"password":            true,
	"passwd":              true,
	"secret":              true,
	"token":               true,
	"api_key":             true,
	"apikey":              true,
	"access_token":        true,
	"refresh_token":       true,
	"private_key":         true,
	"session":             true,
	"session_id":          true,
	"sessionid":           true,
	"sid":                 true,
	"jsessionid":          true,
	"credential":          true,
	"credentials":         true,
}

// sensitiveKeywords mark a key as sensitive when contained in it. The bare
// word "key" is left out: it matches too much (primary_key, monkey).
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "credential", "private",
}

// sensitiveQueryParams are query parameters masked inside URL values.
var sensitiveQueryParams = map[string]bool{
	"token":         true,
	"access_token":  true,
	"refresh_token": true,
	"api_key":       true,
	"apikey":        true,
	"key":           true,
	"session":       true,
	"sessionid":     true,
	"session_id":    true,
	"sid":           true,
	"jsessionid":    true,
	"phpsessid":     true,
	"password":      true,
	"passwd":        true,
	"secret":        true,
	"auth":          true,
	"signature":     true,
	"sig":           true,
}

// sensitivePatterns mask a whole string value regardless of its key.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
	regexp.MustCompile(`^AKIA[0-9A-Z]{16}$`),
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),
}

// RedactingHandler wraps an slog.Handler and masks secrets in attributes
// before passing records on.
type RedactingHandler struct {
	handler slog.Handler
}

// NewRedactingHandler wraps handler. A nil handler means
// slog.Default().Handler().
func NewRedactingHandler(handler slog.Handler) *RedactingHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &RedactingHandler{handler: handler}
}

// Enabled implements slog.Handler.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	redacted := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		redacted.AddAttrs(redactAttr(a))
		return true
	})
	return h.handler.Handle(ctx, redacted)
}

// WithAttrs implements slog.Handler.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = redactAttr(a)
	}
	return &RedactingHandler{handler: h.handler.WithAttrs(redacted)}
}

// WithGroup implements slog.Handler.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{handler: h.handler.WithGroup(name)}
}

func redactAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		redacted := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			redacted[i] = redactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() != slog.KindString {
		return a
	}
	value := a.Value.String()
	if isSensitiveValue(value) {
		return slog.String(a.Key, MaskValue)
	}
	if masked, ok := RedactURL(value); ok {
		return slog.String(a.Key, masked)
	}
	return a
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	if sensitiveKeys[key] {
		return true
	}
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

func isSensitiveValue(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// RedactURL masks the userinfo password and secret query parameters of an
// absolute URL. It reports false when value is not such a URL or carries
// nothing to mask.
func RedactURL(value string) (string, bool) {
	if !strings.Contains(value, "://") {
		return value, false
	}
	u, err := url.Parse(value)
	if err != nil || u.Host == "" {
		return value, false
	}

	changed := false
	var user *url.Userinfo
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			// url.UserPassword would percent-encode the mask.
			user = url.User(u.User.Username())
			u.User = nil
			changed = true
		}
	}

	if u.RawQuery != "" {
		pairs := strings.Split(u.RawQuery, "&")
		for i, pair := range pairs {
			name, _, _ := strings.Cut(pair, "=")
			unescaped, err := url.QueryUnescape(name)
			if err != nil {
				unescaped = name
			}
			if sensitiveQueryParams[strings.ToLower(unescaped)] {
				pairs[i] = name + "=" + MaskValue
				changed = true
			}
		}
		u.RawQuery = strings.Join(pairs, "&")
	}

	if !changed {
		return value, false
	}
	redacted := u.String()
	if user != nil {
		prefix := u.Scheme + "://"
		redacted = prefix + user.String() + ":" + MaskValue + "@" + strings.TrimPrefix(redacted, prefix)
	}
	return redacted, true
}
