package log

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// MaskValue replaces every redacted value.
const MaskValue = "***REDACTED***"

// sensitiveKeys are attribute keys, lower-cased, whose values are never logged.
// Most of them are HTTP header names sent to the wiki.
var sensitiveKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,
	"x-atlassian-token":   true,
	"api_key":             true,
	"apikey":              true,
	"api-key":             true,
	"session":             true,
	"session_id":          true,
	"sessionid":           true,
	"jsessionid":          true,
	"seraph":              true,
}

// sensitiveKeywords match anywhere in a key. The bare word "key" is not one:
// "space_key" and "page_key" are logged all the time.
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "auth",
	"credential", "private", "cookie",
}

// sensitivePatterns match values that look like credentials whatever their key.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`), // JWT
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
	regexp.MustCompile(`^[a-zA-Z0-9]{32,}$`), // personal access tokens
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),
}

// SecureHandler is an slog.Handler that masks credentials before passing
// records on. A value is masked when its key names a credential, when it looks
// like one, or when it contains one of the configured secrets. Passwords inside
// URLs, such as a proxy URL, are redacted while the rest of the URL is kept.
type SecureHandler struct {
	handler slog.Handler
	secrets []string
}

// HandlerOption configures a SecureHandler.
type HandlerOption func(*SecureHandler)

// WithSecrets masks the given literal values, for example the configured wiki
// password, wherever they occur in a message or string attribute.
// Empty values are ignored.
func WithSecrets(secrets ...string) HandlerOption {
	return func(h *SecureHandler) {
		for _, s := range secrets {
			if s != "" {
				h.secrets = append(h.secrets, s)
			}
		}
	}
}

// NewSecureHandler wraps handler. A nil handler means slog.Default().Handler().
func NewSecureHandler(handler slog.Handler, opts ...HandlerOption) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	h := &SecureHandler{handler: handler}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Enabled implements slog.Handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, h.maskSecrets(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, out)
}

// WithAttrs implements slog.Handler. The attributes are sanitized once here.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		clean = append(clean, h.sanitizeAttr(a))
	}
	return &SecureHandler{handler: h.handler.WithAttrs(clean), secrets: h.secrets}
}

// WithGroup implements slog.Handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name), secrets: h.secrets}
}

func (h *SecureHandler) sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	switch {
	case a.Value.Kind() == slog.KindGroup:
		group := a.Value.Group()
		clean := make([]slog.Attr, 0, len(group))
		for _, ga := range group {
			clean = append(clean, h.sanitizeAttr(ga))
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	case isSensitiveKey(a.Key):
		return slog.String(a.Key, MaskValue)
	case a.Value.Kind() == slog.KindString:
		return slog.String(a.Key, h.sanitizeString(a.Value.String()))
	case a.Value.Kind() == slog.KindAny:
		// errors and URLs end up here and may embed the password.
		if s, ok := a.Value.Any().(interface{ Error() string }); ok && len(h.secrets) > 0 {
			if masked := h.maskSecrets(s.Error()); masked != s.Error() {
				return slog.String(a.Key, masked)
			}
		}
	}
	return a
}

func (h *SecureHandler) sanitizeString(v string) string {
	if isSensitiveValue(v) {
		return MaskValue
	}
	if redacted, ok := redactURLPassword(v); ok {
		v = redacted
	}
	return h.maskSecrets(v)
}

func (h *SecureHandler) maskSecrets(s string) string {
	for _, secret := range h.secrets {
		s = strings.ReplaceAll(s, secret, MaskValue)
	}
	return s
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	return sensitiveKeys[key] || containsSensitiveKeyword(key)
}

// containsSensitiveKeyword expects a lower-cased key.
func containsSensitiveKeyword(key string) bool {
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

// redactURLPassword masks the password of a URL with user info.
func redactURLPassword(value string) (string, bool) {
	if !strings.Contains(value, "@") || !strings.Contains(value, "://") {
		return "", false
	}
	u, err := url.Parse(value)
	if err != nil || u.User == nil {
		return "", false
	}
	if _, hasPassword := u.User.Password(); !hasPassword {
		return "", false
	}
	return u.Redacted(), true
}

// NewSecureLogger returns a text logger on w that masks credentials and the
// given secrets. verbose selects the Debug level; otherwise only warnings and
// errors are logged.
func NewSecureLogger(w io.Writer, verbose bool, secrets ...string) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, handlerOptions(verbose)), WithSecrets(secrets...)))
}

// NewSecureJSONLogger is like NewSecureLogger but writes JSON records.
func NewSecureJSONLogger(w io.Writer, verbose bool, secrets ...string) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, handlerOptions(verbose)), WithSecrets(secrets...)))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
