package logging

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"strings"
)

const redactedValue = "[REDACTED]"

var (
	bootSalt      = randomSalt()
	redactedKeys  = []string{"nonce", "signature", "password", "secret", "token"}
	fingerprinted = map[string]struct{}{
		"appkey":  {},
		"app_key": {},
	}
)

// RedactingHandler 在写出前屏蔽会话认证字段。
type RedactingHandler struct {
	next slog.Handler
}

// WrapHandler 包装 next，nil 时返回 nil。
func WrapHandler(next slog.Handler) slog.Handler {
	if next == nil {
		return nil
	}
	return &RedactingHandler{next: next}
}

// New 创建带屏蔽功能的文本 logger。
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(WrapHandler(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(RedactAttr(attr))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &RedactingHandler{next: h.next.WithAttrs(redactAttrs(attrs))}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{next: h.next.WithGroup(name)}
}

// RedactAttr 屏蔽或指纹化敏感字段，分组与 LogValuer 会递归处理。
func RedactAttr(attr slog.Attr) slog.Attr {
	attr.Value = attr.Value.Resolve()
	lowerKey := strings.ToLower(strings.TrimSpace(attr.Key))
	if _, ok := fingerprinted[lowerKey]; ok {
		return slog.String(attr.Key+"_fp", Fingerprint(attr.Value.String()))
	}
	if isRedacted(lowerKey) {
		return slog.String(attr.Key, redactedValue)
	}
	if attr.Value.Kind() == slog.KindGroup {
		return slog.Attr{Key: attr.Key, Value: slog.GroupValue(redactAttrs(attr.Value.Group())...)}
	}
	return attr
}

// Fingerprint 返回进程内稳定、不可逆的短指纹。
func Fingerprint(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(trimmed + "|" + bootSalt))
	return "fp_" + hex.EncodeToString(sum[:8])
}

func redactAttrs(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, RedactAttr(attr))
	}
	return out
}

func isRedacted(key string) bool {
	for _, part := range redactedKeys {
		if strings.Contains(key, part) {
			return true
		}
	}
	return false
}

func randomSalt() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "walletbridge"
	}
	return hex.EncodeToString(buf)
}
