package service

import (
	"context"
	"net/mail"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/Skotchmaster/polyglot_blog/internal/events"
	"github.com/Skotchmaster/polyglot_blog/internal/logging"
	"github.com/Skotchmaster/polyglot_blog/internal/models"
)

var slugRe = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// NormalizeLang reduces "uk-UA" or "EN" to a bare lowercase language code.
func NormalizeLang(lang, def string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if lang == "" {
		return def
	}
	return lang
}

// Slugify keeps ASCII letters and digits and joins the rest with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func validSlug(s string) bool { return slugRe.MatchString(s) }

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func hasText(l models.Localized) bool {
	for _, v := range l {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// mergeLocalized applies a patch: non-empty values overwrite, empty values
// remove that translation.
func mergeLocalized(dst, patch models.Localized) models.Localized {
	if patch == nil {
		return dst
	}
	if dst == nil {
		dst = models.Localized{}
	}
	for k, v := range patch {
		if strings.TrimSpace(v) == "" {
			delete(dst, k)
			continue
		}
		dst[k] = v
	}
	return dst
}

func parseOptionalID(s *string) (*uuid.UUID, bool) {
	if s == nil || *s == "" {
		return nil, true
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, false
	}
	return &id, true
}

func publish(ctx context.Context, p events.Publisher, topic, key string, ev events.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, topic, key, ev); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "topic", topic, "type", ev.Type, "error", err)
	}
}
