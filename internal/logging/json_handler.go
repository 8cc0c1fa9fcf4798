package logging

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
)

// secretKeys are attribute keys whose values never reach a log sink.
var secretKeys = map[string]bool{
	"api_key":       true,
	"apikey":        true,
	"authorization": true,
}

func redact(attr slog.Attr) slog.Attr {
	if secretKeys[strings.ToLower(attr.Key)] && attr.Value.String() != "" {
		attr.Value = slog.StringValue("[redacted]")
	}
	return attr
}

// newJSONHandler emits one object per line with "ts" in UTC millisecond
// precision so poll timing can be read from the run log.
func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	replace := func(_ []string, attr slog.Attr) slog.Attr {
		switch attr.Key {
		case slog.TimeKey:
			if attr.Value.Kind() == slog.KindTime {
				return slog.String("ts", attr.Value.Time().UTC().Format("2006-01-02T15:04:05.000Z07:00"))
			}
			attr.Key = "ts"
		case slog.LevelKey:
			attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
		case slog.SourceKey:
			src, ok := attr.Value.Any().(*slog.Source)
			if !ok || src == nil {
				return slog.Attr{}
			}
			attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
		default:
			attr = redact(attr)
		}
		return attr
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: addSource, ReplaceAttr: replace})
}

