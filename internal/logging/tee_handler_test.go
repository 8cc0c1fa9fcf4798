package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestNewTeeHandlerCollapses(t *testing.T) {
	if _, ok := newTeeHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every sink is nil")
	}

	inner := slog.NewJSONHandler(&bytes.Buffer{}, nil)
	if h := newTeeHandler(nil, inner); h != inner {
		t.Fatal("expected the lone sink to be returned unwrapped")
	}

	a := slog.NewJSONHandler(&bytes.Buffer{}, nil)
	b := slog.NewJSONHandler(&bytes.Buffer{}, nil)
	c := slog.NewJSONHandler(&bytes.Buffer{}, nil)
	nested := newTeeHandler(newTeeHandler(a, b), c)
	if tee, ok := nested.(teeHandler); !ok || len(tee) != 3 {
		t.Fatalf("expected nested tee to flatten to 3 sinks, got %#v", nested)
	}
}

func TestTeeHandlerRespectsSinkLevels(t *testing.T) {
	var runLog, debugLog bytes.Buffer
	logger := slog.New(newTeeHandler(
		slog.NewJSONHandler(&runLog, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&debugLog, &slog.HandlerOptions{Level: slog.LevelDebug}),
	))

	logger.Debug("transfer status poll")
	logger.Info("launched reingest")

	if strings.Contains(runLog.String(), "transfer status poll") {
		t.Error("info sink received a debug record")
	}
	for _, msg := range []string{"transfer status poll", "launched reingest"} {
		if !strings.Contains(debugLog.String(), msg) {
			t.Errorf("debug sink missing %q: %s", msg, debugLog.String())
		}
	}
	if !strings.Contains(runLog.String(), "launched reingest") {
		t.Errorf("info sink missing record: %s", runLog.String())
	}
}

func TestTeeHandlerJoinsSinkErrors(t *testing.T) {
	var ok bytes.Buffer
	good := slog.NewJSONHandler(&ok, nil)
	h := newTeeHandler(failingHandler{good}, good)

	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "msg", 0)
	err := h.Handle(context.Background(), rec)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected joined sink error, got %v", err)
	}
	if !strings.Contains(ok.String(), `"msg":"msg"`) {
		t.Fatalf("healthy sink should still receive the record: %s", ok.String())
	}
}

func TestTeeLoggerCarriesAttrs(t *testing.T) {
	var base, extra bytes.Buffer
	baseLogger := slog.New(slog.NewJSONHandler(&base, nil))
	tee := TeeLogger(baseLogger, slog.NewJSONHandler(&extra, nil)).With(FieldRunID, "r1")

	tee.InfoContext(context.Background(), "tee")
	for name, buf := range map[string]*bytes.Buffer{"base": &base, "extra": &extra} {
		if !strings.Contains(buf.String(), `"run_id":"r1"`) {
			t.Errorf("%s sink missing attribute: %q", name, buf.String())
		}
	}
}
