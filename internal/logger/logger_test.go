package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestJSONFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Format: "json", Level: "debug"}, "phantomx", &buf).WithComponent("pipeline")

	log.WithError(errors.New("boom")).Info("call classified", Fields(FieldResultID, "r-1", FieldRequestID, "req-1", FieldDuration, 12))

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	want := map[string]interface{}{
		"service":      "phantomx",
		FieldComponent: "pipeline",
		FieldResultID:  "r-1",
		FieldRequestID: "req-1",
		FieldDuration:  float64(12),
		FieldError:     "boom",
		"message":      "call classified",
	}
	for k, v := range want {
		if line[k] != v {
			t.Fatalf("field %s: expected %v, got %v (line %s)", k, v, line[k], buf.String())
		}
	}
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Format: "json", Level: "warn"}, "phantomx", &buf)
	log.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered at warn level, got %q", buf.String())
	}
	log.Warn("kept")
	if buf.Len() == 0 {
		t.Fatalf("expected warn to be written")
	}
}

func TestFieldsOddArgs(t *testing.T) {
	f := Fields("a", 1, "dangling")
	if len(f) != 1 || f["a"] != 1 {
		t.Fatalf("unexpected fields %v", f)
	}
}
