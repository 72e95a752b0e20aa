package telemetry

import (
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

const (
	maxStringAttr = 512
	maxSliceAttr  = 32
)

// denyKeys never become span attributes: call content and credentials.
var denyKeys = []string{
	"transcript",
	"text",
	"audio",
	"authorization",
	"api_key",
	"token",
	"password",
	"phone",
	"caller",
	"entities",
}

// SafeAttributes drops sensitive keys and oversized values and converts the
// rest to OTEL attributes.
func SafeAttributes(values map[string]interface{}) []attribute.KeyValue {
	if len(values) == 0 {
		return nil
	}
	attrs := make([]attribute.KeyValue, 0, len(values))
	for k, v := range values {
		if denied(k) {
			continue
		}
		switch val := v.(type) {
		case string:
			if len(val) > maxStringAttr {
				continue
			}
			attrs = append(attrs, attribute.String(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case []string:
			if len(val) > maxSliceAttr {
				val = val[:maxSliceAttr]
			}
			attrs = append(attrs, attribute.StringSlice(k, val))
		}
	}
	return attrs
}

func denied(key string) bool {
	lk := strings.ToLower(key)
	for _, bad := range denyKeys {
		if strings.Contains(lk, bad) {
			return true
		}
	}
	return false
}
