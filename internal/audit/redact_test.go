package audit

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRedactSensitiveKeysAtAnyDepth(t *testing.T) {
	in := map[string]any{
		"password": "hunter2",
		"email":    "ref@example.com",
		"nested": map[string]any{
			"api_token": "tok-abc123",
			"note":      "keep me",
			"deeper": map[string]any{
				"CreditCardNumber": "4111111111111111",
			},
		},
		"items": []any{
			map[string]any{"ssn": "123-45-6789", "name": "ok"},
		},
	}

	out := Redact(in)

	data, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal redacted: %v", err)
	}
	for _, leaked := range []string{"hunter2", "tok-abc123", "4111111111111111", "123-45-6789"} {
		if strings.Contains(string(data), leaked) {
			t.Fatalf("sensitive value %q survived redaction: %s", leaked, data)
		}
	}
	if !strings.Contains(string(data), "keep me") || !strings.Contains(string(data), "ref@example.com") {
		t.Fatalf("non-sensitive values must survive: %s", data)
	}
	if out["password"] != RedactedValue {
		t.Fatalf("expected %q, got %v", RedactedValue, out["password"])
	}
}

func TestRedactDoesNotMutateInput(t *testing.T) {
	in := map[string]any{
		"secret": "original",
		"nested": map[string]any{"token": "original"},
	}
	_ = Redact(in)
	if in["secret"] != "original" {
		t.Fatalf("input mutated: %v", in["secret"])
	}
	if in["nested"].(map[string]any)["token"] != "original" {
		t.Fatalf("nested input mutated")
	}
}

func TestRedactKeyMatchingIgnoresCaseAndSeparators(t *testing.T) {
	in := map[string]any{
		"UserPassword":     "a",
		"AUTHORIZATION":    "b",
		"refreshToken":     "c",
		"CreditCardNumber": "d",
		"client-api-key":   "e",
		"api_key":          "f",
		"privateKey":       "g",
		"pass":             "not sensitive enough",
	}
	out := Redact(in)
	for _, k := range []string{
		"UserPassword", "AUTHORIZATION", "refreshToken",
		"CreditCardNumber", "client-api-key", "api_key", "privateKey",
	} {
		if out[k] != RedactedValue {
			t.Fatalf("key %q not redacted: %v", k, out[k])
		}
	}
	if out["pass"] != "not sensitive enough" {
		t.Fatalf("key %q wrongly redacted", "pass")
	}
}

func TestRedactDepthCap(t *testing.T) {
	// Build a map nested well past the cap; the walk must terminate and
	// anything beyond the cap must not leak through unredacted.
	cur := map[string]any{"password": "deep-secret", "plain": "deep-plain"}
	for i := 0; i < maxRedactDepth+5; i++ {
		cur = map[string]any{"level": cur}
	}

	out := Redact(cur)
	data, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "deep-secret") {
		t.Fatalf("value below depth cap leaked: %s", data)
	}
}

func TestRedactNil(t *testing.T) {
	if out := Redact(nil); out != nil {
		t.Fatalf("expected nil for nil input, got %v", out)
	}
}

func TestBoundedJSON(t *testing.T) {
	t.Run("empty map yields empty string", func(t *testing.T) {
		if got := BoundedJSON(nil, 100); got != "" {
			t.Fatalf("expected empty, got %q", got)
		}
		if got := BoundedJSON(map[string]any{}, 100); got != "" {
			t.Fatalf("expected empty, got %q", got)
		}
	})

	t.Run("under cap is untouched", func(t *testing.T) {
		got := BoundedJSON(map[string]any{"a": "b"}, 1024)
		if got != `{"a":"b"}` {
			t.Fatalf("unexpected output: %q", got)
		}
	})

	t.Run("over cap is truncated with marker", func(t *testing.T) {
		got := BoundedJSON(map[string]any{"blob": strings.Repeat("x", 200)}, 50)
		if !strings.HasSuffix(got, TruncationMarker) {
			t.Fatalf("missing truncation marker: %q", got)
		}
		if len(got) != 50+len(TruncationMarker) {
			t.Fatalf("truncated length %d, want %d", len(got), 50+len(TruncationMarker))
		}
	})

	t.Run("unserializable payload leaves a trace", func(t *testing.T) {
		got := BoundedJSON(map[string]any{"ch": make(chan int)}, 100)
		if got != `{"_marshal_error":true}` {
			t.Fatalf("unexpected output: %q", got)
		}
	})
}
