package id_test

import (
	"strings"
	"testing"

	"github.com/datafed/warrant/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"RuleID", id.NewRuleID, "rule_"},
		{"ReplicaID", id.NewReplicaID, "repl_"},
		{"EventID", id.NewEventID, "evt_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixRule)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixRule {
		t.Errorf("expected prefix %q, got %q", id.PrefixRule, i.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"RuleID", id.NewRuleID, id.ParseRuleID},
		{"ReplicaID", id.NewReplicaID, id.ParseReplicaID},
		{"EventID", id.NewEventID, id.ParseEventID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := tt.newFn()
			parsed, err := tt.parseFn(orig.String())
			if err != nil {
				t.Fatal(err)
			}
			if parsed.String() != orig.String() {
				t.Errorf("round trip mismatch: %q != %q", parsed, orig)
			}
		})
	}
}

func TestParseWithPrefixRejectsWrongPrefix(t *testing.T) {
	rule := id.NewRuleID()
	if _, err := id.ParseReplicaID(rule.String()); err == nil {
		t.Fatal("expected error parsing rule ID as replica ID")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "not-a-typeid", "rule_"} {
		if _, err := id.Parse(s); err == nil {
			t.Errorf("expected error parsing %q", s)
		}
	}
}

func TestTextMarshalling(t *testing.T) {
	orig := id.NewEventID()
	data, err := orig.MarshalText()
	if err != nil {
		t.Fatal(err)
	}

	var parsed id.ID
	if err := parsed.UnmarshalText(data); err != nil {
		t.Fatal(err)
	}
	if parsed.String() != orig.String() {
		t.Errorf("text round trip mismatch: %q != %q", parsed, orig)
	}
}

func TestNilID(t *testing.T) {
	if !id.Nil.IsNil() {
		t.Fatal("expected Nil to be nil")
	}
	if id.Nil.String() != "" {
		t.Fatalf("expected empty string, got %q", id.Nil.String())
	}

	v, err := id.Nil.Value()
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Fatalf("expected NULL driver value, got %v", v)
	}
}

func TestScan(t *testing.T) {
	orig := id.NewReplicaID()

	var fromString id.ID
	if err := fromString.Scan(orig.String()); err != nil {
		t.Fatal(err)
	}
	if fromString.String() != orig.String() {
		t.Fatal("scan from string mismatch")
	}

	var fromBytes id.ID
	if err := fromBytes.Scan([]byte(orig.String())); err != nil {
		t.Fatal(err)
	}
	if fromBytes.String() != orig.String() {
		t.Fatal("scan from bytes mismatch")
	}

	var fromNil id.ID
	if err := fromNil.Scan(nil); err != nil {
		t.Fatal(err)
	}
	if !fromNil.IsNil() {
		t.Fatal("expected nil ID from NULL")
	}

	var bad id.ID
	if err := bad.Scan(42); err == nil {
		t.Fatal("expected error scanning int")
	}
}
