package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestValue_ZeroValueIsNull(t *testing.T) {
	var v Value
	if !v.IsNull() {
		t.Error("zero Value should be null")
	}
	if v.Kind() != KindNull {
		t.Errorf("expected KindNull, got %v", v.Kind())
	}
}

func TestValue_Constructors(t *testing.T) {
	now := time.Now()
	tests := []struct {
		value Value
		kind  Kind
	}{
		{Null(), KindNull},
		{Bool(true), KindBool},
		{Int(42), KindInt},
		{Float(2.5), KindFloat},
		{String("abc"), KindString},
		{Time(now), KindTime},
	}
	for _, tt := range tests {
		if tt.value.Kind() != tt.kind {
			t.Errorf("expected kind %v, got %v", tt.kind, tt.value.Kind())
		}
	}
}

func TestValue_Equal(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	instant := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"null equals null", Null(), Null(), true},
		{"same int", Int(7), Int(7), true},
		{"different int", Int(7), Int(8), false},
		{"int vs float", Int(1), Float(1), false},
		{"same string", String("x"), String("x"), true},
		{"same instant different zone", Time(instant), Time(instant.In(loc)), true},
	}
	for _, tt := range tests {
		if got := tt.a.Equal(tt.b); got != tt.want {
			t.Errorf("%s: Equal=%v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestValue_Coerce(t *testing.T) {
	tests := []struct {
		name   string
		in     Value
		target Kind
		want   Value
		ok     bool
	}{
		{"int to float", Int(3), KindFloat, Float(3), true},
		{"bool to int", Bool(true), KindInt, Int(1), true},
		{"bool to float", Bool(false), KindFloat, Float(0), true},
		{"null to anything", Null(), KindString, Null(), true},
		{"same kind", String("a"), KindString, String("a"), true},
		{"string to int fails", String("5"), KindInt, Value{}, false},
		{"float to int fails", Float(1.5), KindInt, Value{}, false},
		{"time to string fails", Time(time.Now()), KindString, Value{}, false},
	}
	for _, tt := range tests {
		got, ok := Coerce(tt.in, tt.target)
		if ok != tt.ok {
			t.Errorf("%s: ok=%v, want %v", tt.name, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, got.Format(), tt.want.Format())
		}
	}
}

func TestValue_Less(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"int ordering", Int(1), Int(2), true},
		{"int not less", Int(2), Int(1), false},
		{"float ordering", Float(1.5), Float(2.5), true},
		{"string ordering", String("a"), String("b"), true},
		{"false before true", Bool(false), Bool(true), true},
		{"time ordering", Time(early), Time(late), true},
	}
	for _, tt := range tests {
		if got := tt.a.Less(tt.b); got != tt.want {
			t.Errorf("%s: Less=%v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestKind_JSONRoundTrip(t *testing.T) {
	kinds := []Kind{KindNull, KindBool, KindInt, KindFloat, KindString, KindTime}
	for _, k := range kinds {
		data, err := json.Marshal(k)
		if err != nil {
			t.Fatalf("marshal %v: %v", k, err)
		}
		var back Kind
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if back != k {
			t.Errorf("round trip %v -> %s -> %v", k, data, back)
		}
	}
}

func TestKind_UnmarshalUnknown(t *testing.T) {
	var k Kind
	if err := json.Unmarshal([]byte(`"decimal"`), &k); err == nil {
		t.Error("expected error for unknown kind name")
	}
}

func TestSchema_Equal(t *testing.T) {
	a := Schema{Columns: []ColumnDef{
		{Name: "id", Type: KindInt},
		{Name: "name", Type: KindString, Nullable: true},
	}}
	b := Schema{Columns: []ColumnDef{
		{Name: "id", Type: KindInt},
		{Name: "name", Type: KindString, Nullable: true},
	}}
	c := Schema{Columns: []ColumnDef{
		{Name: "id", Type: KindInt},
	}}

	if !a.Equal(b) {
		t.Error("identical schemas should be equal")
	}
	if a.Equal(c) {
		t.Error("schemas with different arity should not be equal")
	}
}
