package value

import "testing"

func TestFromJSONScalars(t *testing.T) {
	tests := []struct {
		text string
		want Kind
	}{
		{"null", KindNull},
		{"true", KindBool},
		{"false", KindBool},
		{"42", KindInt32},
		{"3.14", KindFloat64},
		{`"hi"`, KindString},
		{"[]", KindArray},
		{"{}", KindMap},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := FromJSON(tt.text)
			if got.Kind() != tt.want {
				t.Errorf("FromJSON(%q).Kind() = %v, want %v", tt.text, got.Kind(), tt.want)
			}
		})
	}
}

func TestFromJSONIntegerWidthSelection(t *testing.T) {
	small := FromJSON("123")
	if small.Kind() != KindInt32 {
		t.Errorf("small integer decoded as %v, want KindInt32", small.Kind())
	}

	big := FromJSON("9999999999")
	if big.Kind() != KindInt64 {
		t.Errorf("out-of-int32-range integer decoded as %v, want KindInt64", big.Kind())
	}
	if big.Int64(0) != 9999999999 {
		t.Errorf("big.Int64() = %d, want 9999999999", big.Int64(0))
	}
}

func TestFromJSONMalformedYieldsNull(t *testing.T) {
	tests := []string{
		`{"a":}`,
		`[1,2,`,
		`not json at all`,
		`{"a":1} trailing`,
	}
	for _, text := range tests {
		if got := FromJSON(text); got.Kind() != KindNull {
			t.Errorf("FromJSON(%q).Kind() = %v, want KindNull", text, got.Kind())
		}
	}
}

func TestFromJSONPreservesObjectKeyOrder(t *testing.T) {
	v := FromJSON(`{"z":1,"a":2,"m":3}`)
	m := v.Map(nil)
	if m == nil {
		t.Fatal("expected a Map")
	}
	want := []string{"z", "a", "m"}
	got := m.Keys()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Keys() = %v, want %v", got, want)
		}
	}
}

func TestToJSONObjectHandleEncodesAsNull(t *testing.T) {
	v := NewObjectHandle(struct{}{})
	out, err := ToJSON(v)
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	if out != "null" {
		t.Errorf("ToJSON(ObjectHandle) = %q, want %q", out, "null")
	}
}

// Round-trip property required by spec.md section 8:
// fromJson(toJson(v)) == v for finite-depth values built from
// Null|Bool|Int|Float64|String|Array|Map.
func TestRoundTrip(t *testing.T) {
	inner := NewOrderedMap()
	inner.Set("name", NewString("widget"))
	inner.Set("count", NewInt32(3))
	inner.Set("ratio", NewFloat64(0.5))
	inner.Set("tags", NewArray(Array{NewString("a"), NewString("b")}))
	inner.Set("nothing", Null)
	inner.Set("flag", NewBool(true))

	outer := NewOrderedMap()
	outer.Set("nested", NewMap(inner))
	outer.Set("list", NewArray(Array{NewInt64(1 << 40), NewFloat64(-1.25)}))

	original := NewMap(outer)

	text, err := ToJSON(original)
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	decoded := FromJSON(text)
	if !Equal(original, decoded) {
		t.Errorf("round trip mismatch:\n original kind tree differs from decoded\n json = %s", text)
	}

	// Encoding the decoded value again must reproduce the same text,
	// proving key order survived the round trip.
	text2, err := ToJSON(decoded)
	if err != nil {
		t.Fatalf("ToJSON() second pass error = %v", err)
	}
	if text != text2 {
		t.Errorf("re-encoded text differs:\n first  = %s\n second = %s", text, text2)
	}
}

func TestRoundTripInt64RemainsInt64(t *testing.T) {
	v := NewInt64(5000000000)
	text, _ := ToJSON(v)
	decoded := FromJSON(text)
	if decoded.Kind() != KindInt64 {
		t.Errorf("decoded.Kind() = %v, want KindInt64", decoded.Kind())
	}
	if decoded.Int64(0) != 5000000000 {
		t.Errorf("decoded.Int64() = %d, want 5000000000", decoded.Int64(0))
	}
}
