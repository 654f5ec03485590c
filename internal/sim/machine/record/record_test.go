package record

import "testing"

func TestMissingFieldsDefault(t *testing.T) {
	r := New()
	if got := r.Int("Cache"); got != 0 {
		t.Fatalf("Int(missing)=%d, want 0", got)
	}
	if got := r.IntOr("Layer", -1); got != -1 {
		t.Fatalf("IntOr(missing)=%d, want -1", got)
	}
	if r.Bool("OnlyOres") {
		t.Fatalf("Bool(missing) should be false")
	}
	if sub := r.Sub("Tank"); len(sub) != 0 {
		t.Fatalf("Sub(missing)=%v, want empty", sub)
	}
}

func TestMalformedFieldDefaults(t *testing.T) {
	r := Record{"Cache": []byte(`"lots"`)}
	if got := r.IntOr("Cache", 7); got != 7 {
		t.Fatalf("IntOr(malformed)=%d, want 7", got)
	}
}

func TestMarshalUnmarshal(t *testing.T) {
	r := New()
	r.SetInt("Energy", 1200)
	sub := New()
	sub.SetString("Fluid", "WATER")
	r.SetRecord("Tank", sub)

	b, err := r.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Int("Energy") != 1200 || got.Sub("Tank").String("Fluid") != "WATER" {
		t.Fatalf("round trip lost fields: %s", b)
	}
	if _, err := Unmarshal([]byte("{")); err == nil {
		t.Fatalf("expected error for truncated input")
	}
}
