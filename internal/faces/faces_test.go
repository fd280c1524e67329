package faces

import "testing"

func TestInitDefaults(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatal(err)
	}
	if Count() < 8 {
		t.Fatalf("need at least 8 faces for a 4x4 board, have %d", Count())
	}
	seen := map[string]bool{}
	for v := 0; v < Count(); v++ {
		f := Face(v)
		if f == "" {
			t.Fatalf("value %d has no face", v)
		}
		if seen[f] {
			t.Errorf("face %q assigned to more than one value", f)
		}
		seen[f] = true
	}
}

func TestFaceOutOfRange(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatal(err)
	}
	if Face(-1) != "" || Face(Count()) != "" {
		t.Error("out-of-range values must map to empty faces")
	}
}
