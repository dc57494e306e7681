package jpeg

import (
	"errors"
	"testing"
)

func TestParseChromaMode(t *testing.T) {
	cases := map[string]ChromaMode{
		"4:4:4": Chroma444,
		"444":   Chroma444,
		"4:2:0": Chroma420,
		" 420 ": Chroma420,
	}
	for in, want := range cases {
		got, err := ParseChromaMode(in)
		if err != nil || got != want {
			t.Errorf("ParseChromaMode(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseChromaMode("4:2:2"); err == nil {
		t.Error("4:2:2 should be rejected")
	}
}

func TestChromaModeText(t *testing.T) {
	var m ChromaMode
	if err := m.UnmarshalText([]byte("4:4:4")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	text, err := m.MarshalText()
	if err != nil || string(text) != "4:4:4" {
		t.Errorf("MarshalText = %q, %v", text, err)
	}
	if _, err := ChromaMode(0).MarshalText(); err == nil {
		t.Error("zero ChromaMode should not marshal")
	}
}

func TestProfileValidate(t *testing.T) {
	if err := DefaultProfile.Validate(); err != nil {
		t.Fatalf("DefaultProfile invalid: %v", err)
	}

	mutations := map[string]func(*Profile){
		"quality-low":  func(p *Profile) { p.Quality = 0 },
		"quality-high": func(p *Profile) { p.Quality = 101 },
		"no-chroma":    func(p *Profile) { p.Chroma = 0 },
		"keep-meta":    func(p *Profile) { p.StripMetadata = false },
		"progressive":  func(p *Profile) { p.Progressive = true },
		"neg-fit":      func(p *Profile) { p.MaxWidth = -1 },
	}
	for name, mutate := range mutations {
		p := DefaultProfile
		mutate(&p)
		if err := p.Validate(); !errors.Is(err, ErrInvalidProfile) {
			t.Errorf("[%s] Validate = %v, want ErrInvalidProfile", name, err)
		}
	}
}

func TestScaleQuantTable(t *testing.T) {
	q50 := ScaleQuantTable(stdLuminanceQuant, 50)
	for i, v := range q50 {
		if int(v) != stdLuminanceQuant[i] {
			t.Fatalf("quality 50 should reproduce the base table, index %d: %d != %d", i, v, stdLuminanceQuant[i])
		}
	}
	q100 := ScaleQuantTable(stdLuminanceQuant, 100)
	for i, v := range q100 {
		if v != 1 {
			t.Fatalf("quality 100 index %d = %d, want 1", i, v)
		}
	}
	q1 := ScaleQuantTable(stdChrominanceQuant, 1)
	for i, v := range q1 {
		if v > 255 {
			t.Fatalf("quality 1 index %d = %d exceeds 8-bit precision", i, v)
		}
	}
}

func TestStandardHuffmanTables(t *testing.T) {
	for i, s := range stdHuffman {
		total := 0
		for _, c := range s.count {
			total += int(c)
		}
		if total != len(s.value) {
			t.Errorf("table %d: counts sum to %d, %d symbols listed", i, total, len(s.value))
		}
		class := uint8(0)
		if i == huffLumAC || i == huffChromAC {
			class = 1
		}
		if !isStandardTable(class, s.count, s.value) {
			t.Errorf("table %d not recognised as standard", i)
		}
	}
}
