package scale

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		label   string
		want    Factor
		wantErr bool
	}{
		{"2x", 2, false},
		{"0.75x", 0.75, false},
		{"1.5", 1.5, false},
		{" 4x ", 4, false},
		{"5x", 0, true},
		{"0.6x", 0, true},
		{"big", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := Parse(tt.label)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalid) {
					t.Errorf("Expected ErrInvalid, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFactorString(t *testing.T) {
	for _, f := range Factors {
		back, err := Parse(f.String())
		if err != nil || back != f {
			t.Errorf("Label %s did not parse back to %v", f.String(), float64(f))
		}
	}
	if got := Factor(0.75).String(); got != "0.75x" {
		t.Errorf("Expected 0.75x, got %s", got)
	}
}

func TestViewportPixels(t *testing.T) {
	w, h := ViewportFor(Size{Width: 612.5, Height: 0.2}, 1).Pixels()
	if w != 612 || h != 1 {
		t.Errorf("Expected 612x1, got %dx%d", w, h)
	}
}

func TestController_RoundTripIsExact(t *testing.T) {
	// values that do not survive a multiply by new/old chain exactly
	for _, intrinsic := range []Size{{595.3, 841.9}, {612, 792}, {33.3, 0.1}} {
		c := NewController(intrinsic, 0)
		if err := c.Set(1); err != nil {
			t.Fatal(err)
		}
		first := c.Preview().Width

		for _, label := range []string{"2x", "0.75x", "3x", "1.5x", "1x"} {
			if err := c.SetLabel(label); err != nil {
				t.Fatalf("SetLabel %s: %v", label, err)
			}
		}
		if got := c.Preview().Width; got != first {
			t.Errorf("%+v: expected %v after round trip, got %v", intrinsic, first, got)
		}
	}
}

func TestController_OneTwoOne(t *testing.T) {
	c := NewController(Size{Width: 595.3, Height: 841.9}, 0)
	_ = c.Set(1)
	w1 := c.Preview().Width
	_ = c.Set(2)
	if c.Preview().Width != 595.3*2 {
		t.Errorf("Expected %v at 2x, got %v", 595.3*2, c.Preview().Width)
	}
	_ = c.Set(1)
	if c.Preview().Width != w1 {
		t.Errorf("Expected %v, got %v", w1, c.Preview().Width)
	}
}

func TestController_InvalidKeepsCurrent(t *testing.T) {
	c := NewController(Size{Width: 100, Height: 100}, 0)
	if c.Current() != Default {
		t.Errorf("Expected default %v, got %v", Default, c.Current())
	}
	if err := c.Set(2.5); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid, got %v", err)
	}
	if c.Current() != Default {
		t.Errorf("Expected current to stay %v, got %v", Default, c.Current())
	}
}

func TestController_Oversized(t *testing.T) {
	c := NewController(Size{Width: 1200, Height: 800}, 4080)
	_ = c.Set(3)
	if c.Oversized() {
		t.Error("3600 wide should be within the soft limit")
	}
	_ = c.Set(4)
	if !c.Oversized() {
		t.Error("4800 wide should be oversized")
	}
}
