package orbit

import "testing"

func TestCursorWrapsAfterEnd(t *testing.T) {
	c := Cursor{Start: 1, End: 5, Current: 5}

	if got := c.Advance(); got != 6 {
		t.Fatalf("expected advance to 6, got %d", got)
	}
	if !c.Wrap() {
		t.Fatal("expected wrap past end frame")
	}
	if c.Current != 1 {
		t.Errorf("expected cursor back at start frame 1, got %d", c.Current)
	}
}

func TestCursorStaysInsideRange(t *testing.T) {
	c := Cursor{Start: 1, End: 5, Current: 3}

	c.Advance()
	if c.Wrap() {
		t.Fatal("did not expect a wrap inside the range")
	}

	c.Advance()
	if c.Wrap() {
		t.Fatal("did not expect a wrap on the end frame itself")
	}
	if c.Current != 5 {
		t.Errorf("expected cursor at 5, got %d", c.Current)
	}
}
