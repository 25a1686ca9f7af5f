package orbit

// Cursor is a snapshot of the host animation frame counter and its range.
type Cursor struct {
	Start   int
	End     int
	Current int
}

// Advance moves the cursor one frame forward and returns the new frame.
// It never wraps on its own.
func (c *Cursor) Advance() int {
	c.Current++
	return c.Current
}

// Wrap resets the cursor to Start once it has moved past End. The threshold
// is strictly greater than End, so End+1 is observable for one render.
func (c *Cursor) Wrap() bool {
	if c.Current > c.End {
		c.Current = c.Start
		return true
	}
	return false
}
