package jtag

import "sync/atomic"

// WithNotifications installs counter as the destination for byte-progress
// notifications for the duration of f, then restores whatever was installed
// before. Only one counter can be active at a time; nesting replaces and then
// restores the outer one, matching controller.rs's with_notifications scope
// discipline (there implemented with a raw back-reference because Rust's
// borrow checker cannot otherwise express "valid only for this call";
// Go's GC makes that hazard moot, so a plain field swap under defer suffices
// here).
func (c *Controller) WithNotifications(counter *atomic.Uint64, f func()) {
	prev := c.progress
	c.progress = counter
	defer func() { c.progress = prev }()
	f()
}

func (c *Controller) notify(n int) {
	if c.progress != nil {
		c.progress.Add(uint64(n))
	}
}
