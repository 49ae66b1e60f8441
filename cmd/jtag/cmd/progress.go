package cmd

import (
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
)

// withProgress runs f with a byte-progress counter wired up: f is expected
// to pass counter into Controller.WithNotifications around the operation it
// performs. While f runs, a terminal progress bar polls counter and renders
// it against total, unless --no-progress-bar was given.
func withProgress(total int64, desc string, f func(counter *atomic.Uint64) error) error {
	var counter atomic.Uint64

	if noProgressBar {
		return f(&counter)
	}

	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionShowBytes(true),
		progressbar.OptionClearOnFinish(),
	)
	defer bar.Finish()

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				bar.Set64(int64(counter.Load()))
			case <-done:
				bar.Set64(int64(counter.Load()))
				return
			}
		}
	}()

	return f(&counter)
}
