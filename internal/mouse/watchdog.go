package mouse

import "time"

// watchdog restores the cursor when capture is wanted, the cursor is hidden
// and the frame loop has stopped polling. It reads only atomics; racing a
// poll at worst produces one extra show, which the next poll undoes.
func (e *Engine) watchdog() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.watchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			e.checkStall()
		}
	}
}

// checkStall runs one watchdog sample.
func (e *Engine) checkStall() {
	if !e.cursorHidden.Load() || !e.enabled.Load() {
		return
	}

	last := e.lastPollMs.Load()
	if last == 0 {
		return
	}
	age := time.Duration(e.now().UnixMilli()-last) * time.Millisecond
	if age <= StallThreshold {
		return
	}

	if !e.cursorHidden.CompareAndSwap(true, false) {
		return
	}
	e.captured.Store(false)

	if err := e.backend.ShowCursor(); err != nil {
		e.log.Debug("Watchdog cursor show failed", "error", err)
	}
	if w := Window(e.focus.Load()); w != 0 {
		if err := e.backend.RestoreCursor(w); err != nil {
			e.log.Debug("Watchdog cursor image restore failed", "error", err)
		}
	}

	e.metrics.rescued()
	e.log.Warn("Frame loop stalled, cursor restored", "sinceLastPoll", age)
}
