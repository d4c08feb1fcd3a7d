/*
watcher.go - Effective-date watcher

PURPOSE:
  The simulation is computed once for every future date, so nothing has to
  be "processed" when a retirement date arrives. The watcher only announces
  it: when the calendar day advances, it logs every retirement and promotion
  of the current run that took effect since the previous check.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Remembers the last day it reported; each check covers (last, today]
  - Reads the handler's cached run, so it sees roster edits as they happen
  - A run that cannot be built (configuration error) is logged and skipped

USAGE:
  watcher := NewEffectiveDateWatcher(handler)
  watcher.Start()
  // ... later
  watcher.Stop()

SEE ALSO:
  - handlers.go: Handler.Simulation
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/promotion-engine/promotion"
)

// EffectivePromotion is a ledger entry that reached its date.
type EffectivePromotion struct {
	MemberID promotion.MemberID
	promotion.PromotionRecord
}

// EffectiveDateWatcher logs retirements and promotions as their dates arrive.
type EffectiveDateWatcher struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	checkMu sync.Mutex
	last    promotion.Date
}

// NewEffectiveDateWatcher creates a watcher that first reports today.
func NewEffectiveDateWatcher(handler *Handler) *EffectiveDateWatcher {
	return &EffectiveDateWatcher{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		last:          handler.Today().AddDays(-1),
	}
}

// Start begins the watcher.
func (ew *EffectiveDateWatcher) Start() {
	ew.mu.Lock()
	defer ew.mu.Unlock()

	if !ew.Enabled {
		ew.Handler.Logger.Info("effective-date watcher disabled")
		return
	}
	if ew.ticker != nil {
		return
	}

	ew.ticker = time.NewTicker(ew.CheckInterval)
	ew.stop = make(chan struct{})
	ew.wg.Add(1)

	go ew.run()

	ew.Handler.Logger.Info("effective-date watcher started", "interval", ew.CheckInterval)
}

// Stop stops the watcher and waits for an in-flight check.
func (ew *EffectiveDateWatcher) Stop() {
	ew.mu.Lock()
	defer ew.mu.Unlock()

	if ew.ticker != nil {
		ew.ticker.Stop()
		close(ew.stop)
		ew.wg.Wait()
		ew.ticker = nil
		ew.Handler.Logger.Info("effective-date watcher stopped")
	}
}

func (ew *EffectiveDateWatcher) run() {
	defer ew.wg.Done()

	// Run immediately on start
	ew.RunNow()

	for {
		select {
		case <-ew.ticker.C:
			ew.RunNow()
		case <-ew.stop:
			return
		}
	}
}

// RunNow checks immediately and returns what took effect.
func (ew *EffectiveDateWatcher) RunNow() []EffectivePromotion {
	return ew.check(ew.Handler.Today())
}

func (ew *EffectiveDateWatcher) check(today promotion.Date) []EffectivePromotion {
	ew.checkMu.Lock()
	defer ew.checkMu.Unlock()

	if !today.After(ew.last) {
		return nil
	}

	res, err := ew.Handler.Simulation(context.Background())
	if err != nil {
		ew.Handler.Logger.Warn("effective-date check skipped", "error", err)
		return nil
	}

	from := ew.last
	inWindow := func(d promotion.Date) bool { return d.After(from) && d.BeforeOrEqual(today) }

	for _, ev := range res.Events() {
		if inWindow(ev.Date) {
			ew.Handler.Logger.Info("retirement effective", "member", ev.Member, "date", ev.Date.String())
		}
	}

	var out []EffectivePromotion
	for _, id := range res.Ledger().Members() {
		for _, rec := range res.Ledger().Entries(id) {
			if !inWindow(rec.Date) {
				continue
			}
			out = append(out, EffectivePromotion{MemberID: id, PromotionRecord: rec})
			ew.Handler.Logger.Info("promotion effective",
				"member", id,
				"rank", rec.NewRank,
				"date", rec.Date.String(),
				"cause", rec.CauseID,
			)
		}
	}

	ew.last = today
	return out
}
