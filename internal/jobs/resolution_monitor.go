package jobs

import (
	"context"
	"log"
	"time"

	"solrem-markets/internal/repository"
)

// ResolutionMonitor periodically flags active markets that have passed
// their deadline and are waiting on their creator to resolve. Resolution
// authority belongs to the creator alone, so the job only surfaces the
// backlog; it never resolves on anyone's behalf.
type ResolutionMonitor struct {
	repo     *repository.Repository
	interval time.Duration
	stopChan chan struct{}
}

// NewResolutionMonitor creates a new resolution monitor job
func NewResolutionMonitor(repo *repository.Repository, interval time.Duration) *ResolutionMonitor {
	return &ResolutionMonitor{
		repo:     repo,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the monitoring loop
func (rm *ResolutionMonitor) Start() {
	log.Printf("[ResolutionMonitor] Starting (interval: %v)", rm.interval)

	ticker := time.NewTicker(rm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rm.checkExpiredMarkets()
		case <-rm.stopChan:
			log.Println("[ResolutionMonitor] Stopping")
			return
		}
	}
}

// Stop stops the monitoring loop
func (rm *ResolutionMonitor) Stop() {
	close(rm.stopChan)
}

func (rm *ResolutionMonitor) checkExpiredMarkets() {
	ctx := context.Background()

	markets, err := rm.repo.ListExpiredActiveMarkets(ctx, time.Now(), 100)
	if err != nil {
		log.Printf("[ResolutionMonitor] Error listing expired markets: %v", err)
		return
	}

	if len(markets) == 0 {
		return
	}

	for _, market := range markets {
		log.Printf("[ResolutionMonitor] Market %d awaiting resolution by %s (expired %s, pool=%d)",
			market.MarketID, market.Creator, market.EndTime.Format(time.RFC3339), market.TotalPool)
	}

	log.Printf("[ResolutionMonitor] %d markets awaiting resolution", len(markets))
}
