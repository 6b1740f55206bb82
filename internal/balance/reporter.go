// Package balance takes scheduled portfolio snapshots and announces
// them for notification and audit.
package balance

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"signalgate/internal/events"
	"signalgate/pkg/alor"
	"signalgate/pkg/db"
)

// SummaryClient fetches the portfolio summary from the broker.
type SummaryClient interface {
	GetSummary(ctx context.Context) (alor.Summary, error)
}

// Reporter publishes portfolio snapshots at fixed wall-clock times.
type Reporter struct {
	client SummaryClient
	bus    *events.Bus
	store  *db.Database // optional
	times  []reportTime
	loc    *time.Location
	now    func() time.Time
}

type reportTime struct {
	hour, minute int
}

// NewReporter creates a reporter. Times are "HH:MM" strings interpreted
// in the given location (the exchange's local time).
func NewReporter(client SummaryClient, bus *events.Bus, store *db.Database, times []string, loc *time.Location) (*Reporter, error) {
	if loc == nil {
		loc = time.Local
	}
	parsed := make([]reportTime, 0, len(times))
	for _, s := range times {
		var h, m int
		if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil || h < 0 || h > 23 || m < 0 || m > 59 {
			return nil, fmt.Errorf("invalid report time %q, expected HH:MM", s)
		}
		parsed = append(parsed, reportTime{hour: h, minute: m})
	}
	sort.Slice(parsed, func(i, j int) bool {
		if parsed[i].hour != parsed[j].hour {
			return parsed[i].hour < parsed[j].hour
		}
		return parsed[i].minute < parsed[j].minute
	})
	return &Reporter{
		client: client,
		bus:    bus,
		store:  store,
		times:  parsed,
		loc:    loc,
		now:    time.Now,
	}, nil
}

// Start runs the schedule until the context is cancelled.
func (r *Reporter) Start(ctx context.Context) {
	if r.client == nil || len(r.times) == 0 {
		log.Println("balance: reporter not configured, scheduled reports disabled")
		return
	}
	go func() {
		for {
			next := r.nextAfter(r.now())
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				if _, err := r.Report(ctx); err != nil {
					log.Printf("balance: scheduled report failed: %v", err)
				}
			}
		}
	}()
}

// nextAfter returns the first scheduled instant strictly after now.
func (r *Reporter) nextAfter(now time.Time) time.Time {
	local := now.In(r.loc)
	for _, rt := range r.times {
		candidate := time.Date(local.Year(), local.Month(), local.Day(), rt.hour, rt.minute, 0, 0, r.loc)
		if candidate.After(local) {
			return candidate
		}
	}
	// All of today's slots have passed; take the first one tomorrow.
	first := r.times[0]
	tomorrow := local.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), first.hour, first.minute, 0, 0, r.loc)
}

// Report takes one snapshot immediately. Also used by the manual
// balance check endpoint.
func (r *Reporter) Report(ctx context.Context) (alor.Summary, error) {
	summary, err := r.client.GetSummary(ctx)
	if err != nil {
		return alor.Summary{}, fmt.Errorf("fetch portfolio summary: %w", err)
	}

	log.Printf("balance: portfolio %s evaluation %.2f buying power %.2f profit %+.2f",
		summary.Portfolio, summary.PortfolioValue, summary.BuyingPower, summary.Profit)

	if r.bus != nil {
		r.bus.Publish(events.TopicBalance, events.BalanceReport{
			Portfolio: summary.Portfolio,
			Balance:   summary.PortfolioValue,
			Timestamp: r.now().UTC(),
		})
	}
	if r.store != nil {
		err := r.store.InsertBalanceReport(ctx, db.BalanceReport{
			ID:          uuid.NewString(),
			Portfolio:   summary.Portfolio,
			Evaluation:  summary.PortfolioValue,
			BuyingPower: summary.BuyingPower,
			Profit:      summary.Profit,
			CreatedAt:   r.now().UTC(),
		})
		if err != nil {
			log.Printf("balance: persist report: %v", err)
		}
	}
	return summary, nil
}
