package analytics

import (
	"math/big"
	"sync"
	"time"

	"cognishare/agent/internal/chain"
	"cognishare/agent/internal/payments"
)

// TimelineEntry is one point of the session-local citation timeline.
// Counters are cumulative at the time of the batch. The timeline is
// process-local and approximate: it also counts simulated and
// direct-transfer activity the chain never saw, and it resets on restart.
type TimelineEntry struct {
	Timestamp time.Time `json:"timestamp"`
	QueryID   string    `json:"queryId"`
	Citations uint64    `json:"citationCount"`
	PaidWei   string    `json:"amountPaidWei"`
	PaidCRO   float64   `json:"amountPaidCro"`
	Mode      string    `json:"mode"`
}

// AuthorTotals accumulates session-observed earnings per wallet.
type AuthorTotals struct {
	EarningsWei *big.Int
	Citations   uint64
}

// Session owns all mutable session state: the citation timeline, the
// per-author earnings cache and the service-fee bucket. It is handed by
// reference to whichever component appends entries; there is no ambient
// global.
type Session struct {
	mu           sync.Mutex
	started      time.Time
	citations    uint64
	paid         *big.Int
	serviceCalls uint64
	serviceFees  *big.Int
	timeline     []TimelineEntry
	authors      map[string]*AuthorTotals
	lastMode     payments.Mode
	lastOutcome  string
}

func NewSession() *Session {
	return &Session{
		started:     time.Now().UTC(),
		paid:        big.NewInt(0),
		serviceFees: big.NewInt(0),
		authors:     map[string]*AuthorTotals{},
	}
}

// ObservePayment folds one finished batch into the session. Citation batches
// extend the timeline and the author cache; service-fee batches only move
// their own bucket so the two never mix in the displayed totals.
func (s *Session) ObservePayment(summary payments.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastMode = summary.Mode
	s.lastOutcome = outcomeOf(summary)

	if summary.Kind == payments.KindService {
		s.serviceCalls++
		if summary.TotalPaid != nil {
			s.serviceFees.Add(s.serviceFees, summary.TotalPaid)
		}
		return
	}

	for _, result := range summary.Results {
		if result.Wallet == "" {
			continue
		}
		totals, ok := s.authors[result.Wallet]
		if !ok {
			totals = &AuthorTotals{EarningsWei: big.NewInt(0)}
			s.authors[result.Wallet] = totals
		}
		if result.OK {
			totals.EarningsWei.Add(totals.EarningsWei, result.Amount)
			totals.Citations++
		}
	}

	s.citations += uint64(summary.PaidCount())
	if summary.TotalPaid != nil {
		s.paid.Add(s.paid, summary.TotalPaid)
	}
	s.timeline = append(s.timeline, TimelineEntry{
		Timestamp: summary.Timestamp,
		QueryID:   summary.QueryID,
		Citations: s.citations,
		PaidWei:   s.paid.String(),
		PaidCRO:   chain.WeiToCRO(s.paid),
		Mode:      string(summary.Mode),
	})
}

func outcomeOf(summary payments.Summary) string {
	switch {
	case summary.AnyUncertain && !summary.AnyFailures:
		return "uncertain"
	case summary.AnyFailures && summary.PaidCount() > 0:
		return "partial"
	case summary.AnyFailures:
		return "failed"
	default:
		return "ok"
	}
}

// Totals returns the cumulative session citation count and paid amount.
func (s *Session) Totals() (uint64, *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.citations, new(big.Int).Set(s.paid)
}

// ServiceBucket returns the cumulative service-fee call count and amount,
// kept apart from citation totals.
func (s *Session) ServiceBucket() (uint64, *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serviceCalls, new(big.Int).Set(s.serviceFees)
}

// Timeline returns a copy of the appended entries, oldest first.
func (s *Session) Timeline() []TimelineEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TimelineEntry, len(s.timeline))
	copy(out, s.timeline)
	return out
}

// Authors returns a copy of the per-wallet session earnings cache. Wallets
// whose every leg failed appear with zero earnings; they were still seen
// this session and are worth an on-chain lookup.
func (s *Session) Authors() map[string]AuthorTotals {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]AuthorTotals, len(s.authors))
	for wallet, totals := range s.authors {
		out[wallet] = AuthorTotals{
			EarningsWei: new(big.Int).Set(totals.EarningsWei),
			Citations:   totals.Citations,
		}
	}
	return out
}

// LastActivity reports the mode and outcome of the most recent batch.
func (s *Session) LastActivity() (payments.Mode, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastMode, s.lastOutcome
}

// StartedAt reports when the session began.
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}
