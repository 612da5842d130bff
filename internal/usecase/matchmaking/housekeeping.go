package matchmaking

import (
	"context"
	"time"

	"github.com/skipsee/skipsee-backend/internal/domain"
	"go.uber.org/zap"
)

// Repair describes one inconsistency fixed by Registry.Repair.
type Repair struct {
	ConnID string
	Issue  string
	// Orphaned is set when ConnID lost its partner and should be told so.
	Orphaned bool
}

// Repair checks partner symmetry and pool membership for every record and
// fixes what it finds. It returns an empty slice on a consistent registry.
func (r *Registry) Repair(now time.Time) []Repair {
	var repairs []Repair

	for id, rec := range r.records {
		conn := &rec.conn
		switch conn.State {
		case domain.StatePaired:
			partner, ok := r.records[conn.PartnerID]
			switch {
			case conn.PartnerID == "":
				repairs = append(repairs, Repair{ConnID: id, Issue: "paired without partner"})
			case !ok:
				repairs = append(repairs, Repair{ConnID: id, Issue: "dangling partner", Orphaned: true})
			case partner.conn.PartnerID != id || partner.conn.State != domain.StatePaired:
				repairs = append(repairs, Repair{ConnID: id, Issue: "asymmetric partner", Orphaned: true})
			default:
				if r.pool.Contains(id) {
					r.pool.Remove(id)
					repairs = append(repairs, Repair{ConnID: id, Issue: "paired connection in pool"})
				}
				continue
			}
			conn.State = domain.StateIdle
			conn.PartnerID = ""
			r.pool.Remove(id)

		case domain.StateSearching:
			if conn.PartnerID != "" {
				conn.PartnerID = ""
				repairs = append(repairs, Repair{ConnID: id, Issue: "searching with partner"})
			}
			if !r.pool.Contains(id) {
				if conn.JoinedQueueAt.IsZero() {
					conn.JoinedQueueAt = now
				}
				r.pool.Add(id, conn.JoinedQueueAt, conn.Profile.IsPremium)
				repairs = append(repairs, Repair{ConnID: id, Issue: "searching but not pooled"})
			}

		default:
			if conn.PartnerID != "" {
				conn.PartnerID = ""
				repairs = append(repairs, Repair{ConnID: id, Issue: "idle with partner"})
			}
			if r.pool.Contains(id) {
				r.pool.Remove(id)
				repairs = append(repairs, Repair{ConnID: id, Issue: "idle but pooled"})
			}
		}
	}

	for entry := range r.pool.Candidates("", false) {
		if _, ok := r.records[entry.ID]; !ok {
			r.pool.Remove(entry.ID)
			repairs = append(repairs, Repair{ConnID: entry.ID, Issue: "pooled but unregistered"})
		}
	}
	return repairs
}

// Housekeep repairs the registry, notifies connections that lost their
// partner, refreshes gauges and re-broadcasts the online count.
func (s *Service) Housekeep() []Repair {
	s.mu.Lock()
	repairs := s.registry.Repair(s.now())
	for _, rp := range repairs {
		s.logger.Error("registry inconsistency repaired",
			zap.String("conn_id", rp.ConnID),
			zap.String("issue", rp.Issue),
		)
		if rp.Orphaned {
			s.notifyLocked(rp.ConnID, domain.Event{Type: domain.EventPartnerDisconnected})
		}
	}
	if len(repairs) > 0 {
		s.metrics.Repaired(len(repairs))
	}
	s.refreshGaugesLocked()
	s.mu.Unlock()

	s.BroadcastOnlineCount()
	return repairs
}

// Run calls Housekeep every interval until ctx is done.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Housekeep()
		}
	}
}
