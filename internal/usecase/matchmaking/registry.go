package matchmaking

import (
	"fmt"
	"time"

	"github.com/skipsee/skipsee-backend/internal/domain"
	"go.uber.org/zap"
)

// Sink delivers events to one connection. Send is called with the Service
// lock held and must never block; it returns false when the event could
// not be queued.
type Sink interface {
	Send(ev domain.Event) bool
}

type record struct {
	conn domain.Connection
	sink Sink
}

// Registry maps connection ids to their records. It is the only place that
// changes a connection's state or partner, and it keeps pool membership in
// step with the searching state. Not safe for concurrent use.
type Registry struct {
	records map[string]*record
	pool    *Pool
	logger  *zap.Logger
}

func NewRegistry(pool *Pool, logger *zap.Logger) *Registry {
	return &Registry{
		records: make(map[string]*record),
		pool:    pool,
		logger:  logger,
	}
}

// Register creates an idle connection. A second call for the same id is
// logged and ignored.
func (r *Registry) Register(id string, sink Sink, now time.Time) bool {
	if _, exists := r.records[id]; exists {
		r.logger.Warn("connection registered twice", zap.String("conn_id", id))
		return false
	}
	r.records[id] = &record{
		conn: domain.Connection{
			ID:          id,
			State:       domain.StateIdle,
			ConnectedAt: now,
		},
		sink: sink,
	}
	return true
}

func (r *Registry) Get(id string) (domain.Connection, bool) {
	rec, ok := r.records[id]
	if !ok {
		return domain.Connection{}, false
	}
	return rec.conn, true
}

func (r *Registry) Sink(id string) (Sink, bool) {
	rec, ok := r.records[id]
	if !ok {
		return nil, false
	}
	return rec.sink, true
}

func (r *Registry) SetProfile(id string, profile domain.Profile) {
	if rec, ok := r.records[id]; ok {
		rec.conn.Profile = profile
	}
}

func (r *Registry) SetIdentity(id string, identity domain.Identity) {
	if rec, ok := r.records[id]; ok {
		rec.conn.Identity = identity
	}
}

// Enqueue marks an unpaired connection as searching and adds it to the pool
// with a fresh timestamp.
func (r *Registry) Enqueue(id string, now time.Time) error {
	rec, ok := r.records[id]
	if !ok {
		return domain.ErrConnectionNotFound
	}
	if rec.conn.State == domain.StatePaired {
		return domain.ErrAlreadyPaired
	}
	r.pool.Remove(id)
	rec.conn.State = domain.StateSearching
	rec.conn.JoinedQueueAt = now
	r.pool.Add(id, now, rec.conn.Profile.IsPremium)
	return nil
}

// Dequeue takes a searching connection out of the pool and makes it idle.
// Paired and idle connections are left alone.
func (r *Registry) Dequeue(id string) bool {
	rec, ok := r.records[id]
	if !ok || rec.conn.State != domain.StateSearching {
		return false
	}
	r.pool.Remove(id)
	rec.conn.State = domain.StateIdle
	rec.conn.JoinedQueueAt = time.Time{}
	return true
}

// BindPartners pairs a and b. Both must exist, differ, and be unpaired;
// anything else is an invariant violation and leaves the registry untouched.
func (r *Registry) BindPartners(a, b string) error {
	if a == b {
		return fmt.Errorf("bind %s: %w", a, domain.ErrSelfPairing)
	}
	recA, okA := r.records[a]
	recB, okB := r.records[b]
	if !okA || !okB {
		return fmt.Errorf("bind %s with %s: %w", a, b, domain.ErrConnectionNotFound)
	}
	if recA.conn.State == domain.StatePaired || recB.conn.State == domain.StatePaired {
		return fmt.Errorf("bind %s with %s: %w", a, b, domain.ErrAlreadyPaired)
	}

	for _, rec := range []*record{recA, recB} {
		r.pool.Remove(rec.conn.ID)
		rec.conn.State = domain.StatePaired
		rec.conn.JoinedQueueAt = time.Time{}
	}
	recA.conn.PartnerID = b
	recB.conn.PartnerID = a
	return nil
}

// UnbindPartner clears both sides of id's pairing and returns the former
// partner. Safe on unpaired connections.
func (r *Registry) UnbindPartner(id string) (string, bool) {
	rec, ok := r.records[id]
	if !ok || rec.conn.State != domain.StatePaired {
		return "", false
	}
	partnerID := rec.conn.PartnerID
	rec.conn.State = domain.StateIdle
	rec.conn.PartnerID = ""

	if partner, ok := r.records[partnerID]; ok {
		if partner.conn.PartnerID == id {
			partner.conn.State = domain.StateIdle
			partner.conn.PartnerID = ""
		} else {
			r.logger.Error("asymmetric partner link on unbind",
				zap.String("conn_id", id),
				zap.String("partner_id", partnerID),
				zap.String("partner_points_to", partner.conn.PartnerID),
			)
		}
	}
	return partnerID, partnerID != ""
}

// Remove unbinds, dequeues and deletes id, returning the former partner if
// it was paired.
func (r *Registry) Remove(id string) (string, bool) {
	if _, ok := r.records[id]; !ok {
		return "", false
	}
	partnerID, paired := r.UnbindPartner(id)
	r.pool.Remove(id)
	delete(r.records, id)
	return partnerID, paired
}

func (r *Registry) Len() int {
	return len(r.records)
}

// Each calls fn for every record until fn returns false.
func (r *Registry) Each(fn func(conn domain.Connection, sink Sink) bool) {
	for _, rec := range r.records {
		if !fn(rec.conn, rec.sink) {
			return
		}
	}
}

// Counts returns the number of searching connections and of paired pairs.
func (r *Registry) Counts() (searching, pairs int) {
	paired := 0
	for _, rec := range r.records {
		switch rec.conn.State {
		case domain.StateSearching:
			searching++
		case domain.StatePaired:
			paired++
		}
	}
	return searching, paired / 2
}
