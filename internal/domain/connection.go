package domain

import "time"

type ConnectionState string

const (
	StateIdle      ConnectionState = "idle"
	StateSearching ConnectionState = "searching"
	StatePaired    ConnectionState = "paired"
)

// Identity is what a client told us about itself on join. Only UserID,
// Country and the premium / blocklist data loaded from the user directory
// affect matching; the rest is passed through to the partner for display.
type Identity struct {
	UserID      string
	DisplayName string
	Country     string
	Flag        string
	Gender      Gender
	IsPremium   bool
	BlockedIDs  []string
}

// Connection is a copy of one live connection's registry record.
type Connection struct {
	ID            string
	Identity      Identity
	Profile       Profile
	State         ConnectionState
	PartnerID     string
	JoinedQueueAt time.Time
	ConnectedAt   time.Time
}

func (c *Connection) IsPaired() bool {
	return c.State == StatePaired
}

// SubjectID is the key usage limits are counted against: the persistent
// user id when known, else the connection id.
func (c *Connection) SubjectID() string {
	if c.Identity.UserID != "" {
		return c.Identity.UserID
	}
	return c.ID
}
