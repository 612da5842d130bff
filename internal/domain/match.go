package domain

// Pairing is the outcome of a successful match. Initiator is always the
// requesting connection and creates the WebRTC offer.
type Pairing struct {
	Initiator       Connection
	Responder       Connection
	CommonInterests []string
}
