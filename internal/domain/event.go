package domain

import "encoding/json"

type EventType string

// Client -> server
const (
	EventJoin        EventType = "join"
	EventStartSearch EventType = "start-search"
	EventStopSearch  EventType = "stop-search"
	EventSkip        EventType = "skip"
)

// Relayed in both directions
const (
	EventOffer        EventType = "offer"
	EventAnswer       EventType = "answer"
	EventICECandidate EventType = "ice-candidate"
	EventSignal       EventType = "signal"
	EventChatMessage  EventType = "chat-message"
)

// Server -> client
const (
	EventMatchFound          EventType = "match-found"
	EventSearching           EventType = "searching"
	EventPartnerDisconnected EventType = "partner-disconnected"
	EventOnlineCount         EventType = "online-count"
	EventLimitReached        EventType = "error-limit-reached"
	EventError               EventType = "error"
)

var eventAliases = map[string]EventType{
	"join":          EventJoin,
	"join_user":     EventJoin,
	"identify":      EventJoin,
	"start-search":  EventStartSearch,
	"find_partner":  EventStartSearch,
	"stop-search":   EventStopSearch,
	"skip":          EventSkip,
	"next":          EventSkip,
	"offer":         EventOffer,
	"answer":        EventAnswer,
	"ice-candidate": EventICECandidate,
	"signal":        EventSignal,
	"chat-message":  EventChatMessage,
	"message":       EventChatMessage,
	"chat_message":  EventChatMessage,
}

// ParseEventType maps a wire event name, including legacy aliases, to its
// canonical type.
func ParseEventType(name string) (EventType, bool) {
	t, ok := eventAliases[name]
	return t, ok
}

// IsRelayed reports whether events of this type are forwarded verbatim to
// the current partner.
func (t EventType) IsRelayed() bool {
	switch t {
	case EventOffer, EventAnswer, EventICECandidate, EventSignal, EventChatMessage:
		return true
	}
	return false
}

// Event is one message to a client. Name overrides Type on the wire, which
// relayed events use to keep the sender's event name. A json.RawMessage
// Payload is written byte for byte.
type Event struct {
	Type    EventType
	Name    string
	Payload any
}

func (e Event) WireName() string {
	if e.Name != "" {
		return e.Name
	}
	return string(e.Type)
}

// RawPayload returns the payload when it is an unparsed relay payload.
func (e Event) RawPayload() (json.RawMessage, bool) {
	raw, ok := e.Payload.(json.RawMessage)
	return raw, ok
}

type MatchFoundPayload struct {
	Initiator       bool     `json:"initiator"`
	PartnerID       string   `json:"partnerId"`
	PartnerCountry  string   `json:"partnerCountry"`
	PartnerGender   Gender   `json:"partnerGender"`
	PartnerPremium  bool     `json:"partnerPremium"`
	PartnerName     string   `json:"partnerName,omitempty"`
	PartnerFlag     string   `json:"partnerFlag,omitempty"`
	CommonInterests []string `json:"commonInterests"`
}

type SearchingPayload struct {
	Preference         Preference `json:"preference"`
	Premium            bool       `json:"premium"`
	FreeFilterUsesLeft int        `json:"freeFilterUsesLeft"`
}

type LimitReachedPayload struct {
	Limit int `json:"limit"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
