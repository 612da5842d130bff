package ws

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/skipsee/skipsee-backend/internal/domain"
)

// frame is the envelope of every message in both directions.
type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

var errMissingType = errors.New("frame has no type")

func decodeFrame(data []byte) (frame, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return frame{}, fmt.Errorf("malformed frame: %w", err)
	}
	if f.Type == "" {
		return frame{}, errMissingType
	}
	return f, nil
}

// encodeEvent writes the envelope by hand so a relayed payload reaches the
// partner exactly as the sender wrote it. json.Marshal would compact it.
func encodeEvent(ev domain.Event) ([]byte, error) {
	name, err := json.Marshal(ev.WireName())
	if err != nil {
		return nil, err
	}

	var payload []byte
	if raw, ok := ev.RawPayload(); ok {
		payload = raw
	} else if ev.Payload != nil {
		payload, err = json.Marshal(ev.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", ev.WireName(), err)
		}
	}

	var buf bytes.Buffer
	buf.Grow(len(name) + len(payload) + 24)
	buf.WriteString(`{"type":`)
	buf.Write(name)
	if len(payload) > 0 {
		buf.WriteString(`,"payload":`)
		buf.Write(payload)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
