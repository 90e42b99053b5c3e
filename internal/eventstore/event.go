package eventstore

import (
	"encoding/json"
	"time"
)

// Record is one entry of the build log. Seq is assigned by the store and
// orders records within the log.
type Record struct {
	Seq     int64
	BuildID string
	Type    string
	At      time.Time
	Payload json.RawMessage
}

// Decode unmarshals the payload into v.
func (r *Record) Decode(v any) error {
	if len(r.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(r.Payload, v)
}
