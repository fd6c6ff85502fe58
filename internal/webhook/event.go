package webhook

import (
	"encoding/json"
	"strings"

	"rental/internal/domain"
	"rental/internal/processor"

	"github.com/omise/omise-go"
)

const (
	KeyChargeComplete  = "charge.complete"
	KeyChargeSucceeded = "charge.succeeded"
	KeyChargeFailed    = "charge.failed"
)

// Event is a decoded processor notification. Charge is set only for charge events.
type Event struct {
	ID     string
	Key    string
	Charge *processor.Charge
}

type incomingEvent struct {
	ID   string          `json:"id"`
	Key  string          `json:"key"`
	Data json.RawMessage `json:"data"`
}

// Parse decodes a verified notification body.
func Parse(raw []byte) (Event, error) {
	var inc incomingEvent
	if err := json.Unmarshal(raw, &inc); err != nil {
		return Event{}, domain.ValidationError{Field: "body", Msg: "invalid event payload", Err: err}
	}
	evt := Event{ID: inc.ID, Key: strings.TrimSpace(inc.Key)}

	switch evt.Key {
	case KeyChargeComplete, KeyChargeSucceeded, KeyChargeFailed:
	default:
		return evt, nil
	}
	if len(inc.Data) == 0 {
		return Event{}, domain.ValidationError{Field: "data", Msg: "charge missing"}
	}
	var ch omise.Charge
	if err := json.Unmarshal(inc.Data, &ch); err != nil {
		return Event{}, domain.ValidationError{Field: "data", Msg: "invalid charge", Err: err}
	}
	c := processor.FromOmiseCharge(ch)
	// charge.succeeded/charge.failed may omit status; the key decides.
	if c.Status == processor.ChargePending {
		switch evt.Key {
		case KeyChargeSucceeded:
			c.Status = processor.ChargeSuccessful
		case KeyChargeFailed:
			c.Status = processor.ChargeFailed
		}
	}
	evt.Charge = &c
	return evt, nil
}
