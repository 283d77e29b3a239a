package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// TimeLayout is the layout graphene nodes use for block timestamps. Timestamps carry no zone and are UTC.
const TimeLayout = "2006-01-02T15:04:05"

// DateLayout is the calendar-day layout used for aggregation rows.
const DateLayout = "2006-01-02"

type Time struct {
	time.Time
}

func NewTime(t time.Time) Time {
	return Time{Time: t.UTC()}
}

func (t *Time) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := time.ParseInLocation(TimeLayout, raw, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	t.Time = parsed
	return nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(TimeLayout))
}

// Date truncates the timestamp to its UTC calendar day.
func (t Time) Date() time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Amount is a share quantity in the asset's smallest unit. Nodes emit it either as a
// JSON number or, for large values, as a quoted string.
type Amount int64

// ErrNegativeAmount is returned for amounts below zero, which no fee can carry.
var ErrNegativeAmount = errors.New("negative amount")

func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := data
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		raw = data[1 : len(data)-1]
	}
	v, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %s: %w", data, err)
	}
	if v < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeAmount, v)
	}
	*a = Amount(v)
	return nil
}

type Fee struct {
	Amount  Amount `json:"amount"`
	AssetID string `json:"asset_id"`
}

// Operation is a graphene static_variant, encoded on the wire as [type_id, payload].
type Operation struct {
	Type    int
	Fee     *Fee
	Payload json.RawMessage
}

type operationPayload struct {
	Fee *Fee `json:"fee"`
}

func (o *Operation) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("operation must be a [type, payload] pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("operation must be a [type, payload] pair, got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &o.Type); err != nil {
		return fmt.Errorf("invalid operation type: %w", err)
	}

	var payload operationPayload
	if err := json.Unmarshal(pair[1], &payload); err != nil {
		return fmt.Errorf("invalid payload for operation type %d: %w", o.Type, err)
	}
	o.Fee = payload.Fee
	o.Payload = pair[1]
	return nil
}

func (o Operation) MarshalJSON() ([]byte, error) {
	payload := o.Payload
	if len(payload) == 0 {
		p, err := json.Marshal(operationPayload{Fee: o.Fee})
		if err != nil {
			return nil, err
		}
		payload = p
	}
	return json.Marshal([]any{o.Type, payload})
}

type Transaction struct {
	Operations []Operation `json:"operations"`
}

type BlockHeader struct {
	Previous  string `json:"previous"`
	Timestamp Time   `json:"timestamp"`
	Witness   string `json:"witness"`
}

type Block struct {
	Height       int64         `json:"block_num,omitempty"`
	Previous     string        `json:"previous"`
	Timestamp    Time          `json:"timestamp"`
	Witness      string        `json:"witness"`
	Transactions []Transaction `json:"transactions"`
}

// DynamicGlobalProperties is the subset of 2.1.0 the indexer relies on.
type DynamicGlobalProperties struct {
	HeadBlockNumber          int64 `json:"head_block_number"`
	Time                     Time  `json:"time"`
	LastIrreversibleBlockNum int64 `json:"last_irreversible_block_num"`
}
