package realtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var (
	errMalformedFrame = errors.New("malformed frame")
	errMissingEvent   = errors.New("frame has no event name")
)

type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func encodeFrame(event string, payload any) ([]byte, error) {
	if payload == nil {
		payload = struct{}{}
	}
	data, err := json.Marshal(frame{Event: event, Data: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %q frame: %w", event, err)
	}
	return data, nil
}

// parseClientFrame extracts the event name of an inbound frame without
// decoding its payload.
func parseClientFrame(msg []byte) (string, error) {
	if !gjson.ValidBytes(msg) {
		return "", errMalformedFrame
	}
	event := gjson.GetBytes(msg, "event")
	if event.Type != gjson.String || event.Str == "" {
		return "", errMissingEvent
	}
	return event.Str, nil
}
