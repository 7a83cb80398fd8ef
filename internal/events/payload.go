package events

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Event types carried in the "type" field of every payload.
const (
	TypeBillPublished   = "bill_published"
	TypeBillItemAdded   = "bill_item_added"
	TypePaymentRecorded = "payment_recorded"
	TypeMemberJoined    = "member_joined"
)

// Encode renders fields as a JSON object payload. Values must be
// JSON-compatible (see structpb.NewValue); numbers become JSON numbers.
func Encode(eventType string, fields map[string]any) (string, error) {
	obj := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		obj[k] = v
	}
	obj["type"] = eventType

	st, err := structpb.NewStruct(obj)
	if err != nil {
		return "", fmt.Errorf("encode %s event: %w", eventType, err)
	}
	b, err := protojson.Marshal(st)
	if err != nil {
		return "", fmt.Errorf("encode %s event: %w", eventType, err)
	}
	return string(b), nil
}

// Decode parses a payload produced by Encode.
func Decode(payload string) (map[string]any, error) {
	var st structpb.Struct
	if err := protojson.Unmarshal([]byte(payload), &st); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return st.AsMap(), nil
}
