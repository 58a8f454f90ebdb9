package nakama

import (
	"testing"

	"google.golang.org/protobuf/types/known/structpb"

	"truco/internal/domain"
)

func TestEventFromMessage(t *testing.T) {
	tests := []struct {
		name    string
		opCode  int64
		fields  map[string]interface{}
		want    domain.Event
		wantErr bool
	}{
		{
			name:   "card string",
			opCode: OpPlayCard,
			fields: map[string]interface{}{"card": "1-swords"},
			want:   domain.Event{Type: domain.EventPlayCard, PlayerID: "u1", Card: &domain.Card{Suit: domain.SuitSwords, Rank: 1}},
		},
		{
			name:   "suit and rank",
			opCode: OpPlayCard,
			fields: map[string]interface{}{"suit": "coins", "rank": 7},
			want:   domain.Event{Type: domain.EventPlayCard, PlayerID: "u1", Card: &domain.Card{Suit: domain.SuitCoins, Rank: 7}},
		},
		{
			name:   "bid ignores body",
			opCode: OpRaiseRetruco,
			fields: map[string]interface{}{"card": "junk"},
			want:   domain.Event{Type: domain.EventRaiseRetruco, PlayerID: "u1"},
		},
		{name: "missing card", opCode: OpPlayCard, fields: nil, wantErr: true},
		{name: "card not a string", opCode: OpPlayCard, fields: map[string]interface{}{"card": 5}, wantErr: true},
		{name: "card not in deck", opCode: OpPlayCard, fields: map[string]interface{}{"card": "9-cups"}, wantErr: true},
		{name: "unknown opcode", opCode: OpStartGame, fields: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := structpb.NewStruct(tt.fields)
			if err != nil {
				t.Fatalf("NewStruct: %v", err)
			}
			got, err := eventFromMessage(tt.opCode, "u1", msg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("eventFromMessage error: %v", err)
			}
			if got.Type != tt.want.Type || got.PlayerID != tt.want.PlayerID {
				t.Fatalf("event = %+v, want %+v", got, tt.want)
			}
			if (got.Card == nil) != (tt.want.Card == nil) || (got.Card != nil && *got.Card != *tt.want.Card) {
				t.Fatalf("card = %v, want %v", got.Card, tt.want.Card)
			}
		})
	}
}

func TestEncodeDecodeMessage(t *testing.T) {
	data, err := encodeMessage(map[string]interface{}{"code": 400, "message": "nope"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	msg, err := decodeMessage(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if intField(msg, "code") != 400 || stringField(msg, "message") != "nope" {
		t.Fatalf("decoded = %v", msg)
	}
	if _, err := decodeMessage([]byte{0xff, 0xff}); err == nil {
		t.Fatalf("expected error for garbage bytes")
	}
}
