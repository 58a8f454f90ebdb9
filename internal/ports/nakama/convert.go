package nakama

import (
	"encoding/json"
	"fmt"
	"strconv"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"truco/internal/domain"
)

// Wire messages are google.protobuf.Struct values in binary protobuf form.

var opEvents = map[int64]domain.EventType{
	OpPlayCard:         domain.EventPlayCard,
	OpCallEnvido:       domain.EventCallEnvido,
	OpRaiseRealEnvido:  domain.EventRaiseRealEnvido,
	OpRaiseFaltaEnvido: domain.EventRaiseFaltaEnvido,
	OpAccept:           domain.EventAccept,
	OpDecline:          domain.EventDecline,
	OpCallTruco:        domain.EventCallTruco,
	OpRaiseRetruco:     domain.EventRaiseRetruco,
	OpRaiseValeCuatro:  domain.EventRaiseValeCuatro,
	OpForfeit:          domain.EventForfeit,
}

// toStruct converts any JSON-encodable value into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, s); err != nil {
		return nil, err
	}
	return s, nil
}

func encodeMessage(v any) ([]byte, error) {
	s, err := toStruct(v)
	if err != nil {
		return nil, fmt.Errorf("failed to build message: %w", err)
	}
	return proto.Marshal(s)
}

func decodeMessage(data []byte) (*structpb.Struct, error) {
	s := &structpb.Struct{}
	if len(data) == 0 {
		return s, nil
	}
	if err := proto.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return s, nil
}

// eventFromMessage builds the engine event for a player opcode.
func eventFromMessage(opCode int64, userID string, msg *structpb.Struct) (domain.Event, error) {
	t, ok := opEvents[opCode]
	if !ok {
		return domain.Event{}, fmt.Errorf("unknown opcode %d", opCode)
	}
	ev := domain.Event{Type: t, PlayerID: userID}
	if t != domain.EventPlayCard {
		return ev, nil
	}

	card, err := cardFromStruct(msg)
	if err != nil {
		return domain.Event{}, err
	}
	ev.Card = &card
	return ev, nil
}

// cardFromStruct accepts either {"card": "1-swords"} or {"suit": "swords", "rank": 1}.
func cardFromStruct(msg *structpb.Struct) (domain.Card, error) {
	if s := stringField(msg, "card"); s != "" {
		return domain.ParseCard(s)
	}
	fields := msg.GetFields()
	suit, ok := fields["suit"]
	if !ok {
		return domain.Card{}, fmt.Errorf("card is required")
	}
	rank, ok := fields["rank"]
	if !ok {
		return domain.Card{}, fmt.Errorf("rank is required")
	}
	return domain.ParseCard(strconv.Itoa(int(rank.GetNumberValue())) + "-" + suit.GetStringValue())
}

func intField(msg *structpb.Struct, key string) int {
	if v, ok := msg.GetFields()[key]; ok {
		return int(v.GetNumberValue())
	}
	return 0
}

func stringField(msg *structpb.Struct, key string) string {
	if v, ok := msg.GetFields()[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

// matchLabel is the searchable match label.
type matchLabel struct {
	Game       string `json:"game"`
	Open       int    `json:"open"`
	Seats      int    `json:"seats"`
	Phase      string `json:"phase"`
	ScoreLimit int    `json:"score_limit"`
	BetAmount  int64  `json:"bet_amount"`
}

func marshalLabel(l matchLabel) (string, error) {
	s, err := toStruct(l)
	if err != nil {
		return "", err
	}
	b, err := (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
