package http

import (
	"encoding/json"
	"errors"
	"math/big"

	"github.com/vovakirdan/chathub/internal/compute"
	"github.com/vovakirdan/chathub/internal/core"
	"github.com/vovakirdan/chathub/internal/proto"
)

var errMissingData = errors.New("data is required")

func decodeMessage(inbound proto.Inbound) (proto.MessageData, error) {
	var msg proto.MessageData
	if len(inbound.Data) == 0 {
		return msg, errMissingData
	}
	err := json.Unmarshal(inbound.Data, &msg)
	return msg, err
}

func decodeNumber(inbound proto.Inbound) (proto.NumberData, error) {
	var num proto.NumberData
	if len(inbound.Data) == 0 {
		return num, errMissingData
	}
	err := json.Unmarshal(inbound.Data, &num)
	return num, err
}

func computeOp(inboundType string) (compute.Op, bool) {
	switch inboundType {
	case proto.InboundTypeFibonacci:
		return compute.OpFibonacci, true
	case proto.InboundTypeFactorial:
		return compute.OpFactorial, true
	default:
		return "", false
	}
}

func resultFrame(id string, data any) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeResult, ID: id, Data: data}
}

func errorFrame(id, code, msg string) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeError,
		ID:    id,
		Error: &proto.Error{Code: code, Msg: msg},
	}
}

func endFrame(id string) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeEnd, ID: id}
}

func laggedFrame(id string, skipped uint64) proto.Outbound {
	return proto.Outbound{
		Type: proto.OutboundTypeLagged,
		ID:   id,
		Data: proto.Lagged{Skipped: skipped},
	}
}

func messageFrame(id string, msg core.Message) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		ID:    id,
		Event: proto.EventMessage,
		Data:  proto.MessageEvent{User: msg.From, Text: msg.Text},
	}
}

func userFrame(id, event, name string) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		ID:    id,
		Event: event,
		Data:  proto.EventUser{User: name},
	}
}

func computeFrame(id string, n uint64, v *big.Int) proto.Outbound {
	return resultFrame(id, proto.ComputeResult{N: n, Value: v.String()})
}
