/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package bolt

import (
	"bytes"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/entitymapper/storagemodels"
	"github.com/vmihailenco/msgpack/v5"
)

// wireValue is the msgpack form of one attribute value. T holds the
// DynamoDB type descriptor and selects which other field is meaningful.
type wireValue struct {
	T    string               `msgpack:"t"`
	S    string               `msgpack:"s,omitempty"`
	B    []byte               `msgpack:"b,omitempty"`
	SS   []string             `msgpack:"ss,omitempty"`
	BS   [][]byte             `msgpack:"bs,omitempty"`
	L    []wireValue          `msgpack:"l,omitempty"`
	M    map[string]wireValue `msgpack:"m,omitempty"`
	Bool bool                 `msgpack:"bo,omitempty"`
}

// tableMeta is stored in the meta bucket under the table name.
type tableMeta struct {
	HashKey  string `msgpack:"h"`
	RangeKey string `msgpack:"r,omitempty"`
}

func toWire(av types.AttributeValue) (wireValue, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return wireValue{T: "S", S: v.Value}, nil
	case *types.AttributeValueMemberN:
		return wireValue{T: "N", S: v.Value}, nil
	case *types.AttributeValueMemberB:
		return wireValue{T: "B", B: v.Value}, nil
	case *types.AttributeValueMemberSS:
		return wireValue{T: "SS", SS: v.Value}, nil
	case *types.AttributeValueMemberNS:
		return wireValue{T: "NS", SS: v.Value}, nil
	case *types.AttributeValueMemberBS:
		return wireValue{T: "BS", BS: v.Value}, nil
	case *types.AttributeValueMemberBOOL:
		return wireValue{T: "BOOL", Bool: v.Value}, nil
	case *types.AttributeValueMemberNULL:
		return wireValue{T: "NULL"}, nil
	case *types.AttributeValueMemberL:
		out := wireValue{T: "L", L: make([]wireValue, len(v.Value))}
		for i, e := range v.Value {
			w, err := toWire(e)
			if err != nil {
				return wireValue{}, err
			}
			out.L[i] = w
		}
		return out, nil
	case *types.AttributeValueMemberM:
		out := wireValue{T: "M", M: make(map[string]wireValue, len(v.Value))}
		for k, e := range v.Value {
			w, err := toWire(e)
			if err != nil {
				return wireValue{}, err
			}
			out.M[k] = w
		}
		return out, nil
	}
	return wireValue{}, fmt.Errorf("unsupported attribute value %T", av)
}

func fromWire(w wireValue) (types.AttributeValue, error) {
	switch w.T {
	case "S":
		return &types.AttributeValueMemberS{Value: w.S}, nil
	case "N":
		return &types.AttributeValueMemberN{Value: w.S}, nil
	case "B":
		return &types.AttributeValueMemberB{Value: w.B}, nil
	case "SS":
		return &types.AttributeValueMemberSS{Value: w.SS}, nil
	case "NS":
		return &types.AttributeValueMemberNS{Value: w.SS}, nil
	case "BS":
		return &types.AttributeValueMemberBS{Value: w.BS}, nil
	case "BOOL":
		return &types.AttributeValueMemberBOOL{Value: w.Bool}, nil
	case "NULL":
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case "L":
		out := make([]types.AttributeValue, len(w.L))
		for i, e := range w.L {
			av, err := fromWire(e)
			if err != nil {
				return nil, err
			}
			out[i] = av
		}
		return &types.AttributeValueMemberL{Value: out}, nil
	case "M":
		out := make(map[string]types.AttributeValue, len(w.M))
		for k, e := range w.M {
			av, err := fromWire(e)
			if err != nil {
				return nil, err
			}
			out[k] = av
		}
		return &types.AttributeValueMemberM{Value: out}, nil
	}
	return nil, fmt.Errorf("unknown stored type %q", w.T)
}

func encodeItem(item storagemodels.Payload) ([]byte, error) {
	wire := make(map[string]wireValue, len(item))
	for k, av := range item {
		w, err := toWire(av)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		wire[k] = w
	}
	return marshal(wire)
}

func decodeItem(buf []byte) (storagemodels.Payload, error) {
	var wire map[string]wireValue
	if err := msgpack.Unmarshal(buf, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode stored item: %w", err)
	}
	item := make(storagemodels.Payload, len(wire))
	for k, w := range wire {
		av, err := fromWire(w)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		item[k] = av
	}
	return item, nil
}

// marshal encodes with sorted map keys so equal items have equal bytes.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.GetEncoder()
	defer msgpack.PutEncoder(enc)
	enc.Reset(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
