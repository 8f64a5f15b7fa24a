package msgs

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/protobuf/jsonpb"
	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"

	"github.com/robotalks/purpledrop.go/pkg/l0/comm"
)

// TypeField is the Struct field naming the message type.
const TypeField = "type"

// ErrBadField indicates a field is missing or invalid.
var ErrBadField = errors.New("bad field")

// UnknownTypeError indicates the type name is unknown.
type UnknownTypeError struct {
	Type string
}

// Error implements error.
func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown type: %q", e.Type)
}

// ToStruct converts a message into Struct.
func ToStruct(msg comm.Message) *structpb.Struct {
	s := &structpb.Struct{Fields: map[string]*structpb.Value{
		TypeField: stringValue(comm.MessageName(msg)),
	}}
	switch m := msg.(type) {
	case *comm.ElectrodeEnable:
		pins := m.Pins()
		values := make([]float64, len(pins))
		for n, pin := range pins {
			values[n] = float64(pin)
		}
		s.Fields["pins"] = listValue(values)
	case *comm.DriveEnable:
		s.Fields["enabled"] = &structpb.Value{Kind: &structpb.Value_BoolValue{BoolValue: m.Enabled}}
	case *comm.BulkCapacitance:
		values := make([]float64, len(m.Values))
		for n, v := range m.Values {
			values[n] = float64(v)
		}
		s.Fields["start_index"] = numberValue(float64(m.StartIndex))
		s.Fields["values"] = listValue(values)
	case *comm.ActiveCapacitance:
		s.Fields["baseline"] = numberValue(float64(m.Baseline))
		s.Fields["measurement"] = numberValue(float64(m.Measurement))
	case *comm.CommandAck:
		s.Fields["acked_id"] = numberValue(float64(m.AckedID))
	case *comm.MoveStepper:
		s.Fields["steps"] = numberValue(float64(m.Steps))
		s.Fields["period"] = numberValue(float64(m.Period))
	}
	return s
}

// FromStruct converts Struct back into a message.
func FromStruct(s *structpb.Struct) (comm.Message, error) {
	typ := s.GetFields()[TypeField].GetStringValue()
	switch typ {
	case "ElectrodeEnable":
		pins, err := intList(s, "pins", 0, comm.NumElectrodes-1)
		if err != nil {
			return nil, err
		}
		m := &comm.ElectrodeEnable{}
		for _, pin := range pins {
			m.Set(int(pin), true)
		}
		return m, nil
	case "DriveEnable":
		v, ok := s.GetFields()["enabled"].GetKind().(*structpb.Value_BoolValue)
		if !ok {
			return nil, fieldError("enabled")
		}
		return &comm.DriveEnable{Enabled: v.BoolValue}, nil
	case "BulkCapacitance":
		start, err := intField(s, "start_index", 0, math.MaxUint8)
		if err != nil {
			return nil, err
		}
		values, err := intList(s, "values", 0, math.MaxUint16)
		if err != nil {
			return nil, err
		}
		m := &comm.BulkCapacitance{StartIndex: byte(start)}
		if len(values) > 0 {
			m.Values = make([]uint16, len(values))
			for n, v := range values {
				m.Values[n] = uint16(v)
			}
		}
		return m, nil
	case "ActiveCapacitance":
		baseline, err := intField(s, "baseline", 0, math.MaxUint16)
		if err != nil {
			return nil, err
		}
		measurement, err := intField(s, "measurement", 0, math.MaxUint16)
		if err != nil {
			return nil, err
		}
		return &comm.ActiveCapacitance{Baseline: uint16(baseline), Measurement: uint16(measurement)}, nil
	case "CommandAck":
		id, err := intField(s, "acked_id", 0, math.MaxUint8)
		if err != nil {
			return nil, err
		}
		return &comm.CommandAck{AckedID: byte(id)}, nil
	case "MoveStepper":
		steps, err := intField(s, "steps", math.MinInt16, math.MaxInt16)
		if err != nil {
			return nil, err
		}
		period, err := intField(s, "period", 0, math.MaxUint16)
		if err != nil {
			return nil, err
		}
		return &comm.MoveStepper{Steps: int16(steps), Period: uint16(period)}, nil
	}
	return nil, &UnknownTypeError{Type: typ}
}

// Marshal encodes a message as a protobuf Struct.
func Marshal(msg comm.Message) ([]byte, error) {
	return proto.Marshal(ToStruct(msg))
}

// Unmarshal decodes a protobuf Struct into a message.
func Unmarshal(data []byte) (comm.Message, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return FromStruct(&s)
}

// MarshalJSON encodes a message as JSON.
func MarshalJSON(msg comm.Message) (string, error) {
	return (&jsonpb.Marshaler{}).MarshalToString(ToStruct(msg))
}

// UnmarshalJSON decodes JSON into a message.
func UnmarshalJSON(str string) (comm.Message, error) {
	var s structpb.Struct
	if err := jsonpb.UnmarshalString(str, &s); err != nil {
		return nil, err
	}
	return FromStruct(&s)
}

func stringValue(str string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: str}}
}

func numberValue(v float64) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: v}}
}

func listValue(values []float64) *structpb.Value {
	lst := &structpb.ListValue{Values: make([]*structpb.Value, len(values))}
	for n, v := range values {
		lst.Values[n] = numberValue(v)
	}
	return &structpb.Value{Kind: &structpb.Value_ListValue{ListValue: lst}}
}

func fieldError(name string) error {
	return fmt.Errorf("%w: %s", ErrBadField, name)
}

func toInt(v *structpb.Value, min, max int64) (int64, bool) {
	num, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, false
	}
	n := int64(num.NumberValue)
	if float64(n) != num.NumberValue || n < min || n > max {
		return 0, false
	}
	return n, true
}

func intField(s *structpb.Struct, name string, min, max int64) (int64, error) {
	n, ok := toInt(s.GetFields()[name], min, max)
	if !ok {
		return 0, fieldError(name)
	}
	return n, nil
}

func intList(s *structpb.Struct, name string, min, max int64) ([]int64, error) {
	v := s.GetFields()[name]
	if v == nil {
		return nil, nil
	}
	lst, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fieldError(name)
	}
	values := make([]int64, len(lst.ListValue.GetValues()))
	for i, item := range lst.ListValue.GetValues() {
		n, ok := toInt(item, min, max)
		if !ok {
			return nil, fieldError(fmt.Sprintf("%s[%d]", name, i))
		}
		values[i] = n
	}
	return values, nil
}
