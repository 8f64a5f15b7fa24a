package msgs

import (
	"errors"
	"testing"

	structpb "github.com/golang/protobuf/ptypes/struct"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/purpledrop.go/pkg/l0/comm"
)

func testMessages() []comm.Message {
	electrodes := &comm.ElectrodeEnable{}
	electrodes.Set(1, true)
	electrodes.Set(127, true)
	return []comm.Message{
		electrodes,
		&comm.ElectrodeEnable{},
		&comm.DriveEnable{Enabled: true},
		&comm.BulkCapacitance{StartIndex: 8, Values: []uint16{0, 65535, 300}},
		&comm.BulkCapacitance{},
		&comm.ActiveCapacitance{Baseline: 0x1110, Measurement: 0x1312},
		&comm.CommandAck{AckedID: comm.MoveStepperID},
		&comm.MoveStepper{Steps: -32768, Period: 7},
	}
}

func TestBulkCapacitanceEmptyValues(t *testing.T) {
	msg, err := UnmarshalJSON(`{"type":"BulkCapacitance","start_index":4,"values":[]}`)
	require.NoError(t, err)
	require.Equal(t, &comm.BulkCapacitance{StartIndex: 4}, msg)
}

func TestRoundTrip(t *testing.T) {
	for _, msg := range testMessages() {
		t.Run(comm.MessageName(msg), func(t *testing.T) {
			data, err := Marshal(msg)
			require.NoError(t, err)
			decoded, err := Unmarshal(data)
			require.NoError(t, err)
			require.Equal(t, msg, decoded)

			str, err := MarshalJSON(msg)
			require.NoError(t, err)
			decoded, err = UnmarshalJSON(str)
			require.NoError(t, err)
			require.Equal(t, msg, decoded)
		})
	}
}

func TestMarshalJSON(t *testing.T) {
	str, err := MarshalJSON(&comm.ActiveCapacitance{Baseline: 1, Measurement: 2})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"ActiveCapacitance","baseline":1,"measurement":2}`, str)
}

func TestFromStructErrors(t *testing.T) {
	_, err := UnmarshalJSON(`{"type":"Teleport"}`)
	require.Equal(t, &UnknownTypeError{Type: "Teleport"}, err)

	testCases := []struct {
		name string
		json string
	}{
		{"missing field", `{"type":"MoveStepper","steps":1}`},
		{"out of range", `{"type":"MoveStepper","steps":40000,"period":1}`},
		{"fraction", `{"type":"ActiveCapacitance","baseline":1.5,"measurement":1}`},
		{"bad pin", `{"type":"ElectrodeEnable","pins":[128]}`},
		{"bad kind", `{"type":"DriveEnable","enabled":1}`},
		{"bad list", `{"type":"BulkCapacitance","start_index":0,"values":3}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := UnmarshalJSON(tc.json)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrBadField), "%v", err)
		})
	}
}

func TestToStruct(t *testing.T) {
	s := ToStruct(&comm.CommandAck{AckedID: 5})
	require.Equal(t, "CommandAck", s.Fields[TypeField].GetStringValue())
	require.Equal(t, float64(5), s.Fields["acked_id"].GetNumberValue())
	_, err := FromStruct(&structpb.Struct{})
	require.Equal(t, &UnknownTypeError{}, err)
}
