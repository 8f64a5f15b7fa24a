package comm

import (
	"encoding/binary"
)

// Message IDs
const (
	ElectrodeEnableID   byte = 0
	DriveEnableID       byte = 1
	BulkCapacitanceID   byte = 2
	ActiveCapacitanceID byte = 3
	CommandAckID        byte = 4
	MoveStepperID       byte = 5
)

const (
	// NumElectrodes is the number of electrodes addressed by ElectrodeEnable.
	NumElectrodes = 128

	electrodeEnableSize   = NumElectrodes / 8
	driveEnableSize       = 1
	bulkCapacitanceHeader = 2
	activeCapacitanceSize = 4
	commandAckSize        = 1
	moveStepperSize       = 4

	// MaxBulkCapacitanceValues is the most readings one BulkCapacitance
	// frame can carry within MaxFrameSize.
	MaxBulkCapacitanceValues = (MaxFrameSize - 3 - bulkCapacitanceHeader) / 2
)

// Message is one of the messages in the L0 catalog.
type Message interface {
	// ID returns the wire id.
	ID() byte

	l0Message()
}

// ElectrodeEnable sets the enabled electrodes, one bit per electrode,
// electrode n at bit n%8 of byte n/8.
type ElectrodeEnable struct {
	Values [electrodeEnableSize]byte
}

// DriveEnable turns the electrode high voltage drive on or off.
type DriveEnable struct {
	Enabled bool
}

// BulkCapacitance reports capacitance readings of consecutive channels
// starting from StartIndex. Decoding yields nil Values for an empty
// report, so nil is the canonical empty form.
type BulkCapacitance struct {
	StartIndex byte
	Values     []uint16
}

// ActiveCapacitance reports the capacitance of the active electrodes.
type ActiveCapacitance struct {
	Baseline    uint16
	Measurement uint16
}

// CommandAck is sent by the controller after executing a command.
type CommandAck struct {
	AckedID byte
}

// MoveStepper moves the stepper by Steps (negative reverses) with
// Period between steps.
type MoveStepper struct {
	Steps  int16
	Period uint16
}

// ID implements Message.
func (m *ElectrodeEnable) ID() byte { return ElectrodeEnableID }

// ID implements Message.
func (m *DriveEnable) ID() byte { return DriveEnableID }

// ID implements Message.
func (m *BulkCapacitance) ID() byte { return BulkCapacitanceID }

// ID implements Message.
func (m *ActiveCapacitance) ID() byte { return ActiveCapacitanceID }

// ID implements Message.
func (m *CommandAck) ID() byte { return CommandAckID }

// ID implements Message.
func (m *MoveStepper) ID() byte { return MoveStepperID }

func (m *ElectrodeEnable) l0Message()   {}
func (m *DriveEnable) l0Message()       {}
func (m *BulkCapacitance) l0Message()   {}
func (m *ActiveCapacitance) l0Message() {}
func (m *CommandAck) l0Message()        {}
func (m *MoveStepper) l0Message()       {}

// Set enables or disables electrode n. Out of range n is ignored.
func (m *ElectrodeEnable) Set(n int, on bool) {
	if n < 0 || n >= NumElectrodes {
		return
	}
	if on {
		m.Values[n/8] |= 1 << uint(n%8)
	} else {
		m.Values[n/8] &^= 1 << uint(n%8)
	}
}

// Enabled tells if electrode n is enabled.
func (m *ElectrodeEnable) Enabled(n int) bool {
	if n < 0 || n >= NumElectrodes {
		return false
	}
	return m.Values[n/8]&(1<<uint(n%8)) != 0
}

// Pins lists enabled electrodes in ascending order.
func (m *ElectrodeEnable) Pins() []int {
	var pins []int
	for n := 0; n < NumElectrodes; n++ {
		if m.Enabled(n) {
			pins = append(pins, n)
		}
	}
	return pins
}

// IsCommand tells if messages with the id are commands sent by the host
// and acknowledged by the controller with CommandAck.
func IsCommand(id byte) bool {
	switch id {
	case ElectrodeEnableID, DriveEnableID, MoveStepperID:
		return true
	}
	return false
}

// MessageName returns a readable name of the message kind.
func MessageName(msg Message) string {
	switch msg.(type) {
	case *ElectrodeEnable:
		return "ElectrodeEnable"
	case *DriveEnable:
		return "DriveEnable"
	case *BulkCapacitance:
		return "BulkCapacitance"
	case *ActiveCapacitance:
		return "ActiveCapacitance"
	case *CommandAck:
		return "CommandAck"
	case *MoveStepper:
		return "MoveStepper"
	}
	return "Unknown"
}

// SizeProbe returns the payload size of a message from the bytes
// received so far, and false if more bytes are needed to tell.
// Unknown ids have zero payload so the frame completes with its trailer.
func SizeProbe(id byte, partial []byte) (int, bool) {
	switch id {
	case ElectrodeEnableID:
		return electrodeEnableSize, true
	case DriveEnableID:
		return driveEnableSize, true
	case BulkCapacitanceID:
		if len(partial) < bulkCapacitanceHeader {
			return 0, false
		}
		return bulkCapacitanceHeader + int(partial[1])*2, true
	case ActiveCapacitanceID:
		return activeCapacitanceSize, true
	case CommandAckID:
		return commandAckSize, true
	case MoveStepperID:
		return moveStepperSize, true
	}
	return 0, true
}

// DecodeMessage decodes the payload of a frame with the id.
// The returned message doesn't reference payload.
func DecodeMessage(id byte, payload []byte) (Message, error) {
	switch id {
	case ElectrodeEnableID:
		if len(payload) < electrodeEnableSize {
			return nil, ErrDeserialization
		}
		m := &ElectrodeEnable{}
		copy(m.Values[:], payload)
		return m, nil
	case DriveEnableID:
		if len(payload) < driveEnableSize {
			return nil, ErrDeserialization
		}
		return &DriveEnable{Enabled: payload[0] != 0}, nil
	case BulkCapacitanceID:
		if len(payload) < bulkCapacitanceHeader {
			return nil, ErrDeserialization
		}
		count := int(payload[1])
		if len(payload) < bulkCapacitanceHeader+count*2 {
			return nil, ErrDeserialization
		}
		m := &BulkCapacitance{StartIndex: payload[0]}
		if count > 0 {
			m.Values = make([]uint16, count)
			for i := range m.Values {
				m.Values[i] = binary.LittleEndian.Uint16(payload[bulkCapacitanceHeader+i*2:])
			}
		}
		return m, nil
	case ActiveCapacitanceID:
		if len(payload) < activeCapacitanceSize {
			return nil, ErrDeserialization
		}
		return &ActiveCapacitance{
			Baseline:    binary.LittleEndian.Uint16(payload[0:]),
			Measurement: binary.LittleEndian.Uint16(payload[2:]),
		}, nil
	case CommandAckID:
		if len(payload) < commandAckSize {
			return nil, ErrDeserialization
		}
		return &CommandAck{AckedID: payload[0]}, nil
	case MoveStepperID:
		if len(payload) < moveStepperSize {
			return nil, ErrDeserialization
		}
		return &MoveStepper{
			Steps:  int16(binary.LittleEndian.Uint16(payload[0:])),
			Period: binary.LittleEndian.Uint16(payload[2:]),
		}, nil
	}
	return nil, &UnknownPacketIDError{ID: id}
}

// EncodeMessage serializes a message into its id and payload.
// BulkCapacitance values beyond MaxBulkCapacitanceValues are dropped.
func EncodeMessage(msg Message) (id byte, payload []byte) {
	id = msg.ID()
	switch m := msg.(type) {
	case *ElectrodeEnable:
		payload = append([]byte(nil), m.Values[:]...)
	case *DriveEnable:
		payload = []byte{0}
		if m.Enabled {
			payload[0] = 1
		}
	case *BulkCapacitance:
		values := m.Values
		if len(values) > MaxBulkCapacitanceValues {
			values = values[:MaxBulkCapacitanceValues]
		}
		payload = make([]byte, bulkCapacitanceHeader+len(values)*2)
		payload[0], payload[1] = m.StartIndex, byte(len(values))
		for i, v := range values {
			binary.LittleEndian.PutUint16(payload[bulkCapacitanceHeader+i*2:], v)
		}
	case *ActiveCapacitance:
		payload = make([]byte, activeCapacitanceSize)
		binary.LittleEndian.PutUint16(payload[0:], m.Baseline)
		binary.LittleEndian.PutUint16(payload[2:], m.Measurement)
	case *CommandAck:
		payload = []byte{m.AckedID}
	case *MoveStepper:
		payload = make([]byte, moveStepperSize)
		binary.LittleEndian.PutUint16(payload[0:], uint16(m.Steps))
		binary.LittleEndian.PutUint16(payload[2:], m.Period)
	}
	return
}
