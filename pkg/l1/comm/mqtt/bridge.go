package mqtt

import (
	"context"
	"encoding/json"

	"github.com/golang/glog"

	"github.com/robotalks/purpledrop.go/pkg/l0/comm"
	"github.com/robotalks/purpledrop.go/pkg/l1/msgs"
)

// Meta describes a bridged device, published retained on MetaTopic.
type Meta struct {
	Device      string `json:"device,omitempty"`
	Description string `json:"description,omitempty"`
}

// MetaTopic is the topic of device metadata.
func MetaTopic(deviceID string) string {
	return deviceID + "/meta"
}

// MsgTopic is the topic of messages received from the device.
func MsgTopic(deviceID, name string) string {
	return deviceID + "/msg/" + name
}

// CmdTopic is the topic of commands to the device.
func CmdTopic(deviceID string) string {
	return deviceID + "/cmd"
}

// Bridge publishes messages from a FIFO to MQTT and sends commands
// received from MQTT to the FIFO.
type Bridge struct {
	Queue    *Queue
	FIFO     *comm.FIFO
	DeviceID string
	Meta     Meta

	metaJSON []byte
}

// NewBridge creates a Bridge and installs it as the message handler of fifo.
func NewBridge(brokerURL, deviceID string, fifo *comm.FIFO, meta Meta) (*Bridge, error) {
	metaJSON, err := json.Marshal(&meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+MetaTopic(deviceID), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("purpledrop:" + deviceID)
	}
	b := &Bridge{
		Queue:    NewQueue(opts, topicPrefix),
		FIFO:     fifo,
		DeviceID: deviceID,
		Meta:     meta,
		metaJSON: metaJSON,
	}
	b.Queue.OnConnect = func(q *Queue) {
		q.PubWith(MetaTopic(b.DeviceID), b.metaJSON, 1, true)
	}
	fifo.Handler = b
	return b, nil
}

// Name implements Named.
func (b *Bridge) Name() string {
	return "mqtt-bridge"
}

// HandleMessage implements comm.MessageHandler.
func (b *Bridge) HandleMessage(ctx context.Context, msg comm.Message) {
	topic, payload, err := b.telemetry(msg)
	if err != nil {
		glog.Errorf("encode %s error: %v", comm.MessageName(msg), err)
		return
	}
	b.Queue.Pub(topic, payload)
}

// Run implements Runnable.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.Queue.Sub(CmdTopic(b.DeviceID), b.handleCommand)
	token := b.Queue.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}
	defer b.Queue.Close()
	defer sub.Close()
	<-ctx.Done()
	b.Queue.PubWith(MetaTopic(b.DeviceID), nil, 1, true).Wait()
	return ctx.Err()
}

func (b *Bridge) telemetry(msg comm.Message) (string, []byte, error) {
	payload, err := msgs.Marshal(msg)
	if err != nil {
		return "", nil, err
	}
	return MsgTopic(b.DeviceID, comm.MessageName(msg)), payload, nil
}

func (b *Bridge) handleCommand(topic string, payload []byte) {
	msg, err := msgs.Unmarshal(payload)
	if err != nil {
		glog.Warningf("%s: bad command: %v", topic, err)
		return
	}
	if !comm.IsCommand(msg.ID()) {
		glog.Warningf("%s: %s is not a command", topic, comm.MessageName(msg))
		return
	}
	if err := b.FIFO.Send(msg); err != nil {
		glog.Errorf("%s: send %s error: %v", topic, comm.MessageName(msg), err)
	}
}
