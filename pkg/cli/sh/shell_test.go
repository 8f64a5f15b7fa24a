package sh

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/purpledrop.go/pkg/env"
	"github.com/robotalks/purpledrop.go/pkg/l0/comm"
)

func TestFormatMessage(t *testing.T) {
	ee := &comm.ElectrodeEnable{}
	ee.Set(2, true)
	ee.Set(9, true)
	cases := []struct {
		msg comm.Message
		out string
	}{
		{ee, "ElectrodeEnable pins=[2 9]"},
		{&comm.DriveEnable{Enabled: true}, "DriveEnable enabled=true"},
		{&comm.BulkCapacitance{StartIndex: 4, Values: []uint16{1, 2}}, "BulkCapacitance start=4 values=[1 2]"},
		{&comm.ActiveCapacitance{Baseline: 10, Measurement: 12}, "ActiveCapacitance baseline=10 measurement=12"},
		{&comm.CommandAck{AckedID: 5}, "CommandAck acked=5"},
		{&comm.MoveStepper{Steps: -3, Period: 100}, "MoveStepper steps=-3 period=100"},
	}
	for _, c := range cases {
		require.Equal(t, c.out, FormatMessage(c.msg))
	}
}

func TestWaitResultTimeoutReleasesAck(t *testing.T) {
	client := comm.NewClient(comm.NewFIFO(&bytes.Buffer{}))
	first := client.Do(&comm.MoveStepper{Steps: 1, Period: 10})
	_, err := WaitResult(client, first, 10*time.Millisecond)
	require.Equal(t, context.DeadlineExceeded, err)

	second := client.Do(&comm.MoveStepper{Steps: 2, Period: 10})
	ack := &comm.CommandAck{AckedID: comm.MoveStepperID}
	client.HandleMessage(context.TODO(), ack)
	res, err := WaitResult(client, second, 100*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, res.Err)
	require.Equal(t, ack, res.Ack)
}

func TestShellDetachOnLinkLoss(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	acceptCh := make(chan net.Conn, 1)
	go func() {
		if conn, err := ln.Accept(); err == nil {
			acceptCh <- conn
		}
	}()

	conf := env.NewConfig()
	conf.Port.Device = "tcp://" + ln.Addr().String()
	s := New(conf)
	require.NoError(t, s.Connect(""))
	conn := s.Conn()
	require.NotNil(t, conn)

	select {
	case peer := <-acceptCh:
		peer.Close()
	case <-time.After(time.Second):
		t.Fatal("accept timeout")
	}
	select {
	case <-conn.doneCh:
	case <-time.After(time.Second):
		t.Fatal("connection not stopped")
	}
	require.Nil(t, s.Conn())
	s.Disconnect()
}
