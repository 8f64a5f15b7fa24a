package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/purpledrop.go/pkg/env"
	fx "github.com/robotalks/purpledrop.go/pkg/framework"
	"github.com/robotalks/purpledrop.go/pkg/l1/comm/mqtt"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()

	conf, err := env.Load()
	if err != nil {
		glog.Exit(err)
	}
	if conf.Port.Device == "" {
		glog.Exit("device required, use -device or PURPLEDROP_DEVICE")
	}
	fifo, closer, err := conf.OpenFIFO()
	if err != nil {
		glog.Exitf("open %s: %v", conf.Port.Device, err)
	}
	bridge, err := mqtt.NewBridge(conf.MQTTBrokerURL, conf.DeviceID, fifo, mqtt.Meta{
		Device:      conf.Port.Device,
		Description: conf.Description,
	})
	if err != nil {
		closer.Close()
		glog.Exit(err)
	}
	glog.Infof("bridging %s as %s via %s", conf.Port.Device, conf.DeviceID, conf.MQTTBrokerURL)

	runner := fx.NewRunner().HandleSignals()
	err = runner.Go(
		fx.NamedRun("fifo", fx.RunFunc(func(ctx context.Context) error {
			return fx.RunWithContextCloser(ctx, closer, func() error {
				return fifo.Run(ctx)
			})
		})),
		bridge,
	).Wait()
	st := fifo.Stats()
	glog.Infof("stopped: messages=%d checksum_errors=%d unknown_ids=%d decode_errors=%d idle_resets=%d",
		st.Messages, st.ChecksumErrors, st.UnknownIDs, st.DecodeErrors, st.IdleResets)
	if err != nil {
		glog.Exit(err)
	}
}
