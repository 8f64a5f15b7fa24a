package main

import (
	"flag"
	"log"
	"os"

	"github.com/robotalks/purpledrop.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/purpledrop.go/pkg/l1/msgs"
)

var (
	mqttURL = "mqtt://localhost:1883/purpledrop/"
	device  = "+"
)

func init() {
	if val := os.Getenv("PURPLEDROP_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&device, "id", device, "Device ID to monitor, all by default.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}

	q.Sub(mqtt.MetaTopic(device), mqtt.Handler(func(topic string, payload []byte) {
		log.Printf("%s: %s", topic, string(payload))
	}))
	q.Sub(mqtt.MsgTopic(device, "+"), mqtt.Handler(func(topic string, payload []byte) {
		msg, err := msgs.Unmarshal(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		out, err := msgs.MarshalJSON(msg)
		if err != nil {
			log.Printf("%s: %v", topic, err)
			return
		}
		log.Printf("%s: %s", topic, out)
	}))
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	<-(chan struct{})(nil)
}
