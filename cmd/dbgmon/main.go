package main

import (
	"flag"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/robotalks/cpudbg/pkg/report/mqtt"
	"github.com/robotalks/cpudbg/pkg/report/msgs"
)

var (
	mqttURL = "mqtt://localhost:1883/" + mqtt.DefaultTopicPrefix
)

func init() {
	if val := os.Getenv("CPUDBG_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	conn, err := mqtt.NewConnFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}

	var lock sync.Mutex
	encodings := make(map[string]msgs.Encoding)
	conn.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		if strings.HasSuffix(topic, "/"+mqtt.TopicMeta) {
			log.Printf("%s: %s", topic, string(payload))
			info, ok := mqtt.ParseMeta(topic, payload)
			lock.Lock()
			defer lock.Unlock()
			if !ok {
				delete(encodings, info.ID)
				return
			}
			enc, err := msgs.EncodingByName(info.Meta.Encoding)
			if err != nil {
				log.Printf("%s: %v", topic, err)
				return
			}
			encodings[info.ID] = enc
			return
		}
		if strings.HasSuffix(topic, "/"+mqtt.TopicStats) {
			log.Printf("%s: %s", topic, string(payload))
			return
		}
		id := strings.SplitN(topic, "/", 2)[0]
		lock.Lock()
		enc := encodings[id]
		lock.Unlock()
		if enc == nil {
			log.Printf("%s: %d bytes, unknown encoding", topic, len(payload))
			return
		}
		var f msgs.Frame
		if err := enc.Unmarshal(payload, &f); err != nil {
			log.Printf("%s: decode error: %v", topic, err)
			return
		}
		log.Printf("%s: %s", topic, f.String())
	}))
	if err := conn.Connect(5 * time.Second); err != nil {
		log.Fatalln(err)
	}
	<-(chan struct{})(nil)
}
