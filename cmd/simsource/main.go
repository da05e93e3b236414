// simsource is a position-feed simulator for local development. It speaks
// the same WebSocket protocol as a real device feed: a client connects,
// sends a watch request, and receives a stream of position messages walking
// a synthetic path. Errors can be injected to exercise the agent's
// classification paths.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

type watchRequest struct {
	Type         string `json:"type"`
	HighAccuracy bool   `json:"high_accuracy"`
	TimeoutMs    int64  `json:"timeout_ms"`
	MaxAgeMs     int64  `json:"max_age_ms"`
}

type feedMessage struct {
	Type           string   `json:"type"`
	Latitude       float64  `json:"latitude,omitempty"`
	Longitude      float64  `json:"longitude,omitempty"`
	AccuracyMeters float64  `json:"accuracy_meters,omitempty"`
	HeadingDegrees *float64 `json:"heading_degrees,omitempty"`
	SpeedMps       *float64 `json:"speed_mps,omitempty"`
	CapturedAt     string   `json:"captured_at,omitempty"`
	Code           int      `json:"code,omitempty"`
	Message        string   `json:"message,omitempty"`
}

func main() {
	var (
		port      = flag.Int("port", 8800, "Port to serve the feed on")
		interval  = flag.Duration("interval", 2*time.Second, "Delay between position messages")
		lat       = flag.Float64("lat", 52.3702, "Starting latitude")
		lng       = flag.Float64("lng", 4.8952, "Starting longitude")
		errEvery  = flag.Int("error-every", 0, "Inject a transient error every N positions (0 = never)")
		errCode   = flag.Int("error-code", 2, "Error code to inject: 1=permission 2=unavailable 3=timeout")
		dropAfter = flag.Int("drop-after", 0, "Close the connection after N positions (0 = never)")
	)
	flag.Parse()

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		var req watchRequest
		if err := conn.ReadJSON(&req); err != nil || req.Type != "watch" {
			log.Printf("expected watch request, got err=%v type=%q", err, req.Type)
			return
		}
		log.Printf("watch started: high_accuracy=%v timeout_ms=%d max_age_ms=%d", req.HighAccuracy, req.TimeoutMs, req.MaxAgeMs)

		curLat, curLng := *lat, *lng
		sent := 0
		for {
			time.Sleep(*interval)

			if *dropAfter > 0 && sent >= *dropAfter {
				log.Printf("dropping connection after %d positions", sent)
				return
			}
			if *errEvery > 0 && sent > 0 && sent%*errEvery == 0 {
				msg := feedMessage{Type: "error", Code: *errCode, Message: "injected by simsource"}
				if err := conn.WriteJSON(msg); err != nil {
					return
				}
				sent++
				continue
			}

			// drift roughly north-east, a few meters per message
			curLat += (rand.Float64() - 0.3) * 0.0001
			curLng += (rand.Float64() - 0.3) * 0.0001
			heading := rand.Float64() * 360
			speed := 1.0 + rand.Float64()*4

			msg := feedMessage{
				Type:           "position",
				Latitude:       curLat,
				Longitude:      curLng,
				AccuracyMeters: 5 + rand.Float64()*20,
				HeadingDegrees: &heading,
				SpeedMps:       &speed,
				CapturedAt:     time.Now().UTC().Format(time.RFC3339),
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("client gone: %v", err)
				return
			}
			sent++
			if b, err := json.Marshal(msg); err == nil {
				log.Printf("sent %s", b)
			}
		}
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("simsource feed on ws://localhost%s/", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}
