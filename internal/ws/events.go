package ws

import (
	"time"
)

type EventType string

const (
	EventStatus         EventType = "status.updated"
	EventRecognition    EventType = "recognition.result"
	EventActivity       EventType = "activity.updated"
	EventCamera         EventType = "camera.state"
	EventEnrollProgress EventType = "enrollment.progress"
	EventEnrollFinished EventType = "enrollment.finished"
)

// sticky events are replayed to clients that connect later, so a fresh
// dashboard shows the current state without waiting for the next tick.
var sticky = map[EventType]bool{
	EventStatus:   true,
	EventActivity: true,
	EventCamera:   true,
}

type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// StatusData is the payload of EventStatus.
type StatusData struct {
	Text string `json:"text"`
	OK   bool   `json:"ok"`
}
