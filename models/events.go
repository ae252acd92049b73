package models

// Inbound event types
const (
	EventJoin               = "join"
	EventLeave              = "leave"
	EventChatSend           = "chatSend"
	EventTimerStart         = "timerStart"
	EventTimerPause         = "timerPause"
	EventTimerTick          = "timerTick"
	EventTimerReset         = "timerReset"
	EventRequestPresence    = "requestPresence"
	EventRequestTimer       = "requestTimer"
	EventRequestChatHistory = "requestChatHistory"
	EventTerminate          = "terminate"
)

// Outbound event types
const (
	EventPresenceChanged = "presenceChanged"
	EventTimerChanged    = "timerChanged"
	EventChatReceived    = "chatReceived"
	EventChatHistory     = "chatHistory"
	EventRoomClosed      = "roomClosed"
	EventHostStatus      = "hostStatus"
	EventRoomListChanged = "roomListChanged"
	EventError           = "error"
)

// Event is the envelope for every message pushed to clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// RoomClosedPayload tells members why their room went away.
type RoomClosedPayload struct {
	Reason string `json:"reason"`
	HostID string `json:"hostId"`
	Room   string `json:"room"`
}

// HostStatusPayload is unicast to a joining connection only.
type HostStatusPayload struct {
	IsHost bool `json:"isHost"`
}

// RoomListChangedPayload is broadcast globally whenever a room's
// membership or existence changes.
type RoomListChangedPayload struct {
	Room string `json:"room"`
}

// ErrorPayload is unicast to the connection whose request was denied.
type ErrorPayload struct {
	Message string `json:"message"`
}
