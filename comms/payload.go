package comms

import (
	"time"

	"github.com/CodedInternet/godrivetrain/onboard"
)

// StatePayload is pushed to every connected client at FRAMERATE.
type StatePayload struct {
	onboard.RobotState
	Time time.Time `json:"time"`
}

// Reply answers a command from a control client.
type Reply struct {
	Cmd   string `json:"cmd"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}
