package main

import (
	"errors"
	"log"
	"net/http"

	"github.com/CodedInternet/godrivetrain/onboard"
	"github.com/CodedInternet/godrivetrain/onboard/drive"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ControlHandler accepts driver station commands and streams state back.
func ControlHandler(w http.ResponseWriter, r *http.Request) {
	serveWebsocket(w, r, false)
}

// StateHandler streams state to dashboards that may not drive.
func StateHandler(w http.ResponseWriter, r *http.Request) {
	serveWebsocket(w, r, true)
}

func serveWebsocket(w http.ResponseWriter, r *http.Request, readOnly bool) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Print("upgrade:", err)
		return
	}

	ENV.Conductor.ServeClient(conn, readOnly)
}

func GetState(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, ENV.Robot.State())
}

func GetConstants(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, ENV.Robot.State().Constants)
}

// ConstantsPayload binds a constants update.
type ConstantsPayload struct {
	drive.Constants
}

func (c *ConstantsPayload) Bind(r *http.Request) error {
	return c.Validate()
}

// PutConstants applies new constants to the drivetrain and stores them as
// the active profile.
func PutConstants(w http.ResponseWriter, r *http.Request) {
	data := &ConstantsPayload{Constants: ENV.Robot.State().Constants}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	if err := ENV.Robot.SetConstants(data.Constants); err != nil {
		if errors.Is(err, onboard.ErrQueueFull) {
			render.Render(w, r, ErrUnavailable(err))
			return
		}
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	if err := SaveProfile(ENV.DB, ACTIVE_PROFILE, data.Constants); err != nil {
		render.Render(w, r, ErrRender(err))
		return
	}

	render.JSON(w, r, data.Constants)
}

type RoutinesPayload struct {
	Routines []string `json:"routines"`
}

func GetRoutines(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, RoutinesPayload{ENV.Robot.Routines()})
}
