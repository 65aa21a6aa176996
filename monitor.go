package main

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"github.com/cpsmotion/akmotor/motor"
)

const STREAM_INTERVAL = 100 * time.Millisecond

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

//---
// Error payloads
//---

type ErrResponse struct {
	Err            error `json:"-"`
	HTTPStatusCode int   `json:"-"`

	StatusText string `json:"status"`
	ErrorText  string `json:"error,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request",
		ErrorText:      err.Error(),
	}
}

func ErrRender(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusUnprocessableEntity,
		StatusText:     "Error rendering response",
		ErrorText:      err.Error(),
	}
}

func ErrUnauthorized(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusUnauthorized,
		StatusText:     "Unauthorized",
		ErrorText:      err.Error(),
	}
}

func ErrPermissionDenied(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusForbidden,
		StatusText:     "Permission denied",
		ErrorText:      err.Error(),
	}
}

var ErrNotFound = &ErrResponse{HTTPStatusCode: http.StatusNotFound, StatusText: "Resource not found"}

//---
// Payloads
//---

type MotorPayload struct {
	Name   string           `json:"name"`
	Model  string           `json:"model"`
	Power  string           `json:"power"`
	Uptime float64          `json:"uptime_s"`
	State  motor.MotorState `json:"state"`
}

type StatePayload struct {
	Motors []MotorPayload `json:"motors"`
}

func motorPayload(name string, m *motor.Motor) MotorPayload {
	return MotorPayload{
		Name:   name,
		Model:  m.Config().MotorType,
		Power:  m.PowerState().String(),
		Uptime: m.Uptime().Seconds(),
		State:  m.State(),
	}
}

func snapshot(motors map[string]*motor.Motor) (p StatePayload) {
	for name, m := range motors {
		p.Motors = append(p.Motors, motorPayload(name, m))
	}
	return p
}

//---
// Views
//---

// StateHandler returns a one-shot snapshot of every motor.
func StateHandler(motors map[string]*motor.Motor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, snapshot(motors))
	}
}

// StreamHandler pushes state snapshots over a websocket at STREAM_INTERVAL
// until the client goes away.
func StreamHandler(motors map[string]*motor.Motor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Print("upgrade:", err)
			return
		}
		defer conn.Close()

		ticker := time.NewTicker(STREAM_INTERVAL)
		defer ticker.Stop()

		for range ticker.C {
			if err := conn.WriteJSON(snapshot(motors)); err != nil {
				log.Println("write:", err)
				return
			}
		}
	}
}

// CommandHandler resolves the {name} url parameter onto a configured motor,
// runs the command against it and returns the refreshed payload.
func CommandHandler(motors map[string]*motor.Motor, cmd func(*motor.Motor) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		m, ok := motors[name]
		if !ok {
			render.Render(w, r, ErrNotFound)
			return
		}

		if err := cmd(m); err != nil {
			render.Render(w, r, ErrRender(err))
			return
		}

		render.JSON(w, r, motorPayload(name, m))
	}
}

// NewMonitorRouter builds the HTTP surface: login is open, state reads sit
// behind the JWT middleware, motor commands additionally require the admin
// role.
func NewMonitorRouter(motors map[string]*motor.Motor) chi.Router {
	r := chi.NewRouter()

	// A good base middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Recoverer) // make sure this is last

	r.Post("/auth/login", Login)

	r.Group(func(r chi.Router) {
		r.Use(ValidateJWT)
		r.Get("/auth/refresh", TokenRefresh)
		r.Get("/state", StateHandler(motors))
		r.Get("/ws", StreamHandler(motors))

		r.Route("/motors/{name}", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Post("/enable", CommandHandler(motors, (*motor.Motor).Enable))
			r.Post("/disable", CommandHandler(motors, (*motor.Motor).Disable))
			r.Post("/stop", CommandHandler(motors, (*motor.Motor).Stop))
			r.Post("/zero", CommandHandler(motors, (*motor.Motor).ZeroPosition))
		})
	})

	return r
}
