package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/CodedInternet/godrivetrain/comms"
	"github.com/CodedInternet/godrivetrain/onboard"
	"github.com/CodedInternet/godrivetrain/onboard/device"
	"github.com/CodedInternet/godrivetrain/onboard/drive"
	"github.com/asdine/storm/v3"
	"github.com/caarlos0/env/v6"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

type EnvConfig struct {
	JWT_ISSUER string `env:"JWT_ISSUER" envDefault:"DEV"`
	DEBUG      bool   `env:"DEBUG" envDefault:"0"`
	SRCDIR     string `env:"SRCDIR" envDefault:"."`
	HTMLDIR    string `env:"HTMLDIR" envDefault:"./frontend/dist/"`
	DB_PATH    string `env:"DB_PATH" envDefault:"./tmp/dev.db"`
	CONFIG     string `env:"CONFIG" envDefault:"robot.yaml"`
	DB         *storm.DB
	Robot      *onboard.Robot
	Conductor  *comms.Conductor
	Simulated  bool
}

var (
	ENV = new(EnvConfig)
)

func main() {
	// process flags
	simulated := flag.Bool("sim", false, "Run the drivetrain in simulator mode")
	port := flag.String("port", "0.0.0.0:80", "Specify the ip:port to listen on")
	interactive := flag.Bool("shell", false, "Start the development shell")
	flag.Parse()

	if err := env.Parse(ENV); err != nil {
		log.Fatalf("Unable to read environment: %v", err)
	}
	ENV.Simulated = *simulated

	if !ENV.DEBUG {
		drive.SetLogger(nil)
	}

	db, err := openDb(ENV.DB_PATH)
	if err != nil {
		log.Fatalf("Unable to open database: %v", err)
	}
	ENV.DB = db
	defer ENV.DB.Close() // close database when finished

	configPath := ENV.CONFIG
	if !filepath.IsAbs(configPath) {
		configPath = filepath.Join(ENV.SRCDIR, configPath)
	}
	config, err := onboard.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Unable to load robot config: %v", err)
	}

	// Setup the hardware properly so everything works as expected later
	var hw device.Hardware
	if ENV.Simulated {
		fmt.Println("Creating simulator")
		sim := onboard.NewSimulatedHardware(nil)
		sim.Start()
		defer sim.Stop()
		hw = sim.Hardware()
	} else {
		nh, err := onboard.NewNodeHardware(config.Hardware, config.Period())
		if err != nil {
			log.Fatalf("Unable to initialize hardware: %v", err)
		}
		defer nh.Close()
		hw = nh.Hardware
	}

	ENV.Robot, err = onboard.NewRobot(config, hw, nil, profileConstants{db: db, fallback: config.Constants})
	if err != nil {
		log.Fatalf("Unable to initialize robot: %v", err)
	}
	ENV.Conductor = comms.NewConductor(ENV.Robot)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		ENV.Robot.Run(ctx)
	}()
	go ENV.Conductor.UpdateClients(ctx)

	// Start an instance of the shell so it can be controlled from the CLI
	if *interactive {
		shell := newShell(cancel)
		go shell.Start()
	}

	server := &http.Server{Addr: *port, Handler: newRouter()}
	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	fmt.Println("Listening on port", *port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Print(err)
		cancel()
	}

	// the drivetrain must be left disabled before the hardware is released
	<-loopDone
}

func newRouter() http.Handler {
	r := chi.NewRouter()

	// A good base middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Recoverer) // make sure this is last

	//---
	// Build the API routes
	//---
	r.Route("/api", func(r chi.Router) {
		// login
		r.Post("/login", Login)

		r.Group(func(r chi.Router) {
			// Seek, verify and validate JWT tokens
			r.Use(ValidateJWT)

			r.Get("/refresh_token", JWTRefresh)
			r.Get("/state", GetState)
			r.Get("/constants", GetConstants)
			r.Put("/constants", PutConstants)
			r.Get("/routines", GetRoutines)
		})
	})

	// Add websocket routes
	r.Route("/ws", func(r chi.Router) {
		if !ENV.DEBUG {
			r.Use(ValidateJWT)
		} else {
			fmt.Println("Running in debug mode. Websocket authentication disabled.")
		}

		r.Get("/control", ControlHandler)
		r.Get("/state", StateHandler)
	})

	// add static base routes
	FileServer(r, "/", http.Dir(ENV.HTMLDIR))

	return r
}

// FileServer conveniently sets up a http.FileServer handler to serve
// static files from a http.FileSystem.
func FileServer(r chi.Router, path string, root http.FileSystem) {
	if strings.ContainsAny(path, "{}*") {
		panic("FileServer does not permit URL parameters.")
	}

	fs := http.StripPrefix(path, http.FileServer(root))

	if path != "/" && path[len(path)-1] != '/' {
		r.Get(path, http.RedirectHandler(path+"/", 301).ServeHTTP)
		path += "/"
	}
	path += "*"

	r.Get(path, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.ServeHTTP(w, r)
	}))
}
