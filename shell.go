package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/CodedInternet/godrivetrain/calcs"
	"github.com/CodedInternet/godrivetrain/onboard"
	"github.com/abiosoft/ishell"
	"gopkg.in/yaml.v2"
)

func parseOnOff(arg string, on, off string) (bool, bool) {
	switch strings.ToLower(arg) {
	case on, "on", "true", "1":
		return true, true
	case off, "off", "false", "0":
		return false, true
	}
	return false, false
}

func usage(help string) error {
	return fmt.Errorf("usage: %s", help)
}

// newShell builds the development shell. The shutdown command calls stop.
func newShell(stop func()) *ishell.Shell {
	shell := ishell.New()
	shell.Println("Drivetrain development shell")
	shell.ShowPrompt(true)

	routineNames := func([]string) []string {
		return ENV.Robot.Routines()
	}
	profileNames := func([]string) []string {
		names, _ := ProfileNames(ENV.DB)
		return names
	}

	shell.AddCmd(&ishell.Cmd{
		Name: "shutdown",
		Help: "disable the drivetrain and stop the server",
		Func: func(c *ishell.Context) {
			c.Println("Shutting down")
			stop()
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "drive",
		Help: "drive <throttle> <wheel> [quick]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(usage("drive <throttle> <wheel> [quick]"))
				return
			}
			throttle, err := strconv.ParseFloat(c.Args[0], 64)
			if err != nil {
				c.Err(err)
				return
			}
			wheel, err := strconv.ParseFloat(c.Args[1], 64)
			if err != nil {
				c.Err(err)
				return
			}
			quick := len(c.Args) > 2 && c.Args[2] == "quick"

			if ENV.Robot.State().Mode != onboard.ModeTeleop {
				if err := ENV.Robot.Teleop(); err != nil {
					c.Err(err)
					return
				}
			}
			if err := ENV.Robot.SetInput(onboard.DriverInput{Throttle: throttle, Wheel: wheel, QuickTurn: quick}); err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "gear",
		Help: "gear <high|low>",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(usage("gear <high|low>"))
				return
			}
			high, ok := parseOnOff(c.Args[0], "high", "low")
			if !ok {
				c.Err(usage("gear <high|low>"))
				return
			}
			if err := ENV.Robot.SetHighGear(high); err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "brake",
		Help: "brake <on|off>",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(usage("brake <on|off>"))
				return
			}
			on, ok := parseOnOff(c.Args[0], "on", "off")
			if !ok {
				c.Err(usage("brake <on|off>"))
				return
			}
			if err := ENV.Robot.SetBrake(on); err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "pizza",
		Help: "pizza <down|up>",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(usage("pizza <down|up>"))
				return
			}
			down, ok := parseOnOff(c.Args[0], "down", "up")
			if !ok {
				c.Err(usage("pizza <down|up>"))
				return
			}
			if err := ENV.Robot.SetPizzaWheel(down); err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "auto",
		Completer: routineNames,
		Help:      "auto <routine>",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Println("Routines:", strings.Join(ENV.Robot.Routines(), ", "))
				return
			}
			if err := ENV.Robot.StartRoutine(c.Args[0]); err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "disable",
		Help: "stop the drivetrain",
		Func: func(c *ishell.Context) {
			if err := ENV.Robot.Disable(); err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "state",
		Help: "print the last published state",
		Func: func(c *ishell.Context) {
			out, err := yaml.Marshal(ENV.Robot.State())
			if err != nil {
				c.Err(err)
				return
			}
			c.Print(string(out))
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "constants",
		Completer: profileNames,
		Help:      "constants [profile] prints the current constants or loads a saved profile",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				out, err := yaml.Marshal(ENV.Robot.State().Constants)
				if err != nil {
					c.Err(err)
					return
				}
				c.Print(string(out))
				names, _ := ProfileNames(ENV.DB)
				c.Println("Profiles:", strings.Join(names, ", "))
				return
			}

			constants, err := LoadProfile(ENV.DB, c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			if err := ENV.Robot.SetConstants(constants); err != nil {
				c.Err(err)
				return
			}
			c.Println("Loaded profile", c.Args[0])
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "reload",
		Help: "reload the active profile",
		Func: func(c *ishell.Context) {
			if err := ENV.Robot.ReloadConstants(); err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "save",
		Help: "save <profile> stores the current constants",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(usage("save <profile>"))
				return
			}
			if err := SaveProfile(ENV.DB, c.Args[0], ENV.Robot.State().Constants); err != nil {
				c.Err(err)
				return
			}
			c.Println("Saved profile", c.Args[0])
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "fit",
		Help: "fit <samples.csv> fits the linearization to measured command/speed pairs",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(usage("fit <samples.csv>"))
				return
			}
			f, err := os.Open(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			defer f.Close()

			samples, err := calcs.ReadSamples(f)
			if err != nil {
				c.Err(err)
				return
			}
			fit, err := calcs.FitLinearization(samples)
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("Coefficients %v, rms %.4f\n", fit.Coefficients, fit.RMS)

			constants := fit.Apply(ENV.Robot.State().Constants)
			if err := ENV.Robot.SetConstants(constants); err != nil {
				c.Err(err)
				return
			}
			c.Println("Applied; use save to keep them")
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "createoperator",
		Help: "createoperator <email> <password>",
		Func: func(c *ishell.Context) {
			// disable the '>>>' for cleaner same line input.
			c.ShowPrompt(false)
			defer c.ShowPrompt(true) // yes, revert when done.

			// get email
			var email string
			if len(c.Args) >= 1 {
				email = c.Args[0]
			} else {
				c.Print("Email: ")
				email = c.ReadLine()
			}

			// get password
			var password string
			if len(c.Args) >= 2 {
				password = c.Args[1]
			} else {
				c.Print("Password: ")
				password = c.ReadPassword()
			}

			operator := &Operator{
				Email: email,
				Name:  email,
				Admin: true,
			}
			if err := operator.SetPassword([]byte(password)); err != nil {
				c.Err(err)
				return
			}
			if err := ENV.DB.Save(operator); err != nil {
				c.Err(err)
				return
			}
			c.Println("Created operator", email)
		},
	})

	return shell
}
