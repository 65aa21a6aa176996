package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/asdine/storm"
	"github.com/caarlos0/env"

	"github.com/cpsmotion/akmotor/canbus"
	"github.com/cpsmotion/akmotor/motor"
	"github.com/cpsmotion/akmotor/telemetry"
)

type EnvConfig struct {
	JWT_ISSUER string `env:"AKMOTOR_ISSUER" envDefault:"DEV"`
	JWT_SECRET string `env:"AKMOTOR_SECRET" envDefault:"dev-only-not-a-secret"`
	DEBUG      bool   `env:"DEBUG" envDefault:"0"`
	SRCDIR     string `env:"SRCDIR" envDefault:"."`
	DBFILE     string `env:"DBFILE" envDefault:"./tmp/akmotor.db"`
	DB         *storm.DB
	Simulated  bool
}

var (
	ENV *EnvConfig
)

func init() {
	ENV = new(EnvConfig)
	env.Parse(ENV)

	dbFile, _ := filepath.Abs(ENV.DBFILE)
	dir := filepath.Dir(dbFile)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		os.Mkdir(dir, 0755)
	}

	db, err := openDb(dbFile)
	if err != nil {
		panic(err)
	}
	ENV.DB = db
}

func openDb(path string) (*storm.DB, error) {
	return storm.Open(path)
}

func main() {
	simulated := flag.Bool("sim", false, "Drive a simulated motor instead of the CAN bus")
	configFile := flag.String("config", "motors.yaml", "Motor config file")
	port := flag.String("port", "0.0.0.0:8080", "Specify the ip:port the monitor listens on")
	flag.Parse()

	defer ENV.DB.Close()
	ENV.Simulated = *simulated

	filename, err := filepath.Abs(filepath.Join(ENV.SRCDIR, *configFile))
	if err != nil {
		panic(err)
	}

	config, err := motor.LoadConfig(filename)
	if err != nil {
		panic(fmt.Sprintf("Unable to load config: %v", err))
	}

	motors, err := buildMotors(config, ENV.Simulated)
	if err != nil {
		panic(fmt.Sprintf("Unable to initialize motors: %v", err))
	}

	recorder := telemetry.NewRecorder(ENV.DB)

	go func() {
		log.Printf("monitor listening on %s", *port)
		log.Fatal(http.ListenAndServe(*port, NewMonitorRouter(motors)))
	}()

	runShell(motors, recorder)

	// power everything down on the way out
	for name, m := range motors {
		if err := m.Disable(); err != nil {
			log.Printf("disable %s: %v", name, err)
		}
	}
}

// buildMotors connects every configured motor, sharing one bus per CAN
// interface. In simulated mode each motor gets its own in-process plant.
func buildMotors(config *motor.ControlConfig, simulated bool) (motors map[string]*motor.Motor, err error) {
	motors = make(map[string]*motor.Motor, len(config.Motors))
	buses := make(map[string]*canbus.CANBus)

	for name, mc := range config.Motors {
		var link motor.Transport

		if simulated {
			link = motor.NewSimTransport()
		} else {
			bus, ok := buses[mc.Interface]
			if !ok {
				bus, err = canbus.NewCANBus(mc.Interface)
				if err != nil {
					return nil, err
				}
				buses[mc.Interface] = bus
			}

			link, err = canbus.NewMotorLink(bus, mc.MotorID, mc.MotorType)
			if err != nil {
				return nil, err
			}
		}

		motors[name], err = motor.NewMotor(mc, link)
		if err != nil {
			return nil, err
		}
	}

	return motors, nil
}

func runShell(motors map[string]*motor.Motor, recorder *telemetry.Recorder) {
	motorNames := func([]string) []string {
		keys := make([]string, 0, len(motors))
		for k := range motors {
			keys = append(keys, k)
		}
		return keys
	}

	lookup := func(c *ishell.Context) *motor.Motor {
		if len(c.Args) < 1 {
			c.Err(fmt.Errorf("motor name required"))
			return nil
		}
		m, ok := motors[c.Args[0]]
		if !ok {
			c.Err(fmt.Errorf("no such motor %s", c.Args[0]))
			return nil
		}
		return m
	}

	shell := ishell.New()
	shell.Println("akmotor control shell")
	shell.ShowPrompt(true)

	shell.AddCmd(&ishell.Cmd{
		Name: "createsuperuser",
		Help: "createsuperuser <email> <password>",
		Func: func(c *ishell.Context) {
			c.ShowPrompt(false)
			defer c.ShowPrompt(true)

			var email string
			if len(c.Args) >= 1 {
				email = c.Args[0]
			} else {
				c.Print("Email: ")
				email = c.ReadLine()
			}

			var password string
			if len(c.Args) >= 2 {
				password = c.Args[1]
			} else {
				c.Print("Password: ")
				password = c.ReadPassword()
			}

			op := &Operator{
				Email: email,
				Name:  email,
				Admin: true,
			}
			op.SetPassword([]byte(password))
			if err := ENV.DB.Save(op); err != nil {
				panic(err)
			}

			c.Println("Superuser created")
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "enable",
		Completer: motorNames,
		Help:      "enable <name>",
		Func: func(c *ishell.Context) {
			m := lookup(c)
			if m == nil {
				return
			}
			if err := m.Enable(); err != nil {
				c.Err(err)
				return
			}
			c.Printf("%s powered on\n", c.Args[0])
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "disable",
		Completer: motorNames,
		Help:      "disable <name>",
		Func: func(c *ishell.Context) {
			m := lookup(c)
			if m == nil {
				return
			}
			if err := m.Disable(); err != nil {
				c.Err(err)
				return
			}
			c.Printf("%s powered off after %.1fs uptime\n", c.Args[0], m.Uptime().Seconds())
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "status",
		Completer: motorNames,
		Help:      "status <name>",
		Func: func(c *ishell.Context) {
			m := lookup(c)
			if m == nil {
				return
			}
			alive := m.CheckConnection()
			s := m.State()
			c.Printf("power=%s alive=%v pos=%.3frad vel=%.3frad/s tau=%.3fNm temp=%.1fC overtemp=%v\n",
				m.PowerState(), alive, s.Position, s.Velocity, s.Torque, s.Temperature, s.OverTemp)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "pos",
		Completer: motorNames,
		Help:      "pos <name> <rad> [duration_s]",
		Func: func(c *ishell.Context) {
			m := lookup(c)
			if m == nil || len(c.Args) < 2 {
				return
			}
			target, _ := strconv.ParseFloat(c.Args[1], 64)
			duration := 0.0
			if len(c.Args) >= 3 {
				duration, _ = strconv.ParseFloat(c.Args[2], 64)
			}

			if err := runMove(c.Args[0], m, recorder, target, duration); err != nil {
				c.Err(err)
				return
			}
			c.Printf("arrived at %.3f rad\n", m.State().Position)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "vel",
		Completer: motorNames,
		Help:      "vel <name> <rad_s> <seconds>",
		Func: func(c *ishell.Context) {
			m := lookup(c)
			if m == nil || len(c.Args) < 3 {
				return
			}
			target, _ := strconv.ParseFloat(c.Args[1], 64)
			seconds, _ := strconv.ParseFloat(c.Args[2], 64)

			m.SetVelocity(target)
			if err := runFor(c.Args[0], m, recorder, seconds); err != nil {
				c.Err(err)
				return
			}
			if err := m.Stop(); err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "torque",
		Completer: motorNames,
		Help:      "torque <name> <nm> <seconds>",
		Func: func(c *ishell.Context) {
			m := lookup(c)
			if m == nil || len(c.Args) < 3 {
				return
			}
			target, _ := strconv.ParseFloat(c.Args[1], 64)
			seconds, _ := strconv.ParseFloat(c.Args[2], 64)

			m.SetTorque(target)
			if err := runFor(c.Args[0], m, recorder, seconds); err != nil {
				c.Err(err)
				return
			}
			if err := m.Stop(); err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "zero",
		Completer: motorNames,
		Help:      "zero <name>",
		Func: func(c *ishell.Context) {
			m := lookup(c)
			if m == nil {
				return
			}
			if err := m.ZeroPosition(); err != nil {
				c.Err(err)
				return
			}
			c.Println("position zeroed")
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "stop",
		Completer: motorNames,
		Help:      "stop <name>",
		Func: func(c *ishell.Context) {
			m := lookup(c)
			if m == nil {
				return
			}
			if err := m.Stop(); err != nil {
				c.Err(err)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "log",
		Completer: motorNames,
		Help:      "log <name> [count]",
		Func: func(c *ishell.Context) {
			m := lookup(c)
			if m == nil {
				return
			}
			count := 10
			if len(c.Args) >= 2 {
				count, _ = strconv.Atoi(c.Args[1])
			}
			samples, err := recorder.Recent(c.Args[0], count)
			if err != nil {
				c.Err(err)
				return
			}
			for _, s := range samples {
				c.Printf("%s pos=%.3f vel=%.3f tau=%.3f temp=%.1f\n",
					s.At.Format(time.StampMilli), s.Position, s.Velocity, s.Torque, s.Temperature)
			}
		},
	})

	shell.Start()
	shell.Wait()
}

// runMove drives a position command to completion: a trajectory loop for
// timed moves, a step plus settling verification otherwise.
func runMove(name string, m *motor.Motor, recorder *telemetry.Recorder, target, duration float64) error {
	period := time.Duration(float64(time.Second) / m.Config().ControlFrequency)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	traj := m.StartTrajectory(target, duration, motor.MinimumJerk)

	if traj != nil {
		for range ticker.C {
			state, done, err := m.FollowTrajectory(traj)
			if err != nil {
				return err
			}
			recorder.Record(name, state)
			if done {
				return nil
			}
		}
	}

	// step command, hold until the tracker proves arrival
	tracker := m.NewSettlingTracker()
	for range ticker.C {
		state, err := m.Update()
		if err != nil {
			return err
		}
		recorder.Record(name, state)

		switch tracker.Sample(state.Position, target, time.Now()) {
		case motor.Settled:
			return nil
		case motor.TimedOut:
			return fmt.Errorf("motor %s failed to settle within %gs", name, m.Config().StepTimeout)
		}
	}
	return nil
}

// runFor streams the pending command for a wall-clock span.
func runFor(name string, m *motor.Motor, recorder *telemetry.Recorder, seconds float64) error {
	period := time.Duration(float64(time.Second) / m.Config().ControlFrequency)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	deadline := time.Now().Add(time.Duration(seconds * float64(time.Second)))
	for range ticker.C {
		if time.Now().After(deadline) {
			return nil
		}
		state, err := m.Update()
		if err != nil {
			return err
		}
		recorder.Record(name, state)
	}
	return nil
}
