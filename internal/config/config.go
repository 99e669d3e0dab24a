package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	Host      string    `koanf:"host"`
	Frontend  Frontend  `koanf:"frontend"`
	Database  Database  `koanf:"db"`
	Scheduler Scheduler `koanf:"scheduler"`
	Feed      Feed      `koanf:"feed"`
	Mailer    Mailer    `koanf:"mailer"`
}

type Frontend struct {
	Enabled bool `koanf:"enabled"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

type Scheduler struct {
	// IntervalMinutes is the wall-clock cadence of the reminder cycle.
	IntervalMinutes int `koanf:"intervalminutes"`
	// SlackMinutes widens the recurring-event lookahead window; it must be
	// at least IntervalMinutes or occurrences can be missed at window edges.
	SlackMinutes int `koanf:"slackminutes"`
	// LockTTLSeconds bounds how long a crashed instance can hold the cycle lock.
	LockTTLSeconds int `koanf:"lockttlseconds"`
	// DedupeLookbackHours is how far back already-sent reminders are considered.
	DedupeLookbackHours int `koanf:"dedupelookbackhours"`
}

type Feed struct {
	DaysBack    int `koanf:"daysback"`
	DaysForward int `koanf:"daysforward"`
}

type Mailer struct {
	Region string `koanf:"region"`
	Sender string `koanf:"sender"`
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Application{
		Host: "http://localhost:3000",
		Frontend: Frontend{
			Enabled: true,
		},
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "varsla",
			Pass:   "",
			Name:   "varsla",
			Schema: "varsla",
		},
		Scheduler: Scheduler{
			IntervalMinutes:     5,
			SlackMinutes:        5,
			LockTTLSeconds:      120,
			DedupeLookbackHours: 24,
		},
		Feed: Feed{
			DaysBack:    30,
			DaysForward: 90,
		},
		Mailer: Mailer{
			Region: "eu-west-1",
			Sender: "noreply@varsla.app",
		},
	}, "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "VARSLA_",
		TransformFunc: func(k, v string) (string, any) {
			// Transform the key.
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "VARSLA_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
