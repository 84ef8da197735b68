// Package service assembles a running installation from a
// config.Config: the Engine and everything that feeds it or listens
// to it.
package service

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/Comcast/fernspiel/config"
	"github.com/Comcast/fernspiel/core"
	"github.com/Comcast/fernspiel/interpreters/goja"
	"github.com/Comcast/fernspiel/sio"
	"github.com/Comcast/fernspiel/storage"
	boltjournal "github.com/Comcast/fernspiel/storage/bolt"
	redisjournal "github.com/Comcast/fernspiel/storage/redis"
	"github.com/Comcast/fernspiel/tools"
	"github.com/Comcast/fernspiel/util/logger"

	"github.com/prometheus/client_golang/prometheus"
)

// Service is the assembled installation.
type Service struct {
	Book   *core.Book
	Events *sio.Events
	Queue  *sio.Queue
	Engine *sio.Engine

	// Registry has the Engine's metrics.
	Registry *prometheus.Registry

	// Remote and Listener are nil unless remote.listen is set.
	Remote   *sio.Remote
	Listener net.Listener

	// Stdio is nil unless stdio is set.
	Stdio *sio.Stdio

	// MQTT is nil unless mqtt.broker is set.
	MQTT *sio.MQTT

	// Ending hears about finished sounds from MQTT and Remote.
	Ending *sio.Ending

	Journal   storage.Journal
	Recorder  *storage.Recorder
	Schedules []*sio.Schedule
}

// New builds (but doesn't start) a Service.  Stdio, if enabled, uses
// the given in and out.
//
// The journal is opened here, and the remote listener (if any) is
// bound here so that its address is known before Run.
func New(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) (*Service, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	b, err := tools.LoadBookWithInlines(cfg.Book)
	if err != nil {
		return nil, fmt.Errorf("load book: %w", err)
	}

	s := &Service{
		Book:     b,
		Events:   sio.NewEvents(cfg.QueueSize),
		Registry: prometheus.NewRegistry(),
	}
	metrics := sio.NewMetrics(s.Registry)

	s.Ending = sio.NewEnding(s.Events)

	actuators := []sio.Actuator{sio.LogActuator{}}
	observers := []sio.Observer{s.Ending}

	if cfg.Stdio {
		s.Stdio = sio.NewStdio(cfg.HaltOnEOF)
		if in != nil {
			s.Stdio.In = in
		}
		if out != nil {
			s.Stdio.Out = out
		}
		actuators = append(actuators, s.Stdio)
		observers = append(observers, s.Stdio)
	}

	if cfg.MQTT.Broker != "" {
		client, err := sio.NewMQTTClient(MQTTConf(&cfg.MQTT))
		if err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		s.MQTT = &sio.MQTT{
			Client:      client,
			InputTopics: cfg.MQTT.InputTopic,
			OutputTopic: cfg.MQTT.OutputTopic,
			StateTopic:  cfg.MQTT.StateTopic,
			DoneTopic:   cfg.MQTT.DoneTopic,
			Ending:      s.Ending,
		}
		if cfg.MQTT.Decoder != "" {
			d, err := goja.NewDecoderFromFile(cfg.MQTT.Decoder, cfg.MQTT.Requires)
			if err != nil {
				return nil, fmt.Errorf("mqtt decoder: %w", err)
			}
			s.MQTT.Decoder = d
		}
		if cfg.MQTT.OutputTopic != "" {
			actuators = append(actuators, s.MQTT)
		}
		if cfg.MQTT.StateTopic != "" {
			observers = append(observers, s.MQTT)
		}
	}

	for _, sc := range cfg.Schedules {
		schedule, err := sio.NewSchedule(sc.Cron, sc.Symbol)
		if err != nil {
			return nil, err
		}
		s.Schedules = append(s.Schedules, schedule)
	}

	if cfg.Remote.Listen != "" {
		s.Remote = sio.NewRemote(nil)
		s.Remote.Gatherer = s.Registry
		s.Remote.MaxConns = cfg.Remote.MaxConns
		s.Remote.Ending = s.Ending
		s.Remote.RenderBook = func(w io.Writer, b *core.Book) error {
			return tools.RenderBookPage(b, w, b.InitialState().Name, nil)
		}
		actuators = append(actuators, s.Remote)
		observers = append(observers, s.Remote)
	}

	if s.Journal, err = NewJournal(&cfg.Journal); err != nil {
		return nil, err
	}
	if err = s.Journal.Open(ctx); err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	s.Recorder = storage.NewRecorder(s.Journal, cfg.QueueSize)
	observers = append(observers, s.Recorder)

	s.Queue = sio.NewQueue(cfg.QueueSize, metrics, actuators...)
	s.Engine = sio.NewEngine(b, s.Events, sio.NewActions(s.Queue), &sio.EngineConf{
		Metrics:   metrics,
		Observers: observers,
	})

	if s.Remote != nil {
		s.Remote.Engine = s.Engine
		if s.Listener, err = s.Remote.Listen(cfg.Remote.Listen); err != nil {
			s.Journal.Close(ctx)
			return nil, fmt.Errorf("listen: %w", err)
		}
	}

	return s, nil
}

// MQTTConf makes the client configuration.
func MQTTConf(cfg *config.MQTT) *sio.MQTTConf {
	return &sio.MQTTConf{
		Broker:    cfg.Broker,
		ClientId:  cfg.ClientId,
		Username:  cfg.Username,
		Password:  cfg.Password,
		KeepAlive: cfg.KeepAlive,
		Reconnect: true,
		CAFile:    cfg.CAFile,
		CertFile:  cfg.CertFile,
		KeyFile:   cfg.KeyFile,
		Insecure:  cfg.Insecure,
	}
}

// NewJournal makes (but doesn't open) the configured Journal.
func NewJournal(cfg *config.Journal) (storage.Journal, error) {
	switch cfg.Kind {
	case config.JournalBolt:
		return boltjournal.NewJournal(cfg.Path)
	case config.JournalRedis:
		var opts []redisjournal.Option
		if cfg.Prefix != "" {
			opts = append(opts, redisjournal.WithPrefix(cfg.Prefix))
		}
		if 0 < cfg.MaxLen {
			opts = append(opts, redisjournal.WithMaxLen(cfg.MaxLen))
		}
		return redisjournal.New(cfg.RedisAddr, "", cfg.RedisDB, opts...), nil
	default:
		return &storage.NoopJournal{}, nil
	}
}

// Run starts every producer and consumer and then runs the Engine.
//
// When the Engine stops, queued commands and transitions are drained,
// everything else is stopped and the journal is closed.  The error is
// the Engine's.
func (s *Service) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "service")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var drain, background sync.WaitGroup

	drain.Add(2)
	go func() {
		defer drain.Done()
		if err := s.Queue.Run(ctx); err != nil {
			logger.DebugKV(ctx, "queue stopped", "error", err)
		}
	}()
	go func() {
		defer drain.Done()
		if err := s.Recorder.Run(ctx); err != nil {
			logger.DebugKV(ctx, "recorder stopped", "error", err)
		}
	}()

	if s.Remote != nil {
		background.Add(1)
		go func() {
			defer background.Done()
			if err := s.Remote.Serve(ctx, s.Listener); err != nil {
				logger.WarnKV(ctx, "remote stopped", "error", err)
			}
		}()
	}

	if s.MQTT != nil {
		if err := s.MQTT.Start(ctx, s.Events); err != nil {
			logger.ErrorKV(ctx, "mqtt start", "error", err)
			s.shutdown(ctx, cancel, &drain, &background)
			return err
		}
		defer s.MQTT.Stop(ctx)
	}

	if 0 < len(s.Schedules) {
		background.Add(1)
		go func() {
			defer background.Done()
			sio.RunSchedules(ctx, s.Events, s.Schedules)
		}()
	}

	// Stdio reading isn't waited for since a read from a terminal
	// can't be interrupted.
	if s.Stdio != nil {
		go func() {
			if err := s.Stdio.Run(ctx, s.Events); err != nil {
				logger.DebugKV(ctx, "stdio stopped", "error", err)
			}
		}()
	}

	err := s.Engine.Run(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "engine stopped", "error", err)
	} else {
		logger.InfoKV(ctx, "engine stopped", "state", s.Engine.Current())
	}

	s.shutdown(ctx, cancel, &drain, &background)

	return err
}

func (s *Service) shutdown(ctx context.Context, cancel func(), drain, background *sync.WaitGroup) {
	s.Queue.Close()
	s.Recorder.Close()
	drain.Wait()
	cancel()
	background.Wait()
	if err := s.Journal.Close(context.Background()); err != nil {
		logger.WarnKV(ctx, "journal close", "error", err)
	}
}
