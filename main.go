package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/matt-g-everett/framescroll/api"
	"github.com/matt-g-everett/framescroll/assets"
	"github.com/matt-g-everett/framescroll/config"
	"github.com/matt-g-everett/framescroll/loop"
	"github.com/matt-g-everett/framescroll/playback"
	"github.com/matt-g-everett/framescroll/transport"
	"github.com/matt-g-everett/framescroll/util"
	"github.com/matt-g-everett/framescroll/view"
)

type app struct {
	Config     config.Config
	Log        *logrus.Logger
	Loop       *loop.Loop
	Client     mqtt.Client
	Bridge     *transport.Bridge
	Scroller   *util.Scroller
	Controller *playback.Controller
}

func newApp(cfg config.Config, log *logrus.Logger) *app {
	a := new(app)
	a.Config = cfg
	a.Log = log
	a.Loop = loop.New(cfg.FrameInterval())
	return a
}

func (a *app) handleOnConnect(client mqtt.Client) {
	a.Log.Info("Connected")
	if err := a.Bridge.Subscribe(); err != nil {
		a.Log.WithError(err).Error("Subscribing")
	}
}

func (a *app) setupMqtt() {
	if a.Config.Mqtt.URL == "" {
		return
	}

	options := mqtt.NewClientOptions().
		AddBroker(a.Config.Mqtt.URL).
		SetClientID(a.Config.Mqtt.ClientID).
		SetUsername(a.Config.Mqtt.Username).
		SetPassword(a.Config.Mqtt.Password).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(5 * time.Second).
		SetAutoReconnect(true).
		SetOnConnectHandler(a.handleOnConnect)
	a.Client = mqtt.NewClient(options)
	a.Bridge = transport.NewBridge(a.Client, a.Config.Mqtt.Topics, a.Config.Mqtt.Qos, a.Loop, a.Log)
}

func (a *app) setupScroller() error {
	if !a.Config.Simulate.Enabled {
		return nil
	}

	easing, err := util.Easing(a.Config.Simulate.Easing)
	if err != nil {
		return err
	}
	a.Scroller = util.NewScroller(a.Loop,
		util.GenerateLut(a.Config.Simulate.Steps, easing),
		time.Duration(a.Config.Simulate.IntervalMs)*time.Millisecond,
		time.Duration(a.Config.Simulate.PauseMs)*time.Millisecond,
		a.Log)
	return nil
}

func (a *app) newLoader(opts playback.Options) playback.AssetLoader {
	lc := a.Config.Loader
	if lc.Kind == config.LoaderSynthetic {
		return assets.NewSyntheticLoader(a.Loop, opts.FrameCount, opts.HighResAssetDirectory,
			time.Duration(lc.LatencyMs)*time.Millisecond, time.Duration(lc.JitterMs)*time.Millisecond)
	}
	return assets.NewFileLoader(a.Loop, lc.Workers, lc.CacheBytes, a.Log)
}

func (a *app) setupController() error {
	opts := a.Config.ToOptions()
	frames := a.Log.WithField("component", "events")
	opts.OnFramesShown = func(frame int) {
		frames.WithField("frame", frame).Trace("Frame shown")
		if a.Bridge != nil {
			a.Bridge.PublishFrameShown(frame)
		}
	}
	opts.OnPreloadComplete = func() {
		if a.Bridge != nil {
			a.Bridge.PublishPreloadComplete(opts.FrameCount)
		}
	}

	seq, err := playback.NewSequence(opts)
	if err != nil {
		return err
	}

	var source interface {
		playback.ScrollSource
		OnScroll(func())
	}
	switch {
	case a.Scroller != nil:
		source = a.Scroller
	case a.Bridge != nil:
		source = a.Bridge
	default:
		return &playback.ConfigurationError{Field: "mqtt.url", Reason: "required unless simulate.enabled is set"}
	}

	a.Controller = playback.NewController(seq, a.Loop, source, view.NewMemoryView(a.Log),
		a.newLoader(opts), a.Log)
	source.OnScroll(a.Controller.OnScroll)
	return nil
}

func (a *app) run(ctx context.Context) error {
	if a.Client != nil {
		if token := a.Client.Connect(); token.Wait() && token.Error() != nil {
			return token.Error()
		}
		defer a.Client.Disconnect(250)
	}

	if a.Config.Http.Listen != "" {
		server := api.NewApi(a.Loop, a.Controller, a.Config.Http.AssetRoot, a.Log)
		go func() {
			if err := server.Serve(ctx, a.Config.Http.Listen); err != nil {
				a.Log.WithError(err).Error("HTTP server stopped")
			}
		}()
	}

	if a.Scroller != nil {
		go a.Scroller.Run(ctx)
	}

	a.Loop.Post(a.Controller.Start)
	return a.Loop.Run(ctx)
}

func main() {
	// Parse command line parameters
	configPath := flag.String("config", "config.yaml", "YAML config file.")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Read the config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("Reading config")
	}
	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		log.WithError(err).Fatal("Parsing log level")
	}
	log.SetLevel(level)
	log.Debugf("Config: %+v", cfg)

	// mqtt.DEBUG = log.WithField("component", "paho")
	mqtt.ERROR = log.WithField("component", "paho")

	a := newApp(cfg, log)
	a.setupMqtt()
	if err := a.setupScroller(); err != nil {
		log.WithError(err).Fatal("Setting up scroll simulation")
	}
	if err := a.setupController(); err != nil {
		log.WithError(err).Fatal("Setting up player")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.run(ctx); err != nil && ctx.Err() == nil {
		log.WithError(err).Fatal("Stopped")
	}
	log.Info("Stopped")
}
