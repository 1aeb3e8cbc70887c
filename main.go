package main

import (
	"time"

	"atlas-game-engine/algorithm"
	"atlas-game-engine/bootstrap"
	"atlas-game-engine/config"
	"atlas-game-engine/httpapi"
	"atlas-game-engine/instance"
	"atlas-game-engine/logger"
	"atlas-game-engine/migrate"
	"atlas-game-engine/service"
	"atlas-game-engine/snapshot"
	"atlas-game-engine/tasks"
	"atlas-game-engine/tracing"
	"atlas-game-engine/tx"

	"github.com/Chronicle20/atlas-rest/server"
)

const serviceName = "atlas-game-engine"

type restServer struct {
	baseURL string
	prefix  string
}

func (s restServer) GetBaseURL() string { return s.baseURL }
func (s restServer) GetPrefix() string  { return s.prefix }

func getServer() restServer {
	return restServer{baseURL: "", prefix: "/"}
}

func main() {
	l := logger.CreateLogger(serviceName)
	l.Infoln("Starting game state engine.")

	settings := bootstrap.FromEnv()

	tdm := service.GetTeardownManager()

	tc, err := tracing.InitTracer(l)(serviceName)
	if err != nil {
		l.WithError(err).Fatal("Unable to initialize tracer.")
	}

	reg := algorithm.NewRegistry()

	cfg, err := config.Load(settings.ConfigPath, reg)
	if err != nil {
		l.WithError(err).Fatal("Unable to load game config.")
	}
	configs := config.NewSingleStore(cfg)

	instances := instance.NewManager(settings.MaxIdempotencyEntries)

	snapshotMgr, err := snapshot.NewManager(l, settings.SnapshotDir)
	if err != nil {
		l.WithError(err).Fatal("Unable to initialize snapshot manager.")
	}

	restored := snapshotMgr.Load()
	for gameInstanceID, state := range restored {
		migrated, warnings := migrate.Migrate(state, cfg)
		for _, w := range warnings {
			l.WithFields(map[string]any{
				"game_instance_id": gameInstanceID,
				"rule":             w.Rule,
				"entity_type":      w.EntityType,
				"entity_id":        w.EntityID,
			}).Warn(w.Detail)
		}
		instances.Put(gameInstanceID, migrated)
	}
	l.Infof("Restored %d game instance(s) from snapshot.", len(restored))

	dispatcher := tx.NewDispatcher(l, instances, configs, reg, settings.AdminAPIKey)

	flushTask := snapshot.NewFlushTask(snapshotMgr, instances.All, settings.SnapshotInterval)
	tasks.Register(l, tdm.Context())(flushTask)

	deps := httpapi.Dependencies{
		Instances:   instances,
		Configs:     configs,
		Registry:    reg,
		Dispatcher:  dispatcher,
		AdminAPIKey: settings.AdminAPIKey,
		E2E:         settings.E2E,
		Shutdown:    tdm.Shutdown,
		StartedAt:   time.Now(),
	}

	server.New(l).
		WithContext(tdm.Context()).
		WithWaitGroup(tdm.WaitGroup()).
		SetBasePath(getServer().GetPrefix()).
		SetPort(settings.Port).
		AddRouteInitializer(httpapi.InitResource(deps)).
		Run()

	tdm.TeardownFunc(func() {
		for gameInstanceID, h := range instances.All() {
			snapshotMgr.Write(gameInstanceID, h.Snapshot())
		}
	})
	tdm.TeardownFunc(tracing.Teardown(l)(tc))

	tdm.Wait()
	l.Infoln("Game state engine shutdown.")
}
