package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	authusecase "miinplanner-backend/internal/auth/usecase"
	"miinplanner-backend/internal/flows"
	"miinplanner-backend/internal/notification"
	"miinplanner-backend/internal/reminder/scheduler"
	taskusecase "miinplanner-backend/internal/task/usecase"
	"miinplanner-backend/internal/workspace"
	"miinplanner-backend/pkg/ai"
	"miinplanner-backend/pkg/chroma"
	"miinplanner-backend/pkg/config"
	"miinplanner-backend/pkg/fcm"
	fbapp "miinplanner-backend/pkg/firebase"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// usagePruneHour is the UTC hour of the daily usage cleanup
const usagePruneHour = 3

const (
	workspaceEvictInterval = 10 * time.Minute
	workspaceIdleTTL       = 30 * time.Minute
)

// Server owns every long-lived component of the API process
type Server struct {
	cfg *config.Config
	log *zap.Logger

	stores        *Stores
	settings      *AISettings
	registry      *workspace.Registry
	profiles      *authusecase.ProfileUsecase
	verifier      authusecase.Verifier
	issuer        *authusecase.JWTVerifier
	flows         *flows.Flows
	scheduler     *scheduler.Scheduler
	notifications *notification.Service
	indexer       *taskusecase.IndexWorkerService
}

// NewFirebaseApp returns nil when nothing in cfg needs Firebase
func NewFirebaseApp(ctx context.Context, cfg *config.Config) (*firebase.App, error) {
	if cfg.StoreDriver != "firestore" && cfg.AuthMode != "firebase" && cfg.FirebaseProjectID == "" {
		return nil, nil
	}
	return fbapp.NewApp(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentials)
}

func NewServer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Server, error) {
	app, err := NewFirebaseApp(ctx, cfg)
	if err != nil {
		return nil, err
	}

	stores, err := NewStores(ctx, cfg, app)
	if err != nil {
		return nil, err
	}
	log.Info("store ready", zap.String("driver", cfg.StoreDriver))

	s := &Server{
		cfg:      cfg,
		log:      log,
		stores:   stores,
		settings: NewAISettings(cfg.AIProvider, cfg.OllamaBaseURL, cfg.OllamaModel),
		profiles: authusecase.NewProfileUsecase(stores.Profiles, stores.Tokens, cfg, log),
	}
	if err := s.initAuth(ctx, app); err != nil {
		stores.Close()
		return nil, err
	}

	gen, err := ai.NewGenerator(ctx, s.settings.DynamicConfig(cfg.GeminiAPIKey, cfg.GeminiModel), log)
	if err != nil {
		stores.Close()
		return nil, fmt.Errorf("failed to initialize AI generator: %w", err)
	}
	s.flows, err = flows.New(gen, cfg.AITimeout, log)
	if err != nil {
		stores.Close()
		return nil, err
	}
	log.Info("AI flows ready", zap.String("provider", cfg.AIProvider))

	deps := workspace.Deps{
		Tasks:    stores.Tasks,
		Profiles: s.profiles,
		Spaces:   stores.Spaces,
		Posts:    stores.Posts,
		AI:       s.flows,
		Log:      log,
	}
	if cfg.ChromaAPIKey != "" {
		index, err := chroma.NewChromaClient(ctx, cfg, log)
		if err != nil {
			log.Warn("semantic search disabled", zap.Error(err))
		} else {
			s.indexer = taskusecase.NewIndexWorkerService(index, 2, log)
			s.indexer.Start()
			deps.Index = s.indexer
		}
	} else {
		log.Info("CHROMA_API_KEY not set, semantic search disabled")
	}
	s.registry = workspace.NewRegistry(deps)

	publisher, err := s.initNotifications(ctx, app)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.scheduler = scheduler.NewScheduler(stores.Reminders, publisher, log)
	if err := s.scheduler.ScheduleReminders(cfg.ReminderInterval); err != nil {
		s.Close()
		return nil, err
	}
	if _, err := s.scheduler.ScheduleInterval(workspaceEvictInterval, func() {
		if n := s.registry.Evict(workspaceIdleTTL); n > 0 {
			log.Debug("evicted idle workspaces", zap.Int("count", n))
		}
	}); err != nil {
		s.Close()
		return nil, err
	}
	if _, err := s.scheduler.ScheduleDaily(usagePruneHour, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.profiles.PruneUsage(ctx)
	}); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Server) initAuth(ctx context.Context, app *firebase.App) error {
	switch s.cfg.AuthMode {
	case "firebase":
		if app == nil {
			return errors.New("firebase auth requires Firebase to be configured")
		}
		client, err := app.Auth(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize Firebase auth: %w", err)
		}
		s.verifier = authusecase.NewFirebaseVerifier(client)
	case "local":
		s.issuer = authusecase.NewJWTVerifier(s.cfg.JWTSecret, s.cfg.JWTAccessExpiry)
		s.verifier = s.issuer
		s.log.Warn("local auth mode, tokens are issued by this server")
	default:
		return fmt.Errorf("unknown auth mode %q", s.cfg.AuthMode)
	}
	return nil
}

// initNotifications picks the reminder publisher. Pub/Sub is used when a
// topic is configured, otherwise events are dispatched in process.
func (s *Server) initNotifications(ctx context.Context, app *firebase.App) (scheduler.Publisher, error) {
	var pusher notification.Pusher
	if app != nil {
		client, err := fcm.NewClient(ctx, app, s.log)
		if err != nil {
			s.log.Warn("push notifications disabled", zap.Error(err))
		} else {
			pusher = client
		}
	}
	dispatcher := notification.NewDispatcher(pusher, s.profiles, s.log)

	if s.cfg.PubSubTopic == "" || s.cfg.FirebaseProjectID == "" {
		s.log.Info("PUBSUB_TOPIC not set, dispatching reminders in process")
		return notification.NewDirectPublisher(dispatcher), nil
	}
	svc, err := notification.NewService(ctx, s.cfg.FirebaseProjectID, s.cfg.PubSubTopic, s.cfg.PubSubSubscription, s.cfg.FirebaseCredentials, dispatcher, s.log)
	if err != nil {
		return nil, err
	}
	s.notifications = svc
	return svc, nil
}

// Run serves HTTP and the background jobs until ctx is cancelled, then
// shuts everything down.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if s.notifications != nil {
		g.Go(func() error {
			return s.notifications.Start(ctx)
		})
	}
	s.scheduler.Start()

	g.Go(func() error {
		<-ctx.Done()
		s.log.Info("shutting down")
		s.scheduler.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	s.Close()
	return err
}

// Close releases the stores and background workers
func (s *Server) Close() {
	if s.indexer != nil {
		s.indexer.Stop()
	}
	if s.notifications != nil {
		if err := s.notifications.Close(); err != nil {
			s.log.Warn("failed to close pubsub", zap.Error(err))
		}
	}
	if err := s.stores.Close(); err != nil {
		s.log.Warn("failed to close store", zap.Error(err))
	}
}
