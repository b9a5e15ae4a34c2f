package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aidar/teamhub/internal/config"
	"github.com/aidar/teamhub/internal/handler"
	"github.com/aidar/teamhub/internal/lock"
	"github.com/aidar/teamhub/internal/mailer"
	"github.com/aidar/teamhub/internal/middleware"
	"github.com/aidar/teamhub/internal/repository"
	"github.com/aidar/teamhub/internal/repository/memory"
	"github.com/aidar/teamhub/internal/repository/postgres"
	"github.com/aidar/teamhub/internal/service"
	"github.com/aidar/teamhub/internal/worker"
	"github.com/aidar/teamhub/migrations"
)

// App представляет приложение со всеми зависимостями
type App struct {
	config *config.Config
	logger *zap.Logger

	db      *pgxpool.Pool
	redis   *redis.Client
	handler http.Handler
	server  *http.Server
	mailer  *mailer.AsyncDispatcher

	sweeper     *worker.Sweeper
	stopSweeper context.CancelFunc
	sweeperDone chan struct{}
}

// stores объединяет репозитории выбранного хранилища
type stores struct {
	tx          repository.Transactor
	users       repository.UserRepository
	teams       repository.TeamRepository
	invitations repository.InvitationRepository
}

// New создает новый экземпляр приложения
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	app := &App{
		config: cfg,
		logger: logger,
	}

	return app, nil
}

// Initialize инициализирует все компоненты приложения
func (a *App) Initialize(ctx context.Context) error {
	st, err := a.setupStorage(ctx)
	if err != nil {
		return err
	}

	if err := a.connectRedis(ctx); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	// Настраиваем сервисы, HTTP сервер и роутинг
	a.setupServer(st)

	a.logger.Info("application initialized",
		zap.String("storage", a.config.Storage.Backend),
		zap.Bool("redis_lock", a.redis != nil),
		zap.Bool("smtp", a.config.SMTP.Host != ""),
	)
	return nil
}

// setupStorage подключает выбранное хранилище
func (a *App) setupStorage(ctx context.Context) (stores, error) {
	if a.config.Storage.Backend == config.StorageBackendMemory {
		store := memory.NewStore()
		a.logger.Warn("using in-memory storage, data will be lost on restart")
		return stores{
			tx:          store,
			users:       store.Users(),
			teams:       store.Teams(),
			invitations: store.Invitations(),
		}, nil
	}

	if err := a.connectDB(ctx); err != nil {
		return stores{}, fmt.Errorf("failed to connect to database: %w", err)
	}

	if a.config.Database.AutoMigrate {
		if err := migrations.Apply(ctx, a.db); err != nil {
			return stores{}, fmt.Errorf("failed to apply migrations: %w", err)
		}
		a.logger.Info("database migrations applied")
	}

	return stores{
		tx:          postgres.NewTxManager(a.db),
		users:       postgres.NewUserRepository(a.db),
		teams:       postgres.NewTeamRepository(a.db),
		invitations: postgres.NewInvitationRepository(a.db),
	}, nil
}

// connectDB устанавливает подключение к PostgreSQL с connection pool
func (a *App) connectDB(ctx context.Context) error {
	poolConfig, err := pgxpool.ParseConfig(a.config.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to parse database config: %w", err)
	}

	// Настраиваем размеры connection pool
	poolConfig.MaxConns = a.config.Database.MaxConns
	poolConfig.MinConns = a.config.Database.MinConns

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Проверяем подключение к БД
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.db = pool
	a.logger.Info("connected to database")
	return nil
}

// connectRedis подключает Redis, если он настроен. Без Redis блокировка очистки локальная
func (a *App) connectRedis(ctx context.Context) error {
	if a.config.Redis.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     a.config.Redis.Addr,
		Password: a.config.Redis.Password,
		DB:       a.config.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return err
	}

	a.redis = client
	a.logger.Info("connected to redis", zap.String("addr", a.config.Redis.Addr))
	return nil
}

// setupServer инициализирует сервисы, HTTP роутер и обработчики
func (a *App) setupServer(st stores) {
	// Отправка писем
	var sender mailer.Sender = mailer.NoopSender{}
	if smtp := a.config.SMTP; smtp.Host != "" {
		sender = mailer.NewSMTPSender(smtp.Host, smtp.Port, smtp.Username, smtp.Password, smtp.FromEmail, smtp.FromName)
	}
	a.mailer = mailer.NewAsyncDispatcher(sender, a.config.SMTP.Timeout, a.logger)

	// Инициализируем слой сервисов (бизнес-логика)
	policy := service.Policy{
		MaxTeamSize:    a.config.Invitation.MaxTeamSize,
		InvitationTTL:  a.config.Invitation.TTL,
		InviteLinkBase: a.config.Invitation.InviteLinkBase,
	}
	userService := service.NewUserService(st.users)
	teamService := service.NewTeamService(st.tx, st.teams, service.NewRandomCodeGenerator(), a.logger)
	invitationService := service.NewInvitationService(st.tx, st.teams, st.invitations, st.users, a.mailer, policy, a.logger)
	authService := service.NewAuthService(
		st.users,
		a.config.JWT.Secret,
		a.config.JWT.GetExpiration(),
		a.config.JWT.AdminUserIDs,
	)
	statsService := service.NewStatsService(st.teams, st.invitations)

	// Фоновая очистка просроченных приглашений
	if a.config.Sweep.Enabled {
		var locker lock.Locker = lock.NewMemoryLocker()
		if a.redis != nil {
			locker = lock.NewRedisLocker(a.redis)
		}
		a.sweeper = worker.NewSweeper(invitationService, locker, a.config.Sweep.Interval, a.logger)
	}

	// Инициализируем HTTP обработчики
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	teamHandler := handler.NewTeamHandler(teamService, invitationService)
	invitationHandler := handler.NewInvitationHandler(invitationService)
	adminHandler := handler.NewAdminHandler(statsService, invitationService)

	// Инициализируем middleware для JWT авторизации
	authMiddleware := middleware.AuthMiddleware(authService)

	// Настраиваем роутер
	r := chi.NewRouter()

	// Глобальные middleware (применяются ко всем запросам)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(a.logger.Named("http")))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// Публичные эндпоинты (без авторизации)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
	})

	// Health check для мониторинга
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		handler.RespondWithJSON(w, r, http.StatusOK, handler.MessageResponse{Message: "ok"})
	})

	// Синхронизация справочника пользователей с провайдером идентичности (по общему секрету)
	r.With(middleware.RequireServiceToken(a.config.Directory.SyncToken)).Post("/users/upsert", userHandler.Upsert)
	r.Get("/teams/scoreboard", teamHandler.Scoreboard)

	// Защищенные эндпоинты (требуют JWT токен в заголовке Authorization)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/users/me", userHandler.Me)

		// Эндпоинты команд
		r.Route("/teams", func(r chi.Router) {
			r.Post("/", teamHandler.CreateTeam)
			r.Get("/me", teamHandler.GetMyTeam)
			r.Post("/join", teamHandler.JoinByCode)

			r.Route("/{teamID}", func(r chi.Router) {
				r.Get("/", teamHandler.GetTeam)
				r.Patch("/", teamHandler.UpdateTeam)
				r.Delete("/", teamHandler.DeleteTeam)
				r.Get("/members", teamHandler.GetMembers)
				r.Delete("/members/{userID}", teamHandler.RemoveMember)
				r.Post("/leave", teamHandler.LeaveTeam)
				r.Post("/leader", teamHandler.TransferLeadership)
				r.Post("/invite-code", teamHandler.RegenerateInviteCode)

				r.Post("/invitations", invitationHandler.Invite)
				r.Get("/invitations", invitationHandler.ListForTeam)
				r.Post("/invitations/{invitationID}/cancel", invitationHandler.Cancel)
			})
		})

		// Эндпоинты приглашений
		r.Route("/invitations", func(r chi.Router) {
			r.Get("/", invitationHandler.ListMine)
			r.Get("/{invitationID}", invitationHandler.Get)
			r.Post("/{invitationID}/accept", invitationHandler.Accept)
			r.Post("/{invitationID}/reject", invitationHandler.Reject)
		})

		// Административные эндпоинты
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/stats", adminHandler.GetStats)
			r.Post("/invitations/sweep", adminHandler.SweepInvitations)
		})
	})

	a.handler = r

	// Создаем HTTP сервер с настройками таймаутов
	addr := fmt.Sprintf("%s:%s", a.config.Server.Host, a.config.Server.Port)
	a.server = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	a.logger.Info("http server configured", zap.String("addr", addr))
}

// Handler возвращает корневой HTTP обработчик (используется в тестах)
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run запускает фоновую очистку и HTTP сервер
func (a *App) Run() error {
	a.startSweeper()

	a.logger.Info("starting http server", zap.String("addr", a.server.Addr))
	return a.server.ListenAndServe()
}

func (a *App) startSweeper() {
	if a.sweeper == nil || a.stopSweeper != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.stopSweeper = cancel
	a.sweeperDone = make(chan struct{})
	go func() {
		defer close(a.sweeperDone)
		a.sweeper.Run(ctx)
	}()
}

// Shutdown корректно останавливает приложение
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down application")

	// Останавливаем HTTP сервер (ждем завершения текущих запросов)
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	if a.stopSweeper != nil {
		a.stopSweeper()
		<-a.sweeperDone
	}

	// Дожидаемся отправки писем
	if a.mailer != nil {
		if err := a.mailer.Wait(ctx); err != nil {
			a.logger.Warn("pending invitation emails dropped", zap.Error(err))
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis client", zap.Error(err))
		}
	}

	// Закрываем подключения к базе данных
	if a.db != nil {
		a.db.Close()
	}

	a.logger.Info("application stopped gracefully")
	return nil
}
