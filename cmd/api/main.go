package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/styloabhi/CRM-Analytics-Dashboard/infrastructure/charts"
	"github.com/styloabhi/CRM-Analytics-Dashboard/infrastructure/database/postgres"
	"github.com/styloabhi/CRM-Analytics-Dashboard/infrastructure/export"
	"github.com/styloabhi/CRM-Analytics-Dashboard/infrastructure/loader"
	"github.com/styloabhi/CRM-Analytics-Dashboard/infrastructure/repository"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/api"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/api/handler"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/config"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/metrics"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/scheduler"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/session"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/usecases/authenticating"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/usecases/dashboard"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/log"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatal(err)
	}

	log.Configure(cfg.App.LogLevel, cfg.App.Env)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logrus.WithError(err).Fatal("Erro ao registrar métricas")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	userRepo, closeUsers := userRepository(ctx, cfg)
	defer closeUsers()

	csvLoader := loader.NewCSVLoader(cfg.Data)

	// Confere os extratos na subida; cada login carrega a sua própria cópia depois
	if ds, err := csvLoader.Load(ctx); err != nil {
		logrus.WithError(err).Warn("Extratos indisponíveis na subida, logins vão falhar até serem corrigidos")
	} else {
		logrus.WithField("tables", ds.Summary()).Info("Extratos validados")
	}

	sessions, err := session.NewStore(csvLoader, cfg.Session.MaxActive, cfg.Session.IdleTTL)
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao criar armazenamento de sessões")
	}

	authenticator := authenticating.NewService(userRepo, sessions, cfg.Auth)

	dashboardService := dashboard.NewService(
		export.NewXLSXExporter(),
		charts.NewQuickChartRenderer(cfg.Charts),
	)

	sessionSweepService := scheduler.NewSessionSweepService(sessions, cfg.Session)
	if err := sessionSweepService.Start(ctx); err != nil {
		logrus.WithError(err).Error("Erro ao iniciar o agendador de limpeza de sessões")
	} else {
		logrus.Info("Agendador de limpeza de sessões iniciado com sucesso")
	}

	server, err := api.New(
		cfg,
		authenticator,
		dashboardService,
		sessions,
		handler.CronJobServices{SessionSweepService: sessionSweepService},
	)
	if err != nil {
		logrus.Fatal(err)
	}

	if err := server.Run(ctx); err != nil {
		logrus.Error(err)
	}
}

// userRepository escolhe a origem das credenciais conforme AUTH_USER_STORE
func userRepository(ctx context.Context, cfg *config.Config) (repository.UserRepository, func()) {
	if cfg.Auth.UserStore == config.UserStorePostgres {
		conn := pgconn(ctx, cfg.Database)
		return repository.NewPostgresUserRepository(conn), func() { conn.Close() }
	}

	fileRepo, err := repository.NewFileUserRepository(cfg.Auth.CredentialsFile)
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao carregar arquivo de credenciais")
	}
	logrus.Infof("%d usuários carregados de %s", fileRepo.Len(), cfg.Auth.CredentialsFile)
	return fileRepo, func() {}
}

// pgconn cria uma conexão com o banco de dados
func pgconn(ctx context.Context, dbConfig config.Database) *postgres.Connection {
	conn, err := postgres.NewConnection(ctx, dbConfig)
	if err != nil {
		logrus.WithError(err).Fatal("Erro ao conectar ao PostgreSQL")
	}

	logrus.Info("Conexão com PostgreSQL estabelecida com sucesso")
	return conn
}
