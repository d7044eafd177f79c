package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	UserStoreFile     = "file"
	UserStorePostgres = "postgres"
)

type Config struct {
	App      App      `mapstructure:",squash"`
	Server   Server   `mapstructure:",squash"`
	Database Database `mapstructure:",squash"`
	Auth     Auth     `mapstructure:",squash"`
	Data     Data     `mapstructure:",squash"`
	Session  Session  `mapstructure:",squash"`
	Charts   Charts   `mapstructure:",squash"`
}

type Server struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	AllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"server_read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"server_write_timeout"`
}

type Database struct {
	DSN      string `mapstructure:"-"`
	Driver   string `mapstructure:"database_driver"`
	Password string `mapstructure:"database_password"`
	URL      string `mapstructure:"database_url"`
	User     string `mapstructure:"database_user"`
}

type App struct {
	LogLevel string `mapstructure:"log_level"`
	Env      string `mapstructure:"app_env"`
}

type Auth struct {
	Secret          string        `mapstructure:"auth_secret"`
	TokenTTL        time.Duration `mapstructure:"auth_token_ttl"`
	UserStore       string        `mapstructure:"auth_user_store"`
	CredentialsFile string        `mapstructure:"auth_credentials_file"`
}

// Data descreve onde estão os extratos CSV e o formato de data de cada arquivo
type Data struct {
	Dir string `mapstructure:"data_dir"`

	PipelineFile   string `mapstructure:"data_pipeline_file"`
	AccountsFile   string `mapstructure:"data_accounts_file"`
	ProductsFile   string `mapstructure:"data_products_file"`
	AgentsFile     string `mapstructure:"data_agents_file"`
	Product360File string `mapstructure:"data_product_360_file"`
	Agent360File   string `mapstructure:"data_agent_360_file"`
	Account360File string `mapstructure:"data_account_360_file"`
	CohortFile     string `mapstructure:"data_cohort_file"`

	PipelineDateLayout string `mapstructure:"data_pipeline_date_layout"`
	RollupDateLayout   string `mapstructure:"data_rollup_date_layout"`
	CohortDateLayout   string `mapstructure:"data_cohort_date_layout"`
}

type Session struct {
	IdleTTL      time.Duration `mapstructure:"session_idle_ttl"`
	MaxActive    int           `mapstructure:"session_max_active"`
	SweepCron    string        `mapstructure:"session_sweep_cron"`
	SweepEnabled bool          `mapstructure:"session_sweep_enabled"`
}

type Charts struct {
	Width           int64  `mapstructure:"charts_width"`
	Height          int64  `mapstructure:"charts_height"`
	BackgroundColor string `mapstructure:"charts_background_color"`
}

func SetDefaults() {
	viper.SetDefault("HOST", "localhost")
	viper.SetDefault("PORT", 8000)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("SERVER_READ_TIMEOUT", "15s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "60s")

	viper.SetDefault("DATABASE_DRIVER", "postgres")
	viper.SetDefault("DATABASE_URL", "localhost:5432/crm_analytics")
	viper.SetDefault("DATABASE_USER", "postgres")
	viper.SetDefault("DATABASE_PASSWORD", "root")

	viper.SetDefault("AUTH_SECRET", "your_secret_key")
	viper.SetDefault("AUTH_TOKEN_TTL", "24h")
	viper.SetDefault("AUTH_USER_STORE", UserStoreFile)
	viper.SetDefault("AUTH_CREDENTIALS_FILE", "credentials.yaml")

	viper.SetDefault("DATA_DIR", "Resources")
	viper.SetDefault("DATA_PIPELINE_FILE", "sales_pipeline.csv")
	viper.SetDefault("DATA_ACCOUNTS_FILE", "accounts.csv")
	viper.SetDefault("DATA_PRODUCTS_FILE", "products.csv")
	viper.SetDefault("DATA_AGENTS_FILE", "sales_agent.csv")
	viper.SetDefault("DATA_PRODUCT_360_FILE", "product_360.csv")
	viper.SetDefault("DATA_AGENT_360_FILE", "sales_agent_360.csv")
	viper.SetDefault("DATA_ACCOUNT_360_FILE", "account_360.csv")
	viper.SetDefault("DATA_COHORT_FILE", "cohort_raw.csv")

	// Todos os extratos vêm em dd-mm-aaaa
	viper.SetDefault("DATA_PIPELINE_DATE_LAYOUT", "02-01-2006")
	viper.SetDefault("DATA_ROLLUP_DATE_LAYOUT", "02-01-2006")
	viper.SetDefault("DATA_COHORT_DATE_LAYOUT", "02-01-2006")

	viper.SetDefault("SESSION_IDLE_TTL", "30m")
	viper.SetDefault("SESSION_MAX_ACTIVE", 50)
	viper.SetDefault("SESSION_SWEEP_CRON", "*/5 * * * *") // A cada 5 minutos
	viper.SetDefault("SESSION_SWEEP_ENABLED", true)

	viper.SetDefault("CHARTS_WIDTH", 800)
	viper.SetDefault("CHARTS_HEIGHT", 400)
	viper.SetDefault("CHARTS_BACKGROUND_COLOR", "white")

	viper.SetDefault("LOG_LEVEL", "debug")
	viper.SetDefault("APP_ENV", "development")
}

func NewConfig() (*Config, error) {
	// Primeiro carregar o arquivo .env usando godotenv
	loadEnvFile() // ONLY LOCAL

	config := &Config{}

	SetDefaults()

	viper.SetConfigType("env")
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logrus.Info("Usando variáveis carregadas pelo godotenv (viper não conseguiu ler .env):", err)
	} else {
		logrus.Info("Arquivo .env lido pelo Viper com sucesso")
	}

	err := viper.Unmarshal(&config, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	config.Database.DSN = fmt.Sprintf(
		"%s://%s:%s@%s",
		config.Database.Driver,
		config.Database.User,
		config.Database.Password,
		config.Database.URL,
	)

	return config, nil
}

// Validate rejeita combinações que impediriam a API de subir
func (c *Config) Validate() error {
	if c.Auth.Secret == "" {
		return fmt.Errorf("AUTH_SECRET não pode ser vazio")
	}

	switch c.Auth.UserStore {
	case UserStoreFile, UserStorePostgres:
	default:
		return fmt.Errorf("AUTH_USER_STORE inválido: %q (use %q ou %q)", c.Auth.UserStore, UserStoreFile, UserStorePostgres)
	}

	if c.Session.MaxActive <= 0 {
		return fmt.Errorf("SESSION_MAX_ACTIVE deve ser positivo")
	}

	if c.Data.Dir == "" {
		return fmt.Errorf("DATA_DIR não pode ser vazio")
	}

	return nil
}

// Path monta o caminho completo de um extrato dentro de DATA_DIR
func (d Data) Path(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(d.Dir, file)
}

// Função auxiliar para carregar o arquivo .env usando godotenv
func loadEnvFile() {
	cwd, err := os.Getwd()
	if err != nil {
		logrus.Warn("Não foi possível obter o diretório atual:", err)
		return
	}

	// Tentar várias localizações possíveis para o arquivo .env
	locations := []string{
		filepath.Join(cwd, ".env"),
		filepath.Join(filepath.Dir(cwd), ".env"),
		filepath.Join(cwd, "../../.env"),
	}

	for _, location := range locations {
		logrus.Debug("Tentando carregar .env de:", location)
		err := godotenv.Load(location)
		if err == nil {
			logrus.Info("Arquivo .env carregado com sucesso de:", location)
			return
		}
	}

	logrus.Warn("Não foi possível carregar o arquivo .env de nenhuma localização conhecida")
}
