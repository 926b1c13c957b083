package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"github.com/iota-uz/bgcatalog/pkg/logging"
)

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

// LoadEnv loads the env files that exist, looking in the working directory first and
// then in the nearest parent directory holding a go.mod.
func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if fileExists(file) {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		root, ok := findModuleRoot()
		if !ok {
			return 0, nil
		}
		for _, file := range envFiles {
			p := filepath.Join(root, file)
			if fileExists(p) {
				existingFiles = append(existingFiles, p)
			}
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func findModuleRoot() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		if fileExists(filepath.Join(dir, "go.mod")) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"bgcatalog"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

// SeedOptions configures the default source of the seed command.
type SeedOptions struct {
	File      string `env:"SEED_FILE" envDefault:"data/bgg_dataset.csv"`
	Delimiter string `env:"SEED_DELIMITER" envDefault:";"`
	Locale    string `env:"SEED_LOCALE" envDefault:"pt-BR"`
}

// Validate checks the seed configuration for errors
func (s *SeedOptions) Validate() error {
	if strings.TrimSpace(s.File) == "" {
		return fmt.Errorf("SEED_FILE must not be empty")
	}
	if utf8.RuneCountInString(s.Delimiter) != 1 {
		return fmt.Errorf("SEED_DELIMITER must be a single character, got %q", s.Delimiter)
	}
	if _, err := language.Parse(s.Locale); err != nil {
		return fmt.Errorf("invalid SEED_LOCALE=%q: %w", s.Locale, err)
	}
	return nil
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"bgcatalog"`
}

type Configuration struct {
	Database      DatabaseOptions
	Seed          SeedOptions
	OpenTelemetry OpenTelemetryOptions

	LogLevel string `env:"LOG_LEVEL" envDefault:"error"`
	LogPath  string `env:"LOG_PATH" envDefault:"./logs/app.log"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	return logging.ParseLevel(c.LogLevel)
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.Seed.Validate(); err != nil {
		return fmt.Errorf("seed configuration error: %w", err)
	}

	if strings.TrimSpace(c.LogPath) == "" {
		c.logger = logging.ConsoleLogger(c.LogrusLogLevel())
	} else {
		f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
		if err != nil {
			return err
		}
		c.logFile = f
		c.logger = logger
	}

	c.Database.Opts = c.Database.ConnectionString()
	return nil
}

// Unload handles a graceful shutdown.
// The logger keeps writing to stderr afterwards. Safe to call more than once.
func (c *Configuration) Unload() {
	if c.logFile == nil {
		return
	}
	if c.logger != nil {
		c.logger.SetOutput(os.Stderr)
	}
	if err := c.logFile.Close(); err != nil {
		log.Printf("Failed to close log file: %v", err)
	}
	c.logFile = nil
}
