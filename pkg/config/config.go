package config

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env string

	Canvas  CanvasConfig
	ArcGIS  ArcGISConfig
	Folders FolderConfig
	Clone   CloneConfig
	Log     LogConfig
	Email   EmailConfig
	Metrics MetricsConfig
}

// CanvasConfig describes the course provider connection and discovery inputs.
type CanvasConfig struct {
	BaseURL          string `validate:"required,url"`
	Token            string `validate:"required"`
	ConfigCourseID   int
	ConfigCoursePage string
	OutcomeID        int `validate:"required"`
	CourseIDs        []int
	Timeout          time.Duration
}

// ArcGISConfig describes the content store connection.
type ArcGISConfig struct {
	OrgURL    string `validate:"required,url"`
	Username  string `validate:"required"`
	Password  string `validate:"required"`
	OrgSuffix string `validate:"required"`
	GroupTags []string
	Timeout   time.Duration
}

// FolderConfig holds the naming prefixes for generated folders.
type FolderConfig struct {
	AssignmentPrefix string
	SubmissionPrefix string
}

// CloneConfig holds the clone pipeline policy flags.
type CloneConfig struct {
	SkipEmpty            bool
	AllowMultiple        bool
	FilterNonASCIITitles bool
}

type LogConfig struct {
	Level        string
	Format       string
	Dir          string
	CourseDir    string
	MainBasename string
	ReportDir    string
	Retention    time.Duration
}

// EmailConfig configures instructor log delivery.
type EmailConfig struct {
	SendGridKey     string
	SenderName      string
	SenderAddress   string
	RecipientDomain string
	Subject         string
}

// MetricsConfig configures the optional end-of-run metrics push.
type MetricsConfig struct {
	PushGatewayURL string
	JobName        string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	cfg.Canvas = CanvasConfig{
		BaseURL:          v.GetString("CANVAS_BASE_URL"),
		Token:            v.GetString("CANVAS_API_TOKEN"),
		ConfigCourseID:   v.GetInt("CANVAS_CONFIG_COURSE_ID"),
		ConfigCoursePage: v.GetString("CANVAS_CONFIG_COURSE_PAGE"),
		OutcomeID:        v.GetInt("CANVAS_OUTCOME_ID"),
		CourseIDs:        splitIntList(v.GetString("CANVAS_COURSE_IDS")),
		Timeout:          parseDuration(v.GetString("CANVAS_TIMEOUT"), 30*time.Second),
	}

	cfg.ArcGIS = ArcGISConfig{
		OrgURL:    v.GetString("ARCGIS_ORG_URL"),
		Username:  v.GetString("ARCGIS_USERNAME"),
		Password:  v.GetString("ARCGIS_PASSWORD"),
		OrgSuffix: v.GetString("ARCGIS_ORG_SUFFIX"),
		GroupTags: splitAndTrim(v.GetString("ARCGIS_GROUP_TAGS")),
		Timeout:   parseDuration(v.GetString("ARCGIS_TIMEOUT"), 60*time.Second),
	}

	cfg.Folders = FolderConfig{
		AssignmentPrefix: v.GetString("ASSIGNMENT_FOLDER_PREFIX"),
		SubmissionPrefix: v.GetString("SUBMISSION_FOLDER_PREFIX"),
	}

	cfg.Clone = CloneConfig{
		SkipEmpty:            v.GetBool("CLONE_SKIP_EMPTY"),
		AllowMultiple:        v.GetBool("CLONE_ALLOW_MULTIPLE"),
		FilterNonASCIITitles: v.GetBool("CLONE_FILTER_NON_ASCII_TITLES"),
	}

	cfg.Log = LogConfig{
		Level:        v.GetString("LOG_LEVEL"),
		Format:       v.GetString("LOG_FORMAT"),
		Dir:          v.GetString("LOG_DIR"),
		CourseDir:    v.GetString("LOG_COURSE_DIR"),
		MainBasename: v.GetString("LOG_MAIN_BASENAME"),
		ReportDir:    v.GetString("LOG_REPORT_DIR"),
		Retention:    parseDuration(v.GetString("LOG_RETENTION"), 0),
	}

	cfg.Email = EmailConfig{
		SendGridKey:     v.GetString("SENDGRID_API_KEY"),
		SenderName:      v.GetString("EMAIL_SENDER_NAME"),
		SenderAddress:   v.GetString("EMAIL_SENDER_ADDRESS"),
		RecipientDomain: v.GetString("EMAIL_RECIPIENT_DOMAIN"),
		Subject:         v.GetString("EMAIL_SUBJECT"),
	}

	cfg.Metrics = MetricsConfig{
		PushGatewayURL: v.GetString("METRICS_PUSHGATEWAY_URL"),
		JobName:        v.GetString("METRICS_JOB_NAME"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("CANVAS_BASE_URL", "https://canvas.example.edu/api/v1")
	v.SetDefault("CANVAS_API_TOKEN", "")
	v.SetDefault("CANVAS_CONFIG_COURSE_ID", 0)
	v.SetDefault("CANVAS_CONFIG_COURSE_PAGE", "course-ids")
	v.SetDefault("CANVAS_OUTCOME_ID", 0)
	v.SetDefault("CANVAS_COURSE_IDS", "")
	v.SetDefault("CANVAS_TIMEOUT", "30s")

	v.SetDefault("ARCGIS_ORG_URL", "")
	v.SetDefault("ARCGIS_USERNAME", "")
	v.SetDefault("ARCGIS_PASSWORD", "")
	v.SetDefault("ARCGIS_ORG_SUFFIX", "")
	v.SetDefault("ARCGIS_GROUP_TAGS", "coursesync")
	v.SetDefault("ARCGIS_TIMEOUT", "60s")

	v.SetDefault("ASSIGNMENT_FOLDER_PREFIX", "ASGN: ")
	v.SetDefault("SUBMISSION_FOLDER_PREFIX", "GRADEME: ")

	v.SetDefault("CLONE_SKIP_EMPTY", true)
	v.SetDefault("CLONE_ALLOW_MULTIPLE", false)
	v.SetDefault("CLONE_FILTER_NON_ASCII_TITLES", false)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_DIR", "./logs")
	v.SetDefault("LOG_COURSE_DIR", "./logs/courses")
	v.SetDefault("LOG_MAIN_BASENAME", "main")
	v.SetDefault("LOG_REPORT_DIR", "./logs/reports")
	v.SetDefault("LOG_RETENTION", "")

	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("EMAIL_SENDER_NAME", "Course GIS Sync")
	v.SetDefault("EMAIL_SENDER_ADDRESS", "coursesync-no-reply@example.edu")
	v.SetDefault("EMAIL_RECIPIENT_DOMAIN", "example.edu")
	v.SetDefault("EMAIL_SUBJECT", "GIS course log for course ID %d")

	v.SetDefault("METRICS_PUSHGATEWAY_URL", "")
	v.SetDefault("METRICS_JOB_NAME", "coursesync")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func splitIntList(raw string) []int {
	result := make([]int, 0)
	for _, part := range splitAndTrim(raw) {
		id, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		result = append(result, id)
	}

	return result
}
