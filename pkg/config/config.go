package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Server ServerConfig
	Jira   JiraConfig
	VWJira VWJiraConfig
	KPM    KPMConfig
	Sync   SyncConfig
	Log    LogConfig
	CORS   CORSConfig
}

// ServerConfig covers the reports/monitoring HTTP surface
type ServerConfig struct {
	Port string
	Mode string
}

// JiraConfig is the target (ESR Labs) Jira instance
type JiraConfig struct {
	ServerURL    string `validate:"required,url"`
	Email        string `validate:"required,email"`
	Token        string `validate:"required"`
	AccountID    string `validate:"required"`
	Project      string
	ProjectKey   string `validate:"required"`
	IssueTypes   string
	Reporters    string
	Origin       string
	ReportTicket string
}

// VWJiraConfig is the source (VW/Audi) Jira instance
type VWJiraConfig struct {
	ServerURL  string `validate:"required,url"`
	Email      string `validate:"required,email"`
	Token      string `validate:"required"`
	ProjectKey string
	EpicKey    string
	Assignees  string // JQL user list, e.g. "(ufs1vcn, wvk8ck1)"
}

type KPMConfig struct {
	ServerURL string `validate:"required,url"`
	UserID    string `validate:"required"`
	CertFile  string
	Inbox     string `validate:"required"`
}

type SyncConfig struct {
	ReportsDir          string
	ClusterMapFile      string
	FieldMapFile        string
	WindowHours         int
	MondayWindowHours   int
	TicketDelaySeconds  int
	RefetchAttempts     int
	RefetchDelaySeconds int
	CommentCutoff       string
	IgnoredCommentUsers []string
	AnswerLookbackDays  int
	CronSpec            string
	DailyTimes          []string
	PostBackToKPM       bool
	SupplierUserIDs     []string
	DefaultAssignee     string
	DefaultCluster      string
}

type LogConfig struct {
	Level      string
	FilePath   string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // days
	Compress   bool
	Format     string // json or text
}

type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           int // hours
}

var (
	globalConfig *Config
	once         sync.Once
)

func GetConfig() *Config {
	once.Do(func() {
		var err error
		globalConfig, err = LoadConfig()
		if err != nil {
			panic("Failed to load config: " + err.Error())
		}
	})
	return globalConfig
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true"
	}
	return defaultValue
}

// comma separated, blanks dropped
func getEnvAsStringArray(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return defaultValue
}

func LoadConfig() (*Config, error) {
	// .env is optional, real deployments pass env vars directly
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Mode: getEnv("SERVER_MODE", "release"),
		},
		Jira: JiraConfig{
			ServerURL:    getEnv("JIRA_SERVER_URL", "https://esrlabs.atlassian.net/"),
			Email:        getEnv("JIRA_EMAIL", ""),
			Token:        getEnv("JIRA_TOKEN", ""),
			AccountID:    getEnv("JIRA_ACCOUNT_ID", ""),
			Project:      getEnv("JIRA_PROJECT", "Audi HCP5"),
			ProjectKey:   getEnv("JIRA_PROJECT_KEY", "AHCP5"),
			IssueTypes:   getEnv("JIRA_ISSUE_TYPES", `(Bug, "Customer Issue")`),
			Reporters:    getEnv("JIRA_REPORTERS", ""),
			Origin:       getEnv("JIRA_ORIGIN", `Audi KPM", "ESR Jira`),
			ReportTicket: getEnv("JIRA_REPORT_TICKET", ""),
		},
		VWJira: VWJiraConfig{
			ServerURL:  getEnv("VW_JIRA_SERVER_URL", "https://devstack.vwgroup.com/jira/"),
			Email:      getEnv("VW_JIRA_EMAIL", ""),
			Token:      getEnv("VW_JIRA_TOKEN", ""),
			ProjectKey: getEnv("VW_JIRA_PROJECT_KEY", "HCP5"),
			EpicKey:    getEnv("VW_JIRA_EPIC_KEY", ""),
			Assignees:  getEnv("VW_JIRA_ASSIGNEES", ""),
		},
		KPM: KPMConfig{
			ServerURL: getEnv("KPM_SERVER_URL", "https://ws-gateway-cert.volkswagenag.com/services"),
			UserID:    getEnv("KPM_USER_ID", ""),
			CertFile:  getEnv("KPM_CERT_FILE_PATH", ""),
			Inbox:     getEnv("KPM_INBOX", "FF/HCP5BS-ESR/"),
		},
		Sync: SyncConfig{
			ReportsDir:          getEnv("SYNC_REPORTS_DIR", "reports"),
			ClusterMapFile:      getEnv("SYNC_CLUSTER_MAP_FILE", "configs/cluster_map.yaml"),
			FieldMapFile:        getEnv("SYNC_FIELD_MAP_FILE", "configs/k2j_field_map.json"),
			WindowHours:         getEnvAsInt("SYNC_WINDOW_HOURS", 36),
			MondayWindowHours:   getEnvAsInt("SYNC_MONDAY_WINDOW_HOURS", 84),
			TicketDelaySeconds:  getEnvAsInt("SYNC_TICKET_DELAY_SECONDS", 1),
			RefetchAttempts:     getEnvAsInt("SYNC_REFETCH_ATTEMPTS", 3),
			RefetchDelaySeconds: getEnvAsInt("SYNC_REFETCH_DELAY_SECONDS", 2),
			CommentCutoff:       getEnv("SYNC_COMMENT_CUTOFF", "2024-02-04"),
			IgnoredCommentUsers: getEnvAsStringArray("SYNC_IGNORED_COMMENT_USERS", nil),
			AnswerLookbackDays:  getEnvAsInt("SYNC_ANSWER_LOOKBACK_DAYS", 7),
			CronSpec:            getEnv("SYNC_CRON_SPEC", "0 * * * *"),
			DailyTimes:          getEnvAsStringArray("SYNC_DAILY_TIMES", nil),
			PostBackToKPM:       getEnvAsBool("SYNC_POST_BACK_TO_KPM", true),
			SupplierUserIDs:     getEnvAsStringArray("SYNC_SUPPLIER_USER_IDS", nil),
			DefaultAssignee:     getEnv("SYNC_DEFAULT_ASSIGNEE", ""),
			DefaultCluster:      getEnv("SYNC_DEFAULT_CLUSTER", "-"),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			FilePath:   getEnv("LOG_FILE_PATH", "logs/issuesync.log"),
			MaxSize:    getEnvAsInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 7),
			MaxAge:     getEnvAsInt("LOG_MAX_AGE", 30),
			Compress:   getEnvAsBool("LOG_COMPRESS", true),
			Format:     getEnv("LOG_FORMAT", "json"),
		},
		CORS: CORSConfig{
			AllowOrigins:     getEnvAsStringArray("CORS_ALLOW_ORIGINS", []string{"*"}),
			AllowMethods:     getEnvAsStringArray("CORS_ALLOW_METHODS", []string{"GET", "OPTIONS"}),
			AllowHeaders:     getEnvAsStringArray("CORS_ALLOW_HEADERS", []string{"Origin", "Content-Type", "Accept", "X-Requested-With"}),
			ExposeHeaders:    getEnvAsStringArray("CORS_EXPOSE_HEADERS", []string{"Content-Length", "Content-Type"}),
			AllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           getEnvAsInt("CORS_MAX_AGE", 12),
		},
	}

	return config, nil
}

// Validate checks the credential-bearing sections. Called by commands that
// actually talk to the external systems, so read-only local commands still
// work without a full environment.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// PlantAndOrgUnit splits the KPM inbox "Plant/OrgUnit/" into its two parts.
func (c *KPMConfig) PlantAndOrgUnit() (string, string) {
	parts := strings.SplitN(strings.TrimSuffix(c.Inbox, "/"), "/", 2)
	if len(parts) != 2 {
		return c.Inbox, ""
	}
	return parts[0], parts[1]
}
