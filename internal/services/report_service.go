package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/itsmesamster/reduce-app/internal/clients"
	"github.com/itsmesamster/reduce-app/internal/models"
	"github.com/itsmesamster/reduce-app/pkg/logger"
)

// Jira caps descriptions at 32767 characters.
const maxReportDescriptionLen = 32767

const reportRetentionDays = 30

// ReportService persists sync reports on disk and mirrors the latest one
// into a Jira ticket description for quick human inspection.
type ReportService struct {
	jira     *clients.JiraClient
	dir      string
	keepDays int
}

func NewReportService(jira *clients.JiraClient, dir string) *ReportService {
	if dir == "" {
		dir = "reports"
	}
	return &ReportService{jira: jira, dir: dir, keepDays: reportRetentionDays}
}

// Save writes the report as pretty JSON into the reports directory and
// returns the full path.
func (s *ReportService) Save(report *models.SyncReport) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports dir %s: %w", s.dir, err)
	}
	data, err := json.MarshalIndent(report, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to encode sync report: %w", err)
	}
	fullPath := filepath.Join(s.dir, report.FileName())
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save sync report: %w", err)
	}
	logger.GetLogger().Infof("Saved sync report: %s", fullPath)
	return fullPath, nil
}

// List returns the stored report file names, newest first. The date stamp
// prefix of the file names makes the lexical order chronological.
func (s *ReportService) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Load reads one stored report back by file name.
func (s *ReportService) Load(name string) (*models.SyncReport, error) {
	if name != filepath.Base(name) || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid report name %q", name)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, err
	}
	var report models.SyncReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode sync report %s: %w", name, err)
	}
	return &report, nil
}

// Clean drops reports older than the retention window. Report names start
// with their date stamp; files that do not parse are left alone with a
// complaint.
func (s *ReportService) Clean() {
	log := logger.GetLogger()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Errorf("Failed to read reports dir %s: %v", s.dir, err)
		}
		return
	}
	limit := time.Now().AddDate(0, 0, -s.keepDays)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		prefix := strings.SplitN(entry.Name(), "_", 2)[0]
		stamp, err := time.Parse("2006-01-02", prefix)
		if err != nil {
			log.Errorf("Report file %s in %s does not start with a date stamp", entry.Name(), s.dir)
			continue
		}
		if stamp.Before(limit) {
			log.Infof("Removing old sync report %s", entry.Name())
			if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
				log.Errorf("Failed to remove old sync report %s: %v", entry.Name(), err)
			}
		}
	}
}

// Post renders the report as YAML into the reporting ticket description,
// topped with a last-sync stamp and capped to the description limit.
func (s *ReportService) Post(ticketKey string, report *models.SyncReport, extra string) error {
	if s.jira == nil || ticketKey == "" {
		return nil
	}
	body, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to render sync report: %w", err)
	}
	text := fmt.Sprintf("LAST SYNC: *%s*\n\n%s",
		time.Now().Format("2006-01-02 15:04"), string(body))
	if extra != "" {
		text += "\n\n" + extra
	}
	if len(text) > maxReportDescriptionLen {
		text = text[:maxReportDescriptionLen-20] + " ... [trimmed] ..."
	}
	if err := s.jira.UpdateDescription(ticketKey, text); err != nil {
		return fmt.Errorf("failed to post sync report to %s: %w", ticketKey, err)
	}
	logger.GetLogger().Infof("Sync report posted successfully to Jira ticket %s", ticketKey)
	return nil
}

// SaveAndPost runs the whole end-of-cycle bookkeeping. Report handling
// never fails a finished cycle, problems are only logged.
func (s *ReportService) SaveAndPost(report *models.SyncReport, ticketKey string) {
	log := logger.GetLogger()
	s.Clean()
	if _, err := s.Save(report); err != nil {
		log.Errorf("Failed to save sync report: %v", err)
	}
	extra := ""
	if s.jira != nil {
		if link := AggregatedTicketsLink(s.jira.ServerURL(), syncedKeys(report)); link != "" {
			extra = fmt.Sprintf("[All Synced tickets|%s]", link)
		}
	}
	if err := s.Post(ticketKey, report, extra); err != nil {
		log.Errorf("Failed to post sync report to Jira server: %v", err)
	}
}

// syncedKeys recovers the target issue keys from the synced browse URLs.
func syncedKeys(report *models.SyncReport) []string {
	var keys []string
	for _, url := range report.Synced {
		if key := path.Base(strings.TrimSuffix(url, "/")); key != "" && key != "." {
			keys = append(keys, key)
		}
	}
	return keys
}

// AggregatedTicketsLink builds one browse URL listing every given ticket.
func AggregatedTicketsLink(serverURL string, keys []string) string {
	if serverURL == "" || len(keys) == 0 {
		return ""
	}
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	return fmt.Sprintf("%s/browse/%s?jql=issuekey%%20in%%20(%s)",
		strings.TrimSuffix(serverURL, "/"),
		sorted[len(sorted)-1],
		strings.Join(sorted, "%2C%20"))
}
