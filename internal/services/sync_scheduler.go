package services

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/itsmesamster/reduce-app/pkg/logger"
)

// SyncScheduler drives the periodic sync cycles: the KPM flow on a cron
// spec, the Jira to Jira flow at fixed daily times. Cycles of the same
// flow never overlap, a still running cycle makes the next tick skip.
type SyncScheduler struct {
	cron     *cron.Cron
	kpmSync  *KpmSyncService
	jiraSync *JiraSyncService

	kpmMu  sync.Mutex
	jiraMu sync.Mutex

	mu       sync.RWMutex
	running  bool
	kpmBusy  bool
	jiraBusy bool
}

// SchedulerStatus is the snapshot served by the status endpoint.
type SchedulerStatus struct {
	Running      bool     `json:"running"`
	KpmSyncBusy  bool     `json:"kpm_sync_busy"`
	JiraSyncBusy bool     `json:"jira_sync_busy"`
	NextRuns     []string `json:"next_runs"`
}

func NewSyncScheduler(kpmSync *KpmSyncService, jiraSync *JiraSyncService) *SyncScheduler {
	return &SyncScheduler{
		cron:     cron.New(),
		kpmSync:  kpmSync,
		jiraSync: jiraSync,
	}
}

// Start registers the cron entries and starts ticking. The KPM flow runs
// on the given cron spec, the Jira flow once per entry in dailyTimes
// ("HH:MM", 24h).
func (s *SyncScheduler) Start(kpmCronSpec string, dailyTimes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	log := logger.GetLogger()

	if s.kpmSync != nil && kpmCronSpec != "" {
		if _, err := s.cron.AddFunc(kpmCronSpec, s.runKpmSync); err != nil {
			return fmt.Errorf("invalid KPM sync cron spec %q: %w", kpmCronSpec, err)
		}
		log.Infof("Scheduled the KPM sync with cron spec %q", kpmCronSpec)
	}

	for _, daily := range dailyTimes {
		spec, err := dailyCronSpec(daily)
		if err != nil {
			return err
		}
		if s.jiraSync == nil {
			break
		}
		if _, err := s.cron.AddFunc(spec, s.runJiraSync); err != nil {
			return fmt.Errorf("invalid daily sync time %q: %w", daily, err)
		}
		log.Infof("Scheduled the Jira to Jira sync daily at %s", daily)
	}

	s.cron.Start()
	s.running = true
	log.Infof("Sync scheduler started with %d entries", len(s.cron.Entries()))
	return nil
}

// Stop halts the ticker and waits for running jobs to finish.
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	logger.GetLogger().Info("Stopping the sync scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
}

// TriggerKpmSync starts one KPM cycle in the background.
func (s *SyncScheduler) TriggerKpmSync() {
	logger.GetLogger().Info("Manually triggering the KPM sync cycle")
	go s.runKpmSync()
}

// TriggerJiraSync starts one Jira to Jira cycle in the background.
func (s *SyncScheduler) TriggerJiraSync() {
	logger.GetLogger().Info("Manually triggering the Jira to Jira sync cycle")
	go s.runJiraSync()
}

func (s *SyncScheduler) runKpmSync() {
	log := logger.GetLogger()
	if !s.kpmMu.TryLock() {
		log.Warn("Previous KPM sync cycle still running, skipping this tick")
		return
	}
	defer s.kpmMu.Unlock()
	s.setKpmBusy(true)
	defer s.setKpmBusy(false)

	report, err := s.kpmSync.Sync("")
	if err != nil {
		log.Errorf("KPM sync cycle failed: %v", err)
		return
	}
	log.Infof("KPM sync cycle %s done: %d synced, %d failed out of %d",
		report.CycleID, report.TotalSynced, report.TotalFailed, report.TotalFound)
}

func (s *SyncScheduler) runJiraSync() {
	log := logger.GetLogger()
	if !s.jiraMu.TryLock() {
		log.Warn("Previous Jira to Jira sync cycle still running, skipping this tick")
		return
	}
	defer s.jiraMu.Unlock()
	s.setJiraBusy(true)
	defer s.setJiraBusy(false)

	report, err := s.jiraSync.Sync()
	if err != nil {
		log.Errorf("Jira to Jira sync cycle failed: %v", err)
		return
	}
	log.Infof("Jira to Jira sync cycle %s done: %d synced, %d failed out of %d",
		report.CycleID, report.TotalSynced, report.TotalFailed, report.TotalFound)
}

func (s *SyncScheduler) setKpmBusy(busy bool) {
	s.mu.Lock()
	s.kpmBusy = busy
	s.mu.Unlock()
}

func (s *SyncScheduler) setJiraBusy(busy bool) {
	s.mu.Lock()
	s.jiraBusy = busy
	s.mu.Unlock()
}

// Status reports the scheduler state and the next planned runs.
func (s *SyncScheduler) Status() SchedulerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := SchedulerStatus{
		Running:      s.running,
		KpmSyncBusy:  s.kpmBusy,
		JiraSyncBusy: s.jiraBusy,
	}
	for _, entry := range s.cron.Entries() {
		if !entry.Next.IsZero() {
			status.NextRuns = append(status.NextRuns, entry.Next.Format("2006-01-02 15:04:05"))
		}
	}
	return status
}

// IsRunning checks whether the scheduler ticks.
func (s *SyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// dailyCronSpec converts "HH:MM" into a daily cron expression.
func dailyCronSpec(daily string) (string, error) {
	parts := strings.Split(daily, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid daily sync time %q, expected HH:MM", daily)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in daily sync time %q", daily)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in daily sync time %q", daily)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
