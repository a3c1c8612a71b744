package app

import (
	"fmt"
	"time"

	"github.com/itsmesamster/reduce-app/internal/clients"
	"github.com/itsmesamster/reduce-app/internal/models"
	"github.com/itsmesamster/reduce-app/internal/services"
	"github.com/itsmesamster/reduce-app/pkg/config"
)

// vwOrigin is the origin label stamped on tickets coming over from the
// VW/Audi Jira.
const vwOrigin = "Cariad Devstack Jira"

// services bundle built once per command invocation
type syncContext struct {
	esrJira  *clients.JiraClient
	vwJira   *clients.JiraClient
	kpm      *clients.KpmClient
	reports  *services.ReportService
	kpmSync  *services.KpmSyncService
	jiraSync *services.JiraSyncService
}

func buildEsrJira(cfg *config.Config) *clients.JiraClient {
	api := clients.NewJiraAPI(cfg.Jira.ServerURL, cfg.Jira.Email, cfg.Jira.Token)
	return clients.NewJiraClient(api, models.NewEsrFieldMap(), clients.JiraClientOptions{
		ServerURL:  cfg.Jira.ServerURL,
		Project:    cfg.Jira.Project,
		ProjectKey: cfg.Jira.ProjectKey,
		IssueTypes: cfg.Jira.IssueTypes,
		Reporters:  cfg.Jira.Reporters,
		Origin:     cfg.Jira.Origin,
	})
}

func buildVwJira(cfg *config.Config) *clients.JiraClient {
	api := clients.NewJiraAPI(cfg.VWJira.ServerURL, cfg.VWJira.Email, cfg.VWJira.Token)
	return clients.NewJiraClient(api, models.NewVwFieldMap(), clients.JiraClientOptions{
		ServerURL:  cfg.VWJira.ServerURL,
		ProjectKey: cfg.VWJira.ProjectKey,
	})
}

func buildKpm(cfg *config.Config) (*clients.KpmClient, error) {
	api, err := clients.NewKpmAPI(cfg.KPM.ServerURL, cfg.KPM.UserID, cfg.KPM.CertFile, cfg.KPM.Inbox)
	if err != nil {
		return nil, err
	}
	return clients.NewKpmClient(api, cfg.Sync.PostBackToKPM), nil
}

// buildSyncContext wires both sync flows with everything they need.
func buildSyncContext(cfg *config.Config) (*syncContext, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	esrJira := buildEsrJira(cfg)
	vwJira := buildVwJira(cfg)
	kpm, err := buildKpm(cfg)
	if err != nil {
		return nil, err
	}

	clusters, err := services.NewClusterMap(cfg.Sync.ClusterMapFile)
	if err != nil {
		return nil, err
	}

	assigneeID := cfg.Sync.DefaultAssignee
	if assigneeID == "" {
		assigneeID = cfg.Jira.AccountID
	}
	mapper, err := services.NewKpmMapper(esrJira, clusters, cfg.Sync.FieldMapFile, assigneeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load the KPM field map: %w", err)
	}

	reports := services.NewReportService(esrJira, cfg.Sync.ReportsDir)
	plant, orgUnit := cfg.KPM.PlantAndOrgUnit()

	kpmSync := services.NewKpmSyncService(esrJira, kpm, mapper, reports, services.KpmSyncConfig{
		SupplierUserIDs:    cfg.Sync.SupplierUserIDs,
		Plant:              plant,
		OrgUnit:            orgUnit,
		ProjectKey:         cfg.Jira.ProjectKey,
		WindowHours:        cfg.Sync.WindowHours,
		MondayWindowHours:  cfg.Sync.MondayWindowHours,
		AnswerLookbackDays: cfg.Sync.AnswerLookbackDays,
		TicketDelay:        time.Duration(cfg.Sync.TicketDelaySeconds) * time.Second,
		RefetchAttempts:    cfg.Sync.RefetchAttempts,
		RefetchDelay:       time.Duration(cfg.Sync.RefetchDelaySeconds) * time.Second,
		ReportTicket:       cfg.Jira.ReportTicket,
	})

	transformer := services.NewTransformer(esrJira, clusters, services.TransformerConfig{
		ProjectKey:     cfg.Jira.ProjectKey,
		ParentEpic:     cfg.VWJira.EpicKey,
		Origin:         vwOrigin,
		AssigneeID:     assigneeID,
		DefaultCluster: cfg.Sync.DefaultCluster,
	})

	jiraSync := services.NewJiraSyncService(esrJira, vwJira, transformer, reports, services.JiraSyncConfig{
		VwProjectKey:        cfg.VWJira.ProjectKey,
		VwAssignees:         cfg.VWJira.Assignees,
		CommentCutoff:       cfg.Sync.CommentCutoff,
		IgnoredCommentUsers: cfg.Sync.IgnoredCommentUsers,
		RefetchAttempts:     cfg.Sync.RefetchAttempts,
		RefetchDelay:        time.Duration(cfg.Sync.RefetchDelaySeconds) * time.Second,
		TicketDelay:         time.Duration(cfg.Sync.TicketDelaySeconds) * time.Second,
		PostBack:            cfg.Sync.PostBackToKPM,
		ReportTicket:        cfg.Jira.ReportTicket,
	})

	return &syncContext{
		esrJira:  esrJira,
		vwJira:   vwJira,
		kpm:      kpm,
		reports:  reports,
		kpmSync:  kpmSync,
		jiraSync: jiraSync,
	}, nil
}
