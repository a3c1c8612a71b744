package app

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/itsmesamster/reduce-app/pkg/config"
	"github.com/itsmesamster/reduce-app/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:           "issuesync",
	Short:         "Keep ESR Jira, VW/Audi Jira and KPM tickets in sync",
	Long:          "issuesync mirrors KPM problems and VW/Audi Jira tickets into the ESR Labs Jira and posts statuses, questions and answers back.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := logger.Initialize(cfg); err != nil {
			log.Printf("Failed to initialize logger: %v", err)
			return err
		}
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(kpmCmd)
	rootCmd.AddCommand(jiraCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(checkCmd)
}

var kpmSince string

var kpmCmd = &cobra.Command{
	Use:   "kpm [kpm-id]",
	Short: "Sync KPM problems with the ESR Jira",
	Long:  "Without arguments runs one full KPM batch cycle. With a KPM id syncs only that problem.",
	Args:  cobra.RangeArgs(0, 1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := buildSyncContext(config.GetConfig())
		if err != nil {
			return err
		}
		if len(args) == 1 {
			ticket, err := ctx.kpmSync.SyncOne(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Synced KPM %s -> %s\n", args[0], ticket.UIURL())
			return nil
		}
		report, err := ctx.kpmSync.Sync(kpmSince)
		if err != nil {
			return err
		}
		fmt.Printf("KPM sync cycle %s: %d synced, %d failed out of %d\n",
			report.CycleID, report.TotalSynced, report.TotalFailed, report.TotalFound)
		return nil
	},
}

var jiraCmd = &cobra.Command{
	Use:   "jira [vw-issue-key]",
	Short: "Sync VW/Audi Jira tickets into the ESR Jira",
	Long:  "Without arguments runs one full Jira to Jira batch cycle. With a VW issue key syncs only that ticket.",
	Args:  cobra.RangeArgs(0, 1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := buildSyncContext(config.GetConfig())
		if err != nil {
			return err
		}
		if len(args) == 1 {
			ticket, err := ctx.jiraSync.SyncOne(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Synced %s -> %s\n", args[0], ticket.UIURL())
			return nil
		}
		report, err := ctx.jiraSync.Sync()
		if err != nil {
			return err
		}
		fmt.Printf("Jira sync cycle %s: %d synced, %d failed out of %d\n",
			report.CycleID, report.TotalSynced, report.TotalFailed, report.TotalFound)
		return nil
	},
}

var reportsCmd = &cobra.Command{
	Use:   "reports [name]",
	Short: "List or show stored sync reports",
	Args:  cobra.RangeArgs(0, 1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := buildSyncContext(config.GetConfig())
		if err != nil {
			return err
		}
		if len(args) == 1 {
			report, err := ctx.reports.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s (%s): %d synced, %d failed out of %d in %s\n",
				report.Name, report.CycleID,
				report.TotalSynced, report.TotalFailed, report.TotalFound, report.Duration)
			for id, url := range report.Synced {
				fmt.Printf("  synced %s -> %s\n", id, url)
			}
			for id, msg := range report.Failed {
				fmt.Printf("  failed %s: %s\n", id, msg)
			}
			return nil
		}
		names, err := ctx.reports.List()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify connectivity to both Jira instances",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := buildSyncContext(config.GetConfig())
		if err != nil {
			return err
		}
		if err := ctx.esrJira.Check(); err != nil {
			return fmt.Errorf("ESR Jira check failed: %w", err)
		}
		fmt.Println("ESR Jira: ok")
		if err := ctx.vwJira.Check(); err != nil {
			return fmt.Errorf("VW Jira check failed: %w", err)
		}
		fmt.Println("VW Jira: ok")
		return nil
	},
}

func init() {
	kpmCmd.Flags().StringVar(&kpmSince, "since", "", `Sync window start, "2006-01-02 15:04:05.0" (default: computed from SYNC_WINDOW_HOURS)`)
}
