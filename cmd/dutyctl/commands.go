package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"cleaning-duty/internal/calendar"
	"cleaning-duty/internal/config"
	"cleaning-duty/internal/logger"
	"cleaning-duty/internal/model"
	"cleaning-duty/internal/realtime"
	"cleaning-duty/internal/service"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

type app struct {
	configFile *string

	cfg *config.Config
	db  *gorm.DB
	loc *time.Location
}

func (a *app) open() error {
	if a.db != nil {
		return nil
	}
	a.cfg = config.Load(*a.configFile)
	logger.Init(a.cfg.Log)

	loc, err := a.cfg.Location()
	if err != nil {
		return err
	}
	db, err := a.cfg.OpenGormDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	a.db, a.loc = db, loc
	return nil
}

func (a *app) catalog() *service.CatalogSync {
	if !a.cfg.CatalogEnabled() {
		return nil
	}
	raw, err := a.cfg.NewRawClient()
	if err != nil {
		logger.Warn("sdk client init failed", "err", err)
		return nil
	}
	return service.NewCatalogSync(raw, a.cfg.MOI, logger.For("catalog"))
}

func (a *app) month(s string) (calendar.Month, error) {
	if s == "" {
		return calendar.MonthOf(time.Now().In(a.loc)), nil
	}
	return calendar.ParseMonth(s)
}

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the duty tables",
		Long: `Run the schema migration. With realtime.mode=postgres the change
notification triggers are (re)installed as well.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			if err := service.Migrate(a.db); err != nil {
				return err
			}
			if a.cfg.Realtime.Mode == config.RealtimePostgres {
				if err := realtime.InstallTriggers(a.db, a.cfg.Realtime.Channel, service.Tables()...); err != nil {
					return err
				}
				color.Green("✓ triggers installed on channel %s", a.cfg.Realtime.Channel)
			}
			color.Green("✓ schema up to date (%s)", a.cfg.Database.Driver)
			return nil
		},
	}
}

func (a *app) generateCmd() *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Overwrite a month with a fresh rotation",
		Long: `Delete the month's schedules (and their completions) and rotate every
department's active members over its active tasks.

Examples:
  dutyctl generate --month 2026-02`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			m, err := a.month(month)
			if err != nil {
				return err
			}
			// catalog export runs inline below; the process exits right after
			gen := service.NewGenerateService(a.db, nil, a.loc, logger.For("generate"))
			report, err := gen.GenerateMonth(cmd.Context(), m)
			if err != nil {
				return err
			}

			fmt.Printf("Month %s: removed %d, created %d\n\n", report.Month, report.Removed, report.Created)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DEPARTMENT\tMEMBERS\tTASKS\tCREATED\tNOTE")
			for _, d := range report.Departments {
				note := ""
				if d.Skipped != "" {
					note = color.YellowString(d.Skipped)
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", d.Name, d.Members, d.Tasks, d.Created, note)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if c := a.catalog(); c != nil && report.Created > 0 {
				var entries []model.Schedule
				if err := a.db.WithContext(cmd.Context()).Where("rotation_month = ?", m.Key()).Find(&entries).Error; err != nil {
					return err
				}
				c.SyncSchedules(cmd.Context(), entries)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default: current month)")
	return cmd
}

func (a *app) assignCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "assign <member-id>",
		Short: "Give a member one random duty",
		Long: `Pick a random active task of the member's department and a random day in
[from, to] and store it, retrying when the slot is taken.

Examples:
  dutyctl assign 0192f0c4-...            # today through month end
  dutyctl assign 0192f0c4-... --from 2026-02-10 --to 2026-02-20`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			ctx := cmd.Context()
			rotation := service.NewRotationService(a.db,
				service.WithAttempts(a.cfg.Rotation.AssignAttempts),
				service.WithRotationLogger(logger.For("rotation")))
			directory := service.NewDirectoryService(a.db, logger.For("directory"))

			member, err := directory.GetMember(ctx, args[0])
			if err != nil {
				return err
			}
			tasks, err := rotation.EligibleTasks(ctx, member.DepartmentID)
			if err != nil {
				return err
			}

			today := calendar.Day(time.Now().In(a.loc))
			req := service.AssignRequest{
				MemberID: member.ID,
				TaskIDs:  tasks,
				From:     today,
				To:       calendar.MonthOf(today).Last(a.loc),
			}
			if from != "" {
				if req.From, err = calendar.ParseDate(from, a.loc); err != nil {
					return err
				}
			}
			if to != "" {
				if req.To, err = calendar.ParseDate(to, a.loc); err != nil {
					return err
				}
			}

			res, err := rotation.Assign(ctx, req)
			if err != nil {
				return err
			}
			switch res.Status {
			case service.StatusAssigned:
				color.Green("✓ %s → task %s on %s (attempt %d)", member.Name, res.Entry.TaskID, res.Entry.ScheduledDate, res.Attempts)
			case service.StatusSkipped:
				color.Yellow("- skipped: %s", res.Reason)
			default:
				color.Red("✗ %s after %d attempts", res.Reason, res.Attempts)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first candidate day YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&to, "to", "", "last candidate day YYYY-MM-DD (default: month end)")
	return cmd
}

func (a *app) monthCmd() *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "month",
		Short: "List a month's schedule with completion state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			m, err := a.month(month)
			if err != nil {
				return err
			}
			svc := service.NewCalendarService(a.db, realtime.NewHub(logger.Discard()), a.loc, logger.For("calendar"))
			entries, err := svc.Month(cmd.Context(), m)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Printf("No schedules for %s\n", m)
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tDAY\tDEPARTMENT\tAREA\tTASK\tMEMBER\tSTATE")
			for _, e := range entries {
				state := color.YellowString("pending")
				if e.Completion != nil {
					state = color.GreenString("done")
				}
				day, _ := calendar.ParseDate(e.ScheduledDate, a.loc)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					e.ScheduledDate, calendar.WeekdayJa(day), e.Task.Area.Department.Name,
					e.Task.Area.Name, e.Task.Name, e.Member.Name, state)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default: current month)")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show directory counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			st, err := service.NewDirectoryService(a.db, logger.For("directory")).Stats(cmd.Context())
			if err != nil {
				return err
			}
			bold := color.New(color.Bold).SprintFunc()
			fmt.Printf("%s %d\n", bold("departments:"), st.Departments)
			fmt.Printf("%s %d\n", bold("members:    "), st.Members)
			fmt.Printf("%s %d\n", bold("areas:      "), st.Areas)
			fmt.Printf("%s %d\n", bold("tasks:      "), st.Tasks)
			return nil
		},
	}
}

func (a *app) syncMembersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-members",
		Short: "Export all members to the MatrixOne catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(); err != nil {
				return err
			}
			c := a.catalog()
			if c == nil {
				return fmt.Errorf("catalog sync is not configured (moi.base_url / moi.api_key)")
			}
			var members []model.Member
			if err := a.db.WithContext(cmd.Context()).Order("sort_order, created_at, id").Find(&members).Error; err != nil {
				return err
			}
			c.SyncMembers(cmd.Context(), members)
			color.Green("✓ %d members sent", len(members))
			return nil
		},
	}
}
