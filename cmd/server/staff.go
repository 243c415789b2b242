package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sakif/innovation-records/internal/authz"
	"github.com/sakif/innovation-records/internal/model"
	"github.com/sakif/innovation-records/internal/repository"
	sqliteRepo "github.com/sakif/innovation-records/internal/repository/sqlite"
	"github.com/sakif/innovation-records/internal/service"
)

var staffCmd = &cobra.Command{
	Use:   "staff",
	Short: "Maintain the staff directory (the login whitelist)",
}

var (
	staffName     string
	staffDept     string
	staffInactive bool
	staffLimit    int
	staffOffset   int
)

var staffAddCmd = &cobra.Command{
	Use:   "add EMAIL",
	Short: "Add or update one staff entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStaff(func(svc *service.StaffService) error {
			st := &model.Staff{Email: args[0], Name: staffName, Dept: staffDept, Active: !staffInactive}
			if err := svc.Put(cmd.Context(), st); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", st.Email)
			return nil
		})
	},
}

var staffImportCmd = &cobra.Command{
	Use:   "import FILE.csv",
	Short: "Upsert staff from a CSV of email,name,dept[,active]",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		return withStaff(func(svc *service.StaffService) error {
			n, err := svc.Import(cmd.Context(), f)
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows\n", n)
			return err
		})
	},
}

var staffListCmd = &cobra.Command{
	Use:   "list",
	Short: "List staff entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStaff(func(svc *service.StaffService) error {
			list, err := svc.List(cmd.Context(), repository.ListOptions{Limit: staffLimit, Offset: staffOffset})
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "EMAIL\tNAME\tDEPT\tACTIVE")
			for _, st := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", st.Email, st.Name, st.Dept, st.Active)
			}
			return tw.Flush()
		})
	},
}

// withStaff opens the database, applying pending migrations, and hands fn a
// StaffService over it.
func withStaff(fn func(svc *service.StaffService) error) error {
	cfg, logger, err := load()
	if err != nil {
		return err
	}
	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return err
	}
	db, err := sqliteRepo.New(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	enforcer, err := authz.NewEnforcer()
	if err != nil {
		return err
	}
	return fn(service.NewStaffService(db.Staff(), db.Users(), enforcer, logger))
}

func init() {
	staffAddCmd.Flags().StringVar(&staffName, "name", "", "full name (required)")
	staffAddCmd.Flags().StringVar(&staffDept, "dept", "", "department")
	staffAddCmd.Flags().BoolVar(&staffInactive, "inactive", false, "store the entry as inactive (cannot sign in)")
	staffListCmd.Flags().IntVar(&staffLimit, "limit", 100, "maximum rows")
	staffListCmd.Flags().IntVar(&staffOffset, "offset", 0, "rows to skip")

	staffCmd.AddCommand(staffAddCmd, staffImportCmd, staffListCmd)
}
