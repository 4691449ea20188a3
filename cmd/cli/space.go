package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	api "miinplanner-backend/cmd/api"
	authdomain "miinplanner-backend/internal/auth/domain"
	authusecase "miinplanner-backend/internal/auth/usecase"
	spacedomain "miinplanner-backend/internal/taskspace/domain"
	"miinplanner-backend/internal/workspace"

	"github.com/spf13/cobra"
)

func newSpaceCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "space",
		Short: "Manage a user's saved task spaces",
		Long: `Inspect, export and import task spaces without going through the API.

Available subcommands:
  list   - List the saved spaces of a user
  export - Write a saved space as a JSON document
  import - Save a JSON document as a space and load it`,
	}
	cmd.AddCommand(newSpaceListCommand(e), newSpaceExportCommand(e), newSpaceImportCommand(e))
	return cmd
}

// withWorkspace opens the configured stores and runs fn against uid's
// workspace
func (e *env) withWorkspace(cmd *cobra.Command, uid string, fn func(ws *workspace.Workspace) error) error {
	if uid == "" {
		return fmt.Errorf("--user is required")
	}
	app, err := api.NewFirebaseApp(cmd.Context(), e.cfg)
	if err != nil {
		return err
	}
	stores, err := api.NewStores(cmd.Context(), e.cfg, app)
	if err != nil {
		return err
	}
	defer stores.Close()

	profiles := authusecase.NewProfileUsecase(stores.Profiles, stores.Tokens, e.cfg, e.log)
	session := &authdomain.Session{UID: uid}
	if _, err := profiles.Get(cmd.Context(), uid); errors.Is(err, authdomain.ErrProfileNotFound) {
		if _, err := profiles.Bootstrap(cmd.Context(), *session); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	ws := workspace.New(session, workspace.Deps{
		Tasks:    stores.Tasks,
		Profiles: profiles,
		Spaces:   stores.Spaces,
		Posts:    stores.Posts,
		Log:      e.log,
	})
	return fn(ws)
}

func newSpaceListCommand(e *env) *cobra.Command {
	var uid string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved task spaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withWorkspace(cmd, uid, func(ws *workspace.Workspace) error {
				spaces, err := ws.TaskSpaces(cmd.Context())
				if err != nil {
					return err
				}
				return printSpaces(cmd.OutOrStdout(), spaces)
			})
		},
	}
	cmd.Flags().StringVar(&uid, "user", "", "owner uid")
	return cmd
}

func printSpaces(w io.Writer, spaces []spacedomain.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTASKS\tCREATED")
	for _, s := range spaces {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.ID, s.Name, s.TaskCount, s.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func newSpaceExportCommand(e *env) *cobra.Command {
	var uid, id, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a saved task space to a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return fmt.Errorf("--id is required")
			}
			return e.withWorkspace(cmd, uid, func(ws *workspace.Workspace) error {
				data, name, err := ws.ExportTaskSpace(cmd.Context(), id)
				if err != nil {
					return err
				}
				if out == "" || out == "-" {
					_, err = cmd.OutOrStdout().Write(append(data, '\n'))
					return err
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "exported %q to %s\n", name, out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&uid, "user", "", "owner uid")
	cmd.Flags().StringVar(&id, "id", "", "space id")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, stdout when empty")
	return cmd
}

func newSpaceImportCommand(e *env) *cobra.Command {
	var uid, file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a task space file and load it, replacing the user's tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			space, err := spacedomain.Decode(data)
			if err != nil {
				return err
			}
			return e.withWorkspace(cmd, uid, func(ws *workspace.Workspace) error {
				saved, err := ws.ImportTaskSpace(cmd.Context(), *space)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %q as %s with %d task(s)\n", saved.Name, saved.ID, len(saved.Tasks))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&uid, "user", "", "owner uid")
	cmd.Flags().StringVarP(&file, "file", "f", "", "task space JSON file")
	return cmd
}
