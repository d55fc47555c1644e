package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"folio/internal/app"
	"folio/internal/cms"
	"folio/internal/config"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a FolioApp acting as the --user
// account, or as the system actor when none is given.
// The caller must defer app.Close().
func newApp(cmd *cobra.Command, operation string) (*app.FolioApp, error) {
	paths, err := app.DefaultPaths()
	if err != nil {
		return nil, fmt.Errorf("resolving paths: %w", err)
	}

	cfg, err := config.ReadFromFile(paths.Config)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewFolioApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	user, _ := cmd.Flags().GetString("user")
	if err := a.Login(user); err != nil {
		a.Close()
		return nil, fmt.Errorf("logging in: %w", err)
	}
	lang, _ := cmd.Flags().GetString("lang")
	if err := a.SetLanguage(lang); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// confirm asks on the terminal before a destructive command. Without a
// terminal the command needs --yes.
func confirm(cmd *cobra.Command, prompt string) error {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("refusing to %s without a terminal: pass --yes", prompt)
	}
	ok, err := ask(os.Stdin, cmd.OutOrStdout(), prompt)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("aborted")
	}
	return nil
}

func ask(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprintf(out, "Really %s? [y/N] ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// parseFields turns repeated key=value flags into content data.
func parseFields(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("field %q is not key=value", p)
		}
		out[strings.TrimSpace(k)] = v
	}
	return out, nil
}

func printModel(w io.Writer, m cms.Model) error {
	fmt.Fprintf(w, "id:       %s\n", m.ID())
	fmt.Fprintf(w, "kind:     %s\n", m.Kind())
	if u, err := m.UUID(); err == nil && u != nil {
		fmt.Fprintf(w, "uuid:     %s\n", u)
	}
	if p, ok := m.(*cms.Page); ok {
		fmt.Fprintf(w, "status:   %s\n", p.Status())
		fmt.Fprintf(w, "template: %s\n", p.Template())
	}

	c, err := m.Content()
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	for _, k := range c.Keys() {
		fmt.Fprintf(w, "%s: %s\n", k, c.Get(k))
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:          "folio",
	Short:        "File-based content management",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := app.DefaultPaths()
		if err != nil {
			return fmt.Errorf("failed to resolve paths: %w", err)
		}

		cfg := config.NewConfig(paths.Home)
		if err := config.Init(paths.Config, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", paths.Config)
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Content Root: %s\n", cfg.Site.ContentRoot)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := app.DefaultPaths()
		if err != nil {
			return fmt.Errorf("failed to resolve paths: %w", err)
		}

		cfg, err := config.ReadFromFile(paths.Config)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", paths.Config)
		fmt.Printf("Base Dir:      %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:       %s\n", cfg.LogDir)
		fmt.Printf("Content Root:  %s\n", cfg.Site.ContentRoot)
		fmt.Printf("Accounts Root: %s\n", cfg.Site.AccountsRoot)
		fmt.Printf("Blueprints:    %s\n", cfg.Site.BlueprintsRoot)
		fmt.Printf("UUID Cache:    %s\n", cfg.UUIDCache.Type)
		fmt.Printf("Page Cache:    %s\n", cfg.PageCache.Type)
		fmt.Printf("History:       %v\n", cfg.History.Enabled)
		if len(cfg.Languages) > 0 {
			codes := make([]string, len(cfg.Languages))
			for i, l := range cfg.Languages {
				codes[i] = l.Code
			}
			fmt.Printf("Languages:     %s\n", strings.Join(codes, ", "))
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recorded content changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "History")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.History(limit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No changes recorded.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  %s  %-12s  %s\n",
				e.Hash[:10],
				e.When.Format("2006-01-02 15:04:05"),
				e.Author,
				strings.TrimSpace(e.Message),
			)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("user", "u", "", "Act as this user (id or email); defaults to the system actor")
	rootCmd.PersistentFlags().String("lang", "", "Current content language")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(pageCmd)
	rootCmd.AddCommand(uuidCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of changes to show")
}
