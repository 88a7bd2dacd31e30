package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/dwellpoint/internal/app"
	"github.com/ayusman/dwellpoint/internal/config"
	"github.com/ayusman/dwellpoint/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	return filepath.Join(filepath.Dir(config.DefaultDBPath()), "config.yaml")
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "dwellpoint",
		Short:         "Hands-free dwell-to-activate pointer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "config file path")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newPrefsCmd(&configPath))
	root.AddCommand(newHistoryCmd(&configPath))
	root.AddCommand(newConfigCmd(&configPath))
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	var addr, dbPath, staticDir string
	var camera, withTray bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pointer engine and the browser bridge",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("addr") {
				cfg.Server.Addr = addr
			}
			if flags.Changed("db") {
				cfg.Store.Path = config.ExpandHome(dbPath)
			}
			if flags.Changed("static") {
				cfg.Server.StaticDir = config.ExpandHome(staticDir)
			}
			if flags.Changed("camera") {
				cfg.Camera.Enabled = camera
			}
			if flags.Changed("tray") {
				cfg.Tray.Enabled = withTray
			}

			return serve(cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "HTTP listen address")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path")
	cmd.Flags().StringVar(&staticDir, "static", "", "directory of static files to serve at /")
	cmd.Flags().BoolVar(&camera, "camera", false, "read samples from the local camera")
	cmd.Flags().BoolVar(&withTray, "tray", false, "show the system tray menu")
	return cmd
}

func serve(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(app.Options{Config: cfg})
	if err != nil {
		return err
	}
	defer a.Stop()

	if err := a.Start(ctx); err != nil {
		return err
	}

	t := a.Tray()
	if t == nil {
		return a.Serve(ctx, cfg.Server.Addr)
	}

	// The tray needs the main goroutine; the server runs beside it.
	t.OnQuit(stop)
	t.OnSettings(func() { openBrowser("http://" + cfg.Server.Addr) })

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Serve(ctx, cfg.Server.Addr)
		t.Quit()
	}()
	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	t.Run()
	stop()
	return <-errCh
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}

// openStore opens the database named by the config file.
func openStore(configPath string) (*store.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return store.New(cfg.Store.Path)
}

func newPrefsCmd(configPath *string) *cobra.Command {
	prefs := &cobra.Command{Use: "prefs", Short: "Read and write stored preferences"}

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a stored preference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(*configPath)
			if err != nil {
				return err
			}
			defer st.Close()

			value, err := st.Settings().Get(args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("preference %s is not set", args[0])
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a preference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(*configPath)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Settings().Set(args[0], args[1]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", args[0], args[1])
			return nil
		},
	}

	unsetCmd := &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a stored preference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(*configPath)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Settings().Delete(args[0]); err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print every stored preference",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(*configPath)
			if err != nil {
				return err
			}
			defer st.Close()

			all, err := st.Settings().All()
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(all))
			for k := range all {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, all[k])
			}
			return nil
		},
	}

	prefs.AddCommand(getCmd, setCmd, unsetCmd, listCmd)
	return prefs
}

func newHistoryCmd(configPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent activations, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(*configPath)
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := st.Activations().List(limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "TIME\tTARGET\tID")
			for _, r := range records {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", r.OccurredAt.Local().Format(time.DateTime), r.TargetID, r.ID)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", store.DefaultHistoryLimit, "maximum number of activations to list")
	return cmd
}

func newConfigCmd(configPath *string) *cobra.Command {
	cfgCmd := &cobra.Command{Use: "config", Short: "Inspect the configuration file"}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with default values",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.ExpandHome(*configPath)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cfgCmd.AddCommand(showCmd, initCmd)
	return cfgCmd
}
