package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/joescharf/crv/internal/api"
	"github.com/joescharf/crv/internal/chat"
	"github.com/joescharf/crv/internal/daemon"
)

const (
	shutdownTimeout = 10 * time.Second
	stopTimeout     = 5 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server in the foreground",
	Long: `Start the code review HTTP API.

By default it listens on 0.0.0.0:8001. Use --host and --port to change it,
or 'crv serve start' to run it in the background.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun(cmd.Context())
	},
}

var serveStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the server in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStartRun()
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStopRun()
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the background server is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStatusRun()
	},
}

func init() {
	serveCmd.AddCommand(serveStartCmd)
	serveCmd.AddCommand(serveStopCmd)
	serveCmd.AddCommand(serveStatusCmd)
	rootCmd.AddCommand(serveCmd)

	serveCmd.PersistentFlags().IntP("port", "p", 8001, "port to listen on")
	serveCmd.PersistentFlags().String("host", "0.0.0.0", "interface to bind")
	_ = viper.BindPFlag("server.port", serveCmd.PersistentFlags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.PersistentFlags().Lookup("host"))
}

// pidFile returns the PID file tracking the background server.
func pidFile() *daemon.PIDFile {
	dir, err := configDirFunc()
	if err != nil {
		dir = "."
	}
	return daemon.InDir(dir)
}

// serveLogPath returns where the background server writes its output.
func serveLogPath() string {
	dir, err := configDirFunc()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, daemon.LogFileName)
}

func serveRun(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	s, err := getStore()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, daemon.ShutdownSignals()...)
	defer stop()

	runner, registry, cleanup, err := newRunner(ctx, settings)
	if err != nil {
		return err
	}
	defer cleanup()

	history, err := chat.NewHistory(settings.Chat.MaxSessions, settings.Chat.MaxHistory, settings.Chat.TrimTo)
	if err != nil {
		return fmt.Errorf("chat history: %w", err)
	}

	handler, err := api.NewServer(api.Options{
		Store:   s,
		Runner:  runner,
		Chat:    chat.NewService(runner, history, logger),
		Catalog: registry,
		Upload:  settings.Upload,
		Auth:    settings.Server.Auth,
		Logger:  logger,
	}).Router()
	if err != nil {
		return fmt.Errorf("failed to initialize API router: %w", err)
	}

	pf := pidFile()
	if err := pf.Claim(os.Getpid()); err != nil {
		logger.Warn("not tracking this server in the PID file", "path", pf.Path, "error", err)
	} else {
		defer func() { _ = pf.Release(os.Getpid()) }()
	}

	addr := net.JoinHostPort(settings.Server.Host, strconv.Itoa(settings.Server.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting server", "addr", addr, "version", buildVersion, "settings", settings)
	fmt.Fprintln(ui.Out, api.Banner)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func serveStartRun() error {
	pf := pidFile()
	if st := pf.Status(); st.Running {
		return fmt.Errorf("%w (pid %d)", daemon.ErrAlreadyRunning, st.PID)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	args := []string{"serve",
		"--port", strconv.Itoa(viper.GetInt("server.port")),
		"--host", viper.GetString("server.host"),
	}
	if cfgFile := viper.ConfigFileUsed(); cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}

	if dryRun {
		ui.DryRunMsg("Would run: %s %v", exe, args)
		return nil
	}

	logPath := serveLogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	child := exec.Command(exe, args...)
	child.Stdout = logFile
	child.Stderr = logFile
	daemon.Detach(child)
	if err := child.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	// The child claims the same PID once it is up.
	if err := pf.WritePID(child.Process.Pid); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}
	_ = child.Process.Release()

	ui.Success("Server started (pid %d)", child.Process.Pid)
	ui.Info("Logs: %s", logPath)
	return nil
}

func serveStopRun() error {
	pf := pidFile()
	if dryRun {
		st := pf.Status()
		if !st.Running {
			return daemon.ErrNotRunning
		}
		ui.DryRunMsg("Would stop server (pid %d)", st.PID)
		return nil
	}

	pid, killed, err := pf.Stop(stopTimeout)
	if err != nil {
		return err
	}
	if killed {
		ui.Warning("Server did not exit after %s and was killed (pid %d)", stopTimeout, pid)
		return nil
	}
	ui.Success("Server stopped (pid %d)", pid)
	return nil
}

func serveStatusRun() error {
	st := pidFile().Status()
	if st.Stale {
		ui.Warning("Removed stale PID file (pid %d is gone)", st.PID)
	}
	if !st.Running {
		ui.Info("Server is not running")
		return nil
	}
	ui.Success("Server is running (pid %d)", st.PID)
	ui.Info("Logs: %s", serveLogPath())
	return nil
}
