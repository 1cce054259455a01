// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/duelgrounds/server/internal/admin"
	"github.com/duelgrounds/server/internal/config"
	"github.com/duelgrounds/server/internal/minigame"
	"github.com/duelgrounds/server/internal/server"
)

func newCmd(cfg *config.Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("DUELGROUNDS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Authoritative match server for the duelgrounds arena.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			cfg.LoadEnvToken()
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&cfg.Host, "host", cfg.Host, "address to bind the game listener to (env: DUELGROUNDS_HOST)")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "game listener port (env: DUELGROUNDS_PORT)")
	fs.StringVar(&cfg.WebHost, "web-host", cfg.WebHost, "address to bind the admin HTTP listener to (env: DUELGROUNDS_WEB_HOST)")
	fs.IntVar(&cfg.WebPort, "web-port", cfg.WebPort, "admin HTTP port (env: DUELGROUNDS_WEB_PORT)")
	fs.BoolVar(&cfg.AutoStart, "auto-start", cfg.AutoStart, "start matches automatically (env: DUELGROUNDS_AUTO_START)")
	fs.IntVar(&cfg.MinPlayers, "min-players", cfg.MinPlayers, "players required before auto-start (env: DUELGROUNDS_MIN_PLAYERS)")
	fs.BoolVar(&cfg.ReadyRequired, "ready-required", cfg.ReadyRequired, "require every player ready before auto-start (env: DUELGROUNDS_READY_REQUIRED)")
	fs.Float64Var(&cfg.ReadyTimeout, "ready-timeout", cfg.ReadyTimeout, "seconds before unready players are overridden, 0 waits forever (env: DUELGROUNDS_READY_TIMEOUT)")
	fs.Float64Var(&cfg.StartDelay, "start-delay", cfg.StartDelay, "countdown seconds once eligible (env: DUELGROUNDS_START_DELAY)")
	fs.Float64Var(&cfg.ResetDelay, "reset-delay", cfg.ResetDelay, "seconds after a match before the lobby resets (env: DUELGROUNDS_RESET_DELAY)")
	fs.StringVar(&cfg.MapName, "map-name", cfg.MapName, "map to load (multiplayer pins test_arena) (env: DUELGROUNDS_MAP_NAME)")
	fs.BoolVar(&cfg.AllowNPC, "allow-npc", cfg.AllowNPC, "fill the match with bots (env: DUELGROUNDS_ALLOW_NPC)")
	fs.IntVar(&cfg.NPCFill, "npc-fill", cfg.NPCFill, "bot top-up target when filling (env: DUELGROUNDS_NPC_FILL)")
	fs.StringVar(&cfg.MapDir, "map-dir", cfg.MapDir, "directory holding map documents (env: DUELGROUNDS_MAP_DIR)")
	fs.StringVar(&cfg.MinigamesDir, "minigames-dir", cfg.MinigamesDir, "directory to discover minigame descriptors in (env: DUELGROUNDS_MINIGAMES_DIR)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "debug logging (env: DUELGROUNDS_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		if err := v.BindPFlag(f.Name, f); err != nil {
			return
		}
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, v.GetString(f.Name))
		}
	})

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := log.StandardLogger()
	if cfg.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	registry := minigame.NewRegistry()
	if cfg.MinigamesDir != "" {
		if err := registry.Discover(cfg.MinigamesDir); err != nil {
			log.Warnf("minigame discovery: %v", err)
		}
	}
	log.Infof("minigames enabled: %v", registry.EnabledIDs())

	srv := server.New(server.Options{
		Addr:          cfg.Addr(),
		MapDir:        cfg.MapDir,
		AllowNPC:      cfg.AllowNPC,
		NPCFillTarget: cfg.NPCFill,
	}, registry)

	ctrl := admin.NewController(srv, admin.Config{
		AutoStart:     cfg.AutoStart,
		MinPlayers:    cfg.MinPlayers,
		ReadyRequired: cfg.ReadyRequired,
		ReadyTimeout:  cfg.ReadyTimeout,
		StartDelay:    cfg.StartDelay,
		ResetDelay:    cfg.ResetDelay,
		MapName:       cfg.MapName,
	})

	web := &http.Server{
		Addr:    cfg.WebAddr(),
		Handler: admin.NewHandler(logger, ctrl, cfg.AdminToken, srv.WSHandler()),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	g.Go(func() error {
		log.Infof("admin HTTP listening on %s", cfg.WebAddr())
		err := web.ListenAndServe()
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	})
	g.Go(func() error {
		err := ctrl.Run(ctx)
		if err == context.Canceled {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		srv.Close()
		return web.Close()
	})
	return g.Wait()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Default()
	cmd := newCmd(&cfg)
	if err := cmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
