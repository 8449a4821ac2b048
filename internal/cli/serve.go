package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tokenforge/internal/server"
	"github.com/matzehuels/tokenforge/pkg/config"
	tferrors "github.com/matzehuels/tokenforge/pkg/errors"
)

const (
	defaultServeAddr = "127.0.0.1:8080"
	shutdownTimeout  = 5 * time.Second
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	config string
	addr   string
}

// serveCommand creates the serve command for previewing a collection.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve generated images and metadata for local preview",
		Long: `Serve generated images and metadata for local preview.

Routes:
  /images/{id}.png   token image
  /metadata          all metadata records
  /metadata/{id}     one metadata record
  /report            rarity and constraint audit as JSON`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.config, nil)
			if err != nil {
				return err
			}
			return c.runServe(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.config, "config", "c", defaultConfigPath, "configuration file (.yaml, .yml or .toml)")
	cmd.Flags().StringVar(&opts.addr, "addr", defaultServeAddr, "listen address")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg *config.Config, opts serveOpts) error {
	logger := loggerFromContext(ctx)

	srv := server.New(server.Config{
		Address:     opts.addr,
		ImageDir:    cfg.Output.ImageDir,
		MetadataDir: cfg.Output.MetadataDir,
		Pairs:       cfg.ForbiddenPairs(),
		Expected:    expectedShares(cfg, logger),
		Logger:      logger,
	})

	ln, err := net.Listen("tcp", opts.addr)
	if err != nil {
		return tferrors.Wrap(tferrors.ErrCodeConfiguration, err, "listen on %s", opts.addr)
	}
	printSuccess("Serving %s", StyleLink.Render("http://"+ln.Addr().String()))
	printDetail("press Ctrl+C to stop")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", "error", err)
	}
	return ctx.Err()
}
