package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/metcalfc/spoon/internal/surface"
	"github.com/metcalfc/spoon/internal/web"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser panel and copy button",
		Long: `Serve runs a local web page with a reading panel and a floating copy
button. It shares progress with every other spoon surface.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = cfg.Serve.Addr()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			gin.SetMode(gin.ReleaseMode)
			s := surface.New("web", lib)
			defer s.Close()
			s.Activate()
			startSync(ctx)

			ok("Serving on %s", fmt.Sprintf("http://%s", addr))
			return web.NewServer(lib, s).Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: serve.host:serve.port)")
	return cmd
}
