package cmd

import (
	"net/http"

	"github.com/fastmal/roilabel/internal/devproxy"
	"github.com/spf13/cobra"
)

func newProxyCmd(opts *rootOptions) *cobra.Command {
	var (
		listen    string
		webClient string
		devServer string
	)

	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Run the development proxy for the iviewer bundle",
		Long: `Forwards /static/omero_iviewer/bundle.js to the iviewer dev server (with
the static prefix removed) and every other request to OMERO.web, so the
plugin can be developed against a live web client.`,
		Example: `  roilabel proxy
  roilabel proxy --listen :5050 --web-client http://127.0.0.1:4080 --dev-server http://127.0.0.1:3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen == "" {
				listen = opts.cfg.ProxyListen
			}
			if webClient == "" {
				webClient = opts.cfg.WebClientURL
			}
			if devServer == "" {
				devServer = opts.cfg.DevServerURL
			}

			proxy, err := devproxy.New(webClient, devServer, nil)
			if err != nil {
				return err
			}

			server := &http.Server{
				Addr:    listen,
				Handler: proxy,
			}
			return runServer(cmd.Context(), server, "Development proxy listening",
				"web_client", webClient, "dev_server", devServer)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default :5050)")
	cmd.Flags().StringVar(&webClient, "web-client", "", "OMERO.web URL")
	cmd.Flags().StringVar(&devServer, "dev-server", "", "iviewer dev server URL")

	return cmd
}
