package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/siteqa/siteqa/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server exposing the test API.

Endpoints:
  POST   /api/v1/tests        run a test (blocks until complete)
  GET    /api/v1/tests        list results
  GET    /api/v1/tests/{id}   get one result
  DELETE /api/v1/tests/{id}   delete a result
  GET    /api/v1/status       aggregate statistics

Screenshots are served under the configured URL prefix.
By default it listens on port 8080. Use --port to change it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port := viper.GetInt("port")

		s, err := getStore()
		if err != nil {
			return err
		}
		r, err := getRunner()
		if err != nil {
			return err
		}

		srv := api.NewServer(s, r,
			viper.GetString("screenshots.dir"),
			viper.GetString("screenshots.url_prefix"),
		)

		addr := fmt.Sprintf(":%d", port)
		fmt.Printf("Serving API at http://localhost%s\n", addr)
		return http.ListenAndServe(addr, srv.Router())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	viper.SetDefault("port", 8080)
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}
