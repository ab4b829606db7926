package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danmuck/dmapctl/internal/server"
)

func newServeCmd(opts *rootOpts) *cobra.Command {
	var (
		listen  string
		tlsCert string
		tlsKey  string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the codec over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := opts.service()
			if err != nil {
				return err
			}
			addr := opts.cfg.Listen
			if listen != "" {
				addr = listen
			}
			if tlsCert == "" {
				tlsCert, tlsKey = opts.cfg.TLSCertFile, opts.cfg.TLSKeyFile
			}
			srv := server.New(svc, server.Options{
				Name:         cmd.Root().Name(),
				Addr:         addr,
				CorsOrigins:  opts.cfg.CorsOrigins,
				MaxBodyBytes: opts.cfg.MaxBodyBytes,
				TLSCertFile:  tlsCert,
				TLSKeyFile:   tlsKey,
				AuthToken:    opts.cfg.AuthToken,
			})
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Serve(ctx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides listen)")
	cmd.Flags().StringVar(&tlsCert, "tls-cert", "", "TLS certificate file (overrides tls_cert_file)")
	cmd.Flags().StringVar(&tlsKey, "tls-key", "", "TLS private key file (overrides tls_key_file)")
	cmd.MarkFlagsRequiredTogether("tls-cert", "tls-key")
	return cmd
}
