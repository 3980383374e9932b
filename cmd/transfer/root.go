package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/zata-zhangtao/transFileServer/pkg/transferclient"
)

const (
	serverEnvKey  = "TRANSFER_SERVER"
	defaultServer = "http://localhost:8000"
)

type rootOptions struct {
	server     string
	jsonOutput bool
	quiet      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "transfer",
		Short:         "Upload, download and manage files on a transfer server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	server := os.Getenv(serverEnvKey)
	if server == "" {
		server = defaultServer
	}

	cmd.Version = version
	cmd.PersistentFlags().StringVar(&opts.server, "server", server, "server base URL (env "+serverEnvKey+")")
	cmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "no progress bars")

	cmd.AddCommand(
		newUploadCmd(opts),
		newListCmd(opts),
		newDownloadCmd(opts),
		newDeleteCmd(opts),
		newStatusCmd(opts),
		newGCCmd(opts),
	)

	return cmd
}

func (o *rootOptions) client(cmd *cobra.Command, extra ...transferclient.Option) *transferclient.Client {
	var progress io.Writer = cmd.ErrOrStderr()
	if o.quiet || o.jsonOutput {
		progress = nil
	}
	opts := append([]transferclient.Option{transferclient.WithProgress(progress)}, extra...)
	return transferclient.New(o.server, opts...)
}
