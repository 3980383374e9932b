package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			files, err := opts.client(cmd).List(cmd.Context())
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd, files)
			}
			return writeFileList(cmd, files)
		},
	}
}

func newDownloadCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download <file_id>",
		Short: "Download a file by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if output != "" {
				dir = filepath.Dir(output)
			}
			tmp, err := os.CreateTemp(dir, ".transfer-*")
			if err != nil {
				return err
			}
			defer os.Remove(tmp.Name())

			name, n, err := opts.client(cmd).Download(cmd.Context(), args[0], tmp)
			if cerr := tmp.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}

			dst := output
			if dst == "" {
				dst = filepath.Join(dir, filepath.Base(name))
			}
			if err := os.Rename(tmp.Name(), dst); err != nil {
				return err
			}
			return writePlain(cmd, "saved %s (%s)\n", dst, humanBytes(n))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "destination path (defaults to the server-side file name)")
	return cmd
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <file_id>",
		Short: "Delete a file by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client(cmd).Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			return writePlain(cmd, "deleted %s\n", args[0])
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <upload_id>",
		Short: "Show the state of a chunked upload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.client(cmd).Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd, st)
			}
			if st.ReceivedChunks != nil {
				return writePlain(cmd, "%s: %s (%d chunks received)\n", args[0], st.Status, *st.ReceivedChunks)
			}
			return writePlain(cmd, "%s: %s\n", args[0], st.Status)
		},
	}
}

func newGCCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Remove abandoned chunked uploads on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			removed, err := opts.client(cmd).GC(cmd.Context())
			if err != nil {
				return err
			}
			return writePlain(cmd, "removed %d stale uploads\n", removed)
		},
	}
}
