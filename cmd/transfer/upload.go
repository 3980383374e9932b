package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/zata-zhangtao/transFileServer/pkg/transferclient"
	"github.com/zata-zhangtao/transFileServer/pkg/transferproto"
)

func newUploadCmd(opts *rootOptions) *cobra.Command {
	var (
		text        string
		chunkSize   string
		parallelism int
		whole       bool
		uploadID    string
	)

	cmd := &cobra.Command{
		Use:   "upload [file]",
		Short: "Upload a file (chunked by default) or a text snippet",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if text != "" {
				if len(args) > 0 {
					return errors.New("pass either a file or --text, not both")
				}
				resp, err := opts.client(cmd).UploadText(ctx, text)
				if err != nil {
					return err
				}
				return writeUpload(cmd, opts, resp.FileID, resp.Filename, resp.Type)
			}
			if len(args) == 0 {
				return errors.New("a file path or --text is required")
			}

			size, err := humanize.ParseBytes(chunkSize)
			if err != nil {
				return fmt.Errorf("invalid --chunk-size: %w", err)
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			fi, err := f.Stat()
			if err != nil {
				return err
			}
			name := filepath.Base(args[0])

			cli := opts.client(cmd, transferclient.WithChunkSize(int64(size)), transferclient.WithParallelism(parallelism))
			if whole {
				resp, err := cli.UploadFile(ctx, name, f, fi.Size())
				if err != nil {
					return err
				}
				return writeUpload(cmd, opts, resp.FileID, resp.Filename, resp.Type)
			}

			var resp transferproto.ChunkResponse
			if uploadID != "" {
				resp, err = cli.UploadChunkedWithID(ctx, uploadID, name, f, fi.Size())
			} else {
				resp, err = cli.UploadChunked(ctx, name, f, fi.Size())
			}
			if err != nil {
				return err
			}
			return writeUpload(cmd, opts, resp.FileID, resp.Filename, resp.Type)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "upload a text snippet instead of a file")
	cmd.Flags().StringVar(&chunkSize, "chunk-size", "5MiB", "chunk size for chunked uploads")
	cmd.Flags().IntVarP(&parallelism, "parallel", "p", 4, "chunks sent concurrently")
	cmd.Flags().BoolVar(&whole, "whole", false, "send the file in a single request")
	cmd.Flags().StringVar(&uploadID, "upload-id", "", "resume or reuse a chunked upload id")

	return cmd
}
