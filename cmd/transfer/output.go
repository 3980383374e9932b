package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/zata-zhangtao/transFileServer/pkg/transferproto"
)

func writeJSON(cmd *cobra.Command, payload any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func writePlain(cmd *cobra.Command, format string, args ...any) error {
	_, err := fmt.Fprintf(cmd.OutOrStdout(), format, args...)
	return err
}

func writeUpload(cmd *cobra.Command, opts *rootOptions, id, name, kind string) error {
	if opts.jsonOutput {
		return writeJSON(cmd, transferproto.UploadResponse{FileID: id, Filename: name, Type: kind})
	}
	return writePlain(cmd, "%s\t%s\t%s\n", id, kind, name)
}

func writeFileList(cmd *cobra.Command, files []transferproto.FileInfo) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE_ID\tTYPE\tSIZE\tCREATED\tFILENAME")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.FileID, f.Type, humanBytes(f.Size), humanize.Time(f.CreatedAt), f.Filename)
	}
	return tw.Flush()
}

func humanBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
