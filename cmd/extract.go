package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/wingman/internal/host"
	"github.com/spigell/wingman/internal/job"
)

var extractSource pageSource

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Print the job title and description found on a page",
	Run: func(cmd *cobra.Command, _ []string) {
		extract(cmd.Context(), extractSource)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&extractSource.URL, "url", "u", "", "job posting URL")
	extractCmd.Flags().StringVarP(&extractSource.File, "page-file", "p", "", "saved HTML page of the job posting")
}

func extract(ctx context.Context, src pageSource) {
	log := newLogger()

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	p, err := loadPage(ctx, config.Page, src, log)
	if err != nil {
		log.Fatal("loading job page", zap.Error(err))
	}

	h, err := newHost(p, nil, log)
	if err != nil {
		log.Fatal("starting contexts", zap.Error(err))
	}

	var reply job.ExtractReply
	err = h.Run(ctx, func(ctx context.Context) error {
		return h.Bus().Request(ctx, host.ContextPage, job.MessageExtract, nil, &reply)
	})
	if err != nil {
		log.Fatal("extracting job", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reply.Job); err != nil {
		log.Fatal("writing result", zap.Error(err))
	}
}
