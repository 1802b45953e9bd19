package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/wingman/internal/driver"
	"github.com/spigell/wingman/internal/host"
	"github.com/spigell/wingman/internal/logger"
	"github.com/spigell/wingman/internal/orchestrator"
	"github.com/spigell/wingman/internal/page"
	"github.com/spigell/wingman/internal/utils"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"

	descriptionPreviewLength = 400
)

var errExit = errors.New("exit requested")

type analyzeOptions struct {
	page        pageSource
	resume      string
	title       string
	description string
	interactive bool
	output      string
}

var analyzeOpts analyzeOptions

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze how well a resume fits a job posting",
	Run: func(cmd *cobra.Command, _ []string) {
		analyze(cmd.Context(), analyzeOpts)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	flags := analyzeCmd.Flags()
	flags.StringVarP(&analyzeOpts.page.URL, "url", "u", "", "job posting URL")
	flags.StringVarP(&analyzeOpts.page.File, "page-file", "p", "", "saved HTML page of the job posting")
	flags.StringVarP(&analyzeOpts.resume, "resume", "r", "", "resume file to upload")
	flags.StringVarP(&analyzeOpts.title, "title", "t", "", "job title, overrides the one found on the page")
	flags.StringVar(&analyzeOpts.description, "description", "", "job description, overrides the one found on the page")
	flags.BoolVarP(&analyzeOpts.interactive, "interactive", "i", false, "confirm and edit the job title before analysis")
	flags.StringVarP(&analyzeOpts.output, "output", "o", outputText, "output format: text or json")

	analyzeCmd.MarkFlagRequired("resume")
}

func analyze(ctx context.Context, opts analyzeOptions) {
	log := newLogger()

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	log.Info("starting the wingman", zap.String("version", version))

	render, err := newRenderer(opts.output, os.Stdout)
	if err != nil {
		log.Fatal("preparing output", zap.Error(err))
	}

	resume, err := os.ReadFile(opts.resume)
	if err != nil {
		log.Fatal("reading resume", zap.Error(err))
	}

	pipeline, err := newOrchestrator(ctx, config, log)
	if err != nil {
		log.Fatal("building the pipeline", zap.Error(err),
			zap.String("hint", "check the service and analyzer sections of the configuration file"),
		)
	}

	p := pageOrNil(ctx, config, opts, log)

	h, err := newHost(p, orchestrator.NewService(pipeline, logger.ForContext(log, host.ContextBackground)), log)
	if err != nil {
		log.Fatal("starting contexts", zap.Error(err))
	}

	form := driver.Form{
		JobTitle:       opts.title,
		JobDescription: opts.description,
		ResumeFileName: filepath.Base(opts.resume),
		Resume:         resume,
	}

	err = h.Run(ctx, func(ctx context.Context) error {
		d := driver.New(h.Bus(), render, driver.Contexts{
			Page:       host.ContextPage,
			Background: host.ContextBackground,
		}, logger.ForContext(log, host.ContextPopup))

		if p != nil {
			// Prefill failures leave the form as the flags set it.
			if posting, err := d.Prefill(ctx); err == nil && posting.Text != "" {
				if form.JobTitle == "" {
					form.JobTitle = posting.Title
				}
				if form.JobDescription == "" {
					form.JobDescription = posting.Text
				}
			}
		}

		if opts.interactive {
			confirmed, err := confirmForm(form)
			if err != nil {
				return err
			}
			form = confirmed
		}

		_, err := d.Submit(ctx, form)
		return err
	})

	switch {
	case err == nil:
		log.Debug("analysis finished")
	case errors.Is(err, errExit):
		log.Info("exiting", zap.String("reason", "got no from prompt"))
	default:
		log.Fatal("analysis failed", zap.Error(err))
	}
}

// pageOrNil loads the job page when one was given. Without a page the form
// must be filled from flags.
func pageOrNil(ctx context.Context, config *Config, opts analyzeOptions, log *zap.Logger) *page.Page {
	if opts.page.empty() {
		if opts.description == "" {
			log.Fatal("nothing to analyze", zap.Error(errNoPage),
				zap.String("hint", "pass --description to analyze without a page"),
			)
		}
		return nil
	}

	p, err := loadPage(ctx, config.Page, opts.page, log)
	if err != nil {
		log.Fatal("loading job page", zap.Error(err))
	}

	return p
}

func confirmForm(form driver.Form) (driver.Form, error) {
	fmt.Printf("Job description (%d chars):\n%s\n\n",
		len(form.JobDescription), utils.TruncateForLog(form.JobDescription, descriptionPreviewLength))

	titlePrompt := promptui.Prompt{
		Label:     "Job title",
		Default:   form.JobTitle,
		AllowEdit: true,
	}

	title, err := titlePrompt.Run()
	if err != nil {
		return form, err
	}
	form.JobTitle = title

	confirm := promptui.Select{
		Label: "Analyze with resume " + form.ResumeFileName + "?",
		Items: []string{PromptYes, PromptNo},
	}

	_, action, err := confirm.Run()
	if err != nil {
		return form, err
	}

	if action == PromptNo {
		return form, errExit
	}

	return form, nil
}
