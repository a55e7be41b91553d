package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"exam-schedule-extractor/internal/config"
	"exam-schedule-extractor/internal/models"
	"exam-schedule-extractor/internal/services"
)

var rootCmd = &cobra.Command{
	Use:   "examctl",
	Short: "Extract and filter exam schedules from scanned documents",
	Long: `examctl runs the exam schedule extraction pipeline against a local
document: AI table extraction, normalization, dedup, validation and
strict level/major filtering.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(filterCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// extractCmd extracts all events from a document, optionally filtering
// them, and writes the result as JSON to stdout or a file
func extractCmd() *cobra.Command {
	var (
		level   string
		major   string
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "extract <document>",
		Short: "Extract exam events from a PDF or image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.AIEnabled() {
				return fmt.Errorf("extraction model not configured: set MODEL_API_KEY")
			}

			filePath := args[0]
			filename := filepath.Base(filePath)
			if !models.IsAllowedDocument(filename) {
				return fmt.Errorf("unsupported document type: %s", filename)
			}

			model := services.NewModelClient(cfg.ModelAPIKey, cfg.ModelBaseURL, cfg.ModelName)
			validator := services.NewEventValidator(cfg.ExpectedYearMin, cfg.ExpectedYearMax)
			converter := services.NewPopplerConverter(300)
			processor := services.NewDocumentProcessor(model, converter, validator, cfg.MinEventsBeforeTextFallback)

			ctx := cmd.Context()
			allEvents, err := processor.ExtractAllEvents(ctx, filePath, filename)
			if err != nil {
				return err
			}

			output := &models.ExtractionOutput{
				ExtractionID:   models.GenerateExtractionID(),
				Filename:       filename,
				TotalExtracted: len(allEvents),
				AllEvents:      allEvents,
			}

			if level != "" || major != "" {
				criteria := models.FilterCriteria{MajorLevel: level, OfferedTo: major}
				filtered, err := filterEvents(ctx, model, allEvents, criteria)
				if err != nil {
					return err
				}
				output.Filters = criteria
				output.AfterFilter = len(filtered)
				output.FilteredEvents = filtered
			}

			return writeOutput(output, outPath)
		},
	}

	cmd.Flags().StringVar(&level, "level", "", "student level to filter by")
	cmd.Flags().StringVar(&major, "major", "", "student major to filter by")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write result JSON to file instead of stdout")

	return cmd
}

// filterCmd filters a previously extracted events JSON file by criteria
func filterCmd() *cobra.Command {
	var (
		level   string
		major   string
		outPath string
		local   bool
	)

	cmd := &cobra.Command{
		Use:   "filter <events.json>",
		Short: "Filter extracted events by student level and major",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read events file: %w", err)
			}

			events, err := decodeEvents(data)
			if err != nil {
				return err
			}

			criteria := models.FilterCriteria{MajorLevel: level, OfferedTo: major}

			var filter services.EventFilter = services.NewLocalEventFilter()
			if !local {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				if cfg.AIEnabled() {
					model := services.NewModelClient(cfg.ModelAPIKey, cfg.ModelBaseURL, cfg.ModelName)
					filter = services.NewFallbackEventFilter(services.NewAIEventFilter(model), services.NewLocalEventFilter())
				}
			}

			filtered, err := filter.FilterEvents(cmd.Context(), events, criteria)
			if err != nil {
				return err
			}

			log.Printf("%d events, %d after filtering", len(events), len(filtered))
			return writeOutput(filtered, outPath)
		},
	}

	cmd.Flags().StringVar(&level, "level", "", "student level to filter by (required)")
	cmd.Flags().StringVar(&major, "major", "", "student major to filter by (required)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write result JSON to file instead of stdout")
	cmd.Flags().BoolVar(&local, "local", false, "use only the deterministic local filter")

	return cmd
}

// filterEvents applies the AI-first filter with local fallback
func filterEvents(ctx context.Context, model *services.ModelClient, events []models.Event, criteria models.FilterCriteria) ([]models.Event, error) {
	filter := services.NewFallbackEventFilter(services.NewAIEventFilter(model), services.NewLocalEventFilter())
	return filter.FilterEvents(ctx, events, criteria)
}

// decodeEvents accepts either a bare event array or a full extraction
// output file
func decodeEvents(data []byte) ([]models.Event, error) {
	var events []models.Event
	if err := json.Unmarshal(data, &events); err == nil {
		return events, nil
	}

	var output models.ExtractionOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return nil, fmt.Errorf("failed to parse events file: %w", err)
	}
	return output.AllEvents, nil
}

// writeOutput writes the result JSON to the given path or stdout
func writeOutput(value interface{}, outPath string) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	if outPath == "" {
		fmt.Println(string(data))
		return nil
	}

	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	log.Printf("Wrote result to %s", outPath)
	return nil
}
