package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/comparable-finder/internal/export"
	"github.com/jonathan/comparable-finder/internal/store"
	"github.com/jonathan/comparable-finder/internal/types"
)

var (
	findName        string
	findURL         string
	findDescription string
	findIndustry    string
	findTargetFile  string
	findOut         string
	findNoCache     bool
)

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Run one comparable-company search from the command line",
	Long: `Run the pipeline for a single target company and write the results to a
CSV or Excel file. The target is given either via flags or as a JSON file
with the same fields as the API request body.`,
	RunE: runFind,
}

func init() {
	findCmd.Flags().StringVar(&findName, "name", "", "Target company name")
	findCmd.Flags().StringVar(&findURL, "url", "", "Target company website URL")
	findCmd.Flags().StringVar(&findDescription, "description", "", "Target business description")
	findCmd.Flags().StringVar(&findIndustry, "industry", "", "Primary industry classification")
	findCmd.Flags().StringVar(&findTargetFile, "target", "", "Path to a JSON file describing the target company")
	findCmd.Flags().StringVar(&findOut, "out", "comparables.csv", "Output path (.csv or .xlsx)")
	findCmd.Flags().BoolVar(&findNoCache, "no-cache", false, "Skip the history cache and force a fresh search")
	rootCmd.AddCommand(findCmd)
}

func runFind(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	target, err := resolveTarget()
	if err != nil {
		return err
	}
	target.Normalize()
	if err := target.Validate(); err != nil {
		return fmt.Errorf("invalid target company: %w", err)
	}

	ctx := context.Background()

	st, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	key := store.CacheKey(*target)

	var results []types.CandidateCompany
	fromCache := false
	if !findNoCache {
		entry, err := st.Get(ctx, key)
		if err != nil {
			return err
		}
		if entry != nil {
			results = entry.Results
			fromCache = true
		}
	}

	if results == nil {
		f, client, err := buildFinder(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		results, err = f.Find(ctx, *target)
		if err != nil {
			return err
		}
		if err := st.Save(ctx, store.NewEntry(*target, results)); err != nil {
			return fmt.Errorf("failed to save results: %w", err)
		}
	}

	if err := writeResults(findOut, results); err != nil {
		return err
	}

	logger.Info("search complete",
		zap.String("target", target.Name),
		zap.Int("companies", len(results)),
		zap.Bool("from_cache", fromCache),
		zap.String("out", findOut))
	fmt.Printf("Found %d comparable companies for %s -> %s\n", len(results), target.Name, findOut)
	return nil
}

// resolveTarget builds the target company from the JSON file or from flags.
func resolveTarget() (*types.TargetCompany, error) {
	if findTargetFile != "" {
		data, err := os.ReadFile(findTargetFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read target file: %w", err)
		}
		var target types.TargetCompany
		if err := json.Unmarshal(data, &target); err != nil {
			return nil, fmt.Errorf("failed to parse target file: %w", err)
		}
		return &target, nil
	}

	return &types.TargetCompany{
		Name:                          findName,
		URL:                           findURL,
		BusinessDescription:           findDescription,
		PrimaryIndustryClassification: findIndustry,
	}, nil
}

// writeResults picks the export format from the output file extension.
func writeResults(path string, results []types.CandidateCompany) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = out.Close() }()

	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return export.WriteExcel(out, results)
	}
	return export.WriteCSV(out, results)
}
