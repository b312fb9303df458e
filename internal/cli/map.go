package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"evfmap/internal/adapter/fs"
	"evfmap/internal/adapter/listing"
	"evfmap/internal/domain"
	"evfmap/internal/usecase"
)

var (
	mapFormat    string
	mapSourceMap bool
	mapChain     bool
	mapVerify    bool
)

var mapCmd = &cobra.Command{
	Use:   "map [file|-]...",
	Short: "Map the diagnostics of one or more listings",
	Long: `Map compiler event-file listings and print their diagnostics grouped by
original source path. With no file, or with "-", the listing is read from stdin.

Examples:
  evfmap map MAIN.evfevent
  evfmap map --format json --sourcemap MAIN.evfevent
  evfmap map --chain SQLPGM.evfevent`,
	RunE: runMap,
}

func init() {
	rootCmd.AddCommand(mapCmd)
	mapCmd.Flags().StringVarP(&mapFormat, "format", "f", "", "output format: text, json, yaml (default from config)")
	mapCmd.Flags().BoolVar(&mapSourceMap, "sourcemap", false, "include every unit's generated-line table")
	mapCmd.Flags().BoolVar(&mapChain, "chain", false, "replay later units on top of the previous unit's lines")
	mapCmd.Flags().BoolVar(&mapVerify, "verify", false, "check every line table against its delta log")
}

func runMap(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if len(args) == 0 {
		args = []string{"-"}
	}

	renderer, err := newRenderer(cmd.OutOrStdout(), mapFormat, mapSourceMap)
	if err != nil {
		return err
	}

	mapper := usecase.NewMapUseCase(listing.NewParser(), usecase.MapOptions{
		Chain:     mapChain || cfg.Mapping.ChainUnits,
		Verify:    mapVerify || cfg.Debug.VerifyOffsets,
		KeepLines: mapSourceMap,
	}, GetLogger())

	combined := &domain.MapResult{Diagnostics: domain.NewDiagnosticSet()}
	for _, name := range args {
		text, err := readListing(cmd.InOrStdin(), name)
		if err != nil {
			return err
		}

		res, err := mapper.Map(text)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		combined.Diagnostics.Merge(res.Diagnostics)
		combined.Units = append(combined.Units, res.Units...)
	}

	if err := renderer.Map(combined); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return checkFailSeverity(combined.Diagnostics)
}

func readListing(stdin io.Reader, name string) (string, error) {
	if name == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	text, err := fs.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("failed to read listing: %w", err)
	}
	return text, nil
}
