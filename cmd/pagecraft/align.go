package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pagecraft/internal/checkout"
)

var (
	alignOptionsFile string
	alignCatalogPath string
)

var alignCmd = &cobra.Command{
	Use:   "align",
	Short: "Align a checkout config against the variant catalog",
	RunE:  runAlign,
}

func init() {
	alignCmd.Flags().StringVar(&alignOptionsFile, "options", "", "checkout config file (required)")
	alignCmd.Flags().StringVar(&alignCatalogPath, "catalog", "", "variant catalog file (required)")
	alignCmd.MarkFlagRequired("options")
	alignCmd.MarkFlagRequired("catalog")
}

func runAlign(cmd *cobra.Command, args []string) error {
	rawOpts, err := os.ReadFile(alignOptionsFile)
	if err != nil {
		return err
	}
	var value map[string]any
	if err := json.Unmarshal(rawOpts, &value); err != nil {
		return fmt.Errorf("parse checkout config: %w", err)
	}

	rawCat, err := os.ReadFile(alignCatalogPath)
	if err != nil {
		return err
	}
	var variants []checkout.Variant
	if err := json.Unmarshal(rawCat, &variants); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}
	catalog := &checkout.Catalog{Variants: variants}

	opts := checkout.OptionsFromValue(value)
	if checkout.Align(opts, catalog) {
		opts.WriteValue(value)
		fmt.Fprintln(os.Stderr, warnStyle.Render("options realigned to the catalog"))
	} else {
		fmt.Fprintln(os.Stderr, successStyle.Render("options already match the catalog"))
	}

	if err := checkout.Validate(opts, catalog); err != nil {
		var verr *checkout.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("%d violations", verr.Total)))
			for _, v := range verr.Violations {
				fmt.Fprintln(os.Stderr, "  "+v)
			}
		}
		return err
	}

	out, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
