package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pagecraft/internal/images"
	"pagecraft/internal/page"
	"pagecraft/internal/template"
)

var (
	valFile string
	valKind string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Sanitize a page document and check its image targets",
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&valFile, "file", "", "page document file (required)")
	validateCmd.Flags().StringVar(&valKind, "kind", string(template.KindNone), "template kind to validate against")
	validateCmd.MarkFlagRequired("file")
}

func runValidate(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(valFile)
	if err != nil {
		return err
	}
	var doc page.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse document: %w", err)
	}

	kind := template.Kind(valKind)
	before := doc.TypeCounts()
	page.SanitizeDocument(&doc, template.AllowedTypes(kind))
	after := doc.TypeCounts()
	assigned := page.AssignIDs(&doc)

	dropped := 0
	for t, n := range before {
		dropped += n - after[t]
	}

	fmt.Println(titleStyle.Render("sanitize"))
	fmt.Printf("  components dropped  %d\n", dropped)
	fmt.Printf("  ids assigned        %d\n", assigned)

	ctxs, err := page.ConfigContexts(&doc)
	if err != nil {
		return fmt.Errorf("config sub-documents: %w", err)
	}
	fmt.Printf("  config contexts     %d\n", len(ctxs))

	plans, err := images.Resolve(&doc, ctxs, images.ResolveConfig{
		MaxPlans: cfg.Images.MaxPlans,
		Router: images.RouterConfig{
			StockMaxWords:  cfg.Images.StockMaxWords,
			StockMaxCommas: cfg.Images.StockMaxCommas,
		},
	})
	if err != nil {
		return fmt.Errorf("image targets: %w", err)
	}

	fmt.Println(titleStyle.Render("image targets"))
	if len(plans) == 0 {
		fmt.Println(successStyle.Render("  all resolved"))
		return nil
	}
	for _, p := range plans {
		fmt.Printf("  %-10s %s\n", p.RecommendedSource, mutedStyle.Render(p.Path))
	}
	return nil
}
