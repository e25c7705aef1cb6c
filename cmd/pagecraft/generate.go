package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"pagecraft/internal/checkout"
	"pagecraft/internal/generate"
	"pagecraft/internal/images"
	"pagecraft/internal/llm"
	"pagecraft/internal/page"
	"pagecraft/internal/store"
	"pagecraft/internal/telemetry"
	"pagecraft/internal/template"
)

var (
	genTemplateID   string
	genBrief        string
	genTemplatesDir string
	genBaseFile     string
	genCatalogFile  string
	genOutFile      string
	genStream       bool
	genDryRunFile   string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a page draft for a template",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&genTemplateID, "template", "", "template id (required)")
	generateCmd.Flags().StringVar(&genBrief, "brief", "", "what the page should sell (required)")
	generateCmd.Flags().StringVar(&genTemplatesDir, "templates-dir", "templates", "directory of template files")
	generateCmd.Flags().StringVar(&genBaseFile, "base", "", "previously persisted page document to reconcile against")
	generateCmd.Flags().StringVar(&genCatalogFile, "catalog", "", "variant catalog file")
	generateCmd.Flags().StringVar(&genOutFile, "out", "", "write the finalized document here instead of stdout")
	generateCmd.Flags().BoolVar(&genStream, "stream", false, "stream assistant commentary while drafting")
	generateCmd.Flags().StringVar(&genDryRunFile, "dry-run", "", "replay a canned model response from this file instead of calling the model")
	generateCmd.MarkFlagRequired("template")
	generateCmd.MarkFlagRequired("brief")
}

// fileCatalog serves a catalog loaded once from disk.
type fileCatalog struct {
	catalog *checkout.Catalog
}

func (f fileCatalog) Snapshot(ctx context.Context) (*checkout.Catalog, error) {
	return f.catalog, nil
}

func loadCatalog(path string) (checkout.CatalogSource, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var variants []checkout.Variant
	if err := json.Unmarshal(raw, &variants); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return fileCatalog{catalog: &checkout.Catalog{Variants: variants}}, nil
}

func loadBase(path string) (*page.Document, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read base document: %w", err)
	}
	var doc page.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse base document: %w", err)
	}
	return &doc, nil
}

func buildClient() (llm.Client, error) {
	if genDryRunFile != "" {
		raw, err := os.ReadFile(genDryRunFile)
		if err != nil {
			return nil, fmt.Errorf("read dry-run response: %w", err)
		}
		return &llm.Scripted{
			Queue:        []llm.Response{{Text: string(raw)}},
			FragmentSize: 64,
		}, nil
	}
	return llm.New(cfg.LLM)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	registry, err := template.NewRegistry(genTemplatesDir)
	if err != nil {
		return err
	}
	defer registry.Close()

	client, err := buildClient()
	if err != nil {
		return err
	}

	catalogs, err := loadCatalog(genCatalogFile)
	if err != nil {
		return err
	}
	base, err := loadBase(genBaseFile)
	if err != nil {
		return err
	}

	recorders := []generate.Recorder{telemetry.NewCollector(prometheus.DefaultRegisterer)}
	if cfg.Store.Enabled {
		auditStore, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer auditStore.Close()
		recorders = append(recorders, auditStore)
	}

	o := generate.New(client, registry, generate.Options{
		Catalogs:  catalogs,
		Recorders: recorders,
		Images: images.ResolveConfig{
			MaxPlans: cfg.Images.MaxPlans,
			Router: images.RouterConfig{
				StockMaxWords:  cfg.Images.StockMaxWords,
				StockMaxCommas: cfg.Images.StockMaxCommas,
			},
		},
		DroppedCap: cfg.Generate.MaxDroppedRecorded,
	})

	req := generate.Request{
		TemplateID: genTemplateID,
		Brief:      genBrief,
		Base:       base,
		Stream:     genStream,
	}
	if genStream {
		req.OnMessage = func(delta string) {
			fmt.Fprint(os.Stderr, mutedStyle.Render(delta))
		}
	}

	res, err := o.Generate(cmd.Context(), req)
	if genStream {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return err
	}

	printResult(res)

	out, err := json.MarshalIndent(res.Document, "", "  ")
	if err != nil {
		return err
	}
	if genOutFile != "" {
		if err := os.WriteFile(genOutFile, out, 0644); err != nil {
			return err
		}
		fmt.Println(mutedStyle.Render("document written to " + genOutFile))
		return nil
	}
	fmt.Println(string(out))
	return nil
}

func printResult(res *generate.Result) {
	fmt.Fprintln(os.Stderr, titleStyle.Render("draft finalized"))
	fmt.Fprintf(os.Stderr, "  attempt      %s\n", res.AttemptID)
	fmt.Fprintf(os.Stderr, "  model calls  %d", res.ModelCalls)
	if len(res.Phases) > 1 {
		fmt.Fprintf(os.Stderr, "  %s", warnStyle.Render(fmt.Sprintf("(repairs: %v)", res.Phases[1:])))
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "  reconcile    %s\n", res.Report.String())
	fmt.Fprintf(os.Stderr, "  ids assigned %d\n", res.AssignedIDs)

	if len(res.Plans) > 0 {
		fmt.Fprintln(os.Stderr, titleStyle.Render("image plans"))
		for _, p := range res.Plans {
			marker := "stock"
			if p.RecommendedSource == images.SourceGeneration {
				marker = "generation"
			}
			if p.Explicit {
				marker += " (declared)"
			}
			fmt.Fprintf(os.Stderr, "  %-12s %s\n", marker, mutedStyle.Render(p.Path))
		}
	}
	for path, id := range res.CreatedAssets {
		fmt.Fprintf(os.Stderr, "  %s %s -> %s\n", successStyle.Render("created"), mutedStyle.Render(path), id)
	}
	if res.Aligned {
		fmt.Fprintln(os.Stderr, warnStyle.Render("checkout options were realigned to the catalog"))
	}
}
