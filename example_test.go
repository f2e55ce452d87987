package bundle2pdf_test

import (
	"context"
	"log"
	"os"

	bundle2pdf "github.com/alnah/go-bundle2pdf"
)

func ExampleConverter_Convert() {
	data, err := os.ReadFile("handbook.zip")
	if err != nil {
		log.Fatal(err)
	}

	conv, err := bundle2pdf.NewConverter()
	if err != nil {
		log.Fatal(err)
	}
	defer conv.Close()

	doc, err := conv.Convert(context.Background(), bundle2pdf.Input{
		Archive:    data,
		Title:      "Employee Handbook",
		IncludeTOC: true,
	})
	if err != nil {
		if bundle2pdf.IsCode(err, bundle2pdf.CodeImageNotFound) {
			log.Fatalf("missing image: %v", err)
		}
		log.Fatal(err)
	}

	if err := os.WriteFile("handbook.pdf", doc.PDF, 0o644); err != nil {
		log.Fatal(err)
	}
	log.Printf("%d pages, delta %d", doc.Pages, doc.Report.PageDelta)
}

func ExampleConverterPool() {
	cfg := bundle2pdf.DefaultConfig()
	cfg.Branding.Company = "Acme"

	pool := bundle2pdf.NewConverterPool(bundle2pdf.ResolvePoolSize(0), bundle2pdf.WithConfig(cfg))
	defer pool.Close()

	data, err := os.ReadFile("report.zip")
	if err != nil {
		log.Fatal(err)
	}
	doc, err := pool.Convert(context.Background(), bundle2pdf.Input{Archive: data})
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("converged=%v after %d passes", doc.Report.Converged, doc.Report.Passes)
}
