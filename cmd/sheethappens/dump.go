package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ukaji3/sheethappens-go/pkg/sheethappens"
	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/models"
	"github.com/ukaji3/sheethappens-go/pkg/sheethappens/output"
)

type dumper struct {
	outputPath    string
	pretty        bool
	sheetsDir     string
	printAreasDir string
	noTables      bool
	noPrintAreas  bool
	keepEmpty     bool
}

func newDumpCmd() *cobra.Command {
	d := &dumper{}
	cmd := &cobra.Command{
		Use:   "dump input.xlsx",
		Short: "Dump a whole workbook as JSON",
		Long: `dump writes every sheet of a workbook as one JSON document with the
non-empty cells of each row, detected table ranges and print areas.`,
		Args: cobra.ExactArgs(1),
		RunE: d.run,
	}

	cmd.Flags().StringVarP(&d.outputPath, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().BoolVar(&d.pretty, "pretty", false, "Pretty-print JSON output")
	cmd.Flags().StringVar(&d.sheetsDir, "sheets-dir", "", "Directory for per-sheet output files")
	cmd.Flags().StringVar(&d.printAreasDir, "print-areas-dir", "", "Directory for per-print-area output files")
	cmd.Flags().BoolVar(&d.noTables, "no-tables", false, "Skip table candidate detection")
	cmd.Flags().BoolVar(&d.noPrintAreas, "no-print-areas", false, "Skip print areas")
	cmd.Flags().BoolVar(&d.keepEmpty, "keep-empty-rows", false, "Keep empty rows for table detection")
	return cmd
}

func (d *dumper) run(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	wb, err := sheethappens.Extract(inputPath,
		sheethappens.WithLogger(logger),
		sheethappens.WithTables(!d.noTables),
		sheethappens.WithPrintAreas(!d.noPrintAreas),
		sheethappens.WithKeepEmptyRows(d.keepEmpty))
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	jsonData, err := output.ToJSON(wb, d.pretty)
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}

	if d.outputPath != "" {
		if err := os.WriteFile(d.outputPath, jsonData, 0o644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	} else if d.sheetsDir == "" && d.printAreasDir == "" {
		fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
	}

	if d.sheetsDir != "" {
		if err := d.writeSheetFiles(wb); err != nil {
			return fmt.Errorf("failed to write sheet files: %w", err)
		}
	}
	if d.printAreasDir != "" {
		if err := d.writePrintAreaFiles(wb); err != nil {
			return fmt.Errorf("failed to write print area files: %w", err)
		}
	}

	for _, s := range wb.Sheets {
		if s.Error != "" {
			logger.Warn("sheet not extracted", "sheet", s.Name, "error", s.Error)
		}
	}
	return nil
}

func (d *dumper) writeSheetFiles(wb *models.WorkbookData) error {
	if err := os.MkdirAll(d.sheetsDir, 0o755); err != nil {
		return err
	}
	for i := range wb.Sheets {
		sheet := &wb.Sheets[i]
		jsonData, err := output.SheetToJSON(sheet, d.pretty)
		if err != nil {
			return err
		}
		filename := filepath.Join(d.sheetsDir, sheet.Name+".json")
		if err := os.WriteFile(filename, jsonData, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (d *dumper) writePrintAreaFiles(wb *models.WorkbookData) error {
	if err := os.MkdirAll(d.printAreasDir, 0o755); err != nil {
		return err
	}
	for _, sheet := range wb.Sheets {
		for i, area := range sheet.PrintAreas {
			view := models.NewPrintAreaView(wb.BookName, sheet, area)
			jsonData, err := output.PrintAreaViewToJSON(&view, d.pretty)
			if err != nil {
				return err
			}
			filename := filepath.Join(d.printAreasDir, fmt.Sprintf("%s_area%d.json", sheet.Name, i+1))
			if err := os.WriteFile(filename, jsonData, 0o644); err != nil {
				return err
			}
		}
	}
	return nil
}
