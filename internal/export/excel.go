// Package export writes the current snapshot to an Excel workbook.
package export

import (
	"fmt"
	"log"

	"github.com/itcaat/kufarwatch/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	// DefaultFile is the workbook written every cycle
	DefaultFile = "noutbuki.xlsx"
	// SheetName is the only sheet of the workbook
	SheetName = "Ноутбуки Apple"

	headerColor = "4F81BD"
	linkColor   = "0563C1"
	priceFormat = `#,##0" р."`
)

var headers = []string{"№", "Название", "Цена (BYN)", "Регион", "Дата публикации", "Ссылка"}

var columnWidths = map[string]float64{
	"A": 8,
	"B": 50,
	"C": 15,
	"D": 20,
	"E": 20,
	"F": 60,
}

// ExcelExporter overwrites one workbook with the full snapshot
type ExcelExporter struct {
	path string
}

// NewExcelExporter creates an exporter writing to path
func NewExcelExporter(path string) *ExcelExporter {
	if path == "" {
		path = DefaultFile
	}
	return &ExcelExporter{path: path}
}

// Path returns the workbook location
func (e *ExcelExporter) Path() string {
	return e.path
}

// Export writes listings to the workbook, replacing any previous file
func (e *ExcelExporter) Export(listings []models.Listing) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("error naming sheet: %w", err)
	}

	st, err := newStyles(f)
	if err != nil {
		return err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("error writing header: %w", err)
		}
	}
	if err := f.SetCellStyle(SheetName, "A1", "F1", st.header); err != nil {
		return fmt.Errorf("error styling header: %w", err)
	}

	for i, l := range listings {
		row := i + 2
		if err := writeRow(f, st, row, i+1, l); err != nil {
			return fmt.Errorf("error writing row %d: %w", row, err)
		}
	}

	for col, width := range columnWidths {
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("error setting width of column %s: %w", col, err)
		}
	}

	lastRow := len(listings) + 1
	if err := f.AutoFilter(SheetName, fmt.Sprintf("A1:F%d", lastRow), nil); err != nil {
		return fmt.Errorf("error enabling auto filter: %w", err)
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("error freezing header: %w", err)
	}

	if err := f.SaveAs(e.path); err != nil {
		return fmt.Errorf("error saving %s: %w", e.path, err)
	}

	log.Printf("Export: Wrote %d listings to %s\n", len(listings), e.path)
	return nil
}

type styles struct {
	header int
	cell   int
	price  int
	link   int
}

func newStyles(f *excelize.File) (styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	cellAlign := &excelize.Alignment{Vertical: "top", WrapText: true}
	numFmt := priceFormat

	var st styles
	var err error

	st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerColor}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		return st, fmt.Errorf("error creating header style: %w", err)
	}

	st.cell, err = f.NewStyle(&excelize.Style{Alignment: cellAlign, Border: border})
	if err != nil {
		return st, fmt.Errorf("error creating cell style: %w", err)
	}

	st.price, err = f.NewStyle(&excelize.Style{Alignment: cellAlign, Border: border, CustomNumFmt: &numFmt})
	if err != nil {
		return st, fmt.Errorf("error creating price style: %w", err)
	}

	st.link, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Color: linkColor, Underline: "single"},
		Alignment: cellAlign,
		Border:    border,
	})
	if err != nil {
		return st, fmt.Errorf("error creating link style: %w", err)
	}

	return st, nil
}

func writeRow(f *excelize.File, st styles, row, n int, l models.Listing) error {
	cell := func(col string) string { return fmt.Sprintf("%s%d", col, row) }

	var price any = "Не указана"
	if l.Price != nil {
		price = *l.Price
	}

	published := "Не указано"
	if l.PublishedAt != nil {
		published = l.PublishedAt.Format(models.TimeLayout)
	}

	values := []struct {
		col   string
		value any
		style int
	}{
		{"A", n, st.cell},
		{"B", l.Title, st.cell},
		{"C", price, st.price},
		{"D", l.Region, st.cell},
		{"E", published, st.cell},
		{"F", l.Link, st.link},
	}

	for _, v := range values {
		if err := f.SetCellValue(SheetName, cell(v.col), v.value); err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetName, cell(v.col), cell(v.col), v.style); err != nil {
			return err
		}
	}

	return f.SetCellHyperLink(SheetName, cell("F"), l.Link, "External")
}
