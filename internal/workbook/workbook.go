// Package workbook renders the measure dictionary of an export as xlsx.
package workbook

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/vench/phantom"
)

const (
	SheetMeasures = "Measures"
	SheetBindings = "Bindings"
	SheetSchema   = "Schema"

	defaultSheet = "Sheet1"
	columnWidth  = 24
)

var (
	measureHeaders = []string{"Name", "Table", "Display Folder", "Format", "Expression"}
	bindingHeaders = []string{"Metric", "Operation", "Table", "Column", "Measure", "Resolved"}
	schemaHeaders  = []string{"Table", "Column", "Data Type", "Fact"}
)

// Dictionary returns xlsx with synthesized measures, bindings and scenario schema.
func Dictionary(items []*phantom.VisualItem, scenario phantom.Scenario) ([]byte, error) {
	schema, err := phantom.SchemaFor(scenario)
	if err != nil {
		return nil, err
	}

	measures := phantom.GenerateAllMeasures(items, scenario)
	bindings := phantom.ExtractMetricBindings(items, scenario)

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	measureRows := make([][]interface{}, 0, len(measures))
	for _, m := range measures {
		table := m.Table
		if _, ok := schema.Table(table); !ok {
			table = schema.FactTable().Name
		}
		measureRows = append(measureRows, []interface{}{m.Name, table, m.DisplayFolder, m.FormatString, m.Expression})
	}

	bindingRows := make([][]interface{}, 0, len(bindings))
	for _, b := range bindings {
		bindingRows = append(bindingRows, []interface{}{
			b.Metric, string(b.Operation), b.Table, b.Column, phantom.MeasureName(b.Operation, b.Metric), b.Resolved(),
		})
	}

	schemaRows := make([][]interface{}, 0)
	for i, t := range schema.Tables {
		for _, c := range t.Columns {
			schemaRows = append(schemaRows, []interface{}{t.Name, c.Name, string(c.DataType), i == 0})
		}
	}

	sheets := []struct {
		name    string
		headers []string
		rows    [][]interface{}
	}{
		{SheetMeasures, measureHeaders, measureRows},
		{SheetBindings, bindingHeaders, bindingRows},
		{SheetSchema, schemaHeaders, schemaRows},
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, s.name); err != nil {
				return nil, fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", s.name, err)
		}

		if err := writeSheet(f, s.name, s.headers, s.rows, headerStyle); err != nil {
			return nil, err
		}
	}

	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}, headerStyle int) error {
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style %s: %w", cell, err)
		}
	}

	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", r+2, sheet, err)
		}
	}

	last, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", last, columnWidth); err != nil {
		return fmt.Errorf("failed to set width of %s: %w", sheet, err)
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
