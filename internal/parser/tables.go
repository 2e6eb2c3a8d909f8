package parser

import (
	"path/filepath"
	"strings"

	"manual-rag/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

// ExtractTables pulls tabular data out of a document, one table per sheet.
// Only the cell-based formats carry real tables; for everything else the
// row-wise text extraction already captures tabular content, so the result
// is empty. A sheet that fails to read is logged and skipped.
func ExtractTables(filePath string) ([]models.Table, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".xlsx":
		return extractXLSXTables(filePath)
	case ".ods":
		return extractODSTables(filePath)
	default:
		log.Debug().Str("file", filePath).Msg("no table extraction for format")
		return nil, nil
	}
}

func extractXLSXTables(filePath string) ([]models.Table, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, err
	}

	var tables []models.Table
	for sheetNum, sheet := range f.Sheets {
		rows := make([][]string, 0, len(sheet.Rows))
		for _, row := range sheet.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			rows = append(rows, cells)
		}
		if len(rows) == 0 {
			continue
		}
		tables = append(tables, models.Table{Rows: rows, PageNumber: sheetNum + 1})
	}
	return tables, nil
}

func extractODSTables(filePath string) ([]models.Table, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tables []models.Table
	for sheetNum, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			log.Warn().Err(err).Str("sheet", sheetName).Msg("skipping sheet tables")
			continue
		}
		if len(rows) == 0 {
			continue
		}
		tables = append(tables, models.Table{Rows: rows, PageNumber: sheetNum + 1})
	}
	return tables, nil
}

// FlattenRow joins a table row's cells with single spaces. Absent cells
// are already empty strings at this point.
func FlattenRow(cells []string) string {
	return strings.Join(cells, " ")
}

// FlattenTables turns extracted tables into table-typed chunks, one per
// row. A row consisting of exactly one empty cell is dropped.
func FlattenTables(tables []models.Table, filename string) []models.Chunk {
	var chunks []models.Chunk
	for _, table := range tables {
		for _, row := range table.Rows {
			if len(row) == 1 && row[0] == "" {
				continue
			}
			chunks = append(chunks, models.Chunk{
				Content:        FlattenRow(row),
				PageNumber:     table.PageNumber,
				ChunkType:      models.ChunkTypeTable,
				SourceFilename: filename,
			})
		}
	}
	return chunks
}
