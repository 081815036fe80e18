package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"equipment-system/internal/dto"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type equipmentCreator interface {
	CreateEquipment(ctx context.Context, payload dto.CreateEquipmentDTO) (*dto.EquipmentDTO, error)
}

type EquipmentImportServiceInterface interface {
	ImportFromExcel(ctx context.Context, r io.Reader) (*dto.ImportResultDTO, error)
}

// EquipmentImportService creates one equipment per spreadsheet row through the
// regular create path, so factory validation applies to every row.
type EquipmentImportService struct {
	creator equipmentCreator
	logger  *zap.Logger
}

func NewEquipmentImportService(creator equipmentCreator, logger *zap.Logger) *EquipmentImportService {
	return &EquipmentImportService{creator: creator, logger: logger}
}

type importColumns struct {
	name, kind, brand, model int
}

func (c importColumns) complete() bool {
	return c.name >= 0 && c.kind >= 0 && c.brand >= 0 && c.model >= 0
}

func detectColumns(row []string) importColumns {
	cols := importColumns{-1, -1, -1, -1}
	for i, cell := range row {
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case "name":
			cols.name = i
		case "type":
			cols.kind = i
		case "brand":
			cols.brand = i
		case "model", "model_name", "model name":
			cols.model = i
		}
	}
	return cols
}

func safeGet(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (s *EquipmentImportService) ImportFromExcel(ctx context.Context, r io.Reader) (*dto.ImportResultDTO, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	var rows [][]string
	headerRow := -1
	var cols importColumns
	for _, sheet := range f.GetSheetList() {
		sheetRows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		for i, row := range sheetRows {
			if c := detectColumns(row); c.complete() {
				rows, headerRow, cols = sheetRows, i, c
				break
			}
		}
		if headerRow >= 0 {
			break
		}
	}
	if headerRow < 0 {
		return nil, fmt.Errorf("header row with name, type, brand and model columns not found")
	}

	result := &dto.ImportResultDTO{Errors: []string{}}
	for i := headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		payload := dto.CreateEquipmentDTO{
			Name:      safeGet(row, cols.name),
			Type:      strings.ToLower(safeGet(row, cols.kind)),
			Brand:     safeGet(row, cols.brand),
			ModelName: safeGet(row, cols.model),
		}
		if payload.Name == "" && payload.Type == "" && payload.Brand == "" && payload.ModelName == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if _, err := s.creator.CreateEquipment(ctx, payload); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		result.Created++
	}

	s.logger.Info("equipment import finished", zap.Int("created", result.Created), zap.Int("failed", result.Failed))
	return result, nil
}
