package services

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"equipment-system/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func spreadsheet(t *testing.T, rows ...[]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func newImportFixture() (*EquipmentImportService, *EquipmentService) {
	db := newMemDB()
	equipment := NewEquipmentService(
		&fakeEquipmentRepo{db: db},
		&fakeAssignmentRepo{db: db},
		&fakeUserRepo{db: db},
		&fakeStatusHistoryRepo{db: db},
		newFakeCache(),
		&fakeTxManager{db: db},
		NewEquipmentFactoryManager(),
		NewObserverRegistry(zap.NewNop()),
		time.Minute,
		zap.NewNop(),
	)
	return NewEquipmentImportService(equipment, zap.NewNop()), equipment
}

func TestImportFromExcel(t *testing.T) {
	ctx := context.Background()
	importer, equipment := newImportFixture()

	buf := spreadsheet(t,
		[]interface{}{"Inventory export"},
		[]interface{}{"Name", "Type", "Brand", "Model Name"},
		[]interface{}{"Dell XPS", "Laptop", "Dell", "XPS 15"},
		[]interface{}{"", "", "", ""},
		[]interface{}{"Office screen", "monitor", "LG", "27UL500"},
		[]interface{}{"Tablet", "tablet", "Apple", "iPad"},
		[]interface{}{"  ", "printer", "HP", "LaserJet"},
	)

	res, err := importer.ImportFromExcel(ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Errors, 2)
	assert.True(t, strings.HasPrefix(res.Errors[0], "row 6:"), res.Errors[0])
	assert.True(t, strings.HasPrefix(res.Errors[1], "row 7:"), res.Errors[1])

	list, err := equipment.GetEquipments(ctx, types.Filter{Page: 1, Limit: 50})
	require.NoError(t, err)
	assert.EqualValues(t, 2, list.Total)
	for _, item := range list.Items {
		assert.Equal(t, "available", item.Status)
	}
}

func TestImportFromExcelRequiresHeader(t *testing.T) {
	importer, _ := newImportFixture()
	buf := spreadsheet(t,
		[]interface{}{"Name", "Brand"},
		[]interface{}{"Dell XPS", "Dell"},
	)
	_, err := importer.ImportFromExcel(context.Background(), buf)
	assert.Error(t, err)

	_, err = importer.ImportFromExcel(context.Background(), bytes.NewBufferString("not a spreadsheet"))
	assert.Error(t, err)
}

var _ equipmentCreator = (*EquipmentService)(nil)
