package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/nimo-pcf/internal/carbon"
	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"github.com/bitfantasy/nimo-pcf/internal/observability"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// AssembleReport 生成 ISO 14067 报告数据
func (s *PCFService) AssembleReport(ctx context.Context, productID string) (*carbon.ReportDocument, error) {
	ctx, span := observability.StartSpan(ctx, "pcf.report.assemble", productID)
	defer span.End()

	product, items, err := s.snapshot(ctx, productID)
	if err != nil {
		return nil, err
	}
	comps := entity.ComponentsToCarbon(items)
	agg := carbon.Aggregate(comps)
	doc := carbon.AssembleReport(product.ToCarbon(), comps, agg, carbon.ScoreAuditReadiness(comps), s.now())
	return &doc, nil
}

// ArchiveReport 生成报告并归档到对象存储
func (s *PCFService) ArchiveReport(ctx context.Context, productID, userID string) (*ArchiveResult, error) {
	if !s.archive.Enabled() {
		return nil, ErrArchiveDisabled
	}
	doc, err := s.AssembleReport(ctx, productID)
	if err != nil {
		return nil, err
	}
	result, err := s.archive.Store(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("archive report: %w", err)
	}
	s.logger.Info("Report archived",
		zap.String("product_id", productID),
		zap.String("object_key", result.ObjectKey),
		zap.String("user_id", userID))
	return result, nil
}

var inventoryExportHeaders = []string{
	"序号", "组件ID", "上级组件", "名称", "材料类型", "节点类型", "生命周期阶段",
	"数量", "单位", "排放因子", "CO2e (kg)", "数据质量", "核验状态", "产地", "供应商",
}

// ExportInventory 导出生命周期清单为xlsx
func (s *PCFService) ExportInventory(ctx context.Context, productID string) (*excelize.File, string, error) {
	product, items, err := s.snapshot(ctx, productID)
	if err != nil {
		return nil, "", err
	}
	comps := entity.ComponentsToCarbon(items)
	agg := carbon.Aggregate(comps)
	inv := carbon.BuildInventory(comps, agg)

	f := excelize.NewFile()
	sheet := "Inventory"
	f.SetSheetName("Sheet1", sheet)

	// 表头样式: 加粗
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E2EFDA"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	pendingStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "#C00000"},
	})

	for i, h := range inventoryExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for idx, item := range inv.Items {
		row := idx + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), idx+1)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), item.ID)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), item.ParentComponentID)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), item.Name)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), item.MaterialType)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), string(item.NodeType))
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), string(item.LifecycleStage))
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), item.Quantity)
		f.SetCellValue(sheet, fmt.Sprintf("I%d", row), item.Unit)
		if item.EmissionFactor != nil {
			f.SetCellValue(sheet, fmt.Sprintf("J%d", row), *item.EmissionFactor)
			f.SetCellValue(sheet, fmt.Sprintf("K%d", row), item.Co2eKg)
		} else {
			f.SetCellValue(sheet, fmt.Sprintf("K%d", row), "待补充")
			f.SetCellStyle(sheet, fmt.Sprintf("K%d", row), fmt.Sprintf("K%d", row), pendingStyle)
		}
		f.SetCellValue(sheet, fmt.Sprintf("L%d", row), item.DataQualityRating)
		f.SetCellValue(sheet, fmt.Sprintf("M%d", row), string(item.VerificationStatus))
		f.SetCellValue(sheet, fmt.Sprintf("N%d", row), item.GeographicOrigin)
		f.SetCellValue(sheet, fmt.Sprintf("O%d", row), item.SupplierID)
	}

	// 底部汇总行
	summaryRow := len(inv.Items) + 2
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellValue(sheet, fmt.Sprintf("A%d", summaryRow), "汇总")
	f.SetCellValue(sheet, fmt.Sprintf("D%d", summaryRow), fmt.Sprintf("组件数: %d, 缺失因子: %d", agg.ComponentCount, agg.MissingCount))
	f.SetCellValue(sheet, fmt.Sprintf("K%d", summaryRow), agg.GrandTotal)
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("O%d", summaryRow), summaryStyle)

	colWidths := []float64{6, 34, 34, 24, 14, 12, 24, 10, 8, 12, 12, 10, 14, 14, 16}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	filename := fmt.Sprintf("PCF_Inventory_%s.xlsx", product.Code)
	return f, filename, nil
}
