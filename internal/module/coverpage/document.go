package coverpage

import (
	"extension-portal/internal/proposal"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	coverSheet  = "封面"
	budgetSheet = "预算"
)

var categoryNames = map[string]string{
	"meals":     "餐饮",
	"transport": "交通",
	"supplies":  "物资",
}

// Build 生成封面文档：封面页和三层预算明细
func Build(p *proposal.Program, body, submissionDate string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", coverSheet); err != nil {
		return nil, err
	}
	if err := writeCover(f, p, body, submissionDate); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(budgetSheet); err != nil {
		return nil, err
	}
	if err := writeBudget(f, p); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCover(f *excelize.File, p *proposal.Program, body, submissionDate string) error {
	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	bodyStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return err
	}

	rows := [][2]any{
		{"申报书", p.Title},
		{"负责人", p.Leader},
		{"牵头单位", p.Agency.LeadAgency},
		{"项目数", len(p.Projects)},
		{"总预算", total(p)},
		{"提交日期", submissionDate},
	}
	if err := f.MergeCell(coverSheet, "A1", "D1"); err != nil {
		return err
	}
	if err := f.SetCellValue(coverSheet, "A1", p.Title); err != nil {
		return err
	}
	if err := f.SetCellStyle(coverSheet, "A1", "D1", titleStyle); err != nil {
		return err
	}
	for i, r := range rows {
		n := i + 3
		if err := f.SetCellValue(coverSheet, fmt.Sprintf("A%d", n), r[0]); err != nil {
			return err
		}
		if err := f.SetCellValue(coverSheet, fmt.Sprintf("B%d", n), r[1]); err != nil {
			return err
		}
	}

	start := len(rows) + 4
	top, bottom := fmt.Sprintf("A%d", start), fmt.Sprintf("D%d", start+10)
	if err := f.MergeCell(coverSheet, top, bottom); err != nil {
		return err
	}
	if err := f.SetCellValue(coverSheet, top, body); err != nil {
		return err
	}
	if err := f.SetCellStyle(coverSheet, top, bottom, bodyStyle); err != nil {
		return err
	}
	return f.SetColWidth(coverSheet, "A", "D", 24)
}

func writeBudget(f *excelize.File, p *proposal.Program) error {
	header := []any{"层级", "名称", "类别", "项目", "单价", "数量", "金额"}
	if err := f.SetSheetRow(budgetSheet, "A1", &header); err != nil {
		return err
	}
	row := 2
	write := func(level, name string, b proposal.Budget) error {
		for _, cat := range proposal.BudgetCategories {
			items, _ := b.Category(cat)
			for _, it := range items {
				line := []any{level, name, categoryNames[cat], it.Item, it.Cost, it.Quantity, it.Total()}
				if err := f.SetSheetRow(budgetSheet, fmt.Sprintf("A%d", row), &line); err != nil {
					return err
				}
				row++
			}
		}
		return nil
	}

	if err := write("项目群", p.Title, p.Budget); err != nil {
		return err
	}
	for _, pr := range p.Projects {
		if err := write("项目", pr.Title, pr.Budget); err != nil {
			return err
		}
		for _, a := range pr.Activities {
			if err := write("活动", a.Title, a.Budget); err != nil {
				return err
			}
		}
	}
	sum := []any{"合计", "", "", "", "", "", total(p)}
	return f.SetSheetRow(budgetSheet, fmt.Sprintf("A%d", row), &sum)
}

// total 三层预算合计
func total(p *proposal.Program) float64 {
	sum := p.Budget.Total()
	for _, pr := range p.Projects {
		sum += pr.Budget.Total()
		for _, a := range pr.Activities {
			sum += a.Budget.Total()
		}
	}
	return sum
}
