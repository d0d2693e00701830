package proposal

import (
	"math"
	"strings"
)

// 各层级必填字段，顺序即前端提示顺序
var (
	ProgramRequiredFields = []string{
		"title", "leader", "lead_agency", "rationale", "significance",
		"general_objective", "specific_objectives", "methodology", "sustainability_plan",
	}
	ProjectRequiredFields = []string{
		"title", "rationale", "significance", "general_objective",
		"specific_objectives", "methodology", "sustainability_plan",
	}
	ActivityRequiredFields = []string{
		"rationale", "significance", "objectives", "methodology", "sustainability_plan",
	}
)

const (
	programChildBonus = 2
	projectChildBonus = 1
)

func filled(s string) bool {
	return strings.TrimSpace(s) != ""
}

func countFilled(values ...string) int {
	n := 0
	for _, v := range values {
		if filled(v) {
			n++
		}
	}
	return n
}

func percent(got, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(got) / float64(total)))
}

func (p *Program) requiredValues() []string {
	return []string{
		p.Title, p.Leader, p.Agency.LeadAgency, p.Rationale, p.Significance,
		p.GeneralObjective, p.SpecificObjectives, p.Methodology, p.SustainabilityPlan,
	}
}

func (pr *Project) requiredValues() []string {
	return []string{
		pr.Title, pr.Rationale, pr.Significance, pr.GeneralObjective,
		pr.SpecificObjectives, pr.Methodology, pr.SustainabilityPlan,
	}
}

func (a *Activity) requiredValues() []string {
	return []string{
		a.Rationale, a.Significance, a.Objectives, a.Methodology, a.SustainabilityPlan,
	}
}

// ScoreProgram 计算 Program 填写完成度（0-100）。
// 只有当 Project 列表非空且每个 Project 都填了标题和负责人时才加 2 分，空列表不加分
func ScoreProgram(p *Program) int {
	if p == nil {
		return 0
	}
	got := countFilled(p.requiredValues()...)
	if len(p.Projects) > 0 {
		all := true
		for _, pr := range p.Projects {
			if pr == nil || !filled(pr.Title) || !filled(pr.Leader) {
				all = false
				break
			}
		}
		if all {
			got += programChildBonus
		}
	}
	return percent(got, len(ProgramRequiredFields)+programChildBonus)
}

// ScoreProject 计算 Project 填写完成度，Activity 全部填了标题和负责人时加 1 分
func ScoreProject(pr *Project) int {
	if pr == nil {
		return 0
	}
	got := countFilled(pr.requiredValues()...)
	if len(pr.Activities) > 0 {
		all := true
		for _, a := range pr.Activities {
			if a == nil || !filled(a.Title) || !filled(a.Leader) {
				all = false
				break
			}
		}
		if all {
			got += projectChildBonus
		}
	}
	return percent(got, len(ProjectRequiredFields)+projectChildBonus)
}

func ScoreActivity(a *Activity) int {
	if a == nil {
		return 0
	}
	return percent(countFilled(a.requiredValues()...), len(ActivityRequiredFields))
}

// Node 完成度树，结构与申报书层级一致
type Node struct {
	ID       string  `json:"id"`
	RecordID uint    `json:"record_id,omitempty"`
	Kind     string  `json:"kind"`
	Title    string  `json:"title"`
	Score    int     `json:"score"`
	Children []*Node `json:"children,omitempty"`
}

// Progress 展开整棵申报书，逐层给出完成度
func Progress(p *Program) *Node {
	n := &Node{
		ID:       p.ID,
		RecordID: p.RecordID,
		Kind:     "program",
		Title:    p.Title,
		Score:    ScoreProgram(p),
	}
	for _, pr := range p.Projects {
		pn := &Node{
			ID:       pr.ID,
			RecordID: pr.RecordID,
			Kind:     "project",
			Title:    pr.Title,
			Score:    ScoreProject(pr),
		}
		for _, a := range pr.Activities {
			pn.Children = append(pn.Children, &Node{
				ID:       a.ID,
				RecordID: a.RecordID,
				Kind:     "activity",
				Title:    a.Title,
				Score:    ScoreActivity(a),
			})
		}
		n.Children = append(n.Children, pn)
	}
	return n
}
