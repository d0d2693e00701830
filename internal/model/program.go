package model

import (
	"encoding/json"
	"extension-portal/internal/proposal"

	"gorm.io/datatypes"
)

// Program 申报书。列表和检索用到的字段单独成列，其余内容存在 Body
type Program struct {
	Model
	OwnerID uint   `gorm:"index;not null" json:"owner_id"`
	Title   string `gorm:"type:varchar(255)" json:"title"`
	Leader  string `gorm:"type:varchar(128)" json:"leader"`
	// 空串表示草稿
	Status   string         `gorm:"type:varchar(20);index" json:"status"`
	Score    int            `json:"score"`
	Body     datatypes.JSON `gorm:"not null" json:"-"`
	Projects []Project      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type Project struct {
	Model
	ProgramID  uint           `gorm:"index;not null" json:"program_id"`
	Position   int            `gorm:"not null" json:"position"`
	Title      string         `gorm:"type:varchar(255)" json:"title"`
	Leader     string         `gorm:"type:varchar(128)" json:"leader"`
	Body       datatypes.JSON `gorm:"not null" json:"-"`
	Activities []Activity     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type Activity struct {
	Model
	ProjectID uint           `gorm:"index;not null" json:"project_id"`
	Position  int            `gorm:"not null" json:"position"`
	Title     string         `gorm:"type:varchar(255)" json:"title"`
	Leader    string         `gorm:"type:varchar(128)" json:"leader"`
	Body      datatypes.JSON `gorm:"not null" json:"-"`
}

// NewProgram 把申报书树拆成三层记录，子项不写入 Body
func NewProgram(p *proposal.Program, ownerID uint) (*Program, error) {
	head := p.Clone()
	head.Projects = nil
	head.Status = ""
	body, err := json.Marshal(head)
	if err != nil {
		return nil, err
	}
	m := &Program{
		OwnerID: ownerID,
		Title:   p.Title,
		Leader:  p.Leader,
		Score:   proposal.ScoreProgram(p),
		Body:    body,
	}
	for i, pr := range p.Projects {
		row, err := newProject(pr, i)
		if err != nil {
			return nil, err
		}
		m.Projects = append(m.Projects, *row)
	}
	return m, nil
}

func newProject(pr *proposal.Project, pos int) (*Project, error) {
	head := pr.Clone()
	head.Activities = nil
	body, err := json.Marshal(head)
	if err != nil {
		return nil, err
	}
	row := &Project{Position: pos, Title: pr.Title, Leader: pr.Leader, Body: body}
	for i, a := range pr.Activities {
		ab, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		row.Activities = append(row.Activities, Activity{Position: i, Title: a.Title, Leader: a.Leader, Body: ab})
	}
	return row, nil
}

// ToProposal 还原为申报书树，记录 ID 写回各层的 RecordID 并标记为已保存。
// 需要预先 Preload Projects.Activities 并按 Position 排序
func (m *Program) ToProposal() (*proposal.Program, error) {
	p := &proposal.Program{}
	if err := json.Unmarshal(m.Body, p); err != nil {
		return nil, err
	}
	p.Status = m.Status
	p.Projects = make([]*proposal.Project, 0, len(m.Projects))
	for _, row := range m.Projects {
		pr := &proposal.Project{}
		if err := json.Unmarshal(row.Body, pr); err != nil {
			return nil, err
		}
		pr.Activities = make([]*proposal.Activity, 0, len(row.Activities))
		for _, ar := range row.Activities {
			a := &proposal.Activity{}
			if err := json.Unmarshal(ar.Body, a); err != nil {
				return nil, err
			}
			a.MarkSaved(ar.ID)
			pr.Activities = append(pr.Activities, a)
		}
		pr.MarkSaved(row.ID)
		p.Projects = append(p.Projects, pr)
	}
	p.MarkSaved(m.ID)
	proposal.Hydrate(p)
	return p, nil
}
