package proposal

// CreateProject 在 Program 末尾追加一个空 Project
func CreateProject(p *Program) *Project {
	pr := NewProject()
	p.Projects = append(p.Projects, pr)
	return pr
}

// CreateActivity 在 Project 末尾追加一个空 Activity，负责人默认取项目负责人。
// 默认值只在创建时写入一次，之后修改项目负责人不会覆盖活动上已填的值
func CreateActivity(pr *Project) *Activity {
	a := NewActivity()
	a.Leader = pr.Leader
	pr.Activities = append(pr.Activities, a)
	return a
}

// RemoveProject 按临时 ID 删除，找不到时静默忽略（前端可能重复删除）
func RemoveProject(p *Program, id string) {
	for i, pr := range p.Projects {
		if pr.ID == id {
			p.Projects = append(p.Projects[:i:i], p.Projects[i+1:]...)
			return
		}
	}
}

// RemoveActivity 按临时 ID 删除，找不到时静默忽略
func RemoveActivity(pr *Project, id string) {
	for i, a := range pr.Activities {
		if a.ID == id {
			pr.Activities = append(pr.Activities[:i:i], pr.Activities[i+1:]...)
			return
		}
	}
}

func (p *Program) FindProject(id string) (*Project, bool) {
	for _, pr := range p.Projects {
		if pr.ID == id {
			return pr, true
		}
	}
	return nil, false
}

func (pr *Project) FindActivity(id string) (*Activity, bool) {
	for _, a := range pr.Activities {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// MarkSaved 记录后端返回的记录 ID，之后该行才有资格进入评审
func (pr *Project) MarkSaved(recordID uint) {
	pr.RecordID = recordID
	pr.Saved = true
}

func (a *Activity) MarkSaved(recordID uint) {
	a.RecordID = recordID
	a.Saved = true
}

func (p *Program) MarkSaved(recordID uint) {
	p.RecordID = recordID
	p.Saved = true
}

// Eligible 只有已保存且所有子项都已保存的申报书才能送审
func (p *Program) Eligible() bool {
	if !p.Saved || p.RecordID == 0 {
		return false
	}
	for _, pr := range p.Projects {
		if !pr.Saved {
			return false
		}
		for _, a := range pr.Activities {
			if !a.Saved {
				return false
			}
		}
	}
	return true
}

// Clone 深拷贝，副本与原对象不共享任何切片
func (p *Program) Clone() *Program {
	c := *p
	c.Members = cloneSlice(p.Members)
	c.Agency.CollaboratingAgencies = cloneSlice(p.Agency.CollaboratingAgencies)
	c.Tagging = p.Tagging.clone()
	c.Staffing = cloneSlice(p.Staffing)
	c.Workplan = cloneSlice(p.Workplan)
	c.Budget = p.Budget.clone()
	if p.Projects != nil {
		c.Projects = make([]*Project, len(p.Projects))
		for i, pr := range p.Projects {
			c.Projects[i] = pr.Clone()
		}
	}
	return &c
}

func (pr *Project) Clone() *Project {
	c := *pr
	c.Members = cloneSlice(pr.Members)
	c.Tagging = pr.Tagging.clone()
	c.Staffing = cloneSlice(pr.Staffing)
	c.Workplan = cloneSlice(pr.Workplan)
	c.Budget = pr.Budget.clone()
	if pr.Activities != nil {
		c.Activities = make([]*Activity, len(pr.Activities))
		for i, a := range pr.Activities {
			c.Activities[i] = a.Clone()
		}
	}
	return &c
}

func (a *Activity) Clone() *Activity {
	c := *a
	c.Members = cloneSlice(a.Members)
	c.Staffing = cloneSlice(a.Staffing)
	c.Schedule.Rows = cloneSlice(a.Schedule.Rows)
	c.Budget = a.Budget.clone()
	return &c
}

func (t Tagging) clone() Tagging {
	return Tagging{
		Tags:     cloneSlice(t.Tags),
		Clusters: cloneSlice(t.Clusters),
		Agendas:  cloneSlice(t.Agendas),
	}
}

func (b Budget) clone() Budget {
	return Budget{
		Meals:     cloneSlice(b.Meals),
		Transport: cloneSlice(b.Transport),
		Supplies:  cloneSlice(b.Supplies),
	}
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
