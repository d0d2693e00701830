package proposal

import (
	"encoding/json"
	"extension-portal/internal/global/response"
	"fmt"
	"time"
)

// ToPayload 序列化为后端接收的 JSON 结构，临时 ID 不会发送
func ToPayload(p *Program) ([]byte, error) {
	return json.Marshal(p)
}

// FromPayload 从后端 JSON 还原申报书，并为每个实体补上新的临时 ID
func FromPayload(data []byte) (*Program, error) {
	p := &Program{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, response.ErrValidation.WithOrigin(err)
	}
	Hydrate(p)
	return p, nil
}

// UnmarshalJSON 缺省的字段取 NewProgram 的默认值，子项由 Hydrate 补齐
func (p *Program) UnmarshalJSON(data []byte) error {
	type plain Program
	v := plain(*NewProgram())
	v.ID, v.Projects = "", nil
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Program(v)
	return nil
}

// UnmarshalJSON 缺省的字段取 NewProject 的默认值
func (pr *Project) UnmarshalJSON(data []byte) error {
	type plain Project
	v := plain(*NewProject())
	v.ID = ""
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*pr = Project(v)
	return nil
}

// UnmarshalJSON 缺省的字段取 NewActivity 的默认值，时长缺省为 8 小时
func (a *Activity) UnmarshalJSON(data []byte) error {
	type plain Activity
	v := plain(*NewActivity())
	v.ID = ""
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = Activity(v)
	return nil
}

// Hydrate 为缺少临时 ID 的实体生成 ID，丢弃空的子项指针，
// 把显式为 null 的列表换成空列表，并保证至少有一个 Project
func Hydrate(p *Program) {
	if p.ID == "" {
		p.ID = NewID()
	}
	p.Members = orEmpty(p.Members)
	p.Agency.CollaboratingAgencies = orEmpty(p.Agency.CollaboratingAgencies)
	p.Tagging = p.Tagging.orEmpty()
	p.Staffing = orEmpty(p.Staffing)
	p.Workplan = orEmpty(p.Workplan)
	p.Budget = p.Budget.orEmpty()

	projects := make([]*Project, 0, len(p.Projects))
	for _, pr := range p.Projects {
		if pr == nil {
			continue
		}
		hydrateProject(pr)
		projects = append(projects, pr)
	}
	p.Projects = projects
	if len(p.Projects) == 0 {
		CreateProject(p)
	}
}

func hydrateProject(pr *Project) {
	if pr.ID == "" {
		pr.ID = NewID()
	}
	pr.Members = orEmpty(pr.Members)
	pr.Tagging = pr.Tagging.orEmpty()
	pr.Staffing = orEmpty(pr.Staffing)
	pr.Workplan = orEmpty(pr.Workplan)
	pr.Budget = pr.Budget.orEmpty()

	activities := make([]*Activity, 0, len(pr.Activities))
	for _, a := range pr.Activities {
		if a == nil {
			continue
		}
		if a.ID == "" {
			a.ID = NewID()
		}
		a.Members = orEmpty(a.Members)
		a.Staffing = orEmpty(a.Staffing)
		a.Schedule.Rows = orEmpty(a.Schedule.Rows)
		a.Budget = a.Budget.orEmpty()
		activities = append(activities, a)
	}
	pr.Activities = activities
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (b Budget) orEmpty() Budget {
	return Budget{Meals: orEmpty(b.Meals), Transport: orEmpty(b.Transport), Supplies: orEmpty(b.Supplies)}
}

func (t Tagging) orEmpty() Tagging {
	return Tagging{Tags: orEmpty(t.Tags), Clusters: orEmpty(t.Clusters), Agendas: orEmpty(t.Agendas)}
}

// Validate 检查日期格式等后端无法容忍的问题，完成度不足不算错误
func Validate(p *Program) error {
	for i, pr := range p.Projects {
		start, err := parseDate(pr.StartDate)
		if err != nil {
			return response.ErrValidation.WithTips(fmt.Sprintf("第 %d 个项目开始日期格式应为 YYYY-MM-DD", i+1))
		}
		end, err := parseDate(pr.EndDate)
		if err != nil {
			return response.ErrValidation.WithTips(fmt.Sprintf("第 %d 个项目结束日期格式应为 YYYY-MM-DD", i+1))
		}
		if !start.IsZero() && !end.IsZero() && end.Before(start) {
			return response.ErrValidation.WithTips(fmt.Sprintf("第 %d 个项目结束日期早于开始日期", i+1))
		}
		for j, a := range pr.Activities {
			if _, err := parseDate(a.Date); err != nil {
				return response.ErrValidation.WithTips(fmt.Sprintf("第 %d 个项目第 %d 个活动日期格式应为 YYYY-MM-DD", i+1, j+1))
			}
			if a.DurationHours < 0 {
				return response.ErrValidation.WithTips("活动时长不能为负数")
			}
		}
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(DateLayout, s)
}
