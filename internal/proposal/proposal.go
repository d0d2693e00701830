// Package proposal 推广项目申报书的层级模型：Program → Project → Activity
package proposal

import (
	"github.com/google/uuid"
)

// DefaultActivityHours 活动默认时长（小时）
const DefaultActivityHours = 8

// DateLayout 日期字段统一格式
const DateLayout = "2006-01-02"

// ExpectedOutput 固定 8 项的预期产出
type ExpectedOutput struct {
	Publications       string `json:"publications"`
	Patents            string `json:"patents"`
	Products           string `json:"products"`
	PeopleServices     string `json:"people_services"`
	PlacesPartnerships string `json:"places_partnerships"`
	Policy             string `json:"policy"`
	SocialImpact       string `json:"social_impact"`
	EconomicImpact     string `json:"economic_impact"`
}

// Staff 组织人员安排中的一行
type Staff struct {
	Role     string `json:"role"`
	Designee string `json:"designee"`
	Terms    string `json:"terms"`
}

// QuarterCount 工作计划覆盖 3 年共 12 个季度
const QuarterCount = 12

// WorkplanRow 工作计划中的一行，季度标记互相独立
type WorkplanRow struct {
	Objective      string             `json:"objective"`
	Activity       string             `json:"activity"`
	ExpectedOutput string             `json:"expected_output"`
	Quarters       [QuarterCount]bool `json:"quarters"`
}

// BudgetItem 预算明细
type BudgetItem struct {
	Item     string  `json:"item"`
	Cost     float64 `json:"cost"`
	Quantity int     `json:"quantity"`
	Amount   float64 `json:"amount"`
}

// Total 优先使用填写的金额，否则按单价×数量计算
func (b BudgetItem) Total() float64 {
	if b.Amount != 0 {
		return b.Amount
	}
	return b.Cost * float64(b.Quantity)
}

// Budget 只有餐饮、交通、物资三类
type Budget struct {
	Meals     []BudgetItem `json:"meals"`
	Transport []BudgetItem `json:"transport"`
	Supplies  []BudgetItem `json:"supplies"`
}

// BudgetCategories 预算类别，顺序即展示顺序
var BudgetCategories = []string{"meals", "transport", "supplies"}

// Category 按名称取某一类明细，未知类别返回 false
func (b Budget) Category(name string) ([]BudgetItem, bool) {
	switch name {
	case "meals":
		return b.Meals, true
	case "transport":
		return b.Transport, true
	case "supplies":
		return b.Supplies, true
	}
	return nil, false
}

func (b Budget) CategoryTotal(name string) float64 {
	items, _ := b.Category(name)
	var sum float64
	for _, it := range items {
		sum += it.Total()
	}
	return sum
}

func (b Budget) Total() float64 {
	var sum float64
	for _, c := range BudgetCategories {
		sum += b.CategoryTotal(c)
	}
	return sum
}

// Agency 牵头单位信息
type Agency struct {
	LeadAgency            string   `json:"lead_agency"`
	Address               string   `json:"address"`
	Telephone             string   `json:"telephone"`
	Email                 string   `json:"email"`
	CollaboratingAgencies []string `json:"collaborating_agencies"`
}

// Tagging 标签、集群、议程的多选结果
type Tagging struct {
	Tags     []string `json:"tags"`
	Clusters []string `json:"clusters"`
	Agendas  []string `json:"agendas"`
}

// Program 申报书根节点
type Program struct {
	ID       string `json:"-"` // 会话内临时 ID
	RecordID uint   `json:"id,omitempty"`

	Title   string   `json:"title"`
	Leader  string   `json:"leader"`
	Members []string `json:"members"`
	Agency  Agency   `json:"agency"`
	Tagging Tagging  `json:"tagging"`

	Rationale          string `json:"rationale"`
	Significance       string `json:"significance"`
	GeneralObjective   string `json:"general_objective"`
	SpecificObjectives string `json:"specific_objectives"`
	Methodology        string `json:"methodology"`
	SustainabilityPlan string `json:"sustainability_plan"`

	ExpectedOutput ExpectedOutput `json:"expected_output"`
	Staffing       []Staff        `json:"staffing"`
	Workplan       []WorkplanRow  `json:"workplan"`
	Budget         Budget         `json:"budget"`

	Projects []*Project `json:"projects"`

	Saved  bool   `json:"saved"`
	Status string `json:"status,omitempty"`
}

// Project 隶属于唯一的 Program
type Project struct {
	ID       string `json:"-"`
	RecordID uint   `json:"id,omitempty"`

	Title     string   `json:"title"`
	Leader    string   `json:"leader"`
	Members   []string `json:"members"`
	Duration  string   `json:"duration"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	Tagging   Tagging  `json:"tagging"`

	Rationale          string `json:"rationale"`
	Significance       string `json:"significance"`
	GeneralObjective   string `json:"general_objective"`
	SpecificObjectives string `json:"specific_objectives"`
	Methodology        string `json:"methodology"`
	SustainabilityPlan string `json:"sustainability_plan"`

	ExpectedOutput ExpectedOutput `json:"expected_output"`
	Staffing       []Staff        `json:"staffing"`
	Workplan       []WorkplanRow  `json:"workplan"`
	Budget         Budget         `json:"budget"`

	Activities []*Activity `json:"activities"`

	Saved bool `json:"saved"`
}

// ScheduleRow 活动日程中的一个时间段
type ScheduleRow struct {
	Time     string `json:"time"`
	Activity string `json:"activity"`
	Speaker  string `json:"speaker"`
}

type Schedule struct {
	ActivityTitle string        `json:"activity_title"`
	Date          string        `json:"date"`
	Rows          []ScheduleRow `json:"rows"`
}

// Activity 隶属于唯一的 Project
type Activity struct {
	ID       string `json:"-"`
	RecordID uint   `json:"id,omitempty"`

	Title         string   `json:"title"`
	Leader        string   `json:"leader"`
	Members       []string `json:"members"`
	DurationHours int      `json:"duration_hours"`
	Date          string   `json:"date"`

	Rationale          string `json:"rationale"`
	Significance       string `json:"significance"`
	Objectives         string `json:"objectives"`
	Methodology        string `json:"methodology"`
	SustainabilityPlan string `json:"sustainability_plan"`

	ExpectedOutput ExpectedOutput `json:"expected_output"`
	Staffing       []Staff        `json:"staffing"`
	Schedule       Schedule       `json:"schedule"`
	Budget         Budget         `json:"budget"`

	Saved bool `json:"saved"`
}

// NewID 生成会话内唯一的临时 ID，同一时钟周期内连续生成也不会冲突
func NewID() string {
	return uuid.NewString()
}

// 每个实体都拿到独立的默认值，不共享切片底层数组
func newBudget() Budget {
	return Budget{
		Meals:     []BudgetItem{},
		Transport: []BudgetItem{},
		Supplies:  []BudgetItem{},
	}
}

func newTagging() Tagging {
	return Tagging{Tags: []string{}, Clusters: []string{}, Agendas: []string{}}
}

// NewProgram 创建空的 Program，并预置一个空 Project
func NewProgram() *Program {
	p := &Program{
		ID:       NewID(),
		Members:  []string{},
		Agency:   Agency{CollaboratingAgencies: []string{}},
		Tagging:  newTagging(),
		Staffing: []Staff{},
		Workplan: []WorkplanRow{},
		Budget:   newBudget(),
		Projects: []*Project{},
	}
	CreateProject(p)
	return p
}

// NewProject 创建空的 Project
func NewProject() *Project {
	return &Project{
		ID:         NewID(),
		Members:    []string{},
		Tagging:    newTagging(),
		Staffing:   []Staff{},
		Workplan:   []WorkplanRow{},
		Budget:     newBudget(),
		Activities: []*Activity{},
	}
}

// NewActivity 创建空的 Activity，时长默认 8 小时
func NewActivity() *Activity {
	return &Activity{
		ID:            NewID(),
		Members:       []string{},
		DurationHours: DefaultActivityHours,
		Staffing:      []Staff{},
		Schedule:      Schedule{Rows: []ScheduleRow{}},
		Budget:        newBudget(),
	}
}
