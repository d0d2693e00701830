package review

import (
	"context"
	"errors"
	"extension-portal/internal/global/response"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// UnknownReviewer 评审人资料缺失时的展示名
const UnknownReviewer = "Unknown Reviewer"

// ErrFocusChanged Refresh 返回前用户已切换到其他申报书，结果被丢弃
var ErrFocusChanged = errors.New("review: proposal no longer in focus")

// Profile 评审人资料，后端可能不返回
type Profile struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

type Reviewer struct {
	ID      uint     `json:"id"`
	Profile *Profile `json:"profile"`
}

// DisplayName 资料缺失或姓名为空时返回 UnknownReviewer
func (r Reviewer) DisplayName() string {
	if r.Profile == nil || strings.TrimSpace(r.Profile.Name) == "" {
		return UnknownReviewer
	}
	return r.Profile.Name
}

func (r Reviewer) Department() string {
	if r.Profile == nil {
		return ""
	}
	return r.Profile.Department
}

// Assignment 申报书与评审人的一条分配记录，创建后不会被修改
type Assignment struct {
	ID         uint      `json:"id"`
	ProposalID uint      `json:"proposal"`
	ReviewerID uint      `json:"reviewer"`
	Profile    *Profile  `json:"profile"`
	AssignedAt time.Time `json:"assigned_at"`
}

// Backend 后端记录系统，HTTP 实现见 internal/global/backend
type Backend interface {
	ListReviewers(ctx context.Context) ([]Reviewer, error)
	// ListAssignments proposalID 为 0 时返回全部申报书的分配
	ListAssignments(ctx context.Context, proposalID uint) ([]Assignment, error)
	CreateAssignment(ctx context.Context, proposalID, reviewerID uint) (Assignment, error)
	DeleteAssignment(ctx context.Context, assignmentID uint) error
	ProposalStatus(ctx context.Context, proposalID uint) (Status, error)
}

// AssignResult 一次批量分配的结果，三个 ID 列表互不重叠
type AssignResult struct {
	Created     []uint       `json:"created"`
	Skipped     []uint       `json:"skipped"`
	Failed      []uint       `json:"failed"`
	Assignments []Assignment `json:"assignments"`
}

// PartialFailure 批量分配中部分评审人失败，已成功的分配不会回滚
type PartialFailure struct {
	ProposalID uint
	Failed     []uint
	Causes     map[uint]error
}

func (e *PartialFailure) Error() string {
	ids := make([]string, len(e.Failed))
	for i, id := range e.Failed {
		ids[i] = fmt.Sprint(id)
	}
	return fmt.Sprintf("申报书 %d 有 %d 个评审人分配失败: [%s]", e.ProposalID, len(e.Failed), strings.Join(ids, ", "))
}

func (e *PartialFailure) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, id := range e.Failed {
		if err := e.Causes[id]; err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Selection 已选评审人，合并了分配记录与评审人目录
type Selection struct {
	AssignmentID uint      `json:"assignment_id"`
	ReviewerID   uint      `json:"reviewer_id"`
	Name         string    `json:"name"`
	Department   string    `json:"department"`
	AssignedAt   time.Time `json:"assigned_at"`
}

// View Refresh 的结果，只有所有请求都返回后才会生成
type View struct {
	ProposalID  uint         `json:"proposal_id"`
	Status      Status       `json:"status"`
	Assignments []Assignment `json:"assignments"`
	Reviewers   []Reviewer   `json:"reviewers"`
	Selected    []Selection  `json:"selected"`
}

// Coordinator 维护评审人分配的本地缓存。
// 缓存只能通过 Coordinator 的方法修改，对外一律返回副本
type Coordinator struct {
	backend Backend
	log     *slog.Logger

	mu          sync.Mutex
	assignments map[uint][]Assignment
	loaded      map[uint]bool
	statuses    map[uint]Status
	reviewers   []Reviewer
	focus       uint
	// 进行中的分配，防止并发调用重复创建
	reserved map[uint]map[uint]struct{}
}

func NewCoordinator(backend Backend, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{
		backend:     backend,
		log:         log,
		assignments: make(map[uint][]Assignment),
		loaded:      make(map[uint]bool),
		statuses:    make(map[uint]Status),
		reserved:    make(map[uint]map[uint]struct{}),
	}
}

// ensureLoaded 分配前确保本地有该申报书的分配和状态
func (c *Coordinator) ensureLoaded(ctx context.Context, proposalID uint) error {
	c.mu.Lock()
	_, hasStatus := c.statuses[proposalID]
	ready := c.loaded[proposalID] && hasStatus
	c.mu.Unlock()
	if ready {
		return nil
	}

	var (
		list   []Assignment
		status Status
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = c.backend.ListAssignments(gctx, proposalID)
		return err
	})
	g.Go(func() error {
		var err error
		status, err = c.backend.ProposalStatus(gctx, proposalID)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded[proposalID] {
		c.assignments[proposalID] = filterProposal(list, proposalID)
		c.loaded[proposalID] = true
	}
	if _, ok := c.statuses[proposalID]; !ok {
		c.statuses[proposalID] = status
	}
	return nil
}

// Assign 为申报书批量分配评审人。
// 已分配（或正在分配）的评审人会被跳过；新增集合在调用开始时一次算定，逐个创建。
// 创建成功的分配立即写入缓存且不回滚，失败的评审人以 *PartialFailure 返回
func (c *Coordinator) Assign(ctx context.Context, proposalID uint, reviewerIDs []uint) (*AssignResult, error) {
	if proposalID == 0 {
		return nil, response.ErrValidation.WithTips("申报书 ID 不能为空")
	}
	if err := c.ensureLoaded(ctx, proposalID); err != nil {
		return nil, err
	}

	res := &AssignResult{
		Created:     []uint{},
		Skipped:     []uint{},
		Failed:      []uint{},
		Assignments: []Assignment{},
	}

	c.mu.Lock()
	if _, err := AfterAssign(c.statuses[proposalID]); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	taken := make(map[uint]bool)
	for _, a := range c.assignments[proposalID] {
		taken[a.ReviewerID] = true
	}
	for id := range c.reserved[proposalID] {
		taken[id] = true
	}
	var todo []uint
	seen := make(map[uint]bool)
	for _, id := range reviewerIDs {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		if taken[id] {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		todo = append(todo, id)
	}
	c.reserve(proposalID, todo)
	c.mu.Unlock()

	if len(todo) == 0 {
		return res, nil
	}
	defer c.release(proposalID, todo)

	causes := make(map[uint]error)
	for i, reviewerID := range todo {
		a, err := c.backend.CreateAssignment(ctx, proposalID, reviewerID)
		if err != nil {
			// 后端已有该分配，说明别处已经分配过
			if errors.Is(err, response.ErrAlreadyExists) {
				res.Skipped = append(res.Skipped, reviewerID)
				continue
			}
			c.log.Warn("分配评审人失败", "proposal", proposalID, "reviewer", reviewerID, "error", err)
			res.Failed = append(res.Failed, reviewerID)
			causes[reviewerID] = err
			// 登录过期或调用方已取消，后续请求不会成功
			if errors.Is(err, response.ErrAuthExpired) || ctx.Err() != nil {
				for _, rest := range todo[i+1:] {
					res.Failed = append(res.Failed, rest)
					causes[rest] = err
				}
				break
			}
			continue
		}
		c.commit(proposalID, a)
		res.Created = append(res.Created, reviewerID)
		res.Assignments = append(res.Assignments, a)
	}

	c.log.Info("分配评审人",
		"proposal", proposalID,
		"created", res.Created,
		"skipped", res.Skipped,
		"failed", res.Failed,
	)
	if len(res.Failed) > 0 {
		return res, &PartialFailure{ProposalID: proposalID, Failed: res.Failed, Causes: causes}
	}
	return res, nil
}

func (c *Coordinator) reserve(proposalID uint, ids []uint) {
	if len(ids) == 0 {
		return
	}
	set := c.reserved[proposalID]
	if set == nil {
		set = make(map[uint]struct{})
		c.reserved[proposalID] = set
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
}

func (c *Coordinator) release(proposalID uint, ids []uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set := c.reserved[proposalID]
	for _, id := range ids {
		delete(set, id)
	}
	if len(set) == 0 {
		delete(c.reserved, proposalID)
	}
}

func (c *Coordinator) commit(proposalID uint, a Assignment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a.ProposalID == 0 {
		a.ProposalID = proposalID
	}
	// 并发的 Refresh 可能已经从后端带回这条分配
	for _, cur := range c.assignments[proposalID] {
		if cur.ID == a.ID {
			return
		}
	}
	c.assignments[proposalID] = append(c.assignments[proposalID], a)
	if next, err := AfterAssign(c.statuses[proposalID]); err == nil {
		c.statuses[proposalID] = next
	}
}

// Unassign 按分配 ID 移除一条分配，缓存中不存在时返回 ErrNotFound 且不改动缓存
func (c *Coordinator) Unassign(ctx context.Context, assignmentID uint) error {
	c.mu.Lock()
	proposalID, ok := c.locate(assignmentID)
	if !ok {
		c.mu.Unlock()
		return response.ErrNotFound.WithTips(fmt.Sprintf("分配 %d 不存在", assignmentID))
	}
	st, known := c.statuses[proposalID]
	c.mu.Unlock()

	// 全量刷新只带回分配，状态需要单独取
	if !known {
		fetched, err := c.backend.ProposalStatus(ctx, proposalID)
		if err != nil {
			return err
		}
		c.mu.Lock()
		if cur, ok := c.statuses[proposalID]; ok {
			st = cur
		} else {
			c.statuses[proposalID] = fetched
			st = fetched
		}
		c.mu.Unlock()
	}
	if st.Terminal() {
		return response.ErrInvalidStateTransition.WithTips(fmt.Sprintf("申报书已%s，不能移除评审人", label(st)))
	}

	err := c.backend.DeleteAssignment(ctx, assignmentID)
	if err != nil && !errors.Is(err, response.ErrNotFound) {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// 后端已不存在的分配同样从缓存移除
	list := c.assignments[proposalID]
	for i, a := range list {
		if a.ID == assignmentID {
			c.assignments[proposalID] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if cur, ok := c.statuses[proposalID]; ok {
		if next, serr := AfterUnassign(cur, len(c.assignments[proposalID])); serr == nil {
			c.statuses[proposalID] = next
		}
	}
	c.log.Info("移除评审人", "proposal", proposalID, "assignment", assignmentID)
	return err
}

func (c *Coordinator) locate(assignmentID uint) (uint, bool) {
	for proposalID, list := range c.assignments {
		for _, a := range list {
			if a.ID == assignmentID {
				return proposalID, true
			}
		}
	}
	return 0, false
}

// ListAssigned 返回缓存中的分配副本，proposalID 为 0 时返回全部
func (c *Coordinator) ListAssigned(proposalID uint) []Assignment {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []Assignment{}
	if proposalID != 0 {
		return append(out, c.assignments[proposalID]...)
	}
	for _, list := range c.assignments {
		out = append(out, list...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProposalID != out[j].ProposalID {
			return out[i].ProposalID < out[j].ProposalID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Status 返回缓存的评审状态，未加载时 ok 为 false
func (c *Coordinator) Status(proposalID uint) (Status, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.statuses[proposalID]
	return st, ok
}

// Reviewers 最近一次 Refresh 得到的评审人目录
func (c *Coordinator) Reviewers() []Reviewer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Reviewer{}, c.reviewers...)
}

// Focus 当前正在查看的申报书，0 表示没有
func (c *Coordinator) Focus() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focus
}

// Refresh 切换到指定申报书，并发拉取分配、评审人目录和状态，全部返回后才应用。
// 期间若焦点已切换，结果被丢弃并返回 ErrFocusChanged。
// 拉取期间本地完成的分配和移除会叠加到拉取结果上，不会被旧快照覆盖
func (c *Coordinator) Refresh(ctx context.Context, proposalID uint) (*View, error) {
	c.mu.Lock()
	c.focus = proposalID
	before := c.snapshot(proposalID)
	c.mu.Unlock()

	var (
		list      []Assignment
		reviewers []Reviewer
		status    Status
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = c.backend.ListAssignments(gctx, proposalID)
		return err
	})
	g.Go(func() error {
		var err error
		reviewers, err = c.backend.ListReviewers(gctx)
		return err
	})
	if proposalID != 0 {
		g.Go(func() error {
			var err error
			status, err = c.backend.ProposalStatus(gctx, proposalID)
			return err
		})
	}
	err := g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.focus != proposalID {
		c.log.Debug("丢弃过期的刷新结果", "proposal", proposalID, "focus", c.focus)
		return nil, ErrFocusChanged
	}
	if err != nil {
		return nil, err
	}

	if proposalID != 0 {
		list = filterProposal(list, proposalID)
	}
	added, removed := diff(before, c.snapshot(proposalID))
	list = reconcile(list, added, removed)

	if proposalID == 0 {
		// 全量刷新，状态不在此处更新
		c.assignments = make(map[uint][]Assignment)
		for _, a := range list {
			c.assignments[a.ProposalID] = append(c.assignments[a.ProposalID], a)
		}
		for id := range c.assignments {
			c.loaded[id] = true
		}
	} else {
		c.assignments[proposalID] = list
		c.loaded[proposalID] = true
		// 拉取期间本地改过的状态比拉取结果新
		if _, ok := c.statuses[proposalID]; !ok || len(added)+len(removed) == 0 {
			c.statuses[proposalID] = status
		}
		status = c.statuses[proposalID]
	}
	c.reviewers = reviewers

	view := &View{
		ProposalID:  proposalID,
		Status:      status,
		Assignments: append([]Assignment{}, list...),
		Reviewers:   append([]Reviewer{}, reviewers...),
		Selected:    merge(list, reviewers),
	}
	return view, nil
}

// Close 清除焦点，之后到达的 Refresh 结果不会被应用
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.focus = 0
}

// snapshot 缓存中分配的 ID 集合，proposalID 为 0 时取全部
func (c *Coordinator) snapshot(proposalID uint) map[uint]Assignment {
	out := make(map[uint]Assignment)
	for pid, list := range c.assignments {
		if proposalID != 0 && pid != proposalID {
			continue
		}
		for _, a := range list {
			out[a.ID] = a
		}
	}
	return out
}

// diff 两次快照之间本地新增和移除的分配
func diff(before, now map[uint]Assignment) (added []Assignment, removed map[uint]bool) {
	removed = make(map[uint]bool)
	for id := range before {
		if _, ok := now[id]; !ok {
			removed[id] = true
		}
	}
	for id, a := range now {
		if _, ok := before[id]; !ok {
			added = append(added, a)
		}
	}
	sort.Slice(added, func(i, j int) bool { return added[i].ID < added[j].ID })
	return added, removed
}

// reconcile 在拉取结果上叠加本地变更
func reconcile(fetched, added []Assignment, removed map[uint]bool) []Assignment {
	out := make([]Assignment, 0, len(fetched)+len(added))
	seen := make(map[uint]bool, len(fetched))
	for _, a := range fetched {
		if removed[a.ID] {
			continue
		}
		seen[a.ID] = true
		out = append(out, a)
	}
	for _, a := range added {
		if !seen[a.ID] {
			out = append(out, a)
		}
	}
	return out
}

func filterProposal(list []Assignment, proposalID uint) []Assignment {
	out := make([]Assignment, 0, len(list))
	for _, a := range list {
		if a.ProposalID == 0 {
			a.ProposalID = proposalID
		}
		if a.ProposalID == proposalID {
			out = append(out, a)
		}
	}
	return out
}

// merge 以评审人目录中的资料为准，目录里没有时使用分配记录上的快照
func merge(list []Assignment, reviewers []Reviewer) []Selection {
	byID := make(map[uint]Reviewer, len(reviewers))
	for _, r := range reviewers {
		byID[r.ID] = r
	}
	out := make([]Selection, 0, len(list))
	for _, a := range list {
		r, ok := byID[a.ReviewerID]
		if !ok || r.Profile == nil {
			r = Reviewer{ID: a.ReviewerID, Profile: a.Profile}
		}
		out = append(out, Selection{
			AssignmentID: a.ID,
			ReviewerID:   a.ReviewerID,
			Name:         r.DisplayName(),
			Department:   r.Department(),
			AssignedAt:   a.AssignedAt,
		})
	}
	return out
}

// Search 按展示名做大小写不敏感的子串匹配，空查询返回全部
func Search(reviewers []Reviewer, query string) []Reviewer {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Reviewer, 0, len(reviewers))
	for _, r := range reviewers {
		if q == "" || strings.Contains(strings.ToLower(r.DisplayName()), q) {
			out = append(out, r)
		}
	}
	return out
}
