package repository

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrParentFailed 同批次中的上级记录写入失败
	ErrParentFailed = errors.New("parent record failed in the same batch")
)

// Repositories PCF仓库集合
type Repositories struct {
	Product   *ProductRepository
	Component *ComponentRepository
	ChangeLog *ChangeLogRepository
	Scenario  *ScenarioRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Product:   NewProductRepository(db),
		Component: NewComponentRepository(db),
		ChangeLog: NewChangeLogRepository(db),
		Scenario:  NewScenarioRepository(db),
	}
}

// NewID 生成32位记录ID
func NewID() string {
	return uuid.New().String()[:32]
}

// BatchFailure 批量写入中失败的单条记录，Index 为该记录在输入中的位置
type BatchFailure struct {
	Index int    `json:"index"`
	Ref   string `json:"ref,omitempty"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

// BatchItem 批量写入中成功的单条记录
type BatchItem struct {
	Index int    `json:"index"`
	Ref   string `json:"ref,omitempty"`
	ID    string `json:"id"`
}

// BatchResult 批量写入结果，成功记录已提交
type BatchResult struct {
	Succeeded []string       `json:"succeeded"`
	Items     []BatchItem    `json:"items"`
	Failed    []BatchFailure `json:"failed"`
}

func newBatchResult() *BatchResult {
	return &BatchResult{Succeeded: []string{}, Items: []BatchItem{}, Failed: []BatchFailure{}}
}

func (r *BatchResult) succeed(index int, id string) {
	r.Succeeded = append(r.Succeeded, id)
	r.Items = append(r.Items, BatchItem{Index: index, ID: id})
}

func (r *BatchResult) fail(index int, id string, err error) {
	r.Failed = append(r.Failed, BatchFailure{Index: index, ID: id, Error: err.Error()})
}

// failAll 事务提交失败时所有记录均视为失败
func (r *BatchResult) failAll(ids []string, err error) {
	r.Succeeded = []string{}
	r.Items = []BatchItem{}
	r.Failed = r.Failed[:0]
	for i, id := range ids {
		r.fail(i, id, err)
	}
}

// Partial 是否部分失败
func (r *BatchResult) Partial() bool {
	return len(r.Failed) > 0
}
