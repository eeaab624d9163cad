package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pharmkit-ai/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RunModel struct {
	ID               string            `json:"id" gorm:"primaryKey;column:id"`
	Status           string            `json:"status" gorm:"column:status;index"`
	RequestedBy      string            `json:"requested_by" gorm:"column:requested_by"`
	StudiesTotal     int               `json:"studies_total" gorm:"column:studies_total"`
	StudiesCompleted int               `json:"studies_completed" gorm:"column:studies_completed"`
	StudiesFailed    int               `json:"studies_failed" gorm:"column:studies_failed"`
	InProgressStudy  string            `json:"in_progress_study,omitempty" gorm:"column:in_progress_study"`
	ErrorMessage     string            `json:"error_message,omitempty" gorm:"column:error_message"`
	Metadata         datatypes.JSONMap `json:"metadata,omitempty" gorm:"column:metadata"`
	StartedAt        time.Time         `json:"started_at" gorm:"column:started_at"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty" gorm:"column:completed_at"`
	CreatedAt        time.Time         `json:"created_at" gorm:"column:created_at"`
	UpdatedAt        time.Time         `json:"updated_at" gorm:"column:updated_at"`
}

func (RunModel) TableName() string { return "pipeline_runs" }

type RunRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&RunModel{})
}

func (r *RunRepository) Create(ctx context.Context, req models.RunRequest, total int) (*RunModel, error) {
	run := &RunModel{
		ID:           uuid.NewString(),
		Status:       models.RunStatusRunning,
		RequestedBy:  req.RequestedBy,
		StudiesTotal: total,
		StartedAt:    time.Now().UTC(),
	}
	if len(req.Levels) > 0 {
		run.Metadata = datatypes.JSONMap{"levels": req.Levels}
	}
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *RunRepository) Update(ctx context.Context, run *RunModel) error {
	return r.db.WithContext(ctx).Save(run).Error
}

func (r *RunRepository) Get(ctx context.Context, id string) (*RunModel, error) {
	var run RunModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *RunRepository) List(ctx context.Context, limit int) ([]RunModel, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []RunModel
	err := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}
