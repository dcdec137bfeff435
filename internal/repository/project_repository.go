package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dcc-ufba/monitoria-api/internal/models"
)

const projectColumns = `id, title, description, department, professor_id, year, semester,
	proposition_type, status, requested_scholarships, requested_volunteers, granted_scholarships,
	weekly_hours, week_count, professor_signature, signed_at, admin_feedback,
	submitted_at, decided_at, created_at, updated_at, deleted_at`

// ProjectRepository handles persistence of projects.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository constructs the repository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create persists a new project row.
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now
	if project.Status == "" {
		project.Status = models.ProjectStatusDraft
	}
	const query = `INSERT INTO projects
	(id, title, description, department, professor_id, year, semester, proposition_type, status,
	 requested_scholarships, requested_volunteers, granted_scholarships, weekly_hours, week_count,
	 professor_signature, signed_at, admin_feedback, submitted_at, decided_at, created_at, updated_at)
	VALUES (:id, :title, :description, :department, :professor_id, :year, :semester, :proposition_type, :status,
	 :requested_scholarships, :requested_volunteers, :granted_scholarships, :weekly_hours, :week_count,
	 :professor_signature, :signed_at, :admin_feedback, :submitted_at, :decided_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, project); err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// FindByID returns a project by its ID, excluding soft-deleted rows.
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*models.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE id = $1 AND deleted_at IS NULL`, projectColumns)
	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		return nil, err
	}
	return &project, nil
}

// List returns projects filtered by the provided criteria.
func (r *ProjectRepository) List(ctx context.Context, filter models.ProjectFilter) ([]models.ProjectDetail, int, error) {
	base := `FROM projects p
LEFT JOIN users u ON u.id = p.professor_id`
	conditions := []string{"p.deleted_at IS NULL"}
	var args []interface{}

	if filter.ProfessorID != "" {
		args = append(args, filter.ProfessorID)
		conditions = append(conditions, fmt.Sprintf("p.professor_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", len(args)))
	}
	if filter.Year != nil {
		args = append(args, *filter.Year)
		conditions = append(conditions, fmt.Sprintf("p.year = $%d", len(args)))
	}
	if filter.Semester != "" {
		args = append(args, filter.Semester)
		conditions = append(conditions, fmt.Sprintf("p.semester = $%d", len(args)))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		conditions = append(conditions, fmt.Sprintf("p.department = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("p.title ILIKE $%d", len(args)))
	}
	clause := " WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"created_at": "p.created_at",
		"title":      "p.title",
		"status":     "p.status",
		"year":       "p.year",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "p.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	cols := strings.ReplaceAll(projectColumns, "\n\t", "\n        ")
	prefixed := "p." + strings.ReplaceAll(cols, ", ", ", p.")
	query := fmt.Sprintf(`SELECT %s,
        u.full_name AS professor_name, u.email AS professor_email
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, prefixed, base+clause, orderBy, order, size, offset)

	var projects []models.ProjectDetail
	if err := r.db.SelectContext(ctx, &projects, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}
	return projects, total, nil
}

// UpdateDraft updates editable fields while the project remains editable.
// Returns sql.ErrNoRows when the project left the editable states.
func (r *ProjectRepository) UpdateDraft(ctx context.Context, project *models.Project) error {
	const query = `UPDATE projects SET
		title = :title, description = :description,
		requested_scholarships = :requested_scholarships, requested_volunteers = :requested_volunteers,
		weekly_hours = :weekly_hours, week_count = :week_count, updated_at = :updated_at
		WHERE id = :id AND deleted_at IS NULL AND status IN ('DRAFT', 'PENDING_PROFESSOR_SIGNATURE')`
	project.UpdatedAt = time.Now().UTC()
	result, err := r.db.NamedExecContext(ctx, query, project)
	if err != nil {
		return fmt.Errorf("update project draft: %w", err)
	}
	return requireRow(result, "update project draft")
}

// UpdateStatusIfCurrent performs a guarded status transition. Returns
// sql.ErrNoRows when the row is no longer in the expected state.
func (r *ProjectRepository) UpdateStatusIfCurrent(ctx context.Context, id string, from, to models.ProjectStatus, at time.Time) error {
	var column string
	switch to {
	case models.ProjectStatusSubmitted:
		column = "submitted_at"
	case models.ProjectStatusApproved, models.ProjectStatusRejected:
		column = "decided_at"
	default:
		column = "updated_at"
	}
	query := fmt.Sprintf(`UPDATE projects SET status = $1, %s = $2, updated_at = $2
		WHERE id = $3 AND status = $4 AND deleted_at IS NULL`, column)
	result, err := r.db.ExecContext(ctx, query, to, at, id, from)
	if err != nil {
		return fmt.Errorf("update project status: %w", err)
	}
	return requireRow(result, "update project status")
}

// Approve transitions a submitted project to approved, recording the
// granted scholarship count and optional feedback in the same statement.
func (r *ProjectRepository) Approve(ctx context.Context, id string, granted int, feedback *string, at time.Time) error {
	const query = `UPDATE projects SET status = $1, granted_scholarships = $2, admin_feedback = $3, decided_at = $4, updated_at = $4
		WHERE id = $5 AND status = $6 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, models.ProjectStatusApproved, granted, feedback, at, id, models.ProjectStatusSubmitted)
	if err != nil {
		return fmt.Errorf("approve project: %w", err)
	}
	return requireRow(result, "approve project")
}

// Reject transitions a submitted project to rejected with admin feedback.
func (r *ProjectRepository) Reject(ctx context.Context, id, feedback string, at time.Time) error {
	const query = `UPDATE projects SET status = $1, admin_feedback = $2, decided_at = $3, updated_at = $3
		WHERE id = $4 AND status = $5 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, models.ProjectStatusRejected, feedback, at, id, models.ProjectStatusSubmitted)
	if err != nil {
		return fmt.Errorf("reject project: %w", err)
	}
	return requireRow(result, "reject project")
}

// SetProfessorSignature stores the signature exactly once. Returns
// sql.ErrNoRows when a signature is already present.
func (r *ProjectRepository) SetProfessorSignature(ctx context.Context, id, payload string, at time.Time) error {
	const query = `UPDATE projects SET professor_signature = $1, signed_at = $2, updated_at = $2
		WHERE id = $3 AND professor_signature IS NULL AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, payload, at, id)
	if err != nil {
		return fmt.Errorf("set professor signature: %w", err)
	}
	return requireRow(result, "set professor signature")
}

// SoftDelete marks the project as deleted. Role-based restrictions on when
// deletion is allowed live in the service layer.
func (r *ProjectRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE projects SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("soft delete project: %w", err)
	}
	return requireRow(result, "soft delete project")
}

func requireRow(result sql.Result, op string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
