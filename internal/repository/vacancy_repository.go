package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/dcc-ufba/monitoria-api/internal/models"
)

// VacancyRepository handles persistence of occupied vacancies.
type VacancyRepository struct {
	db *sqlx.DB
}

// NewVacancyRepository constructs the repository.
func NewVacancyRepository(db *sqlx.DB) *VacancyRepository {
	return &VacancyRepository{db: db}
}

// FindByApplicationID returns the vacancy held by an application.
func (r *VacancyRepository) FindByApplicationID(ctx context.Context, applicationID string) (*models.Vacancy, error) {
	const query = `SELECT id, application_id, project_id, student_id, type, year, semester,
		term_number, start_date, end_date, created_at
		FROM vacancies WHERE application_id = $1`
	var vacancy models.Vacancy
	if err := r.db.GetContext(ctx, &vacancy, query, applicationID); err != nil {
		return nil, err
	}
	return &vacancy, nil
}

// List returns vacancies filtered by the provided criteria.
func (r *VacancyRepository) List(ctx context.Context, filter models.VacancyFilter) ([]models.VacancyDetail, int, error) {
	base := `FROM vacancies v
JOIN users s ON s.id = v.student_id
JOIN projects p ON p.id = v.project_id
JOIN users prof ON prof.id = p.professor_id`
	var conditions []string
	var args []interface{}

	if filter.ProjectID != "" {
		args = append(args, filter.ProjectID)
		conditions = append(conditions, fmt.Sprintf("v.project_id = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("v.student_id = $%d", len(args)))
	}
	if filter.ProfessorID != "" {
		args = append(args, filter.ProfessorID)
		conditions = append(conditions, fmt.Sprintf("p.professor_id = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("v.type = $%d", len(args)))
	}
	if filter.Year != nil {
		args = append(args, *filter.Year)
		conditions = append(conditions, fmt.Sprintf("v.year = $%d", len(args)))
	}
	if filter.Semester != "" {
		args = append(args, filter.Semester)
		conditions = append(conditions, fmt.Sprintf("v.semester = $%d", len(args)))
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
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

	query := fmt.Sprintf(`SELECT v.id, v.application_id, v.project_id, v.student_id, v.type, v.year, v.semester,
        v.term_number, v.start_date, v.end_date, v.created_at,
        s.full_name AS student_name, COALESCE(s.registration, '') AS student_registration,
        p.title AS project_title, prof.full_name AS professor_name
        %s ORDER BY v.created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var vacancies []models.VacancyDetail
	if err := r.db.SelectContext(ctx, &vacancies, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list vacancies: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count vacancies: %w", err)
	}
	return vacancies, total, nil
}

// CountByProjectAndType returns the number of occupied vacancies of a type.
func (r *VacancyRepository) CountByProjectAndType(ctx context.Context, projectID string, vacancyType models.VacancyType) (int, error) {
	const query = `SELECT COUNT(*) FROM vacancies WHERE project_id = $1 AND type = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, projectID, vacancyType); err != nil {
		return 0, fmt.Errorf("count project vacancies: %w", err)
	}
	return count, nil
}
