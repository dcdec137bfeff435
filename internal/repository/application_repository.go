package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/dcc-ufba/monitoria-api/internal/models"
)

// Sentinel errors surfaced by composite application operations. Services
// translate them into the API error taxonomy.
var (
	// ErrQuotaReached signals that the vacancy quota for the requested
	// type is already filled.
	ErrQuotaReached = errors.New("vacancy quota reached")
	// ErrStatusConflict signals that the row left the expected state
	// before the guarded update ran.
	ErrStatusConflict = errors.New("status changed concurrently")
)

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

const applicationColumns = `id, project_id, student_id, period_id, status, preference, motivation,
	discipline_grade, selection_grade, academic_coefficient, final_score, decline_reason,
	selected_at, responded_at, created_at, updated_at`

// ApplicationRepository handles persistence of applications and their
// quota-sensitive transitions.
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create persists a new application. A unique index on
// (student_id, project_id, period_id) rejects duplicates.
func (r *ApplicationRepository) Create(ctx context.Context, application *models.Application) error {
	if application.ID == "" {
		application.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if application.CreatedAt.IsZero() {
		application.CreatedAt = now
	}
	application.UpdatedAt = now
	if application.Status == "" {
		application.Status = models.ApplicationStatusSubmitted
	}
	const query = `INSERT INTO applications
	(id, project_id, student_id, period_id, status, preference, motivation,
	 discipline_grade, selection_grade, academic_coefficient, final_score, decline_reason,
	 selected_at, responded_at, created_at, updated_at)
	VALUES (:id, :project_id, :student_id, :period_id, :status, :preference, :motivation,
	 :discipline_grade, :selection_grade, :academic_coefficient, :final_score, :decline_reason,
	 :selected_at, :responded_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, application); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

// FindByID returns an application by its ID.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.Application, error) {
	query := fmt.Sprintf(`SELECT %s FROM applications WHERE id = $1`, applicationColumns)
	var application models.Application
	if err := r.db.GetContext(ctx, &application, query, id); err != nil {
		return nil, err
	}
	return &application, nil
}

// FindDetailByID returns an application with student and project context.
func (r *ApplicationRepository) FindDetailByID(ctx context.Context, id string) (*models.ApplicationDetail, error) {
	const query = `SELECT a.id, a.project_id, a.student_id, a.period_id, a.status, a.preference, a.motivation,
        a.discipline_grade, a.selection_grade, a.academic_coefficient, a.final_score, a.decline_reason,
        a.selected_at, a.responded_at, a.created_at, a.updated_at,
        s.full_name AS student_name, s.email AS student_email,
        COALESCE(s.registration, '') AS student_registration,
        p.title AS project_title, p.professor_id
        FROM applications a
        JOIN users s ON s.id = a.student_id
        JOIN projects p ON p.id = a.project_id
        WHERE a.id = $1`
	var detail models.ApplicationDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns applications filtered by the provided criteria.
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	base := `FROM applications a
JOIN users s ON s.id = a.student_id
JOIN projects p ON p.id = a.project_id`
	var conditions []string
	var args []interface{}

	if filter.ProjectID != "" {
		args = append(args, filter.ProjectID)
		conditions = append(conditions, fmt.Sprintf("a.project_id = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("a.student_id = $%d", len(args)))
	}
	if filter.PeriodID != "" {
		args = append(args, filter.PeriodID)
		conditions = append(conditions, fmt.Sprintf("a.period_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", len(args)))
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at":   "a.created_at",
		"final_score":  "a.final_score",
		"student_name": "s.full_name",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "a.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf(`SELECT a.id, a.project_id, a.student_id, a.period_id, a.status, a.preference, a.motivation,
        a.discipline_grade, a.selection_grade, a.academic_coefficient, a.final_score, a.decline_reason,
        a.selected_at, a.responded_at, a.created_at, a.updated_at,
        s.full_name AS student_name, s.email AS student_email,
        COALESCE(s.registration, '') AS student_registration,
        p.title AS project_title, p.professor_id
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var applications []models.ApplicationDetail
	if err := r.db.SelectContext(ctx, &applications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	return applications, total, nil
}

// UpdateEvaluation records the professor's grades and the computed final
// score while the application is still in SUBMITTED.
func (r *ApplicationRepository) UpdateEvaluation(ctx context.Context, id string, discipline, selection, coefficient, finalScore float64) error {
	const query = `UPDATE applications SET
		discipline_grade = $1, selection_grade = $2, academic_coefficient = $3, final_score = $4, updated_at = $5
		WHERE id = $6 AND status = $7`
	result, err := r.db.ExecContext(ctx, query, discipline, selection, coefficient, finalScore,
		time.Now().UTC(), id, models.ApplicationStatusSubmitted)
	if err != nil {
		return fmt.Errorf("update application evaluation: %w", err)
	}
	return requireRow(result, "update application evaluation")
}

// UpdateStatusIfCurrent performs a guarded status transition.
func (r *ApplicationRepository) UpdateStatusIfCurrent(ctx context.Context, id string, from, to models.ApplicationStatus, at time.Time) error {
	const query = `UPDATE applications SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, to, at, id, from)
	if err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	return requireRow(result, "update application status")
}

// DeclineIfCurrent records the student's decline with its reason in one
// guarded update.
func (r *ApplicationRepository) DeclineIfCurrent(ctx context.Context, id string, from models.ApplicationStatus, reason string, at time.Time) error {
	const query = `UPDATE applications SET status = $1, decline_reason = $2, responded_at = $3, updated_at = $3
		WHERE id = $4 AND status = $5`
	result, err := r.db.ExecContext(ctx, query, models.ApplicationStatusRejectedByStudent, reason, at, id, from)
	if err != nil {
		return fmt.Errorf("decline application: %w", err)
	}
	return requireRow(result, "decline application")
}

// SelectWithQuota transitions an application from SUBMITTED to the selected
// status for the given vacancy type, holding a lock on the project row while
// counting already-selected candidates against the quota. Returns
// ErrQuotaReached when the cap is filled and ErrStatusConflict when the
// application is no longer SUBMITTED.
func (r *ApplicationRepository) SelectWithQuota(ctx context.Context, applicationID string, vacancyType models.VacancyType, at time.Time) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin select application: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var project struct {
		ID                  string `db:"id"`
		GrantedScholarships *int   `db:"granted_scholarships"`
		RequestedVolunteers int    `db:"requested_volunteers"`
	}
	const lockQuery = `SELECT p.id, p.granted_scholarships, p.requested_volunteers
		FROM projects p
		JOIN applications a ON a.project_id = p.id
		WHERE a.id = $1
		FOR UPDATE OF p`
	if err = tx.GetContext(ctx, &project, lockQuery, applicationID); err != nil {
		return fmt.Errorf("lock project for selection: %w", err)
	}

	var quota int
	var countStatuses []models.ApplicationStatus
	if vacancyType == models.VacancyScholarship {
		if project.GrantedScholarships != nil {
			quota = *project.GrantedScholarships
		}
		countStatuses = []models.ApplicationStatus{
			models.ApplicationStatusSelectedScholarship,
			models.ApplicationStatusAcceptedScholarship,
		}
	} else {
		quota = project.RequestedVolunteers
		countStatuses = []models.ApplicationStatus{
			models.ApplicationStatusSelectedVolunteer,
			models.ApplicationStatusAcceptedVolunteer,
		}
	}

	var occupied int
	const countQuery = `SELECT COUNT(*) FROM applications WHERE project_id = $1 AND status = ANY($2)`
	if err = tx.GetContext(ctx, &occupied, countQuery, project.ID, pq.Array(countStatuses)); err != nil {
		return fmt.Errorf("count selected applications: %w", err)
	}
	if occupied >= quota {
		err = ErrQuotaReached
		return err
	}

	action, _ := models.SelectActionFor(vacancyType)
	next, _ := models.NextApplicationStatus(models.ApplicationStatusSubmitted, action)
	const updateQuery = `UPDATE applications SET status = $1, selected_at = $2, updated_at = $2
		WHERE id = $3 AND status = $4`
	result, err := tx.ExecContext(ctx, updateQuery, next, at, applicationID, models.ApplicationStatusSubmitted)
	if err != nil {
		return fmt.Errorf("select application: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("select application rows: %w", err)
	}
	if rows == 0 {
		err = ErrStatusConflict
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit select application: %w", err)
	}
	return nil
}

// AcceptWithVacancy transitions a selected application to accepted and
// creates the vacancy row in the same transaction. The unique index on
// vacancies.application_id rejects a second vacancy for the same
// application.
func (r *ApplicationRepository) AcceptWithVacancy(ctx context.Context, application *models.Application, vacancy *models.Vacancy) (err error) {
	next, ok := models.NextApplicationStatus(application.Status, models.ApplicationActionAccept)
	if !ok {
		return ErrStatusConflict
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin accept application: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const updateQuery = `UPDATE applications SET status = $1, responded_at = $2, updated_at = $2
		WHERE id = $3 AND status = $4`
	result, err := tx.ExecContext(ctx, updateQuery, next, now, application.ID, application.Status)
	if err != nil {
		return fmt.Errorf("accept application: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("accept application rows: %w", err)
	}
	if rows == 0 {
		err = ErrStatusConflict
		return err
	}

	if vacancy.ID == "" {
		vacancy.ID = uuid.NewString()
	}
	vacancy.ApplicationID = application.ID
	vacancy.CreatedAt = now
	const insertQuery = `INSERT INTO vacancies
		(id, application_id, project_id, student_id, type, year, semester, term_number, start_date, end_date, created_at)
		VALUES (:id, :application_id, :project_id, :student_id, :type, :year, :semester, :term_number, :start_date, :end_date, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, vacancy); err != nil {
		return fmt.Errorf("create vacancy: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit accept application: %w", err)
	}
	return nil
}

// HasAcceptedScholarship reports whether the student already holds an
// accepted scholarship in the given academic term.
func (r *ApplicationRepository) HasAcceptedScholarship(ctx context.Context, studentID string, year int, semester models.Semester) (bool, error) {
	const query = `SELECT 1 FROM applications a
		JOIN projects p ON p.id = a.project_id
		WHERE a.student_id = $1 AND a.status = $2 AND p.year = $3 AND p.semester = $4
		LIMIT 1`
	var exists int
	err := r.db.GetContext(ctx, &exists, query, studentID, models.ApplicationStatusAcceptedScholarship, year, semester)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check accepted scholarship: %w", err)
	}
	return true, nil
}

// ListEvaluatedByProject returns evaluated applications for ranking,
// restricted to statuses that still compete for or hold a vacancy.
func (r *ApplicationRepository) ListEvaluatedByProject(ctx context.Context, projectID string) ([]models.ApplicationDetail, error) {
	const query = `SELECT a.id, a.project_id, a.student_id, a.period_id, a.status, a.preference, a.motivation,
        a.discipline_grade, a.selection_grade, a.academic_coefficient, a.final_score, a.decline_reason,
        a.selected_at, a.responded_at, a.created_at, a.updated_at,
        s.full_name AS student_name, s.email AS student_email,
        COALESCE(s.registration, '') AS student_registration,
        p.title AS project_title, p.professor_id
        FROM applications a
        JOIN users s ON s.id = a.student_id
        JOIN projects p ON p.id = a.project_id
        WHERE a.project_id = $1
          AND a.discipline_grade IS NOT NULL
          AND a.selection_grade IS NOT NULL
          AND a.academic_coefficient IS NOT NULL
          AND a.status <> $2
        ORDER BY a.created_at ASC`
	var applications []models.ApplicationDetail
	if err := r.db.SelectContext(ctx, &applications, query, projectID, models.ApplicationStatusRejectedByProfessor); err != nil {
		return nil, fmt.Errorf("list evaluated applications: %w", err)
	}
	return applications, nil
}
