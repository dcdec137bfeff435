package models

import "time"

// Vacancy records an occupied position. Exactly one vacancy may exist per
// accepted application, enforced by a unique index on application_id.
type Vacancy struct {
	ID            string      `db:"id" json:"id"`
	ApplicationID string      `db:"application_id" json:"application_id"`
	ProjectID     string      `db:"project_id" json:"project_id"`
	StudentID     string      `db:"student_id" json:"student_id"`
	Type          VacancyType `db:"type" json:"type"`
	Year          int         `db:"year" json:"year"`
	Semester      Semester    `db:"semester" json:"semester"`
	TermNumber    string      `db:"term_number" json:"term_number"`
	StartDate     time.Time   `db:"start_date" json:"start_date"`
	EndDate       time.Time   `db:"end_date" json:"end_date"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
}

// VacancyDetail enriches Vacancy with student and project info.
type VacancyDetail struct {
	Vacancy
	StudentName         string `db:"student_name" json:"student_name"`
	StudentRegistration string `db:"student_registration" json:"student_registration"`
	ProjectTitle        string `db:"project_title" json:"project_title"`
	ProfessorName       string `db:"professor_name" json:"professor_name"`
}

// VacancyFilter provides filters for listing vacancies.
type VacancyFilter struct {
	ProjectID   string
	StudentID   string
	ProfessorID string
	Type        VacancyType
	Year        *int
	Semester    Semester
	Page        int
	PageSize    int
}
