package models

import "time"

// RankedCandidate is one entry of a project's ranking for a vacancy type.
type RankedCandidate struct {
	ApplicationID       string            `json:"application_id"`
	StudentID           string            `json:"student_id"`
	StudentName         string            `json:"student_name"`
	StudentRegistration string            `json:"student_registration"`
	Status              ApplicationStatus `json:"status"`
	Preference          VacancyPreference `json:"preference"`
	DisciplineGrade     float64           `json:"discipline_grade"`
	SelectionGrade      float64           `json:"selection_grade"`
	AcademicCoefficient float64           `json:"academic_coefficient"`
	FinalScore          float64           `json:"final_score"`
	Position            int               `json:"position"`
}

// Ranking is the ordered candidate list for a project and vacancy type.
type Ranking struct {
	ProjectID   string            `json:"project_id"`
	VacancyType VacancyType       `json:"vacancy_type"`
	Candidates  []RankedCandidate `json:"candidates"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// SelectionRecord persists the outcome of a project's selection process.
// At most one record exists per project.
type SelectionRecord struct {
	ID           string     `db:"id" json:"id"`
	ProjectID    string     `db:"project_id" json:"project_id"`
	MinutesPath  *string    `db:"minutes_path" json:"minutes_path,omitempty"`
	GeneratedAt  *time.Time `db:"generated_at" json:"generated_at,omitempty"`
	NotifiedAt   *time.Time `db:"notified_at" json:"notified_at,omitempty"`
	NotifiedOK   int        `db:"notified_ok" json:"notified_ok"`
	NotifiedFail int        `db:"notified_fail" json:"notified_fail"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
