package models

import "time"

// VacancyType is the kind of position an application can be selected for.
type VacancyType string

const (
	VacancyScholarship VacancyType = "SCHOLARSHIP"
	VacancyVolunteer   VacancyType = "VOLUNTEER"
)

// VacancyPreference is the position the student declares interest in.
type VacancyPreference string

const (
	PreferScholarship VacancyPreference = "SCHOLARSHIP"
	PreferVolunteer   VacancyPreference = "VOLUNTEER"
	PreferAny         VacancyPreference = "ANY"
)

// Accepts reports whether the preference admits the given vacancy type.
func (p VacancyPreference) Accepts(t VacancyType) bool {
	switch p {
	case PreferAny:
		return true
	case PreferScholarship:
		return t == VacancyScholarship
	case PreferVolunteer:
		return t == VacancyVolunteer
	default:
		return false
	}
}

// ApplicationStatus represents the lifecycle of a student application.
type ApplicationStatus string

const (
	ApplicationStatusSubmitted           ApplicationStatus = "SUBMITTED"
	ApplicationStatusSelectedScholarship ApplicationStatus = "SELECTED_SCHOLARSHIP"
	ApplicationStatusSelectedVolunteer   ApplicationStatus = "SELECTED_VOLUNTEER"
	ApplicationStatusAcceptedScholarship ApplicationStatus = "ACCEPTED_SCHOLARSHIP"
	ApplicationStatusAcceptedVolunteer   ApplicationStatus = "ACCEPTED_VOLUNTEER"
	ApplicationStatusRejectedByProfessor ApplicationStatus = "REJECTED_BY_PROFESSOR"
	ApplicationStatusRejectedByStudent   ApplicationStatus = "REJECTED_BY_STUDENT"
)

// ApplicationAction names the operations that can move an application
// between states.
type ApplicationAction string

const (
	ApplicationActionSelectScholarship ApplicationAction = "SELECT_SCHOLARSHIP"
	ApplicationActionSelectVolunteer   ApplicationAction = "SELECT_VOLUNTEER"
	ApplicationActionRejectByProfessor ApplicationAction = "REJECT_BY_PROFESSOR"
	ApplicationActionAccept            ApplicationAction = "ACCEPT"
	ApplicationActionDecline           ApplicationAction = "DECLINE"
)

// applicationTransitions is the single source of truth for the application
// state machine.
var applicationTransitions = map[ApplicationStatus]map[ApplicationAction]ApplicationStatus{
	ApplicationStatusSubmitted: {
		ApplicationActionSelectScholarship: ApplicationStatusSelectedScholarship,
		ApplicationActionSelectVolunteer:   ApplicationStatusSelectedVolunteer,
		ApplicationActionRejectByProfessor: ApplicationStatusRejectedByProfessor,
	},
	ApplicationStatusSelectedScholarship: {
		ApplicationActionAccept:  ApplicationStatusAcceptedScholarship,
		ApplicationActionDecline: ApplicationStatusRejectedByStudent,
	},
	ApplicationStatusSelectedVolunteer: {
		ApplicationActionAccept:  ApplicationStatusAcceptedVolunteer,
		ApplicationActionDecline: ApplicationStatusRejectedByStudent,
	},
}

// NextApplicationStatus resolves a transition against the application
// state machine.
func NextApplicationStatus(current ApplicationStatus, action ApplicationAction) (ApplicationStatus, bool) {
	next, ok := applicationTransitions[current][action]
	return next, ok
}

// Selected reports whether the application awaits a student response.
func (s ApplicationStatus) Selected() bool {
	return s == ApplicationStatusSelectedScholarship || s == ApplicationStatusSelectedVolunteer
}

// Accepted reports whether the application holds a vacancy.
func (s ApplicationStatus) Accepted() bool {
	return s == ApplicationStatusAcceptedScholarship || s == ApplicationStatusAcceptedVolunteer
}

// VacancyType returns the position kind implied by a selected or accepted
// status, and false for statuses that carry none.
func (s ApplicationStatus) VacancyType() (VacancyType, bool) {
	switch s {
	case ApplicationStatusSelectedScholarship, ApplicationStatusAcceptedScholarship:
		return VacancyScholarship, true
	case ApplicationStatusSelectedVolunteer, ApplicationStatusAcceptedVolunteer:
		return VacancyVolunteer, true
	default:
		return "", false
	}
}

// SelectActionFor maps a vacancy type to the matching selection action.
func SelectActionFor(t VacancyType) (ApplicationAction, bool) {
	switch t {
	case VacancyScholarship:
		return ApplicationActionSelectScholarship, true
	case VacancyVolunteer:
		return ApplicationActionSelectVolunteer, true
	default:
		return "", false
	}
}

// Application represents a student's application to a project within an
// enrollment period.
type Application struct {
	ID                  string            `db:"id" json:"id"`
	ProjectID           string            `db:"project_id" json:"project_id"`
	StudentID           string            `db:"student_id" json:"student_id"`
	PeriodID            string            `db:"period_id" json:"period_id"`
	Status              ApplicationStatus `db:"status" json:"status"`
	Preference          VacancyPreference `db:"preference" json:"preference"`
	Motivation          *string           `db:"motivation" json:"motivation,omitempty"`
	DisciplineGrade     *float64          `db:"discipline_grade" json:"discipline_grade,omitempty"`
	SelectionGrade      *float64          `db:"selection_grade" json:"selection_grade,omitempty"`
	AcademicCoefficient *float64          `db:"academic_coefficient" json:"academic_coefficient,omitempty"`
	FinalScore          *float64          `db:"final_score" json:"final_score,omitempty"`
	DeclineReason       *string           `db:"decline_reason" json:"decline_reason,omitempty"`
	SelectedAt          *time.Time        `db:"selected_at" json:"selected_at,omitempty"`
	RespondedAt         *time.Time        `db:"responded_at" json:"responded_at,omitempty"`
	CreatedAt           time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time         `db:"updated_at" json:"updated_at"`
}

// Evaluated reports whether both evaluation grades have been recorded.
func (a Application) Evaluated() bool {
	return a.DisciplineGrade != nil && a.SelectionGrade != nil && a.AcademicCoefficient != nil
}

// ApplicationDetail enriches Application with student and project info.
type ApplicationDetail struct {
	Application
	StudentName         string `db:"student_name" json:"student_name"`
	StudentEmail        string `db:"student_email" json:"student_email"`
	StudentRegistration string `db:"student_registration" json:"student_registration"`
	ProjectTitle        string `db:"project_title" json:"project_title"`
	ProfessorID         string `db:"professor_id" json:"professor_id"`
}

// ApplicationFilter provides filters for listing applications.
type ApplicationFilter struct {
	ProjectID string
	StudentID string
	PeriodID  string
	Status    ApplicationStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// ApplyRequest is the payload for submitting an application.
type ApplyRequest struct {
	ProjectID  string            `json:"project_id" validate:"required,uuid4"`
	Preference VacancyPreference `json:"preference" validate:"required,oneof=SCHOLARSHIP VOLUNTEER ANY"`
	Motivation *string           `json:"motivation,omitempty"`
}

// EvaluateApplicationRequest records the professor's grades for a candidate.
type EvaluateApplicationRequest struct {
	DisciplineGrade     float64 `json:"discipline_grade" validate:"min=0,max=10"`
	SelectionGrade      float64 `json:"selection_grade" validate:"min=0,max=10"`
	AcademicCoefficient float64 `json:"academic_coefficient" validate:"min=0,max=10"`
}

// SelectApplicationRequest selects a candidate for a vacancy type.
type SelectApplicationRequest struct {
	VacancyType VacancyType `json:"vacancy_type" validate:"required,oneof=SCHOLARSHIP VOLUNTEER"`
}

// RespondApplicationRequest carries the student's accept or decline
// decision. A reason is mandatory when declining.
type RespondApplicationRequest struct {
	Accept bool    `json:"accept"`
	Reason *string `json:"reason,omitempty"`
}
