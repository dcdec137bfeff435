package models

import "time"

// Semester identifies one of the two academic terms in a year.
type Semester string

const (
	SemesterFirst  Semester = "SEMESTER_1"
	SemesterSecond Semester = "SEMESTER_2"
)

// PropositionType distinguishes individual from collective proposals.
type PropositionType string

const (
	PropositionIndividual PropositionType = "INDIVIDUAL"
	PropositionCollective PropositionType = "COLLECTIVE"
)

// ProjectStatus represents the lifecycle of a teaching-assistance project.
type ProjectStatus string

const (
	ProjectStatusDraft            ProjectStatus = "DRAFT"
	ProjectStatusPendingSignature ProjectStatus = "PENDING_PROFESSOR_SIGNATURE"
	ProjectStatusSubmitted        ProjectStatus = "SUBMITTED"
	ProjectStatusApproved         ProjectStatus = "APPROVED"
	ProjectStatusRejected         ProjectStatus = "REJECTED"
)

// ProjectAction names the operations that can move a project between states.
type ProjectAction string

const (
	ProjectActionSubmit  ProjectAction = "SUBMIT"
	ProjectActionApprove ProjectAction = "APPROVE"
	ProjectActionReject  ProjectAction = "REJECT"
)

// projectTransitions is the single source of truth for the project state
// machine. Any (status, action) pair missing here is rejected.
var projectTransitions = map[ProjectStatus]map[ProjectAction]ProjectStatus{
	ProjectStatusDraft: {
		ProjectActionSubmit: ProjectStatusSubmitted,
	},
	ProjectStatusPendingSignature: {
		ProjectActionSubmit: ProjectStatusSubmitted,
	},
	ProjectStatusSubmitted: {
		ProjectActionApprove: ProjectStatusApproved,
		ProjectActionReject:  ProjectStatusRejected,
	},
}

// NextProjectStatus resolves a transition against the project state machine.
func NextProjectStatus(current ProjectStatus, action ProjectAction) (ProjectStatus, bool) {
	next, ok := projectTransitions[current][action]
	return next, ok
}

// Editable reports whether the project can still be modified by its professor.
func (s ProjectStatus) Editable() bool {
	return s == ProjectStatusDraft || s == ProjectStatusPendingSignature
}

// Terminal reports whether no further lifecycle action applies.
func (s ProjectStatus) Terminal() bool {
	return s == ProjectStatusApproved || s == ProjectStatusRejected
}

// Project represents a teaching-assistance project proposal.
type Project struct {
	ID                    string          `db:"id" json:"id"`
	Title                 string          `db:"title" json:"title"`
	Description           string          `db:"description" json:"description"`
	Department            string          `db:"department" json:"department"`
	ProfessorID           string          `db:"professor_id" json:"professor_id"`
	Year                  int             `db:"year" json:"year"`
	Semester              Semester        `db:"semester" json:"semester"`
	PropositionType       PropositionType `db:"proposition_type" json:"proposition_type"`
	Status                ProjectStatus   `db:"status" json:"status"`
	RequestedScholarships int             `db:"requested_scholarships" json:"requested_scholarships"`
	RequestedVolunteers   int             `db:"requested_volunteers" json:"requested_volunteers"`
	GrantedScholarships   *int            `db:"granted_scholarships" json:"granted_scholarships,omitempty"`
	WeeklyHours           int             `db:"weekly_hours" json:"weekly_hours"`
	WeekCount             int             `db:"week_count" json:"week_count"`
	ProfessorSignature    *string         `db:"professor_signature" json:"professor_signature,omitempty"`
	SignedAt              *time.Time      `db:"signed_at" json:"signed_at,omitempty"`
	AdminFeedback         *string         `db:"admin_feedback" json:"admin_feedback,omitempty"`
	SubmittedAt           *time.Time      `db:"submitted_at" json:"submitted_at,omitempty"`
	DecidedAt             *time.Time      `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt             time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time       `db:"updated_at" json:"updated_at"`
	DeletedAt             *time.Time      `db:"deleted_at" json:"-"`
}

// ProjectDetail enriches Project with professor info for list views.
type ProjectDetail struct {
	Project
	ProfessorName  string `db:"professor_name" json:"professor_name"`
	ProfessorEmail string `db:"professor_email" json:"professor_email"`
}

// ProjectFilter provides filters for listing projects.
type ProjectFilter struct {
	ProfessorID string
	Status      ProjectStatus
	Year        *int
	Semester    Semester
	Department  string
	Search      string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// CreateProjectRequest is the payload for creating a draft project.
type CreateProjectRequest struct {
	Title                 string          `json:"title" validate:"required,min=3,max=255"`
	Description           string          `json:"description" validate:"required"`
	Department            string          `json:"department" validate:"required"`
	Year                  int             `json:"year" validate:"required,min=2000"`
	Semester              Semester        `json:"semester" validate:"required,oneof=SEMESTER_1 SEMESTER_2"`
	PropositionType       PropositionType `json:"proposition_type" validate:"required,oneof=INDIVIDUAL COLLECTIVE"`
	RequestedScholarships int             `json:"requested_scholarships" validate:"min=0"`
	RequestedVolunteers   int             `json:"requested_volunteers" validate:"min=0"`
	WeeklyHours           int             `json:"weekly_hours" validate:"required,min=1,max=40"`
	WeekCount             int             `json:"week_count" validate:"required,min=1"`
}

// UpdateProjectRequest is the payload for editing a draft project.
type UpdateProjectRequest struct {
	Title                 *string `json:"title,omitempty" validate:"omitempty,min=3,max=255"`
	Description           *string `json:"description,omitempty"`
	RequestedScholarships *int    `json:"requested_scholarships,omitempty" validate:"omitempty,min=0"`
	RequestedVolunteers   *int    `json:"requested_volunteers,omitempty" validate:"omitempty,min=0"`
	WeeklyHours           *int    `json:"weekly_hours,omitempty" validate:"omitempty,min=1,max=40"`
	WeekCount             *int    `json:"week_count,omitempty" validate:"omitempty,min=1"`
}

// RejectProjectRequest carries the mandatory feedback for a rejection.
type RejectProjectRequest struct {
	Feedback string `json:"feedback" validate:"required,min=3"`
}

// ApproveProjectRequest sets the granted scholarship count on approval.
type ApproveProjectRequest struct {
	GrantedScholarships int     `json:"granted_scholarships" validate:"min=0"`
	Feedback            *string `json:"feedback,omitempty"`
}

// ImportProjectRequest creates a project on behalf of a professor, awaiting
// their signature.
type ImportProjectRequest struct {
	CreateProjectRequest
	ProfessorID string `json:"professor_id" validate:"required,uuid4"`
}
