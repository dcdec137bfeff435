package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// ProposalData carries the fields rendered into a project proposal document.
type ProposalData struct {
	Title                 string
	Description           string
	Department            string
	ProfessorName         string
	Year                  int
	Semester              string
	PropositionType       string
	RequestedScholarships int
	RequestedVolunteers   int
	WeeklyHours           int
	WeekCount             int
	SignedAt              string
}

// CandidateRow is one ranked candidate line in the selection minutes.
type CandidateRow struct {
	StudentName         string
	Registration        string
	DesiredType         string
	DisciplineGrade     string
	SelectionGrade      string
	AcademicCoefficient string
	FinalScore          string
	Status              string
}

// MinutesData carries the fields rendered into the selection minutes (ata).
type MinutesData struct {
	ProjectTitle  string
	Department    string
	ProfessorName string
	Year          int
	Semester      string
	SelectionDate string
	Candidates    []CandidateRow
}

// TermData carries the fields rendered into a commitment term.
type TermData struct {
	TermNumber    string
	StudentName   string
	Registration  string
	ProjectTitle  string
	ProfessorName string
	VacancyType   string
	StartDate     string
	EndDate       string
	WeeklyHours   int
	GeneratedAt   string
}

// PDFRenderer renders workflow documents with gofpdf.
type PDFRenderer struct{}

// NewPDFRenderer constructs a renderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// RenderProposal produces the project proposal PDF with the signature line.
func (r *PDFRenderer) RenderProposal(data ProposalData) ([]byte, error) {
	pdf := newPage("PROPOSTA DE PROJETO DE MONITORIA")

	writeField(pdf, "Title", data.Title)
	writeField(pdf, "Department", data.Department)
	writeField(pdf, "Responsible professor", data.ProfessorName)
	writeField(pdf, "Term", fmt.Sprintf("%d / %s", data.Year, data.Semester))
	writeField(pdf, "Proposition type", data.PropositionType)
	writeField(pdf, "Requested scholarships", fmt.Sprintf("%d", data.RequestedScholarships))
	writeField(pdf, "Requested volunteers", fmt.Sprintf("%d", data.RequestedVolunteers))
	writeField(pdf, "Weekly hours", fmt.Sprintf("%d", data.WeeklyHours))
	writeField(pdf, "Weeks", fmt.Sprintf("%d", data.WeekCount))

	pdf.Ln(4)
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 5, data.Description, "", "", false)

	pdf.Ln(12)
	pdf.CellFormat(0, 6, "_________________________________", "", 1, "C", false, 0, "")
	signed := "Responsible professor"
	if data.SignedAt != "" {
		signed = fmt.Sprintf("Responsible professor (signed on %s)", data.SignedAt)
	}
	pdf.CellFormat(0, 6, signed, "", 1, "C", false, 0, "")

	return output(pdf)
}

// RenderMinutes produces the selection minutes PDF with the ranked candidate table.
func (r *PDFRenderer) RenderMinutes(data MinutesData) ([]byte, error) {
	pdf := newPage("ATA DE SELECAO DE MONITORES")

	writeField(pdf, "Project", data.ProjectTitle)
	writeField(pdf, "Department", data.Department)
	writeField(pdf, "Responsible professor", data.ProfessorName)
	writeField(pdf, "Term", fmt.Sprintf("%d / %s", data.Year, data.Semester))
	writeField(pdf, "Selection date", data.SelectionDate)
	pdf.Ln(4)

	headers := []string{"Candidate", "Registration", "Type", "Discipline", "Selection", "Coefficient", "Final", "Status"}
	widths := []float64{42, 22, 22, 18, 18, 20, 16, 32}

	pdf.SetFont("Arial", "B", 8)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 7, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, c := range data.Candidates {
		cells := []string{
			c.StudentName, c.Registration, c.DesiredType,
			c.DisciplineGrade, c.SelectionGrade, c.AcademicCoefficient,
			c.FinalScore, c.Status,
		}
		for i, cell := range cells {
			pdf.CellFormat(widths[i], 6, cell, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(14)
	pdf.CellFormat(0, 6, "_________________________________", "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, "Responsible professor", "", 1, "C", false, 0, "")

	return output(pdf)
}

// RenderCommitmentTerm produces the commitment term PDF for an accepted vacancy.
func (r *PDFRenderer) RenderCommitmentTerm(data TermData) ([]byte, error) {
	pdf := newPage(fmt.Sprintf("TERMO DE COMPROMISSO N. %s", data.TermNumber))

	writeField(pdf, "Monitor", data.StudentName)
	writeField(pdf, "Registration", data.Registration)
	writeField(pdf, "Project", data.ProjectTitle)
	writeField(pdf, "Responsible professor", data.ProfessorName)
	writeField(pdf, "Vacancy type", data.VacancyType)
	writeField(pdf, "Start", data.StartDate)
	writeField(pdf, "End", data.EndDate)
	writeField(pdf, "Weekly hours", fmt.Sprintf("%d", data.WeeklyHours))
	writeField(pdf, "Generated", data.GeneratedAt)

	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 5, "The monitor commits to the activities of the teaching-assistance "+
		"project listed above, under the supervision of the responsible professor, for the "+
		"duration of the academic term.", "", "", false)

	pdf.Ln(14)
	pdf.CellFormat(95, 6, "____________________________", "", 0, "C", false, 0, "")
	pdf.CellFormat(95, 6, "____________________________", "", 1, "C", false, 0, "")
	pdf.CellFormat(95, 6, "Monitor", "", 0, "C", false, 0, "")
	pdf.CellFormat(95, 6, "Responsible professor", "", 1, "C", false, 0, "")

	return output(pdf)
}

func newPage(title string) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
	pdf.Ln(5)
	return pdf
}

func writeField(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(55, 6, label+":", "", 0, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, value, "", 1, "", false, 0, "")
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
