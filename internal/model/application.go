package model

import (
	"encoding/json"
	"time"

	"loanpilot/pkg/dataset"
	"loanpilot/pkg/pipeline"
)

// ApplicationStatus application status
type ApplicationStatus string

const (
	ApplicationStatusReceived ApplicationStatus = "RECEIVED" // Accepted, waiting to be scored
	ApplicationStatusScoring  ApplicationStatus = "SCORING"  // Picked up by a worker
	ApplicationStatusScored   ApplicationStatus = "SCORED"   // Sanction amount available
	ApplicationStatusFailed   ApplicationStatus = "FAILED"   // Scoring failed
)

// Valid reports whether s is a known application status.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationStatusReceived, ApplicationStatusScoring, ApplicationStatusScored, ApplicationStatusFailed:
		return true
	}
	return false
}

// ApplicantProfile is a single loan applicant as submitted via the API.
// Field names follow the training dataset columns.
type ApplicantProfile struct {
	Gender              string  `json:"gender" binding:"required"`
	Age                 float64 `json:"age" binding:"required"`
	Income              float64 `json:"income"`
	IncomeStability     string  `json:"income_stability"`
	Profession          string  `json:"profession"`
	Location            string  `json:"location"`
	LoanAmountRequest   float64 `json:"loan_amount_request" binding:"required"`
	CurrentLoanExpenses float64 `json:"current_loan_expenses"`
	ExpenseType1        string  `json:"expense_type_1"`
	ExpenseType2        string  `json:"expense_type_2"`
	Dependents          float64 `json:"dependents"`
	CreditScore         float64 `json:"credit_score"`
	Defaults            float64 `json:"no_of_defaults"`
	ActiveCreditCard    string  `json:"has_active_credit_card"`
	PropertyAge         float64 `json:"property_age"`
	PropertyType        float64 `json:"property_type"`
	PropertyLocation    string  `json:"property_location"`
	CoApplicant         float64 `json:"co_applicant"`
	PropertyPrice       float64 `json:"property_price"`
}

// Frame renders the profile as a one-row frame with the training column
// layout so a fitted pipeline can transform it. Column names are distinct
// and every column holds one row, so the adds cannot fail.
func (p *ApplicantProfile) Frame() *dataset.Frame {
	f := dataset.NewFrame()
	num := func(name string, v float64) { _ = f.AddNumeric(name, []float64{v}) }
	cat := func(name string, v string) { _ = f.AddCategorical(name, []string{v}) }

	cat(pipeline.ColGender, p.Gender)
	num(pipeline.ColAge, p.Age)
	num(pipeline.ColIncome, p.Income)
	cat(pipeline.ColIncomeStability, p.IncomeStability)
	cat(pipeline.ColProfession, p.Profession)
	cat(pipeline.ColLocation, p.Location)
	num(pipeline.ColLoanAmountReq, p.LoanAmountRequest)
	num(pipeline.ColCurrentLoanExp, p.CurrentLoanExpenses)
	cat(pipeline.ColExpenseType1, p.ExpenseType1)
	cat(pipeline.ColExpenseType2, p.ExpenseType2)
	num(pipeline.ColDependents, p.Dependents)
	num(pipeline.ColCreditScore, p.CreditScore)
	num(pipeline.ColDefaults, p.Defaults)
	cat(pipeline.ColActiveCreditCard, p.ActiveCreditCard)
	num(pipeline.ColPropertyAge, p.PropertyAge)
	num(pipeline.ColPropertyType, p.PropertyType)
	cat(pipeline.ColPropertyLocation, p.PropertyLocation)
	num(pipeline.ColCoApplicant, p.CoApplicant)
	num(pipeline.ColPropertyPrice, p.PropertyPrice)
	return f
}

// Application loan application model
type Application struct {
	ID             string            `json:"id"`
	Profile        ApplicantProfile  `json:"profile"`
	Status         ApplicationStatus `json:"status"`
	SanctionAmount *float64          `json:"sanction_amount,omitempty"`
	Error          string            `json:"error,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	ScoredAt       *time.Time        `json:"scored_at,omitempty"`
}

// SubmitRequest submit application request
type SubmitRequest struct {
	Profile ApplicantProfile `json:"profile" binding:"required"`
}

// SubmitResponse submit application response
type SubmitResponse struct {
	ID     string            `json:"id"`
	Status ApplicationStatus `json:"status"`
}

// StatusResponse application status response
type StatusResponse struct {
	ID             string            `json:"id"`
	Status         ApplicationStatus `json:"status"`
	SanctionAmount *float64          `json:"sanction_amount,omitempty"`
	Error          string            `json:"error,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	ScoredAt       *time.Time        `json:"scored_at,omitempty"`
}

// ScoreRequest synchronous scoring request
type ScoreRequest struct {
	Profile ApplicantProfile `json:"profile" binding:"required"`
}

// ScoreResponse synchronous scoring response
type ScoreResponse struct {
	SanctionAmount float64 `json:"sanction_amount"`
	Cached         bool    `json:"cached"`
}

// ModelInfo describes the currently loaded model.
type ModelInfo struct {
	Features  []string  `json:"features"`
	Trees     int       `json:"trees"`
	MAE       float64   `json:"mae"`
	R2        float64   `json:"r2"`
	TrainedAt time.Time `json:"trained_at"`
	TrainRows int       `json:"train_rows"`
	TestRows  int       `json:"test_rows"`
}

// ToJSON converts application to JSON bytes
func (a *Application) ToJSON() ([]byte, error) {
	return json.Marshal(a)
}

// FromJSON converts JSON bytes to application
func (a *Application) FromJSON(data []byte) error {
	return json.Unmarshal(data, a)
}
