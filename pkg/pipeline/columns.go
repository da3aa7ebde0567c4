// Package pipeline implements the preprocessing pipeline for the loan
// sanction dataset: identity-column dropping, IQR outlier filtering,
// profession filtering, imputation, sentinel replacement, skewness
// correction, min-max scaling, and one-hot encoding. A pipeline is fitted
// once on training data and then transforms single applicant profiles with
// the learned statistics.
package pipeline

// Column names as they appear in the training CSV.
const (
	ColCustomerID       = "Customer ID"
	ColName             = "Name"
	ColGender           = "Gender"
	ColAge              = "Age"
	ColIncome           = "Income (USD)"
	ColIncomeStability  = "Income Stability"
	ColProfession       = "Profession"
	ColTypeOfEmployment = "Type of Employment"
	ColLocation         = "Location"
	ColLoanAmountReq    = "Loan Amount Request (USD)"
	ColCurrentLoanExp   = "Current Loan Expenses (USD)"
	ColExpenseType1     = "Expense Type 1"
	ColExpenseType2     = "Expense Type 2"
	ColDependents       = "Dependents"
	ColCreditScore      = "Credit Score"
	ColDefaults         = "No. of Defaults"
	ColActiveCreditCard = "Has Active Credit Card"
	ColPropertyID       = "Property ID"
	ColPropertyAge      = "Property Age"
	ColPropertyType     = "Property Type"
	ColPropertyLocation = "Property Location"
	ColCoApplicant      = "Co-Applicant"
	ColPropertyPrice    = "Property Price"
	ColSanctionAmount   = "Loan Sanction Amount (USD)"
)

// CategoricalColumns marks the string-typed columns for the CSV loader.
// Dependents, defaults, property type, and co-applicant are numeric codes.
var CategoricalColumns = map[string]bool{
	ColCustomerID:       true,
	ColName:             true,
	ColGender:           true,
	ColIncomeStability:  true,
	ColProfession:       true,
	ColTypeOfEmployment: true,
	ColLocation:         true,
	ColExpenseType1:     true,
	ColExpenseType2:     true,
	ColActiveCreditCard: true,
	ColPropertyID:       true,
	ColPropertyLocation: true,
}

var (
	droppedColumns = []string{ColCustomerID, ColName, ColTypeOfEmployment, ColPropertyID}

	outlierColumns = []string{
		ColIncome, ColLoanAmountReq, ColCurrentLoanExp, ColPropertyAge, ColPropertyPrice,
	}

	uncommonProfessions = []string{"Student", "Unemployed", "Businessman"}

	modeImputedColumns = []string{
		ColGender, ColIncomeStability, ColActiveCreditCard, ColPropertyLocation,
	}

	medianImputedColumns = []string{
		ColIncome, ColCurrentLoanExp, ColCreditScore, ColPropertyAge, ColDependents,
	}

	sentinelColumns = []string{
		ColCoApplicant, ColCurrentLoanExp, ColSanctionAmount, ColPropertyPrice,
	}

	skewedColumns = []string{
		ColIncome, ColLoanAmountReq, ColCurrentLoanExp, ColPropertyAge,
	}

	scaledColumns = []string{
		ColAge, ColIncome, ColLoanAmountReq, ColCurrentLoanExp,
		ColCreditScore, ColPropertyAge, ColPropertyPrice,
	}

	encodedColumns = []string{
		ColGender, ColProfession, ColLocation, ColExpenseType1, ColExpenseType2,
		ColActiveCreditCard, ColPropertyLocation, ColIncomeStability,
	}
)
