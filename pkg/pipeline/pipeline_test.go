package pipeline

import (
	"math"
	"testing"

	"loanpilot/pkg/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutlierFilterRemovesExtremeRows(t *testing.T) {
	f := dataset.NewFrame()
	require.NoError(t, f.AddNumeric("x", []float64{10, 11, 12, 13, 14, 1000}))

	stage := &outlierFilter{columns: []string{"x"}, whisker: 1.5}
	require.NoError(t, stage.Fit(f))

	assert.Equal(t, 5, f.Rows())

	// Apply never rejects serving rows.
	profile := dataset.NewFrame()
	require.NoError(t, profile.AddNumeric("x", []float64{99999}))
	require.NoError(t, stage.Apply(profile))
	assert.Equal(t, 1, profile.Rows())
}

func TestOutlierFilterKeepsMissingValues(t *testing.T) {
	f := dataset.NewFrame()
	require.NoError(t, f.AddNumeric("x", []float64{10, 11, math.NaN(), 12, 13}))

	stage := &outlierFilter{columns: []string{"x"}, whisker: 1.5}
	require.NoError(t, stage.Fit(f))

	assert.Equal(t, 5, f.Rows())
}

func TestProfessionFilterDropsUncommon(t *testing.T) {
	f := dataset.NewFrame()
	require.NoError(t, f.AddCategorical(ColProfession, []string{"Working", "Student", "Pensioner", "Unemployed"}))

	stage := &professionFilter{column: ColProfession, dropped: uncommonProfessions}
	require.NoError(t, stage.Fit(f))

	col, _ := f.Column(ColProfession)
	assert.Equal(t, []string{"Working", "Pensioner"}, col.Cats)
}

func TestMissingImputerLearnsAndFills(t *testing.T) {
	f := dataset.NewFrame()
	require.NoError(t, f.AddCategorical("gender", []string{"F", "F", "", "M"}))
	require.NoError(t, f.AddNumeric("income", []float64{100, math.NaN(), 300, 200}))
	require.NoError(t, f.AddNumeric("target", []float64{1, 2, 3, math.NaN()}))

	stage := &missingImputer{
		target:     "target",
		modeCols:   []string{"gender"},
		medianCols: []string{"income"},
	}
	require.NoError(t, stage.Fit(f))

	// The row without a target is dropped before statistics are learned.
	assert.Equal(t, 3, f.Rows())

	gender, _ := f.Column("gender")
	assert.Equal(t, []string{"F", "F", "F"}, gender.Cats)

	income, _ := f.Column("income")
	assert.Equal(t, []float64{100, 200, 300}, income.Nums)

	// Serving profile gaps are filled from training statistics.
	profile := dataset.NewFrame()
	require.NoError(t, profile.AddCategorical("gender", []string{""}))
	require.NoError(t, profile.AddNumeric("income", []float64{math.NaN()}))
	require.NoError(t, stage.Apply(profile))

	g, _ := profile.Column("gender")
	assert.Equal(t, "F", g.Cats[0])
	i, _ := profile.Column("income")
	assert.Equal(t, 200.0, i.Nums[0])
}

func TestSentinelImputerReplacesPlaceholder(t *testing.T) {
	f := dataset.NewFrame()
	require.NoError(t, f.AddNumeric("price", []float64{-999, 150, -999}))

	stage := &sentinelImputer{columns: []string{"price"}, sentinel: -999, replacement: 0}
	require.NoError(t, stage.Fit(f))

	col, _ := f.Column("price")
	assert.Equal(t, []float64{0, 150, 0}, col.Nums)
}

func TestSkewTransformTakesCubeRoot(t *testing.T) {
	f := dataset.NewFrame()
	require.NoError(t, f.AddNumeric("income", []float64{8, 27, math.NaN()}))

	stage := &skewTransform{columns: []string{"income"}}
	require.NoError(t, stage.Fit(f))

	col, _ := f.Column("income")
	assert.InDelta(t, 2, col.Nums[0], 1e-9)
	assert.InDelta(t, 3, col.Nums[1], 1e-9)
	assert.True(t, math.IsNaN(col.Nums[2]))
}

func TestMinMaxScalerLearnsBoundsAndClamps(t *testing.T) {
	f := dataset.NewFrame()
	require.NoError(t, f.AddNumeric("age", []float64{20, 40, 60}))

	stage := &minMaxScaler{columns: []string{"age"}}
	require.NoError(t, stage.Fit(f))

	col, _ := f.Column("age")
	assert.Equal(t, []float64{0, 0.5, 1}, col.Nums)

	// A serving value beyond the training range clamps instead of escaping [0,1].
	profile := dataset.NewFrame()
	require.NoError(t, profile.AddNumeric("age", []float64{100}))
	require.NoError(t, stage.Apply(profile))
	p, _ := profile.Column("age")
	assert.Equal(t, 1.0, p.Nums[0])
}

func TestOneHotEncoderKnownAndUnseenCategories(t *testing.T) {
	f := dataset.NewFrame()
	require.NoError(t, f.AddCategorical("loc", []string{"Urban", "Rural", "Urban"}))

	stage := &oneHotEncoder{columns: []string{"loc"}}
	require.NoError(t, stage.Fit(f))

	assert.False(t, f.Has("loc"))
	rural, ok := f.Column(IndicatorName("loc", "Rural"))
	require.True(t, ok)
	assert.Equal(t, []float64{0, 1, 0}, rural.Nums)
	urban, ok := f.Column(IndicatorName("loc", "Urban"))
	require.True(t, ok)
	assert.Equal(t, []float64{1, 0, 1}, urban.Nums)

	// Unseen category encodes to all zeros rather than failing.
	profile := dataset.NewFrame()
	require.NoError(t, profile.AddCategorical("loc", []string{"Semi-Urban"}))
	require.NoError(t, stage.Apply(profile))
	r, _ := profile.Column(IndicatorName("loc", "Rural"))
	u, _ := profile.Column(IndicatorName("loc", "Urban"))
	assert.Equal(t, 0.0, r.Nums[0])
	assert.Equal(t, 0.0, u.Nums[0])
}

func TestLoanPipelineEndToEnd(t *testing.T) {
	f := loanTrainingFrame(t)
	p := NewLoanPipeline()
	require.NoError(t, p.Fit(f))

	// Identity columns are gone, categoricals are encoded.
	assert.False(t, f.Has(ColCustomerID))
	assert.False(t, f.Has(ColName))
	assert.False(t, f.Has(ColGender))
	assert.True(t, f.Has(ColSanctionAmount))

	features := FeatureNames(f, ColSanctionAmount)
	assert.NotEmpty(t, features)

	// Scaled feature columns stay inside [0,1].
	for _, name := range []string{ColAge, ColCreditScore} {
		col, ok := f.Column(name)
		require.True(t, ok, name)
		for _, v := range col.Nums {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}

	// A single profile transforms into exactly one feature row.
	profile := loanProfileFrame(t)
	require.NoError(t, p.Apply(profile))
	matrix := Matrix(profile, features)
	require.Len(t, matrix, 1)
	assert.Len(t, matrix[0], len(features))
}

func TestPipelineApplyBeforeFitFails(t *testing.T) {
	p := NewLoanPipeline()
	err := p.Apply(dataset.NewFrame())
	assert.Error(t, err)
}

func loanTrainingFrame(t *testing.T) *dataset.Frame {
	t.Helper()
	n := 20
	f := dataset.NewFrame()

	ids := make([]string, n)
	names := make([]string, n)
	genders := make([]string, n)
	ages := make([]float64, n)
	incomes := make([]float64, n)
	stability := make([]string, n)
	professions := make([]string, n)
	employment := make([]string, n)
	locations := make([]string, n)
	loanReq := make([]float64, n)
	loanExp := make([]float64, n)
	exp1 := make([]string, n)
	exp2 := make([]string, n)
	dependents := make([]float64, n)
	credit := make([]float64, n)
	defaults := make([]float64, n)
	card := make([]string, n)
	propID := make([]string, n)
	propAge := make([]float64, n)
	propType := make([]float64, n)
	propLoc := make([]string, n)
	coApp := make([]float64, n)
	propPrice := make([]float64, n)
	target := make([]float64, n)

	for i := 0; i < n; i++ {
		ids[i] = "C" + string(rune('A'+i))
		names[i] = "Applicant"
		genders[i] = []string{"M", "F"}[i%2]
		ages[i] = float64(25 + i)
		incomes[i] = float64(1500 + 100*i)
		stability[i] = []string{"Low", "High"}[i%2]
		professions[i] = []string{"Working", "Pensioner", "Commercial associate", "State servant"}[i%4]
		employment[i] = "Staff"
		locations[i] = []string{"Urban", "Rural", "Semi-Urban"}[i%3]
		loanReq[i] = float64(40000 + 2000*i)
		loanExp[i] = float64(200 + 10*i)
		exp1[i] = []string{"Y", "N"}[i%2]
		exp2[i] = []string{"Y", "N"}[(i+1)%2]
		dependents[i] = float64(i % 4)
		credit[i] = float64(600 + 10*i)
		defaults[i] = float64(i % 2)
		card[i] = []string{"Active", "Inactive", "Unpossessed"}[i%3]
		propID[i] = "P1"
		propAge[i] = float64(1000 + 50*i)
		propType[i] = float64(1 + i%4)
		propLoc[i] = []string{"Urban", "Rural", "Semi-Urban"}[(i+1)%3]
		coApp[i] = float64(i % 2)
		propPrice[i] = float64(100000 + 5000*i)
		target[i] = float64(30000 + 1500*i)
	}
	// Gaps the imputer has to fill.
	genders[3] = ""
	incomes[5] = math.NaN()
	credit[7] = math.NaN()
	// Sentinel placeholder rows.
	coApp[4] = -999
	propPrice[6] = -999

	require.NoError(t, f.AddCategorical(ColCustomerID, ids))
	require.NoError(t, f.AddCategorical(ColName, names))
	require.NoError(t, f.AddCategorical(ColGender, genders))
	require.NoError(t, f.AddNumeric(ColAge, ages))
	require.NoError(t, f.AddNumeric(ColIncome, incomes))
	require.NoError(t, f.AddCategorical(ColIncomeStability, stability))
	require.NoError(t, f.AddCategorical(ColProfession, professions))
	require.NoError(t, f.AddCategorical(ColTypeOfEmployment, employment))
	require.NoError(t, f.AddCategorical(ColLocation, locations))
	require.NoError(t, f.AddNumeric(ColLoanAmountReq, loanReq))
	require.NoError(t, f.AddNumeric(ColCurrentLoanExp, loanExp))
	require.NoError(t, f.AddCategorical(ColExpenseType1, exp1))
	require.NoError(t, f.AddCategorical(ColExpenseType2, exp2))
	require.NoError(t, f.AddNumeric(ColDependents, dependents))
	require.NoError(t, f.AddNumeric(ColCreditScore, credit))
	require.NoError(t, f.AddNumeric(ColDefaults, defaults))
	require.NoError(t, f.AddCategorical(ColActiveCreditCard, card))
	require.NoError(t, f.AddCategorical(ColPropertyID, propID))
	require.NoError(t, f.AddNumeric(ColPropertyAge, propAge))
	require.NoError(t, f.AddNumeric(ColPropertyType, propType))
	require.NoError(t, f.AddCategorical(ColPropertyLocation, propLoc))
	require.NoError(t, f.AddNumeric(ColCoApplicant, coApp))
	require.NoError(t, f.AddNumeric(ColPropertyPrice, propPrice))
	require.NoError(t, f.AddNumeric(ColSanctionAmount, target))
	return f
}

func loanProfileFrame(t *testing.T) *dataset.Frame {
	t.Helper()
	f := dataset.NewFrame()
	require.NoError(t, f.AddCategorical(ColCustomerID, []string{""}))
	require.NoError(t, f.AddCategorical(ColName, []string{""}))
	require.NoError(t, f.AddCategorical(ColGender, []string{"F"}))
	require.NoError(t, f.AddNumeric(ColAge, []float64{40}))
	require.NoError(t, f.AddNumeric(ColIncome, []float64{2500}))
	require.NoError(t, f.AddCategorical(ColIncomeStability, []string{"Low"}))
	require.NoError(t, f.AddCategorical(ColProfession, []string{"Working"}))
	require.NoError(t, f.AddCategorical(ColTypeOfEmployment, []string{""}))
	require.NoError(t, f.AddCategorical(ColLocation, []string{"Urban"}))
	require.NoError(t, f.AddNumeric(ColLoanAmountReq, []float64{60000}))
	require.NoError(t, f.AddNumeric(ColCurrentLoanExp, []float64{300}))
	require.NoError(t, f.AddCategorical(ColExpenseType1, []string{"N"}))
	require.NoError(t, f.AddCategorical(ColExpenseType2, []string{"Y"}))
	require.NoError(t, f.AddNumeric(ColDependents, []float64{1}))
	require.NoError(t, f.AddNumeric(ColCreditScore, []float64{740}))
	require.NoError(t, f.AddNumeric(ColDefaults, []float64{0}))
	require.NoError(t, f.AddCategorical(ColActiveCreditCard, []string{"Active"}))
	require.NoError(t, f.AddCategorical(ColPropertyID, []string{""}))
	require.NoError(t, f.AddNumeric(ColPropertyAge, []float64{1825}))
	require.NoError(t, f.AddNumeric(ColPropertyType, []float64{2}))
	require.NoError(t, f.AddCategorical(ColPropertyLocation, []string{"Rural"}))
	require.NoError(t, f.AddNumeric(ColCoApplicant, []float64{0}))
	require.NoError(t, f.AddNumeric(ColPropertyPrice, []float64{150000}))
	require.NoError(t, f.AddNumeric(ColSanctionAmount, []float64{0}))
	return f
}
