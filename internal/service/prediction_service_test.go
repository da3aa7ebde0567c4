package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"loanpilot/pkg/config"
	"loanpilot/pkg/pipeline"
)

// writeTrainingCSV writes a small but realistic training dataset and returns
// its path.
func writeTrainingCSV(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "train.csv")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create training csv: %v", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := []string{
		pipeline.ColCustomerID, pipeline.ColName, pipeline.ColGender, pipeline.ColAge,
		pipeline.ColIncome, pipeline.ColIncomeStability, pipeline.ColProfession,
		pipeline.ColTypeOfEmployment, pipeline.ColLocation, pipeline.ColLoanAmountReq,
		pipeline.ColCurrentLoanExp, pipeline.ColExpenseType1, pipeline.ColExpenseType2,
		pipeline.ColDependents, pipeline.ColCreditScore, pipeline.ColDefaults,
		pipeline.ColActiveCreditCard, pipeline.ColPropertyID, pipeline.ColPropertyAge,
		pipeline.ColPropertyType, pipeline.ColPropertyLocation, pipeline.ColCoApplicant,
		pipeline.ColPropertyPrice, pipeline.ColSanctionAmount,
	}
	if err := w.Write(header); err != nil {
		t.Fatalf("failed to write header: %v", err)
	}

	genders := []string{"M", "F"}
	stability := []string{"Low", "High"}
	professions := []string{"Working", "Pensioner", "Commercial associate", "State servant"}
	locations := []string{"Urban", "Rural", "Semi-Urban"}
	yn := []string{"Y", "N"}
	cards := []string{"Active", "Inactive", "Unpossessed"}

	n := 60
	for i := 0; i < n; i++ {
		income := fmt.Sprintf("%d", 1500+100*i)
		credit := fmt.Sprintf("%d", 580+5*i)
		// Gaps the imputer has to fill.
		if i == 5 {
			income = ""
		}
		if i == 9 {
			credit = ""
		}
		row := []string{
			fmt.Sprintf("C%03d", i),
			"Applicant",
			genders[i%2],
			fmt.Sprintf("%d", 22+i%45),
			income,
			stability[i%2],
			professions[i%4],
			"Staff",
			locations[i%3],
			fmt.Sprintf("%d", 40000+2000*i),
			fmt.Sprintf("%d", 200+10*i),
			yn[i%2],
			yn[(i+1)%2],
			fmt.Sprintf("%d", i%4),
			credit,
			fmt.Sprintf("%d", i%2),
			cards[i%3],
			fmt.Sprintf("P%03d", i),
			fmt.Sprintf("%d", 1000+50*i),
			fmt.Sprintf("%d", 1+i%4),
			locations[(i+1)%3],
			fmt.Sprintf("%d", i%2),
			fmt.Sprintf("%d", 100000+5000*i),
			fmt.Sprintf("%d", 30000+1500*i),
		}
		if err := w.Write(row); err != nil {
			t.Fatalf("failed to write row: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("failed to flush training csv: %v", err)
	}
	return path
}

func newTestPredictionService(t *testing.T, datasetPath, snapshotPath string) *PredictionService {
	t.Helper()
	config.GlobalConfig = config.Default()
	config.GlobalConfig.Model = config.ModelConfig{
		DatasetPath:  datasetPath,
		TestFraction: 0.25,
		Trees:        25,
		MinLeaf:      2,
		Seed:         42,
		CacheTTL:     60,
		SnapshotPath: snapshotPath,
	}
	return NewPredictionService(nil, nil)
}

func TestTrainAndScore(t *testing.T) {
	svc := newTestPredictionService(t, writeTrainingCSV(t), "")

	if err := svc.Train(context.Background()); err != nil {
		t.Fatalf("unexpected training error: %v", err)
	}

	info := svc.Info()
	if info == nil {
		t.Fatal("expected model info after training")
	}
	if info.Trees != 25 {
		t.Errorf("expected 25 trees, got %d", info.Trees)
	}
	if info.TrainRows == 0 || info.TestRows == 0 {
		t.Errorf("expected non-empty train/test split, got %d/%d", info.TrainRows, info.TestRows)
	}
	if len(info.Features) == 0 {
		t.Error("expected learned feature names")
	}

	profile := testProfile()
	amount, cached, err := svc.Score(context.Background(), &profile)
	if err != nil {
		t.Fatalf("unexpected scoring error: %v", err)
	}
	if cached {
		t.Error("no cache is configured, prediction cannot be cached")
	}
	if amount < 0 {
		t.Errorf("sanction amount must be non-negative, got %f", amount)
	}

	// Same profile, same model, same amount.
	again, _, err := svc.Score(context.Background(), &profile)
	if err != nil {
		t.Fatalf("unexpected scoring error: %v", err)
	}
	if again != amount {
		t.Errorf("expected deterministic prediction, got %f then %f", amount, again)
	}
}

func TestScoreBeforeTrainFails(t *testing.T) {
	svc := NewPredictionService(nil, nil)

	profile := testProfile()
	if _, _, err := svc.Score(context.Background(), &profile); err == nil {
		t.Fatal("expected error before training")
	}
}

func TestScoreNilProfile(t *testing.T) {
	svc := NewPredictionService(nil, nil)

	if _, _, err := svc.Score(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil profile")
	}
}

func TestTrainMissingDataset(t *testing.T) {
	svc := newTestPredictionService(t, filepath.Join(t.TempDir(), "absent.csv"), "")

	if err := svc.Train(context.Background()); err == nil {
		t.Fatal("expected error for missing dataset")
	}
}

func TestTrainWritesAndReusesSnapshot(t *testing.T) {
	dataset := writeTrainingCSV(t)
	snapshot := filepath.Join(t.TempDir(), "model.json")

	svc := newTestPredictionService(t, dataset, snapshot)
	if err := svc.Train(context.Background()); err != nil {
		t.Fatalf("unexpected training error: %v", err)
	}
	if _, err := os.Stat(snapshot); err != nil {
		t.Fatalf("expected model snapshot to be written: %v", err)
	}

	profile := testProfile()
	first, _, err := svc.Score(context.Background(), &profile)
	if err != nil {
		t.Fatalf("unexpected scoring error: %v", err)
	}

	// A fresh service restores the forest from the snapshot and produces
	// the same prediction.
	restored := newTestPredictionService(t, dataset, snapshot)
	if err := restored.Train(context.Background()); err != nil {
		t.Fatalf("unexpected training error: %v", err)
	}
	second, _, err := restored.Score(context.Background(), &profile)
	if err != nil {
		t.Fatalf("unexpected scoring error: %v", err)
	}
	if first != second {
		t.Errorf("expected snapshot-restored model to score identically, got %f then %f", first, second)
	}
}
