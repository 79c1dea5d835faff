package walkforward

import "time"

const day = 24 * time.Hour

// Fold is one train/test split. Train is [TrainStart, TrainEnd) and test is
// [TestStart, TestEnd) with TestStart == TrainEnd.
type Fold struct {
	Index      int       `json:"fold"`
	TrainStart time.Time `json:"train_start"`
	TrainEnd   time.Time `json:"train_end"`
	TestStart  time.Time `json:"test_start"`
	TestEnd    time.Time `json:"test_end"`
}

// MaxFolds returns max(1, totalDays/testDays - 1), where totalDays is the
// whole number of days between start and end.
func MaxFolds(start, end time.Time, testDays int) int {
	if testDays <= 0 {
		return 0
	}
	totalDays := int(end.Sub(start) / day)
	return max(1, totalDays/testDays-1)
}

// Folds rolls the train window forward by testDays per fold and stops once a
// test window would extend past end.
func Folds(start, end time.Time, trainDays, testDays int) []Fold {
	if trainDays <= 0 || testDays <= 0 {
		return nil
	}
	totalDays := int(end.Sub(start) / day)
	if trainDays > totalDays || testDays > totalDays-trainDays {
		return nil
	}
	n := MaxFolds(start, end, testDays)

	var out []Fold
	for k := 0; k < n; k++ {
		trainStart := start.AddDate(0, 0, k*testDays)
		trainEnd := trainStart.AddDate(0, 0, trainDays)
		testEnd := trainEnd.AddDate(0, 0, testDays)
		if testEnd.After(end) {
			break
		}
		out = append(out, Fold{
			Index:      k,
			TrainStart: trainStart,
			TrainEnd:   trainEnd,
			TestStart:  trainEnd,
			TestEnd:    testEnd,
		})
	}
	return out
}
