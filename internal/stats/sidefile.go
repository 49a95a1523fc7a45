package stats

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// UniqueSideFilePath returns base unchanged if nothing already exists
// there, otherwise a variant with a unique suffix appended — the
// collision-avoidance behavior EvaluateSeg.py's stats-location schema
// describes ("If there are already results present at that name, a
// unique number will be appended to the file name").
func UniqueSideFilePath(base string) (string, error) {
	if _, err := os.Stat(base); os.IsNotExist(err) {
		return base, nil
	} else if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s", base, uuid.NewString()), nil
}
