package normalize

import (
	"fmt"
	"time"

	"shiori/internal/services"
)

var minReleaseDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// boundDate truncates an instant to its UTC calendar date and rejects dates
// outside the plausible window. Release schedules are announced at most a
// season or two ahead, so anything past a year out is source garbage.
func (n *Normalizer) boundDate(source string, instant time.Time) (time.Time, error) {
	date := time.Date(instant.Year(), instant.Month(), instant.Day(), 0, 0, 0, 0, time.UTC)
	if date.Before(minReleaseDate) {
		return time.Time{}, services.Wrap(services.ErrValidation, source, "normalize",
			fmt.Sprintf("release date %s before %s", date.Format("2006-01-02"), minReleaseDate.Format("2006-01-02")), nil)
	}
	max := n.now().UTC().AddDate(1, 0, 0)
	if date.After(max) {
		return time.Time{}, services.Wrap(services.ErrValidation, source, "normalize",
			fmt.Sprintf("release date %s more than a year ahead", date.Format("2006-01-02")), nil)
	}
	return date, nil
}
