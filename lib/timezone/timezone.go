package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/Istanbul")
	if err != nil {
		panic(err)
	}
}

// the portal stamps invoices in Turkish civil time, so force the
// timezone here instead of trusting wherever the process happens to run
func Now() time.Time {
	return time.Now().In(Location)
}
