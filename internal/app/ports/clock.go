package ports

import "time"

// TimeResolution is the finest precision every store round-trips (postgres
// timestamptz). Use cases truncate their clock to it so a stored timestamp
// reads back equal to the one returned when it was written.
const TimeResolution = time.Microsecond
