package recorder

// Outcome is the terminal state of a recording request.
type Outcome int

const (
	Recorded     Outcome = iota // row written
	Rejected                    // another recording was in flight
	NoData                      // window empty after the delay
	WriterFailed                // the CSV writer returned an error
	Cancelled                   // destination declined or context done
	Invalid                     // bad request, guard untouched
)

func (o Outcome) String() string {
	switch o {
	case Recorded:
		return "recorded"
	case Rejected:
		return "rejected"
	case NoData:
		return "no data"
	case WriterFailed:
		return "writer failed"
	case Cancelled:
		return "cancelled"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}
