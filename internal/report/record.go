// Package report defines the occupancy report data model and the parser
// that turns raw portal exports into structured records.
package report

// Movement distinguishes the two report variants the portal produces.
type Movement string

const (
	// Arrivals lists guests checking in within the requested range.
	Arrivals Movement = "arrivals"
	// Departures lists guests checking out within the requested range.
	Departures Movement = "departures"
)

// Record is a single row of an occupancy report. Records are immutable
// once produced and live only for the duration of a run.
type Record struct {
	Movement  Movement
	Property  string
	Room      string
	RoomType  string
	GuestName string
	Adults    int
	Children  int
	Infants   int
	Time      string // check-in or check-out time as shown by the portal, e.g. "2:00 PM"
}

// GuestCount returns the total headcount for the booking.
func (r Record) GuestCount() int {
	return r.Adults + r.Children + r.Infants
}
