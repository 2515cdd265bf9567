package sim

// Item is one unit of work flowing through the line. Created on arrival,
// destroyed on completion; exactly one live entry-timestamp record exists
// per in-flight item.
type Item struct {
	ID        int64   // sequential, unique within one line instance
	EnteredAt float64 // virtual time of arrival (minutes)
}
