package httpimpl

type ReadMode int

const (
	JSON ReadMode = iota
	CSV
)

func (r ReadMode) String() string {
	switch r {
	case JSON:
		return "JSON"
	case CSV:
		return "CSV"
	default:
		return "UNKNOWN"
	}
}
