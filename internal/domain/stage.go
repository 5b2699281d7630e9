package domain

import "fmt"

// Stage is the position of a pipeline in the Empty -> Parsed -> Geocoded -> Sorted sequence.
type Stage int

const (
	StageEmpty Stage = iota
	StageParsed
	StageGeocoded
	StageSorted
)

func (s Stage) String() string {
	switch s {
	case StageEmpty:
		return "empty"
	case StageParsed:
		return "parsed"
	case StageGeocoded:
		return "geocoded"
	case StageSorted:
		return "sorted"
	default:
		return "unknown"
	}
}

// MarshalText renders the stage name in JSON payloads.
func (s Stage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText accepts the names produced by MarshalText.
func (s *Stage) UnmarshalText(b []byte) error {
	for _, c := range []Stage{StageEmpty, StageParsed, StageGeocoded, StageSorted} {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", b)
}
