package matching

import (
	"fmt"
	"sort"
)

// MaxReasons caps the reasons attached to a match.
const MaxReasons = 3

// Reason texts.
const (
	ReasonModeCompatible   = "collaboration mode highly compatible"
	ReasonMeetingMatch     = "meeting-format match"
	ReasonTimeZoneFlexible = "both parties accept cross-time-zone work"

	// ReasonDistancePrefix starts the distance reason, "distance 3.2 km".
	ReasonDistancePrefix = "distance "
)

// Sub-score thresholds above which a reason is emitted.
const (
	modeReasonThreshold     = 80
	meetingReasonThreshold  = 100
	timeZoneReasonThreshold = 100
)

type reason struct {
	text         string
	contribution float64
}

// reasons lists the sub-scores that materially moved the score, most
// influential first.
func (ev evaluation) reasons() []string {
	var rs []reason

	if ev.sub.Mode >= modeReasonThreshold {
		rs = append(rs, reason{ReasonModeCompatible, ev.sub.Mode * ev.weights.ModeWeight})
	}
	if ev.distance != nil && *ev.distance <= ev.reqPref.MaxDistanceKm {
		rs = append(rs, reason{fmt.Sprintf(ReasonDistancePrefix+"%.1f km", *ev.distance), ev.sub.Location * ev.weights.LocationWeight})
	}
	if ev.sub.Meeting >= meetingReasonThreshold {
		rs = append(rs, reason{ReasonMeetingMatch, ev.sub.Meeting * ev.weights.MeetingWeight})
	}
	if ev.sub.TimeZone >= timeZoneReasonThreshold {
		rs = append(rs, reason{ReasonTimeZoneFlexible, ev.sub.TimeZone * ev.weights.TimeZoneWeight})
	}

	// A sub-score whose weight is zero did not move the score.
	kept := rs[:0]
	for _, r := range rs {
		if r.contribution > 0 {
			kept = append(kept, r)
		}
	}
	rs = kept

	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].contribution > rs[j].contribution
	})
	if len(rs) > MaxReasons {
		rs = rs[:MaxReasons]
	}

	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.text
	}
	return out
}
