package collab

// SuggestInput is the context used to produce setup suggestions.
type SuggestInput struct {
	Preference   *Preference
	Location     *LocationSettings
	ServiceArea  *ServiceArea
	ProjectType  string
	ProjectStage string
}

// Suggest returns hints for tuning a project's collaboration settings.
func Suggest(in SuggestInput) []string {
	var out []string

	switch in.ProjectType {
	case "startup":
		out = append(out, "startups reach more partners with location_flexible collaboration")
	case "tech":
		out = append(out, "technical projects usually work well remotely, consider remote_friendly")
	}

	switch in.ProjectStage {
	case "idea":
		out = append(out, "at the idea stage, local collaboration makes fast iteration easier")
	case "growth":
		out = append(out, "at the growth stage, consider widening the search to remote partners")
	}

	if p := in.Preference; p != nil && p.Mode == ModeLocalOnly && p.MaxDistanceKm > 0 && p.MaxDistanceKm < 10 {
		out = append(out, "the local collaboration distance is small, increase it to see more partners")
	}
	if in.Location != nil && in.Location.Visibility == VisibilityHidden {
		out = append(out, "hidden locations are discovered less often, consider showing at least the city")
	}
	if in.ServiceArea != nil && in.ServiceArea.Type == ServiceAreaGlobal &&
		(in.Preference == nil || !in.Preference.TimeZoneFlexible) {
		out = append(out, "global projects should accept cross-time-zone work")
	}
	return out
}
