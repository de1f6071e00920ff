package api

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/onnwee/collabmatch/internal/collab"
	"github.com/onnwee/collabmatch/internal/geo"
	"github.com/onnwee/collabmatch/internal/geocode"
	"github.com/onnwee/collabmatch/internal/matching"
	"github.com/onnwee/collabmatch/internal/middleware"
	"github.com/onnwee/collabmatch/internal/project"
	"github.com/onnwee/collabmatch/internal/ranking"
	"github.com/onnwee/collabmatch/internal/validate"
)

// MaxLimit bounds the number of ranked results a caller may request.
const MaxLimit = 100

// Geohash precisions used when presenting candidate locations.
const (
	exactGeohashPrecision = 6
	cityGeohashPrecision  = 5
)

// Warnings attached to match responses.
const (
	WarningAddressUnresolved = "address could not be resolved; location scored as unknown"
	WarningGeocoderDisabled  = "geocoding is not configured; address ignored"
	WarningNoProfile         = "no collaboration profile found; default preference used"
)

// MatchHandlersConfig holds the collaborators for MatchHandlers.
type MatchHandlersConfig struct {
	Projects project.Repository
	Engine   *matching.Engine
	Geocoder geocode.Resolver // optional
	Weights  ranking.MatchWeights
	Logger   *slog.Logger
}

// MatchHandlers serves the matching endpoints.
type MatchHandlers struct {
	projects project.Repository
	engine   *matching.Engine
	geocoder geocode.Resolver
	weights  ranking.MatchWeights
	logger   *slog.Logger
}

// NewMatchHandlers creates MatchHandlers. A nil engine gets a sequential one.
func NewMatchHandlers(cfg MatchHandlersConfig) *MatchHandlers {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	engine := cfg.Engine
	if engine == nil {
		engine = matching.NewEngine(matching.EngineConfig{Logger: logger})
	}
	return &MatchHandlers{
		projects: cfg.Projects,
		engine:   engine,
		geocoder: cfg.Geocoder,
		weights:  cfg.Weights,
		logger:   logger,
	}
}

// RequesterInput describes the party asking for matches. Coordinate wins
// over Address; Address is geocoded when a geocoder is configured.
type RequesterInput struct {
	ID         string             `json:"id,omitempty"`
	Coordinate *geo.Coordinate    `json:"coordinate,omitempty"`
	Address    string             `json:"address,omitempty"`
	Preference *collab.Preference `json:"preference,omitempty"`
}

// FilterRequest is the body of POST /api/v1/match/filter.
type FilterRequest struct {
	Query   string                `json:"query,omitempty"`
	Filters matching.SearchParams `json:"filters"`
}

// RankRequest is the body of POST /api/v1/match/rank.
type RankRequest struct {
	Requester RequesterInput        `json:"requester"`
	Query     string                `json:"query,omitempty"`
	Filters   matching.SearchParams `json:"filters"`
	Weights   *ranking.Override     `json:"weights,omitempty"`
	Limit     int                   `json:"limit,omitempty"`
}

// FeasibilityRequest is the body of POST /api/v1/match/feasibility.
type FeasibilityRequest struct {
	Requester RequesterInput    `json:"requester"`
	ProjectID string            `json:"project_id"`
	Weights   *ranking.Override `json:"weights,omitempty"`
}

// LocationView is a candidate location reduced to what its visibility allows.
type LocationView struct {
	Visibility collab.Visibility `json:"visibility"`
	Coordinate *geo.Coordinate   `json:"coordinate,omitempty"`
	Geohash    string            `json:"geohash,omitempty"`
	City       string            `json:"city,omitempty"`
	Region     string            `json:"region,omitempty"`
}

// PreferenceView is a candidate's collaboration preference as shown to
// others. MaxDistanceKm is withheld for hidden locations.
type PreferenceView struct {
	Mode              collab.Mode              `json:"mode"`
	MaxDistanceKm     *float64                 `json:"max_distance_km,omitempty"`
	MeetingPreference collab.MeetingPreference `json:"meeting_preference"`
	TimeZoneFlexible  bool                     `json:"time_zone_flexible"`
	Note              string                   `json:"note,omitempty"`
}

// SubScoresView is a score breakdown as shown to clients. Location is
// withheld for hidden candidates and follows the rounded distance for
// city-only ones, since with the max distances it pins down the distance.
type SubScoresView struct {
	Location *float64 `json:"location,omitempty"`
	Mode     float64  `json:"mode"`
	Meeting  float64  `json:"meeting"`
	TimeZone float64  `json:"time_zone"`
}

// CandidateView is the public shape of a candidate.
type CandidateView struct {
	ID              string                 `json:"id"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description,omitempty"`
	LocationType    collab.LocationType    `json:"location_type,omitempty"`
	ServiceAreaType collab.ServiceAreaType `json:"service_area_type,omitempty"`
	Preference      PreferenceView         `json:"preference"`
	Location        LocationView           `json:"location"`
}

// MatchItem is one ranked candidate as returned to clients.
type MatchItem struct {
	Candidate  CandidateView `json:"candidate"`
	Score      int           `json:"score"`
	DistanceKm *float64      `json:"distance_km,omitempty"`
	SubScores  SubScoresView `json:"sub_scores"`
	Reasons    []string      `json:"reasons"`
}

// FilterResponse is the body returned by the filter endpoint.
type FilterResponse struct {
	Candidates []CandidateView       `json:"candidates"`
	Input      int                   `json:"input"`
	Stages     []matching.StageCount `json:"stages"`
}

// RankResponse is the body returned by the rank and recommendations endpoints.
type RankResponse struct {
	Results       []MatchItem                 `json:"results"`
	Input         int                         `json:"input"`
	Stages        []matching.StageCount       `json:"stages,omitempty"`
	Scored        int                         `json:"scored"`
	BelowMinScore int                         `json:"below_min_score"`
	Skipped       []matching.SkippedCandidate `json:"skipped,omitempty"`
	Warnings      []string                    `json:"warnings,omitempty"`
	Summary       matching.Summary            `json:"summary"`
}

// FeasibilityView is a feasibility report shaped by the candidate's visibility.
type FeasibilityView struct {
	Feasible    bool              `json:"feasible"`
	Score       int               `json:"score"`
	DistanceKm  *float64          `json:"distance_km,omitempty"`
	SubScores   SubScoresView     `json:"sub_scores"`
	Factors     []matching.Factor `json:"factors"`
	Suggestions []string          `json:"suggestions"`
	Warnings    []string          `json:"warnings,omitempty"`
}

// FeasibilityResponse is the body returned by the feasibility endpoint.
type FeasibilityResponse struct {
	Candidate CandidateView   `json:"candidate"`
	Report    FeasibilityView `json:"report"`
}

// Filter handles POST /api/v1/match/filter.
func (h *MatchHandlers) Filter(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req FilterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	query, err := validate.SearchQuery(req.Query)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, ErrCodeValidation, "query: "+err.Error())
		return
	}
	if err := req.Filters.Validate(); err != nil {
		WriteError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	cands, ok := h.loadCandidates(w, r, query)
	if !ok {
		return
	}
	out, err := matching.FilterCandidates(cands, req.Filters)
	if err != nil {
		h.writeMatchError(w, r, err)
		return
	}

	views := make([]CandidateView, len(out.Candidates))
	for i, c := range out.Candidates {
		views[i] = viewCandidate(c)
	}
	writeJSON(w, r, http.StatusOK, FilterResponse{
		Candidates: views,
		Input:      out.Input,
		Stages:     out.Stages,
	})
}

// Rank handles POST /api/v1/match/rank.
func (h *MatchHandlers) Rank(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req RankRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Limit < 0 || req.Limit > MaxLimit {
		WriteError(w, r, http.StatusBadRequest, ErrCodeValidation,
			"limit must be between 1 and "+strconv.Itoa(MaxLimit))
		return
	}
	query, err := validate.SearchQuery(req.Query)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, ErrCodeValidation, "query: "+err.Error())
		return
	}
	if !validAddress(w, r, req.Requester.Address) {
		return
	}
	weights, ok := h.resolveWeights(w, r, req.Weights)
	if !ok {
		return
	}
	requester, warnings := h.resolveRequester(r.Context(), req.Requester)

	cands, ok := h.loadCandidates(w, r, query)
	if !ok {
		return
	}
	out, err := h.engine.Search(r.Context(), requester, cands, req.Filters, weights, req.Limit)
	if err != nil {
		h.writeMatchError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rankResponse(requester, out, warnings))
}

// Feasibility handles POST /api/v1/match/feasibility.
func (h *MatchHandlers) Feasibility(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req FeasibilityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	projectID, err := validate.ID(req.ProjectID)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, ErrCodeValidation, "project_id: "+err.Error())
		return
	}
	if !validAddress(w, r, req.Requester.Address) {
		return
	}
	weights, ok := h.resolveWeights(w, r, req.Weights)
	if !ok {
		return
	}

	p, err := h.projects.GetByID(r.Context(), projectID)
	if errors.Is(err, project.ErrNotFound) || (err == nil && !p.Listed()) {
		WriteError(w, r, http.StatusNotFound, ErrCodeNotFound, "project not found")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to load project",
			"project_id", projectID,
			"error", err)
		WriteError(w, r, http.StatusInternalServerError, ErrCodeInternal, "failed to load project")
		return
	}

	requester, warnings := h.resolveRequester(r.Context(), req.Requester)
	cand := p.Candidate()
	report, err := h.engine.Analyze(r.Context(), requester, cand, weights)
	if err != nil {
		h.writeMatchError(w, r, err)
		return
	}
	view := FeasibilityView{
		Feasible:    report.Feasible,
		Score:       report.Score,
		Factors:     report.Factors,
		Suggestions: report.Suggestions,
		Warnings:    append(warnings, report.Warnings...),
	}
	view.DistanceKm, view.SubScores = shapeLocation(requester, cand, report.DistanceKm, report.SubScores)
	if !showsDistance(cand) {
		view.Factors = scrubDistanceFactors(view.Factors)
	}
	writeJSON(w, r, http.StatusOK, FeasibilityResponse{
		Candidate: viewCandidate(cand),
		Report:    view,
	})
}

// Recommendations handles GET /api/v1/match/recommendations. The requester
// is the authenticated user's stored profile.
func (h *MatchHandlers) Recommendations(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, r, http.StatusUnauthorized, "auth_required", "authentication required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxLimit {
			WriteError(w, r, http.StatusBadRequest, ErrCodeValidation,
				"limit must be between 1 and "+strconv.Itoa(MaxLimit))
			return
		}
		limit = n
	}
	params, err := recommendationParams(r)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	var warnings []string
	requester := matching.Requester{ID: userID, Preference: collab.DefaultPreference()}
	profile, err := h.projects.GetProfile(r.Context(), userID)
	switch {
	case errors.Is(err, project.ErrNotFound):
		warnings = append(warnings, WarningNoProfile)
	case err != nil:
		h.logger.ErrorContext(r.Context(), "failed to load profile",
			"user_id", userID,
			"error", err)
		WriteError(w, r, http.StatusInternalServerError, ErrCodeInternal, "failed to load profile")
		return
	default:
		requester, warnings = h.resolveRequester(r.Context(), RequesterInput{
			ID:         userID,
			Coordinate: profile.Coordinate,
			Address:    profile.Address,
			Preference: &profile.Preference,
		})
	}

	cands, ok := h.loadCandidates(w, r, "")
	if !ok {
		return
	}
	out, err := h.engine.Search(r.Context(), requester, cands, params, h.weights, limit)
	if err != nil {
		h.writeMatchError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rankResponse(requester, out, warnings))
}

// recommendationParams reads the optional mode, meeting and location_type
// query filters.
func recommendationParams(r *http.Request) (matching.SearchParams, error) {
	var p matching.SearchParams
	q := r.URL.Query()
	if raw := q.Get("mode"); raw != "" {
		m, err := collab.ParseMode(raw)
		if err != nil {
			return p, err
		}
		p.Mode = m
	}
	if raw := q.Get("meeting"); raw != "" {
		m, err := collab.ParseMeetingPreference(raw)
		if err != nil {
			return p, err
		}
		p.Meeting = m
	}
	if raw := q.Get("location_type"); raw != "" {
		t, err := collab.ParseLocationType(raw)
		if err != nil {
			return p, err
		}
		p.LocationType = t
	}
	return p, nil
}

// Stats handles GET /api/v1/match/stats.
func (h *MatchHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	stats, err := h.projects.Stats(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to compute stats", "error", err)
		WriteError(w, r, http.StatusInternalServerError, ErrCodeInternal, "failed to compute stats")
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

func (h *MatchHandlers) loadCandidates(w http.ResponseWriter, r *http.Request, text string) ([]matching.Candidate, bool) {
	projects, err := h.projects.Query(r.Context(), project.Query{
		Text:  strings.TrimSpace(text),
		Limit: project.MaxPageSize,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to load candidates", "error", err)
		WriteError(w, r, http.StatusInternalServerError, ErrCodeInternal, "failed to load candidates")
		return nil, false
	}
	return project.Candidates(projects), true
}

func validAddress(w http.ResponseWriter, r *http.Request, address string) bool {
	if _, err := validate.Address(address); err != nil {
		WriteError(w, r, http.StatusBadRequest, ErrCodeValidation, "address: "+err.Error())
		return false
	}
	return true
}

func (h *MatchHandlers) resolveWeights(w http.ResponseWriter, r *http.Request, o *ranking.Override) (ranking.MatchWeights, bool) {
	weights := h.weights
	if o == nil {
		return weights, true
	}
	weights = weights.Apply(*o)
	if err := weights.Validate(); err != nil {
		WriteError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return weights, false
	}
	return weights, true
}

// resolveRequester builds a requester from input. Address resolution
// failures degrade to an unknown location with a warning.
func (h *MatchHandlers) resolveRequester(ctx context.Context, in RequesterInput) (matching.Requester, []string) {
	req := matching.Requester{ID: in.ID, Preference: collab.DefaultPreference()}
	if in.Preference != nil {
		req.Preference = in.Preference.WithDefaults()
	}

	var warnings []string
	switch {
	case in.Coordinate != nil:
		c := *in.Coordinate
		req.Coordinate = &c
	case strings.TrimSpace(in.Address) == "":
	case h.geocoder == nil:
		warnings = append(warnings, WarningGeocoderDisabled)
	default:
		if res := geocode.Locate(ctx, h.geocoder, h.logger, in.Address); res != nil {
			c := res.Coordinate
			req.Coordinate = &c
		} else {
			warnings = append(warnings, WarningAddressUnresolved)
		}
	}
	return req, warnings
}

func (h *MatchHandlers) writeMatchError(w http.ResponseWriter, r *http.Request, err error) {
	if isValidationError(err) {
		WriteError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}
	h.logger.ErrorContext(r.Context(), "match request failed", "error", err)
	WriteError(w, r, http.StatusInternalServerError, ErrCodeInternal, "match request failed")
}

func isValidationError(err error) bool {
	for _, target := range []error{
		matching.ErrInvalidSearchParams,
		geo.ErrInvalidLatitude,
		geo.ErrInvalidLongitude,
		geo.ErrInvalidAccuracy,
		collab.ErrInvalidMode,
		collab.ErrInvalidMeetingPreference,
		collab.ErrNegativeDistance,
		collab.ErrNoteTooLong,
		ranking.ErrNegativeWeight,
		ranking.ErrNonFiniteWeight,
		ranking.ErrNegativeDistance,
		ranking.ErrInvalidMinScore,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func rankResponse(req matching.Requester, out *matching.RankOutcome, warnings []string) RankResponse {
	items := make([]MatchItem, len(out.Results))
	for i, res := range out.Results {
		items[i] = viewResult(req, res)
	}
	return RankResponse{
		Results:       items,
		Input:         out.Input,
		Stages:        out.Stages,
		Scored:        out.Scored,
		BelowMinScore: out.BelowMinScore,
		Skipped:       out.Skipped,
		Warnings:      append(warnings, out.Warnings...),
		Summary:       matching.Summarize(out.Results),
	}
}

// viewResult applies the candidate's visibility to a ranked result.
// Hidden candidates lose their distance, including in reasons.
func viewResult(req matching.Requester, res matching.MatchResult) MatchItem {
	item := MatchItem{
		Candidate: viewCandidate(res.Candidate),
		Score:     res.Score,
		Reasons:   res.Reasons,
	}
	item.DistanceKm, item.SubScores = shapeLocation(req, res.Candidate, res.DistanceKm, res.SubScores)
	if !showsDistance(res.Candidate) {
		item.Reasons = scrubDistanceReasons(res.Reasons)
	}
	if item.Reasons == nil {
		item.Reasons = []string{}
	}
	return item
}

// showsDistance reports whether any distance figure may be shown for c.
func showsDistance(c matching.Candidate) bool {
	v := c.Visibility()
	return v == collab.VisibilityPublic || v == collab.VisibilityCityOnly
}

// shapeLocation reduces the distance and the location sub-score to what
// the candidate's visibility allows.
func shapeLocation(req matching.Requester, c matching.Candidate, d *float64, sub ranking.SubScores) (*float64, SubScoresView) {
	view := SubScoresView{Mode: sub.Mode, Meeting: sub.Meeting, TimeZone: sub.TimeZone}
	location := sub.Location
	switch c.Visibility() {
	case collab.VisibilityPublic:
		view.Location = &location
		return d, view
	case collab.VisibilityCityOnly:
		rounded := roundDistance(d)
		if rounded != nil {
			location = coarseLocationScore(req, c, *rounded)
		}
		view.Location = &location
		return rounded, view
	}
	return nil, view
}

// coarseLocationScore is the location sub-score the pair would get at the
// rounded distance d.
func coarseLocationScore(req matching.Requester, c matching.Candidate, d float64) float64 {
	rp := req.Preference.WithDefaults()
	cp := c.Preference()
	return ranking.LocationScore(ranking.LocationInput{
		Resolved:               true,
		DistanceKm:             d,
		RequesterMode:          rp.Mode,
		CandidateMode:          cp.Mode,
		RequesterMaxDistanceKm: rp.MaxDistanceKm,
		CandidateMaxDistanceKm: cp.MaxDistanceKm,
	})
}

func viewCandidate(c matching.Candidate) CandidateView {
	pref := c.Preference()
	v := CandidateView{
		ID:              c.ID,
		Title:           c.Title,
		Description:     c.Description,
		LocationType:    c.LocationType,
		ServiceAreaType: c.ServiceAreaType,
		Preference: PreferenceView{
			Mode:              pref.Mode,
			MeetingPreference: pref.MeetingPreference,
			TimeZoneFlexible:  pref.TimeZoneFlexible,
			Note:              pref.Note,
		},
		Location: LocationView{Visibility: c.Visibility()},
	}
	if v.Location.Visibility == collab.VisibilityHidden {
		return v
	}
	v.Preference.MaxDistanceKm = &pref.MaxDistanceKm
	if c.Geo == nil {
		return v
	}
	v.Location.City = c.Geo.City
	v.Location.Region = c.Geo.Region

	coord := c.Coordinate()
	if coord == nil {
		return v
	}
	hash := geo.Encode(*coord, exactGeohashPrecision)
	if v.Location.Visibility == collab.VisibilityPublic {
		cp := *coord
		v.Location.Coordinate = &cp
		v.Location.Geohash = hash
		return v
	}
	v.Location.Geohash = geo.Truncate(hash, cityGeohashPrecision)
	return v
}

func roundDistance(d *float64) *float64 {
	if d == nil {
		return nil
	}
	rounded := math.Round(*d*10) / 10
	return &rounded
}

func scrubDistanceReasons(reasons []string) []string {
	out := make([]string, 0, len(reasons))
	for _, r := range reasons {
		if !strings.HasPrefix(r, matching.ReasonDistancePrefix) {
			out = append(out, r)
		}
	}
	return out
}

// scrubDistanceFactors replaces distance factors with a location factor
// that keeps the impact but drops the figure.
func scrubDistanceFactors(factors []matching.Factor) []matching.Factor {
	out := make([]matching.Factor, len(factors))
	for i, f := range factors {
		if f.Label == matching.FactorDistance {
			f.Label = matching.FactorLocation
			f.Detail = "the counterpart keeps its location private"
		}
		out[i] = f
	}
	return out
}
