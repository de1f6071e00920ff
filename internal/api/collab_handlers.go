package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/onnwee/collabmatch/internal/collab"
	"github.com/onnwee/collabmatch/internal/geo"
	"github.com/onnwee/collabmatch/internal/geocode"
	"github.com/onnwee/collabmatch/internal/middleware"
	"github.com/onnwee/collabmatch/internal/project"
	"github.com/onnwee/collabmatch/internal/validate"
)

// WarningCoordinateUnnamed is returned when a coordinate could not be
// reverse geocoded into a city.
const WarningCoordinateUnnamed = "coordinate could not be named; city left empty"

// CollabHandlers serves settings validation and the writes that feed
// matching: user profiles and projects.
type CollabHandlers struct {
	projects project.Repository
	geocoder geocode.Resolver
	logger   *slog.Logger
}

// NewCollabHandlers creates CollabHandlers. geocoder may be nil.
func NewCollabHandlers(projects project.Repository, geocoder geocode.Resolver, logger *slog.Logger) *CollabHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &CollabHandlers{projects: projects, geocoder: geocoder, logger: logger}
}

// SettingsRequest is the body of POST /api/v1/collab/validate.
type SettingsRequest struct {
	Settings     collab.ProjectSettings `json:"settings"`
	ProjectType  string                 `json:"project_type,omitempty"`
	ProjectStage string                 `json:"project_stage,omitempty"`
}

// SettingsResponse reports errors, warnings and setup suggestions.
type SettingsResponse struct {
	Valid       bool     `json:"valid"`
	Errors      []string `json:"errors"`
	Warnings    []string `json:"warnings"`
	Suggestions []string `json:"suggestions"`
}

// PlaceInput locates a profile or project. Coordinate wins over Address.
type PlaceInput struct {
	Coordinate *geo.Coordinate `json:"coordinate,omitempty"`
	Address    string          `json:"address,omitempty"`
	City       string          `json:"city,omitempty"`
	Region     string          `json:"region,omitempty"`
}

// ProfileRequest is the body of PUT /api/v1/match/profile.
type ProfileRequest struct {
	PlaceInput
	Preference *collab.Preference `json:"preference,omitempty"`
}

// ProfileResponse is the stored profile with any location warnings.
type ProfileResponse struct {
	Profile  *project.Profile `json:"profile"`
	Warnings []string         `json:"warnings,omitempty"`
}

// ProjectRequest is the body of POST /api/v1/projects.
type ProjectRequest struct {
	PlaceInput
	Title        string                   `json:"title"`
	Description  string                   `json:"description,omitempty"`
	Publish      bool                     `json:"publish"`
	Location     *collab.LocationSettings `json:"location_settings,omitempty"`
	ServiceArea  *collab.ServiceArea      `json:"service_area,omitempty"`
	Preference   *collab.Preference       `json:"collaboration_preference,omitempty"`
	ProjectType  string                   `json:"project_type,omitempty"`
	ProjectStage string                   `json:"project_stage,omitempty"`
}

// ProjectResponse is the stored project with its advisory output.
type ProjectResponse struct {
	Project     *project.Project `json:"project"`
	Warnings    []string         `json:"warnings,omitempty"`
	Suggestions []string         `json:"suggestions,omitempty"`
}

// ValidateSettings handles POST /api/v1/collab/validate. Invalid settings
// are a normal result, not an error status.
func (h *CollabHandlers) ValidateSettings(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req SettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !validLabels(w, r, req.ProjectType, req.ProjectStage) {
		return
	}

	res := collab.ValidateProjectSettings(req.Settings)
	suggestions := collab.Suggest(collab.SuggestInput{
		Preference:   req.Settings.Preference,
		Location:     req.Settings.Location,
		ServiceArea:  req.Settings.ServiceArea,
		ProjectType:  req.ProjectType,
		ProjectStage: req.ProjectStage,
	})
	writeJSON(w, r, http.StatusOK, SettingsResponse{
		Valid:       res.Valid(),
		Errors:      nonNil(res.Messages()),
		Warnings:    nonNil(res.Warnings),
		Suggestions: nonNil(suggestions),
	})
}

// SaveProfile handles PUT /api/v1/match/profile for the authenticated user.
func (h *CollabHandlers) SaveProfile(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPut) {
		return
	}
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, r, http.StatusUnauthorized, "auth_required", "authentication required")
		return
	}
	var req ProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	place, ok := h.checkPlace(w, r, req.PlaceInput)
	if !ok {
		return
	}

	pref := collab.DefaultPreference()
	if req.Preference != nil {
		pref = req.Preference.WithDefaults()
	}
	resolved, warnings := h.resolvePlace(r.Context(), place)
	profile := &project.Profile{
		UserID:     userID,
		Coordinate: resolved.Coordinate,
		Address:    resolved.Address,
		City:       resolved.City,
		Region:     resolved.Region,
		Preference: pref,
	}
	if err := h.projects.SaveProfile(r.Context(), profile); err != nil {
		h.writeSaveError(w, r, err, "failed to save profile")
		return
	}
	writeJSON(w, r, http.StatusOK, ProfileResponse{Profile: profile, Warnings: warnings})
}

// CreateProject handles POST /api/v1/projects. The authenticated user
// becomes the founder.
func (h *CollabHandlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, r, http.StatusUnauthorized, "auth_required", "authentication required")
		return
	}
	var req ProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	title, err := validate.Title(req.Title)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, ErrCodeValidation, "title: "+err.Error())
		return
	}
	description, err := validate.Text(req.Description)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, ErrCodeValidation, "description: "+err.Error())
		return
	}
	if !validLabels(w, r, req.ProjectType, req.ProjectStage) {
		return
	}
	place, ok := h.checkPlace(w, r, req.PlaceInput)
	if !ok {
		return
	}

	p := &project.Project{
		FounderID:   userID,
		Title:       title,
		Description: description,
		Status:      project.StatusActive,
		Published:   req.Publish,
		Location:    collab.DefaultLocationSettings(),
		ServiceArea: collab.DefaultServiceArea(),
		Preference:  collab.DefaultPreference(),
	}
	if req.Location != nil {
		p.Location = *req.Location
	}
	if req.ServiceArea != nil {
		p.ServiceArea = *req.ServiceArea
	}
	if req.Preference != nil {
		p.Preference = req.Preference.WithDefaults()
	}

	resolved, warnings := h.resolvePlace(r.Context(), place)
	p.Coordinate = resolved.Coordinate
	p.Address = resolved.Address
	p.City = resolved.City
	p.Region = resolved.Region

	// Save rejects invalid settings; this pass only collects warnings.
	settings := collab.ValidateProjectSettings(collab.ProjectSettings{
		Preference:  &p.Preference,
		Location:    &p.Location,
		ServiceArea: &p.ServiceArea,
		Coordinate:  p.Coordinate,
	})
	if err := h.projects.Save(r.Context(), p); err != nil {
		h.writeSaveError(w, r, err, "failed to save project")
		return
	}
	h.logger.InfoContext(r.Context(), "project created",
		"project_id", p.ID,
		"founder_id", userID,
		"published", p.Published)

	writeJSON(w, r, http.StatusCreated, ProjectResponse{
		Project:  p,
		Warnings: append(warnings, settings.Warnings...),
		Suggestions: collab.Suggest(collab.SuggestInput{
			Preference:   &p.Preference,
			Location:     &p.Location,
			ServiceArea:  &p.ServiceArea,
			ProjectType:  req.ProjectType,
			ProjectStage: req.ProjectStage,
		}),
	})
}

// resolvedPlace is a PlaceInput after geocoding.
type resolvedPlace struct {
	Coordinate *geo.Coordinate
	Address    string
	City       string
	Region     string
}

// checkPlace validates the free-text parts of a place and its coordinate.
func (h *CollabHandlers) checkPlace(w http.ResponseWriter, r *http.Request, in PlaceInput) (PlaceInput, bool) {
	var err error
	if in.Address, err = validate.Address(in.Address); err != nil {
		WriteError(w, r, http.StatusBadRequest, ErrCodeValidation, "address: "+err.Error())
		return in, false
	}
	if in.City, err = validate.Place(in.City); err != nil {
		WriteError(w, r, http.StatusBadRequest, ErrCodeValidation, "city: "+err.Error())
		return in, false
	}
	if in.Region, err = validate.Place(in.Region); err != nil {
		WriteError(w, r, http.StatusBadRequest, ErrCodeValidation, "region: "+err.Error())
		return in, false
	}
	if in.Coordinate != nil {
		if err := in.Coordinate.Validate(); err != nil {
			WriteError(w, r, http.StatusBadRequest, ErrCodeValidation, "coordinate: "+err.Error())
			return in, false
		}
	}
	return in, true
}

// resolvePlace fills what the caller left out. A coordinate without a city
// is reverse geocoded; an address without a coordinate is geocoded.
// Geocoding failures leave the place as given and add a warning.
func (h *CollabHandlers) resolvePlace(ctx context.Context, in PlaceInput) (resolvedPlace, []string) {
	out := resolvedPlace{Address: in.Address, City: in.City, Region: in.Region}
	var warnings []string

	switch {
	case in.Coordinate != nil:
		c := *in.Coordinate
		out.Coordinate = &c
		if out.City != "" || h.geocoder == nil {
			break
		}
		res, err := h.geocoder.ReverseGeocode(ctx, c)
		if err != nil {
			h.logger.WarnContext(ctx, "coordinate could not be reverse geocoded",
				slog.String("error_type", string(geocode.TypeOf(err))),
				slog.String("error", err.Error()))
			warnings = append(warnings, WarningCoordinateUnnamed)
			break
		}
		out.fill(res)
	case in.Address == "":
	case h.geocoder == nil:
		warnings = append(warnings, WarningGeocoderDisabled)
	default:
		res := geocode.Locate(ctx, h.geocoder, h.logger, in.Address)
		if res == nil {
			warnings = append(warnings, WarningAddressUnresolved)
			break
		}
		c := res.Coordinate
		out.Coordinate = &c
		out.fill(res)
	}
	return out, warnings
}

func (p *resolvedPlace) fill(res *geocode.Result) {
	if p.City == "" {
		p.City = res.City
	}
	if p.Region == "" {
		p.Region = res.Province
	}
	if p.Address == "" {
		p.Address = res.FormattedAddress
	}
}

func (h *CollabHandlers) writeSaveError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if errors.Is(err, project.ErrInvalidProject) || isValidationError(err) {
		WriteError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}
	h.logger.ErrorContext(r.Context(), message, "error", err)
	WriteError(w, r, http.StatusInternalServerError, ErrCodeInternal, message)
}

// validLabels checks the optional project type and stage used for suggestions.
func validLabels(w http.ResponseWriter, r *http.Request, labels ...string) bool {
	for _, l := range labels {
		if l == "" {
			continue
		}
		if _, err := validate.ID(l); err != nil {
			WriteError(w, r, http.StatusBadRequest, ErrCodeValidation, "project label: "+err.Error())
			return false
		}
	}
	return true
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
