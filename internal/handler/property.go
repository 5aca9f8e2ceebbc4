package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/rental-listing/internal/apperr"
	"github.com/iliyamo/rental-listing/internal/logger"
	"github.com/iliyamo/rental-listing/internal/metrics"
	"github.com/iliyamo/rental-listing/internal/middleware"
	"github.com/iliyamo/rental-listing/internal/model"
	"github.com/iliyamo/rental-listing/internal/repository"
	"github.com/iliyamo/rental-listing/internal/service"
	"github.com/iliyamo/rental-listing/internal/validate"
)

// PropertyHandler creates and lists property listings.
type PropertyHandler struct {
	Properties *repository.PropertyRepo
	Events     service.Publisher
	Metrics    *metrics.Metrics
	Rules      validate.PropertyRules
}

func NewPropertyHandler(p *repository.PropertyRepo, events service.Publisher, m *metrics.Metrics, rules validate.PropertyRules) *PropertyHandler {
	if events == nil {
		events = service.NopPublisher{}
	}
	return &PropertyHandler{Properties: p, Events: events, Metrics: m, Rules: rules}
}

type propertyReq struct {
	Location          string   `json:"location"`
	MonthlyPriceRange *string  `json:"monthlyPriceRange"`
	PhoneNumber       string   `json:"phoneNumber"`
	RoomDetails       string   `json:"roomDetails"`
	PropertyType      string   `json:"propertyType"`
	Images            []string `json:"images"`
	TemporaryRent     bool     `json:"temporaryRent"`
	TemporaryRentDays *int     `json:"temporaryRentDays"`
}

// Create stores a new listing owned by the authenticated user.
func (h *PropertyHandler) Create(c echo.Context) error {
	var req propertyReq
	if err := bindStrict(c, &req); err != nil {
		return fail(c, err, "Internal server error while creating property")
	}
	in := validate.PropertyInput{
		Location:          req.Location,
		PhoneNumber:       req.PhoneNumber,
		RoomDetails:       req.RoomDetails,
		PropertyType:      req.PropertyType,
		TemporaryRent:     req.TemporaryRent,
		TemporaryRentDays: req.TemporaryRentDays,
	}
	if errs := validate.Property(in, h.Rules); errs.HasErrors() {
		return fail(c, apperr.NewValidation(errs.First()), "")
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	p, err := h.Properties.Create(ctx, toProperty(middleware.UserID(c), req))
	if err != nil {
		return fail(c, err, "Internal server error while creating property")
	}
	h.Metrics.PropertiesCreatedTotal.Inc()
	if err := service.PublishPropertyCreated(ctx, h.Events, p); err != nil {
		logger.FromEcho(c).Warn("publish property.created failed", zap.String("property_id", p.ID), zap.Error(err))
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "property": p})
}

// List returns every listing matching the query filters.
func (h *PropertyHandler) List(c echo.Context) error {
	filter := model.PropertyFilter{
		Location:     c.QueryParam("location"),
		RentType:     c.QueryParam("rentType"),
		PropertyType: c.QueryParam("propertyType"),
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	props, err := h.Properties.ListAll(ctx, filter)
	if err != nil {
		return fail(c, err, "Internal server error while fetching properties")
	}
	return c.JSON(http.StatusOK, echo.Map{"properties": props})
}

// ListMine returns the authenticated user's listings.
func (h *PropertyHandler) ListMine(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	props, err := h.Properties.ListForUser(ctx, middleware.UserID(c))
	if err != nil {
		return fail(c, err, "Internal server error while fetching user properties")
	}
	return c.JSON(http.StatusOK, echo.Map{"properties": props})
}

// toProperty normalizes the request: an empty price becomes null, and the
// day count is only kept for temporary rentals with a non-zero value.
func toProperty(userID string, req propertyReq) model.Property {
	p := model.Property{
		UserID:        userID,
		Location:      strings.TrimSpace(req.Location),
		PhoneNumber:   strings.TrimSpace(req.PhoneNumber),
		RoomDetails:   req.RoomDetails,
		PropertyType:  model.PropertyType(req.PropertyType),
		Images:        req.Images,
		TemporaryRent: req.TemporaryRent,
	}
	if req.MonthlyPriceRange != nil && strings.TrimSpace(*req.MonthlyPriceRange) != "" {
		price := strings.TrimSpace(*req.MonthlyPriceRange)
		p.MonthlyPriceRange = &price
	}
	if req.TemporaryRent && req.TemporaryRentDays != nil && *req.TemporaryRentDays != 0 {
		days := *req.TemporaryRentDays
		p.TemporaryRentDays = &days
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return p
}
