package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/iliyamo/rental-listing/internal/model"
	"github.com/iliyamo/rental-listing/internal/validate"
)

// Page is the screen a session is on.
type Page string

const (
	PageLanding   Page = "landing"
	PageLogin     Page = "login"
	PageSignup    Page = "signup"
	PageDashboard Page = "dashboard"
	PageProfile   Page = "profile"
)

// SignupRequest is the registration form. ConfirmPassword is checked here
// and sent along; the server compares it only when present.
type SignupRequest struct {
	Username        string `json:"username"`
	Location        string `json:"location"`
	PhoneNumber     string `json:"phoneNumber"`
	NIDNumber       string `json:"nidNumber"`
	UserType        string `json:"userType"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword,omitempty"`
}

// PropertyRequest is the listing form.
type PropertyRequest struct {
	Location          string   `json:"location"`
	MonthlyPriceRange string   `json:"monthlyPriceRange,omitempty"`
	PhoneNumber       string   `json:"phoneNumber"`
	RoomDetails       string   `json:"roomDetails"`
	PropertyType      string   `json:"propertyType"`
	Images            []string `json:"images,omitempty"`
	TemporaryRent     bool     `json:"temporaryRent"`
	TemporaryRentDays *int     `json:"temporaryRentDays,omitempty"`
}

// Upload is the result of an image upload.
type Upload struct {
	FilePath string `json:"filePath"`
	URL      string `json:"url"`
}

// Session is the state of one signed-in (or anonymous) user. It is safe for
// concurrent use.
type Session struct {
	c *Client

	mu         sync.RWMutex
	token      string
	user       *model.User
	properties []model.Property
	page       Page
}

// NewSession starts an anonymous session on the landing page.
func (c *Client) NewSession() *Session {
	return &Session{c: c, page: PageLanding, properties: []model.Property{}}
}

// Resume restores a session from a stored token. An invalid token is
// signed out and an anonymous session is returned with the error.
func (c *Client) Resume(ctx context.Context, token string) (*Session, error) {
	s := c.NewSession()
	if token == "" {
		return s, nil
	}
	s.token = token
	if _, err := s.RefreshUser(ctx); err != nil {
		c.Log.Warn("failed to restore session", zap.Error(err))
		_ = s.Signout(ctx)
		return s, err
	}
	s.setPage(PageDashboard)
	return s, nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the current profile, or nil when signed out.
func (s *Session) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Properties returns the last listing page fetched by this session.
func (s *Session) Properties() []model.Property {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Property(nil), s.properties...)
}

func (s *Session) Page() Page {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page
}

func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.user != nil
}

// Navigate moves to page. The dashboard and profile need a signed-in user;
// anonymous sessions are sent to the login page instead.
func (s *Session) Navigate(page Page) Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	if (page == PageDashboard || page == PageProfile) && (s.token == "" || s.user == nil) {
		page = PageLogin
	}
	s.page = page
	return page
}

func (s *Session) setPage(p Page) {
	s.mu.Lock()
	s.page = p
	s.mu.Unlock()
}

func (s *Session) setUser(u model.User) {
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
}

func (s *Session) authToken() (string, error) {
	t := s.Token()
	if t == "" {
		return "", ErrNotSignedIn
	}
	return t, nil
}

// Signup registers a new account and moves to the login page. It returns
// the new user id.
func (s *Session) Signup(ctx context.Context, req SignupRequest) (string, error) {
	if errs := validate.Signup(validate.SignupInput(req)); errs.HasErrors() {
		return "", &ValidationError{Fields: errs}
	}
	var out struct {
		UserID string `json:"userId"`
	}
	if err := s.c.do(ctx, http.MethodPost, "/signup", "", req, &out); err != nil {
		return "", err
	}
	s.setPage(PageLogin)
	return out.UserID, nil
}

// Signin exchanges credentials for a token and loads the profile.
func (s *Session) Signin(ctx context.Context, username, password string) (model.User, error) {
	if errs := validate.Signin(username, password); errs.HasErrors() {
		return model.User{}, &ValidationError{Fields: errs}
	}
	var out struct {
		AccessToken string     `json:"accessToken"`
		User        model.User `json:"user"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := s.c.do(ctx, http.MethodPost, "/signin", "", body, &out); err != nil {
		return model.User{}, err
	}
	s.mu.Lock()
	s.token = out.AccessToken
	s.user = &out.User
	s.page = PageDashboard
	s.mu.Unlock()
	return out.User, nil
}

// Signout ends the session on the server and clears local state. Local
// state is cleared even when the server call fails.
func (s *Session) Signout(ctx context.Context) error {
	token := s.Token()
	var err error
	if token != "" {
		err = s.c.do(ctx, http.MethodPost, "/signout", token, nil, nil)
	}
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.properties = []model.Property{}
	s.page = PageLanding
	s.mu.Unlock()
	return err
}

// RefreshUser reloads the profile from the server.
func (s *Session) RefreshUser(ctx context.Context) (model.User, error) {
	token, err := s.authToken()
	if err != nil {
		return model.User{}, err
	}
	var out struct {
		User model.User `json:"user"`
	}
	if err := s.c.do(ctx, http.MethodGet, "/user", token, nil, &out); err != nil {
		return model.User{}, err
	}
	s.setUser(out.User)
	return out.User, nil
}

// UpdateProfile sends the supplied fields; nil fields are left unchanged.
func (s *Session) UpdateProfile(ctx context.Context, upd model.ProfileUpdate) (model.User, error) {
	token, err := s.authToken()
	if err != nil {
		return model.User{}, err
	}
	if errs := validate.ProfileUpdate(upd); errs.HasErrors() {
		return model.User{}, &ValidationError{Fields: errs}
	}
	return s.putUser(ctx, "/user/profile", token, upd)
}

// SetProfilePicture stores an uploaded image URL as the avatar.
func (s *Session) SetProfilePicture(ctx context.Context, imageURL string) (model.User, error) {
	token, err := s.authToken()
	if err != nil {
		return model.User{}, err
	}
	if errs := validate.ProfilePicture(imageURL); errs.HasErrors() {
		return model.User{}, &ValidationError{Fields: errs}
	}
	return s.putUser(ctx, "/user/profile-picture", token, map[string]string{"imageUrl": imageURL})
}

func (s *Session) putUser(ctx context.Context, path, token string, body any) (model.User, error) {
	var out struct {
		User model.User `json:"user"`
	}
	if err := s.c.do(ctx, http.MethodPut, path, token, body, &out); err != nil {
		return model.User{}, err
	}
	s.setUser(out.User)
	return out.User, nil
}

// UploadImage uploads r under filename and returns its signed URL.
func (s *Session) UploadImage(ctx context.Context, filename string, r io.Reader) (Upload, error) {
	token, err := s.authToken()
	if err != nil {
		return Upload{}, err
	}
	var out Upload
	if err := s.c.upload(ctx, "/upload-image", token, filename, r, &out); err != nil {
		return Upload{}, err
	}
	return out, nil
}

// CreateProperty posts a listing and then refreshes the listing page. The
// day window for temporary rentals is always enforced here.
func (s *Session) CreateProperty(ctx context.Context, req PropertyRequest) (model.Property, error) {
	token, err := s.authToken()
	if err != nil {
		return model.Property{}, err
	}
	in := validate.PropertyInput{
		Location:          req.Location,
		PhoneNumber:       req.PhoneNumber,
		RoomDetails:       req.RoomDetails,
		PropertyType:      req.PropertyType,
		TemporaryRent:     req.TemporaryRent,
		TemporaryRentDays: req.TemporaryRentDays,
	}
	if errs := validate.Property(in, validate.PropertyRules{StrictRentDays: true}); errs.HasErrors() {
		return model.Property{}, &ValidationError{Fields: errs}
	}
	var out struct {
		Property model.Property `json:"property"`
	}
	if err := s.c.do(ctx, http.MethodPost, "/property", token, req, &out); err != nil {
		return model.Property{}, err
	}
	if _, err := s.ListProperties(ctx, model.PropertyFilter{}); err != nil {
		s.c.Log.Warn("refresh listings after create failed", zap.Error(err))
	}
	return out.Property, nil
}

// ListProperties searches all listings and keeps the result on the session.
func (s *Session) ListProperties(ctx context.Context, f model.PropertyFilter) ([]model.Property, error) {
	path := query("/properties", map[string]string{
		"location":     f.Location,
		"rentType":     f.RentType,
		"propertyType": f.PropertyType,
	})
	return s.fetchProperties(ctx, path)
}

// ListMyProperties returns the signed-in user's listings and keeps them on
// the session.
func (s *Session) ListMyProperties(ctx context.Context) ([]model.Property, error) {
	return s.fetchProperties(ctx, "/user-properties")
}

func (s *Session) fetchProperties(ctx context.Context, path string) ([]model.Property, error) {
	token, err := s.authToken()
	if err != nil {
		return nil, err
	}
	var out struct {
		Properties []model.Property `json:"properties"`
	}
	if err := s.c.do(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	if out.Properties == nil {
		out.Properties = []model.Property{}
	}
	s.mu.Lock()
	s.properties = out.Properties
	s.mu.Unlock()
	return append([]model.Property(nil), out.Properties...), nil
}

// IsAuthError reports whether err is a 401 from the server.
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}
