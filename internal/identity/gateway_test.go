package identity

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/rental-listing/internal/apperr"
	"github.com/iliyamo/rental-listing/internal/kv"
	"github.com/iliyamo/rental-listing/internal/model"
	q "github.com/iliyamo/rental-listing/internal/queue"
	"github.com/iliyamo/rental-listing/internal/repository"
	"github.com/iliyamo/rental-listing/internal/validate"
)

type recordingPublisher struct {
	sent []q.Envelope
	err  error
}

func (r *recordingPublisher) Publish(_ context.Context, env q.Envelope) error {
	r.sent = append(r.sent, env)
	return r.err
}
func (r *recordingPublisher) Close() error { return nil }

type GatewaySuite struct {
	suite.Suite
	store  *kv.Memory
	users  *repository.UserRepo
	events *recordingPublisher
	gw     *Gateway
	ctx    context.Context
}

func TestGatewaySuite(t *testing.T) {
	suite.Run(t, new(GatewaySuite))
}

func (s *GatewaySuite) SetupTest() {
	s.store = kv.NewMemory()
	s.users = repository.NewUserRepo(s.store)
	s.events = &recordingPublisher{}
	local := NewLocal(NewMemoryAccounts(), NewMemorySessions(), "test-secret", time.Hour, bcrypt.MinCost)
	s.gw = NewGateway(local, s.users, s.events, zap.NewNop(), "")
	s.ctx = context.Background()
}

func alice() validate.SignupInput {
	return validate.SignupInput{
		Username:    "alice123",
		Location:    "Dhaka",
		PhoneNumber: "01711112222",
		NIDNumber:   "1234567890",
		UserType:    "renter",
		Password:    "secret1",
	}
}

func (s *GatewaySuite) requireKind(err error, kind apperr.Kind, status int, msg string) {
	s.T().Helper()
	var ae *apperr.Error
	s.Require().True(errors.As(err, &ae), "expected *apperr.Error, got %v", err)
	s.Equal(kind, ae.Kind)
	s.Equal(status, ae.HTTPStatus())
	if msg != "" {
		s.Equal(msg, ae.Message)
	}
}

func (s *GatewaySuite) TestSignupThenSignin() {
	userID, err := s.gw.Signup(s.ctx, alice())
	s.Require().NoError(err)
	s.NotEmpty(userID)

	res, err := s.gw.Signin(s.ctx, "alice123", "secret1")
	s.Require().NoError(err)
	s.NotEmpty(res.AccessToken)
	s.Equal(userID, res.User.UserID)
	s.Equal("alice123", res.User.Username)
	s.Equal(model.UserTypeRenter, res.User.UserType)
	s.Nil(res.User.ProfilePicture)
	s.Equal(userID, s.gw.Authenticate(s.ctx, res.AccessToken))

	s.Require().Len(s.events.sent, 1)
	s.Equal(q.TypeUserRegistered, s.events.sent[0].Type)
}

func (s *GatewaySuite) TestSigninNormalizesUsername() {
	_, err := s.gw.Signup(s.ctx, alice())
	s.Require().NoError(err)

	res, err := s.gw.Signin(s.ctx, " ALICE 123 ", "secret1")
	s.Require().NoError(err)
	s.Equal("alice123", res.User.Username)
}

func (s *GatewaySuite) TestSignupValidation() {
	s.Run("missing field", func() {
		in := alice()
		in.NIDNumber = ""
		_, err := s.gw.Signup(s.ctx, in)
		s.requireKind(err, apperr.Validation, http.StatusBadRequest, "All fields are required")
	})

	s.Run("bad phone", func() {
		in := alice()
		in.PhoneNumber = "abc"
		_, err := s.gw.Signup(s.ctx, in)
		s.requireKind(err, apperr.Validation, http.StatusBadRequest, "Please enter a valid phone number")
	})

	s.Empty(s.store.Keys())
}

func (s *GatewaySuite) TestDuplicateSignupIsRejectedByProvider() {
	_, err := s.gw.Signup(s.ctx, alice())
	s.Require().NoError(err)

	in := alice()
	in.Username = "Alice123"
	_, err = s.gw.Signup(s.ctx, in)
	s.requireKind(err, apperr.Identity, http.StatusBadRequest, "User already registered")
}

func (s *GatewaySuite) TestSignupSurvivesPublishFailure() {
	s.events.err = errors.New("broker down")
	_, err := s.gw.Signup(s.ctx, alice())
	s.Require().NoError(err)
}

func (s *GatewaySuite) TestSigninFailures() {
	_, err := s.gw.Signup(s.ctx, alice())
	s.Require().NoError(err)

	s.Run("missing credentials", func() {
		_, err := s.gw.Signin(s.ctx, "", "secret1")
		s.requireKind(err, apperr.Validation, http.StatusBadRequest, "Username and password are required")
	})

	s.Run("wrong password", func() {
		_, err := s.gw.Signin(s.ctx, "alice123", "nope-nope")
		s.requireKind(err, apperr.Auth, http.StatusUnauthorized, "Invalid username or password")
	})

	s.Run("unknown user", func() {
		_, err := s.gw.Signin(s.ctx, "mallory", "secret1")
		s.requireKind(err, apperr.Auth, http.StatusUnauthorized, "Invalid username or password")
	})
}

func (s *GatewaySuite) TestSigninWithoutProfileRecord() {
	userID, err := s.gw.Signup(s.ctx, alice())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Delete(s.ctx, "user:"+userID))

	_, err = s.gw.Signin(s.ctx, "alice123", "secret1")
	s.requireKind(err, apperr.NotFound, http.StatusNotFound, "User data not found")
}

func (s *GatewaySuite) TestSignout() {
	_, err := s.gw.Signup(s.ctx, alice())
	s.Require().NoError(err)
	res, err := s.gw.Signin(s.ctx, "alice123", "secret1")
	s.Require().NoError(err)

	s.Require().NoError(s.gw.Signout(s.ctx, res.AccessToken))
	s.Equal("", s.gw.Authenticate(s.ctx, res.AccessToken))

	err = s.gw.Signout(s.ctx, res.AccessToken)
	s.requireKind(err, apperr.Auth, http.StatusUnauthorized, "Unauthorized")
}

func (s *GatewaySuite) TestAuthenticateRejectsBadTokens() {
	s.Equal("", s.gw.Authenticate(s.ctx, ""))
	s.Equal("", s.gw.Authenticate(s.ctx, "   "))
	s.Equal("", s.gw.Authenticate(s.ctx, "not.a.token"))
}
