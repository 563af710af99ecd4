package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	id "finflow/pkg/domain"
	dErrors "finflow/pkg/domain-errors"
)

type ApplicationModelSuite struct {
	suite.Suite
	now time.Time
}

func TestApplicationModelSuite(t *testing.T) {
	suite.Run(t, new(ApplicationModelSuite))
}

func (s *ApplicationModelSuite) SetupTest() {
	s.now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
}

func (s *ApplicationModelSuite) newPending(data Data) *Application {
	app, err := NewApplication(id.NewApplicationID(), id.NewUserID(), id.NewProductID(), data, nil, s.now)
	s.Require().NoError(err)
	return app
}

func (s *ApplicationModelSuite) TestPayloadDecoding() {
	s.Run("accepts flat scalars", func() {
		var data Data
		err := json.Unmarshal([]byte(`{"requested_amount": 50000, "purpose": "inventory", "recurring": true}`), &data)
		s.Require().NoError(err)

		amount, ok := data.Number("requested_amount")
		s.True(ok)
		s.Equal(50000.0, amount)
		purpose, ok := data.String("purpose")
		s.True(ok)
		s.Equal("inventory", purpose)
		recurring, ok := data.Bool("recurring")
		s.True(ok)
		s.True(recurring)
	})

	s.Run("rejects nested values", func() {
		var data Data
		err := json.Unmarshal([]byte(`{"nested": {"a": 1}}`), &data)
		s.Require().Error(err)

		err = json.Unmarshal([]byte(`{"list": [1, 2]}`), &data)
		s.Require().Error(err)

		err = json.Unmarshal([]byte(`{"empty": null}`), &data)
		s.Require().Error(err)
	})

	s.Run("round-trips", func() {
		data := Data{
			"requested_amount": NumberValue(1234.5),
			"purpose":          StringValue("equipment"),
			"recurring":        BoolValue(false),
		}
		raw, err := json.Marshal(data)
		s.Require().NoError(err)

		var back Data
		s.Require().NoError(json.Unmarshal(raw, &back))
		s.Equal(data, back)
	})

	s.Run("typed accessors do not coerce", func() {
		data := Data{"requested_amount": StringValue("50000")}
		_, ok := data.Number("requested_amount")
		s.False(ok)
	})
}

func (s *ApplicationModelSuite) TestAmountResolution() {
	s.Run("requested_amount is canonical", func() {
		data := Data{
			"requested_amount": NumberValue(100),
			"approval_amount":  NumberValue(200),
			"amount":           NumberValue(300),
		}
		amount, ok := data.Amount()
		s.True(ok)
		s.Equal(100.0, amount)
	})

	s.Run("legacy fields are read as fallbacks", func() {
		amount, ok := Data{"approval_amount": NumberValue(200)}.Amount()
		s.True(ok)
		s.Equal(200.0, amount)

		amount, ok = Data{"amount": NumberValue(300)}.Amount()
		s.True(ok)
		s.Equal(300.0, amount)

		_, ok = Data{"purpose": StringValue("x")}.Amount()
		s.False(ok)
	})
}

func (s *ApplicationModelSuite) TestDecide() {
	s.Run("approval defaults amount from payload", func() {
		app := s.newPending(Data{"requested_amount": NumberValue(50000)})
		s.Require().NoError(app.Decide(id.ApplicationApproved, "", nil, s.now))

		s.Equal(id.ApplicationApproved, app.Status)
		s.Require().NotNil(app.ApprovalAmount)
		s.Equal(50000.0, *app.ApprovalAmount)
		s.Require().NotNil(app.DecidedAt)
		s.Equal(s.now, *app.DecidedAt)
	})

	s.Run("approval without any amount stays unset", func() {
		app := s.newPending(nil)
		s.Require().NoError(app.Decide(id.ApplicationApproved, "", nil, s.now))
		s.Nil(app.ApprovalAmount)
	})

	s.Run("rejection requires a reason", func() {
		app := s.newPending(nil)
		err := app.Decide(id.ApplicationRejected, "  ", nil, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal(id.ApplicationPending, app.Status)
	})

	s.Run("terminal records refuse further decisions", func() {
		app := s.newPending(nil)
		s.Require().NoError(app.Decide(id.ApplicationRejected, "too risky", nil, s.now))

		err := app.Decide(id.ApplicationApproved, "", nil, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
		s.Equal(id.ApplicationRejected, app.Status)
		s.Equal("too risky", app.RejectionReason)
	})

	s.Run("pending is not a decision", func() {
		app := s.newPending(nil)
		err := app.Decide(id.ApplicationPending, "", nil, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ApplicationModelSuite) TestNewApplicationValidatesDocuments() {
	_, err := NewApplication(id.NewApplicationID(), id.NewUserID(), id.NewProductID(), nil,
		[]DocumentRef{{Name: "statement", URL: ""}}, s.now)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}
