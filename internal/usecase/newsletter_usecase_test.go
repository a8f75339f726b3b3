package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/usecase"
)

func TestSubscribe_FirstTimeSendsWelcome(t *testing.T) {
	subs := new(SubscriberRepoMock)
	v := new(ValidatorMock)
	n := new(NotifierMock)
	uc := usecase.NewNewsletterUsecase(subs, v, n, "WELCOME10", testLogger())

	v.On("ValidEmail", "ada@example.com").Return(true)
	subs.On("CreateIfAbsent", mock.Anything, model.Subscriber{Email: "ada@example.com", DiscountCode: "WELCOME10"}).
		Return(model.Subscriber{ID: 1, Email: "ada@example.com", DiscountCode: "WELCOME10"}, true, nil)
	n.On("NewsletterWelcome", mock.Anything, "ada@example.com", "WELCOME10").Return(nil).Once()

	res, err := uc.Subscribe(context.Background(), "  Ada@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, usecase.SubscribeResult{Email: "ada@example.com", DiscountCode: "WELCOME10"}, res)
	n.AssertExpectations(t)
}

func TestSubscribe_AlreadySubscribedReturnsStoredCode(t *testing.T) {
	subs := new(SubscriberRepoMock)
	v := new(ValidatorMock)
	n := new(NotifierMock)
	uc := usecase.NewNewsletterUsecase(subs, v, n, "WELCOME20", testLogger())

	v.On("ValidEmail", mock.Anything).Return(true)
	subs.On("CreateIfAbsent", mock.Anything, mock.Anything).
		Return(model.Subscriber{ID: 1, Email: "ada@example.com", DiscountCode: "WELCOME10"}, false, nil)

	res, err := uc.Subscribe(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.True(t, res.AlreadySubscribed)
	assert.Equal(t, "WELCOME10", res.DiscountCode)
	n.AssertNotCalled(t, "NewsletterWelcome", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubscribe_Errors(t *testing.T) {
	subs := new(SubscriberRepoMock)
	v := new(ValidatorMock)
	n := new(NotifierMock)
	uc := usecase.NewNewsletterUsecase(subs, v, n, "WELCOME10", testLogger())

	v.On("ValidEmail", "bad").Return(false)
	_, err := uc.Subscribe(context.Background(), "bad")
	assertHTTPError(t, err, http.StatusBadRequest, "invalid email")

	v.On("ValidEmail", "ada@example.com").Return(true)
	subs.On("CreateIfAbsent", mock.Anything, mock.Anything).Return(nil, false, errors.New("boom")).Once()
	_, err = uc.Subscribe(context.Background(), "ada@example.com")
	assertHTTPError(t, err, http.StatusInternalServerError, "db error")
}

func TestSubscribe_WelcomeFailureIsNotFatal(t *testing.T) {
	subs := new(SubscriberRepoMock)
	v := new(ValidatorMock)
	n := new(NotifierMock)
	uc := usecase.NewNewsletterUsecase(subs, v, n, "WELCOME10", testLogger())

	v.On("ValidEmail", mock.Anything).Return(true)
	subs.On("CreateIfAbsent", mock.Anything, mock.Anything).
		Return(model.Subscriber{Email: "ada@example.com", DiscountCode: "WELCOME10"}, true, nil)
	n.On("NewsletterWelcome", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	res, err := uc.Subscribe(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.False(t, res.AlreadySubscribed)
}
