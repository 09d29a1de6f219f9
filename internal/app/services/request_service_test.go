package services

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deniz/labstock/internal/app/models"
	"github.com/deniz/labstock/internal/app/models/dto"
	"github.com/deniz/labstock/internal/pkg/apperrors"
	"github.com/deniz/labstock/internal/pkg/changefeed"
)

type lifecycleFixture struct {
	store    *memStore
	feed     *recordingFeed
	emails   *recordingEmail
	notifier *Notifier
	service  *RequestService

	student   *models.User
	mentor    *models.User
	component *models.Component
}

func newLifecycleFixture(t *testing.T, totalQuantity int) *lifecycleFixture {
	t.Helper()

	store := newMemStore()
	feed := &recordingFeed{}
	emails := &recordingEmail{}
	notifier := NewNotifier(emails, 2, zerolog.Nop())
	notifier.Start()

	service := NewRequestService(store, store, store, notifier, feed, zerolog.Nop())

	ctx := context.Background()
	studentID, err := store.CreateUser(ctx, &models.User{
		Email: "jane@lab.edu", Name: "Jane Doe", RoleType: models.RoleStudent,
	})
	require.NoError(t, err)
	mentorID, err := store.CreateUser(ctx, &models.User{
		Email: "mentor@lab.edu", Name: "Lab Mentor", RoleType: models.RoleMentor,
	})
	require.NoError(t, err)
	componentID, err := store.CreateComponent(ctx, &models.Component{
		Name: "Arduino Uno R3", TotalQuantity: totalQuantity, AvailableQuantity: totalQuantity,
	})
	require.NoError(t, err)

	student, _ := store.GetUserByID(ctx, studentID)
	mentor, _ := store.GetUserByID(ctx, mentorID)
	component, _ := store.GetComponentByID(ctx, componentID)

	return &lifecycleFixture{
		store:     store,
		feed:      feed,
		emails:    emails,
		notifier:  notifier,
		service:   service,
		student:   student,
		mentor:    mentor,
		component: component,
	}
}

func (f *lifecycleFixture) createRequest(t *testing.T, quantity int) *models.Request {
	t.Helper()
	request, err := f.service.CreateRequest(context.Background(), f.student.ID, &dto.CreateRequest{
		ComponentID: f.component.ID,
		Quantity:    quantity,
		Reason:      "Robotics club final project",
	})
	require.NoError(t, err)
	return request
}

func (f *lifecycleFixture) available(t *testing.T) int {
	t.Helper()
	component, err := f.store.GetComponentByID(context.Background(), f.component.ID)
	require.NoError(t, err)
	return component.AvailableQuantity
}

func TestCreateRequest(t *testing.T) {
	f := newLifecycleFixture(t, 5)

	request := f.createRequest(t, 3)

	assert.Equal(t, models.StatusRequested, request.Status)
	assert.Equal(t, f.student.ID, request.StudentID)
	// Creation never reserves stock
	assert.Equal(t, 5, f.available(t))

	changes := f.feed.byTable(changefeed.TableRequests)
	require.Len(t, changes, 1)
	assert.Equal(t, changefeed.OpInsert, changes[0].Op)

	f.notifier.Stop()
	sent := f.emails.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "received", sent[0].Kind)
	assert.Equal(t, f.mentor.Email, sent[0].To)
	assert.Equal(t, "Jane Doe", sent[0].Fields.StudentName)
}

func TestCreateRequestInvalidQuantity(t *testing.T) {
	f := newLifecycleFixture(t, 5)
	defer f.notifier.Stop()

	_, err := f.service.CreateRequest(context.Background(), f.student.ID, &dto.CreateRequest{
		ComponentID: f.component.ID,
		Quantity:    0,
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidQuantity)

	_, err = f.service.CreateRequest(context.Background(), f.student.ID, &dto.CreateRequest{
		ComponentID: f.component.ID,
		Quantity:    -2,
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidQuantity)
}

func TestCreateRequestInsufficientStock(t *testing.T) {
	f := newLifecycleFixture(t, 5)
	defer f.notifier.Stop()

	_, err := f.service.CreateRequest(context.Background(), f.student.ID, &dto.CreateRequest{
		ComponentID: f.component.ID,
		Quantity:    6,
	})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
}

func TestApproveReservesStock(t *testing.T) {
	f := newLifecycleFixture(t, 5)
	defer f.notifier.Stop()
	request := f.createRequest(t, 3)

	approved, err := f.service.ApproveRequest(context.Background(), request.ID, f.mentor.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, approved.Status)
	assert.Equal(t, 2, f.available(t))
}

func TestApproveSecondRequestInsufficientStock(t *testing.T) {
	f := newLifecycleFixture(t, 5)
	defer f.notifier.Stop()

	first := f.createRequest(t, 3)
	second := f.createRequest(t, 3)

	_, err := f.service.ApproveRequest(context.Background(), first.ID, f.mentor.ID)
	require.NoError(t, err)

	// Only 2 units remain, approval must fail and leave the request pending
	_, err = f.service.ApproveRequest(context.Background(), second.ID, f.mentor.ID)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)

	pending, err := f.store.GetRequestByID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRequested, pending.Status)
	assert.Equal(t, 2, f.available(t))
}

func TestRejectDoesNotTouchStock(t *testing.T) {
	f := newLifecycleFixture(t, 5)
	request := f.createRequest(t, 3)

	rejected, err := f.service.RejectRequest(context.Background(), request.ID, f.mentor.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusRejected, rejected.Status)
	assert.Equal(t, 5, f.available(t))

	f.notifier.Stop()
	sent := f.emails.all()
	require.Len(t, sent, 2)
	assert.Equal(t, "rejected", sent[1].Kind)
	assert.Equal(t, f.student.Email, sent[1].To)
	assert.Equal(t, "Lab Mentor", sent[1].Fields.MentorName)
}

func TestReturnRestoresStock(t *testing.T) {
	f := newLifecycleFixture(t, 5)
	defer f.notifier.Stop()
	request := f.createRequest(t, 3)

	_, err := f.service.ApproveRequest(context.Background(), request.ID, f.mentor.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, f.available(t))

	returned, err := f.service.ReturnRequest(context.Background(), request.ID, f.student.ID, string(models.RoleStudent))
	require.NoError(t, err)

	assert.Equal(t, models.StatusReturned, returned.Status)
	require.NotNil(t, returned.ReturnDate)
	assert.Equal(t, 5, f.available(t))
}

func TestReturnRejectsOtherStudentsRequest(t *testing.T) {
	f := newLifecycleFixture(t, 5)
	defer f.notifier.Stop()
	request := f.createRequest(t, 2)

	_, err := f.service.ApproveRequest(context.Background(), request.ID, f.mentor.ID)
	require.NoError(t, err)

	otherID, err := f.store.CreateUser(context.Background(), &models.User{
		Email: "other@lab.edu", Name: "Other Student", RoleType: models.RoleStudent,
	})
	require.NoError(t, err)

	_, err = f.service.ReturnRequest(context.Background(), request.ID, otherID, string(models.RoleStudent))
	assert.ErrorIs(t, err, apperrors.ErrRequestNotFound)
}

func TestInvalidTransitions(t *testing.T) {
	f := newLifecycleFixture(t, 5)
	defer f.notifier.Stop()

	// Returning a request that was never approved
	pending := f.createRequest(t, 1)
	_, err := f.service.ReturnRequest(context.Background(), pending.ID, f.student.ID, string(models.RoleStudent))
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	// Approving twice
	request := f.createRequest(t, 1)
	_, err = f.service.ApproveRequest(context.Background(), request.ID, f.mentor.ID)
	require.NoError(t, err)
	_, err = f.service.ApproveRequest(context.Background(), request.ID, f.mentor.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	// Rejecting after approval
	_, err = f.service.RejectRequest(context.Background(), request.ID, f.mentor.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestConcurrentApprovalsNeverOversell(t *testing.T) {
	f := newLifecycleFixture(t, 5)
	defer f.notifier.Stop()

	// Two pending requests for 3 of 5 units each; at most one can be approved
	first := f.createRequest(t, 3)
	second := f.createRequest(t, 3)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []int64{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			_, errs[i] = f.service.ApproveRequest(context.Background(), id, f.mentor.ID)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 2, f.available(t))
}

func TestConcurrentApprovalOfSameRequest(t *testing.T) {
	f := newLifecycleFixture(t, 10)
	defer f.notifier.Stop()
	request := f.createRequest(t, 2)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.ApproveRequest(context.Background(), request.ID, f.mentor.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
		}
	}
	// Every duplicate approval must fail, so stock is only reserved once
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 8, f.available(t))
}

func TestListRequestsScoping(t *testing.T) {
	f := newLifecycleFixture(t, 10)
	defer f.notifier.Stop()
	f.createRequest(t, 1)
	f.createRequest(t, 2)

	otherID, err := f.store.CreateUser(context.Background(), &models.User{
		Email: "other@lab.edu", Name: "Other Student", RoleType: models.RoleStudent,
	})
	require.NoError(t, err)

	// Student sees only their own
	mine, err := f.service.ListRequests(context.Background(), f.student.ID, string(models.RoleStudent), "")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	theirs, err := f.service.ListRequests(context.Background(), otherID, string(models.RoleStudent), "")
	require.NoError(t, err)
	assert.Empty(t, theirs)

	// Mentor sees everything
	all, err := f.service.ListRequests(context.Background(), f.mentor.ID, string(models.RoleMentor), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Unknown status filter is rejected
	_, err = f.service.ListRequests(context.Background(), f.mentor.ID, string(models.RoleMentor), "Pending")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestTransitionPublishesComponentChange(t *testing.T) {
	f := newLifecycleFixture(t, 5)
	defer f.notifier.Stop()
	request := f.createRequest(t, 3)

	_, err := f.service.ApproveRequest(context.Background(), request.ID, f.mentor.ID)
	require.NoError(t, err)

	componentChanges := f.feed.byTable(changefeed.TableComponents)
	require.NotEmpty(t, componentChanges)
	last := componentChanges[len(componentChanges)-1]
	component, ok := last.Record.(*models.Component)
	require.True(t, ok)
	assert.Equal(t, 2, component.AvailableQuantity)
}
