package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/course-marketplace/internal/events"
	"github.com/SAP-F-2025/course-marketplace/internal/export"
	"github.com/SAP-F-2025/course-marketplace/internal/models"
)

func approveReq() *ProcessOrderRequest {
	return &ProcessOrderRequest{Action: models.OrderActionApprove}
}

func rejectReq(note string) *ProcessOrderRequest {
	return &ProcessOrderRequest{Action: models.OrderActionReject, NoteFromAdmin: strPtr(note)}
}

func TestOrderService_CreateRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.newUser(t, "kim")
	buyer := f.newUser(t, "lee")
	course := f.publishCourse(t, creator.UserID, "Gin", 30)

	tests := []struct {
		name  string
		req   *CreateOrderRequest
		check func(t *testing.T, err error)
	}{
		{
			name: "unknown course",
			req:  &CreateOrderRequest{CourseID: 9999, Amount: 30, PaymentMethod: models.PaymentMomo},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrCourseNotFound)
			},
		},
		{
			name: "unknown payment method",
			req:  &CreateOrderRequest{CourseID: course.ID, Amount: 30, PaymentMethod: "cash"},
			check: func(t *testing.T, err error) {
				var verrs ValidationErrors
				assert.ErrorAs(t, err, &verrs)
			},
		},
		{
			name: "amount below price",
			req:  &CreateOrderRequest{CourseID: course.ID, Amount: 10, PaymentMethod: models.PaymentBankTransfer},
			check: func(t *testing.T, err error) {
				var ruleErr *BusinessRuleError
				require.True(t, errors.As(err, &ruleErr))
				assert.Equal(t, "amount_below_price", ruleErr.Rule)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orders.Create(ctx, tt.req, buyer)
			tt.check(t, err)
		})
	}

	t.Run("creator cannot buy own course", func(t *testing.T) {
		_, err := f.orders.Create(ctx, &CreateOrderRequest{CourseID: course.ID, Amount: 30, PaymentMethod: models.PaymentMomo}, creator)
		assert.ErrorIs(t, err, ErrOwnCourse)
	})

	t.Run("one pending order per course", func(t *testing.T) {
		order := f.placeOrder(t, buyer, course)
		assert.Equal(t, models.OrderPending, order.Status)

		_, err := f.orders.Create(ctx, &CreateOrderRequest{CourseID: course.ID, Amount: 30, PaymentMethod: models.PaymentMomo}, buyer)
		assert.ErrorIs(t, err, ErrOrderPending)
	})

	t.Run("enrolled users cannot order again", func(t *testing.T) {
		other := f.newUser(t, "mo")
		f.enroll(t, other.UserID, course.ID)
		_, err := f.orders.Create(ctx, &CreateOrderRequest{CourseID: course.ID, Amount: 30, PaymentMethod: models.PaymentMomo}, other)
		assert.ErrorIs(t, err, ErrAlreadyEnrolled)
	})
}

func TestOrderService_ApproveEnrolls(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.newUser(t, "ned")
	buyer := f.newUser(t, "ona")
	admin := f.newAdmin(t, "root")
	course := f.publishCourse(t, creator.UserID, "Watermill", 50)

	order := f.placeOrder(t, buyer, course)
	f.publisher.ClearEvents()

	_, err := f.orders.Process(ctx, order.ID, approveReq(), buyer)
	assert.ErrorIs(t, err, ErrForbidden)

	approved, err := f.orders.Process(ctx, order.ID, approveReq(), admin)
	require.NoError(t, err)
	assert.Equal(t, models.OrderApproved, approved.Status)
	assert.NotNil(t, approved.ApproveAt)

	enrolled, err := f.repo.Enrollment().Exists(ctx, nil, buyer.UserID, course.ID)
	require.NoError(t, err)
	assert.True(t, enrolled)

	stored, err := f.repo.Course().GetByID(ctx, nil, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.EnrollCount)

	enrollment, err := f.repo.Enrollment().Get(ctx, nil, buyer.UserID, course.ID)
	require.NoError(t, err)
	assert.Zero(t, enrollment.Progress)
	assert.Nil(t, enrollment.LastWatchedVideo)
	assert.Empty(t, enrollment.CompletedVideos)
	assert.False(t, enrollment.EnrolledAt.IsZero())

	published := f.publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.OrderApproved, published[0].Type)
	data := published[0].Data.(events.OrderEventData)
	assert.Equal(t, "ona@example.com", data.Email)
	assert.Equal(t, "Watermill", data.CourseName)

	_, err = f.orders.Process(ctx, order.ID, approveReq(), admin)
	assert.ErrorIs(t, err, ErrOrderNotPending)

	stored, err = f.repo.Course().GetByID(ctx, nil, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.EnrollCount)
}

func TestOrderService_RejectAndResubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.newUser(t, "pia")
	buyer := f.newUser(t, "rob")
	stranger := f.newUser(t, "sue")
	admin := f.newAdmin(t, "root")
	course := f.publishCourse(t, creator.UserID, "Excel", 8)

	order := f.placeOrder(t, buyer, course)

	_, err := f.orders.Resubmit(ctx, order.ID, nil, buyer)
	assert.ErrorIs(t, err, ErrOrderNotRejected)

	rejected, err := f.orders.Process(ctx, order.ID, rejectReq("proof is unreadable"), admin)
	require.NoError(t, err)
	assert.Equal(t, models.OrderRejected, rejected.Status)
	require.NotNil(t, rejected.NoteFromAdmin)
	assert.Equal(t, "proof is unreadable", *rejected.NoteFromAdmin)

	enrolled, err := f.repo.Enrollment().Exists(ctx, nil, buyer.UserID, course.ID)
	require.NoError(t, err)
	assert.False(t, enrolled)
	stored, err := f.repo.Course().GetByID(ctx, nil, course.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.EnrollCount)

	_, err = f.orders.Resubmit(ctx, order.ID, &ResubmitOrderRequest{}, stranger)
	var permErr *PermissionError
	require.True(t, errors.As(err, &permErr))
	assert.Equal(t, "resubmit", permErr.Action)

	resubmitted, err := f.orders.Resubmit(ctx, order.ID, &ResubmitOrderRequest{Note: strPtr("new proof attached")}, buyer)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, resubmitted.Status)
	assert.Nil(t, resubmitted.NoteFromAdmin)
	assert.Nil(t, resubmitted.ApproveAt)
	require.NotNil(t, resubmitted.Note)
	assert.Equal(t, "new proof attached", *resubmitted.Note)

	_, err = f.orders.Process(ctx, order.ID, approveReq(), admin)
	require.NoError(t, err)
}

func TestOrderService_ApprovalRechecksEnrollment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.newUser(t, "tom")
	buyer := f.newUser(t, "una")
	admin := f.newAdmin(t, "root")
	course := f.publishCourse(t, creator.UserID, "gRPC", 3)

	order := f.placeOrder(t, buyer, course)
	f.enroll(t, buyer.UserID, course.ID)

	_, err := f.orders.Process(ctx, order.ID, approveReq(), admin)
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)
	assert.ErrorIs(t, err, ErrConflict)

	stored, err := f.repo.Order().GetByID(ctx, nil, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, stored.Status)

	course2, err := f.repo.Course().GetByID(ctx, nil, course.ID)
	require.NoError(t, err)
	assert.Zero(t, course2.EnrollCount)
}

func TestOrderService_ConcurrentApprovalsEnrollOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.newUser(t, "val")
	buyer := f.newUser(t, "wes")
	admin := f.newAdmin(t, "root")
	course := f.publishCourse(t, creator.UserID, "Postgres", 12)

	// two pending orders for the same pair, as left by a check-then-act race
	first := f.placeOrder(t, buyer, course)
	second := &models.Order{UserID: buyer.UserID, CourseID: course.ID, Amount: 12, PaymentMethod: models.PaymentZaloPay, Status: models.OrderPending}
	require.NoError(t, f.repo.Order().Create(ctx, nil, second))

	ids := []uint{first.ID, first.ID, second.ID, second.ID}
	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.orders.Process(ctx, id, approveReq(), admin)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, ErrAlreadyEnrolled) || errors.Is(err, ErrOrderNotPending), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	enrollments, err := f.repo.Enrollment().ListByUser(ctx, nil, buyer.UserID)
	require.NoError(t, err)
	assert.Len(t, enrollments, 1)

	stored, err := f.repo.Course().GetByID(ctx, nil, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.EnrollCount)
}

func TestOrderService_ListingsAndExport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.newUser(t, "xia")
	buyer := f.newUser(t, "yan")
	admin := f.newAdmin(t, "root")
	goCourse := f.publishCourse(t, creator.UserID, "Go", 10)
	sqlCourse := f.publishCourse(t, creator.UserID, "SQL", 20)

	f.placeOrder(t, buyer, goCourse)
	rejected := f.placeOrder(t, buyer, sqlCourse)
	_, err := f.orders.Process(ctx, rejected.ID, rejectReq("no"), admin)
	require.NoError(t, err)

	mine, err := f.orders.ListMine(ctx, buyer, PageRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, mine.Total)
	names := []string{mine.Orders[0].CourseName, mine.Orders[1].CourseName}
	assert.ElementsMatch(t, []string{"Go", "SQL"}, names)

	_, err = f.orders.ListAll(ctx, buyer, nil, PageRequest{})
	assert.ErrorIs(t, err, ErrForbidden)

	status := models.OrderRejected
	all, err := f.orders.ListAll(ctx, admin, &status, PageRequest{})
	require.NoError(t, err)
	require.EqualValues(t, 1, all.Total)
	assert.Equal(t, "yan", all.Orders[0].Username)
	assert.Equal(t, "yan@example.com", all.Orders[0].Email)
	assert.Equal(t, "SQL", all.Orders[0].CourseName)

	var buf bytes.Buffer
	assert.ErrorIs(t, f.orders.ExportAll(ctx, buyer, &buf), ErrForbidden)
	require.NoError(t, f.orders.ExportAll(ctx, admin, &buf))

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows(export.OrdersSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestOrderService_ProcessMissingOrder(t *testing.T) {
	f := newFixture(t)
	admin := f.newAdmin(t, "root")

	_, err := f.orders.Process(context.Background(), 4242, approveReq(), admin)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.True(t, errors.Is(err, ErrNotFound))
}
